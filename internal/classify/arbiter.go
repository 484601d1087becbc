package classify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/queryguard/queryguard-go/internal/sanitize"
)

// Provider is a single AI classification backend. Implementations make one
// bounded call and either return a valid Result or fail with one of the
// typed errors in errors.go, never a silently degraded result.
type Provider interface {
	Name() string
	Classify(ctx context.Context, sanitized string) (*Result, error)
}

// Arbiter orchestrates sanitization, the AI provider attempt, and the
// keyword fallback. It guarantees the system always produces a usable
// decision: Classify never fails, whatever the AI path does.
type Arbiter struct {
	provider  Provider // nil when no AI credential is configured
	sanitizer sanitize.Sanitizer
	logger    *slog.Logger
}

// NewArbiter creates an arbiter. provider may be nil, in which case every
// query goes straight to the keyword fallback.
func NewArbiter(provider Provider, sanitizer sanitize.Sanitizer, logger *slog.Logger) *Arbiter {
	return &Arbiter{provider: provider, sanitizer: sanitizer, logger: logger}
}

// AIConfigured reports whether an AI provider is wired in.
func (a *Arbiter) AIConfigured() bool { return a.provider != nil }

// ProviderName returns the configured provider's name, or empty.
func (a *Arbiter) ProviderName() string {
	if a.provider == nil {
		return ""
	}
	return a.provider.Name()
}

// Classify sanitizes rawText and classifies it, returning the sanitized
// query alongside the result. Input is assumed pre-validated by the request
// boundary. Any provider failure is logged and resolved via the fallback
// classifier, so the caller always gets a Result.
func (a *Arbiter) Classify(ctx context.Context, rawText string) (string, *Result) {
	sanitized := a.sanitizer.Sanitize(rawText)

	if a.provider == nil {
		return sanitized, ClassifyByRules(sanitized)
	}

	result, err := a.provider.Classify(ctx, sanitized)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredential):
			// Operator-visible: the key is wrong, not the network.
			a.logger.Error("ai credential rejected, using fallback",
				"provider", a.provider.Name(), "err", err)
		case errors.Is(err, ErrConfiguration):
			a.logger.Warn("ai provider not configured, using fallback",
				"provider", a.provider.Name())
		default:
			a.logger.Warn("ai classification failed, using fallback",
				"provider", a.provider.Name(), "err", err)
		}
		return sanitized, ClassifyByRules(sanitized)
	}

	return sanitized, result
}
