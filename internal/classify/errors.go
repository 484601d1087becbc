package classify

import "errors"

// Classifier failure taxonomy. Every AI provider maps its transport and
// envelope failures onto one of these so the arbiter can log them
// distinctly and route to the keyword fallback.
var (
	// ErrConfiguration indicates no API credential is configured.
	ErrConfiguration = errors.New("ai credential not configured")

	// ErrInvalidCredential indicates the AI endpoint rejected the credential
	// (HTTP 400/403). This is an operator problem, not a transient outage.
	ErrInvalidCredential = errors.New("ai credential rejected")

	// ErrIncompleteResponse indicates the AI responded but produced no usable
	// content (refusal, truncation, empty candidate).
	ErrIncompleteResponse = errors.New("ai response incomplete")

	// ErrUnavailable covers every other AI-path fault: network errors,
	// timeouts, 5xx responses, malformed envelopes.
	ErrUnavailable = errors.New("ai classifier unavailable")
)
