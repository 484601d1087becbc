// Package sanitize strips markup from raw query text before it enters the
// classification path and validates raw input at the request boundary.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxQueryLen is the maximum query length in characters, enforced by both
// validation (reject) and sanitization (truncate).
const MaxQueryLen = 1000

// Sanitizer strips dangerous characters and markup from query text. Both
// implementations guarantee the same output contract: trimmed, at most
// MaxQueryLen characters, and free of '<' and '>'.
type Sanitizer interface {
	Sanitize(text string) string
}

// New selects a sanitizer implementation by configured name. Unknown names
// fall back to the regex sanitizer.
func New(kind string) Sanitizer {
	if kind == "policy" {
		return NewPolicySanitizer()
	}
	return RegexSanitizer{}
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
)

// RegexSanitizer is the hand-rolled implementation: strip <script> blocks,
// then remaining tags, then stray angle brackets.
type RegexSanitizer struct{}

// Sanitize implements Sanitizer.
func (RegexSanitizer) Sanitize(text string) string {
	out := strings.TrimSpace(text)
	out = scriptRe.ReplaceAllString(out, "")
	out = tagRe.ReplaceAllString(out, "")
	out = strings.NewReplacer("<", "", ">", "").Replace(out)
	return truncate(out, MaxQueryLen)
}

// Validate checks raw query text before sanitization, one error message per
// violated rule. It runs on the raw input; the server side is authoritative.
func Validate(raw string) (bool, []string) {
	var errs []string
	if strings.TrimSpace(raw) == "" {
		errs = append(errs, "Query must be a non-empty string")
	}
	if len([]rune(raw)) > MaxQueryLen {
		errs = append(errs, "Query exceeds maximum length of 1000 characters")
	}
	return len(errs) == 0, errs
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
