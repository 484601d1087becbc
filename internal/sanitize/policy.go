package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// PolicySanitizer uses a bluemonday strict policy for HTML stripping, then
// applies the same trim/angle-bracket/truncate steps as RegexSanitizer so
// the output contract is identical regardless of which implementation is
// selected at startup.
type PolicySanitizer struct {
	policy *bluemonday.Policy
}

// NewPolicySanitizer creates a sanitizer backed by bluemonday.StrictPolicy,
// which allows no tags and no attributes.
func NewPolicySanitizer() *PolicySanitizer {
	return &PolicySanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize implements Sanitizer.
func (p *PolicySanitizer) Sanitize(text string) string {
	out := p.policy.Sanitize(strings.TrimSpace(text))
	// StrictPolicy entity-escapes stray brackets rather than dropping them;
	// strip any that survive so the no-angle-bracket guarantee holds.
	out = strings.NewReplacer("<", "", ">", "").Replace(out)
	return truncate(strings.TrimSpace(out), MaxQueryLen)
}
