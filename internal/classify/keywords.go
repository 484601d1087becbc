package classify

import (
	"fmt"
	"strings"
)

// Keyword sets for the deterministic fallback classifier. Immutable after init.
var (
	unsafeKeywords = []string{
		"hack", "exploit", "steal", "breach", "password", "crack",
		"bypass", "injection", "malware", "phishing", "vulnerability",
	}

	medicalKeywords = []string{
		"symptom", "treatment", "disease", "medication", "diagnosis",
		"therapy", "condition", "patient", "clinical", "medical",
	}
)

// ClassifyByRules runs the keyword fallback classifier on sanitized query
// text. It is pure and deterministic, performs no I/O, and never fails; the
// arbiter relies on it whenever the AI path is unavailable.
//
// Priority order: unsafe-intent keywords block, medical keywords allow with
// higher confidence, anything else falls through to default-allow.
func ClassifyByRules(sanitized string) *Result {
	lower := strings.ToLower(sanitized)

	if containsAny(lower, unsafeKeywords) {
		return &Result{
			Decision:    DecisionBlocked,
			Confidence:  0.95,
			RuleMatches: []string{"malicious_intent", "security_violation", "keyword_filter"},
			Response:    "",
			Explanation: "Query blocked due to detected malicious keywords or security concerns.",
		}
	}

	if containsAny(lower, medicalKeywords) {
		return &Result{
			Decision:    DecisionAllowed,
			Confidence:  0.82,
			RuleMatches: []string{"medical_information_query", "keyword_approved"},
			Response:    fmt.Sprintf("Your medical query has been analyzed and approved. This is a fallback response as the AI service is unavailable. Your query: \"%s\"", sanitized),
			Explanation: "Query classified as legitimate medical information request based on keyword analysis.",
		}
	}

	// Default-allow with lower confidence. Deliberate policy, do not flip to
	// default-deny without a product decision.
	return &Result{
		Decision:    DecisionAllowed,
		Confidence:  0.70,
		RuleMatches: []string{"general_query", "default_allow"},
		Response:    fmt.Sprintf("Query processed. This is a fallback response. Your query: \"%s\"", sanitized),
		Explanation: "Query allowed with moderate confidence. No malicious indicators detected.",
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
