package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var confidenceRe = regexp.MustCompile(`(?i)confidence[:\s]+([0-9.]+)`)

// parseModelText turns free-text model output into a structured Result.
//
// The contract is heuristic on purpose: the decision is "blocked" whenever
// the text contains that substring anywhere, so a response that merely
// discusses the word misclassifies. Kept for compatibility with the
// deployed prompt; replace with structured (JSON-mode) output parsing here
// without touching callers if that contract ever changes.
func parseModelText(text string) *Result {
	decision := DecisionAllowed
	if strings.Contains(strings.ToLower(text), "blocked") {
		decision = DecisionBlocked
	}

	confidence := 0.85
	if m := confidenceRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			confidence = v
		}
	}

	// Rule tags derive from the binary decision only, never from model content.
	matches := []string{"medical_query_approved", "ai_analysis_passed"}
	if decision == DecisionBlocked {
		matches = []string{"ai_safety_filter", "policy_violation"}
	}

	return &Result{
		Decision:    decision,
		Confidence:  clampConfidence(confidence),
		RuleMatches: matches,
		Response:    text,
		Explanation: fmt.Sprintf("AI-powered analysis completed. Query %s.", decision),
	}
}
