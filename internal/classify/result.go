package classify

// Decision is the binary classification outcome.
type Decision string

const (
	DecisionAllowed Decision = "allowed"
	DecisionBlocked Decision = "blocked"
)

// Result is the classification output shared across all classifiers.
// JSON field names match the frontend API contract.
type Result struct {
	Decision    Decision `json:"decision"`
	Confidence  float64  `json:"classifier_prob"`
	RuleMatches []string `json:"rule_matches"`
	Response    string   `json:"llm_response"`
	Explanation string   `json:"explanation"`
}

// clampConfidence normalizes a reported confidence into [0, 1].
// Values above 1 are treated as percentages.
func clampConfidence(c float64) float64 {
	if c > 1 {
		c = c / 100
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
