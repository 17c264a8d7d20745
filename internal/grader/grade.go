package grader

// Subscore is one weighted grading term. Score is a fail-fast value derived
// from a single grading run: 1.0 pass, 0.0 fail.
type Subscore struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Score  float64 `json:"score"`
	Detail string  `json:"detail,omitempty"`
}

// FromSubscores combines weighted sub-scores into the final reward:
// sum(weight_i * score_i) / sum(weight_i). Weights are not forced to sum
// to 1; the raw weighted sum is normalized by the actual weight total.
func FromSubscores(subs []Subscore) float64 {
	var total, weighted float64
	for _, sub := range subs {
		if sub.Weight <= 0 {
			continue
		}
		total += sub.Weight
		weighted += sub.Weight * sub.Score
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}
