package models

// SentimentResult is the outcome of one classification call.
type SentimentResult struct {
	Text          string    `json:"text"`
	Score         int       `json:"score"`
	Label         string    `json:"label,omitempty"`
	Probabilities []float64 `json:"probabilities"`
	Model         string    `json:"model"`
	Backend       string    `json:"backend"`
}

// Confidence is the probability of the winning class.
func (r SentimentResult) Confidence() float64 {
	if r.Score < 1 || r.Score > len(r.Probabilities) {
		return 0
	}
	return r.Probabilities[r.Score-1]
}
