package sentiment

import (
	"errors"
	"fmt"
	"math"

	"github.com/spacesedan/sentiscore/internal/models"
	"gonum.org/v1/gonum/floats"
)

// DISTRIBUTION_TOLERANCE bounds how far a probability vector may drift from 1.
const DISTRIBUTION_TOLERANCE = 1e-4

var ErrInvalidDistribution = errors.New("invalid probability distribution")

// Softmax turns logits into probabilities using the log-sum-exp form so large
// logits do not overflow.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}

	values := make([]float64, len(logits))
	for i, l := range logits {
		values[i] = float64(l)
	}

	lse := floats.LogSumExp(values)
	for i, v := range values {
		values[i] = math.Exp(v - lse)
	}

	return values
}

// ScoreFromProbabilities returns the 1-based index of the most probable class.
// Ties go to the lowest class.
func ScoreFromProbabilities(probabilities []float64) (int, error) {
	if len(probabilities) == 0 {
		return 0, fmt.Errorf("%w: no classes", ErrInvalidDistribution)
	}
	for i, p := range probabilities {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return 0, fmt.Errorf("%w: class %d is %v", ErrInvalidDistribution, i+1, p)
		}
	}

	return floats.MaxIdx(probabilities) + 1, nil
}

func ValidateDistribution(probabilities []float64, tolerance float64) error {
	if len(probabilities) == 0 {
		return fmt.Errorf("%w: no classes", ErrInvalidDistribution)
	}
	for i, p := range probabilities {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("%w: class %d has probability %v", ErrInvalidDistribution, i+1, p)
		}
	}
	if sum := floats.Sum(probabilities); math.Abs(sum-1) > tolerance {
		return fmt.Errorf("%w: sums to %v", ErrInvalidDistribution, sum)
	}
	return nil
}

func ResultFromLogits(text string, logits []float32, labels []string) (models.SentimentResult, error) {
	if len(logits) == 0 {
		return models.SentimentResult{}, fmt.Errorf("%w: empty logits", ErrInvalidDistribution)
	}
	return ResultFromProbabilities(text, Softmax(logits), labels)
}

// ResultFromProbabilities builds a result from an index-ordered distribution.
// labels may be nil; when present it is indexed the same way.
func ResultFromProbabilities(text string, probabilities []float64, labels []string) (models.SentimentResult, error) {
	if err := ValidateDistribution(probabilities, DISTRIBUTION_TOLERANCE); err != nil {
		return models.SentimentResult{}, err
	}

	score, err := ScoreFromProbabilities(probabilities)
	if err != nil {
		return models.SentimentResult{}, err
	}

	var label string
	if score <= len(labels) {
		label = labels[score-1]
	}

	return models.SentimentResult{
		Text:          text,
		Score:         score,
		Label:         label,
		Probabilities: probabilities,
	}, nil
}

// Percentages scales probabilities to percent rounded to two decimals.
func Percentages(probabilities []float64) []float64 {
	out := make([]float64, len(probabilities))
	for i, p := range probabilities {
		out[i] = math.Round(p*100*100) / 100
	}
	return out
}
