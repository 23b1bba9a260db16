package sentiment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3, 4, 5})

	require.Len(t, probs, 5)
	assert.InDelta(t, 1.0, sum(probs), 1e-9)
	for i := 1; i < len(probs); i++ {
		assert.Greater(t, probs[i], probs[i-1])
	}
}

func TestSoftmaxShiftInvariant(t *testing.T) {
	a := Softmax([]float32{0.5, -1, 2})
	b := Softmax([]float32{100.5, 99, 102})

	for i := range a {
		assert.InDelta(t, a[i], b[i], 1e-6)
	}
}

func TestSoftmaxLargeLogits(t *testing.T) {
	probs := Softmax([]float32{1000, 1000, -1000})

	assert.InDelta(t, 0.5, probs[0], 1e-9)
	assert.InDelta(t, 0.5, probs[1], 1e-9)
	assert.InDelta(t, 0.0, probs[2], 1e-9)
	for _, p := range probs {
		assert.False(t, math.IsNaN(p))
	}
}

func TestSoftmaxEmpty(t *testing.T) {
	assert.Nil(t, Softmax(nil))
}

func TestScoreFromProbabilities(t *testing.T) {
	tests := []struct {
		name  string
		probs []float64
		want  int
	}{
		{"first", []float64{0.6, 0.1, 0.1, 0.1, 0.1}, 1},
		{"middle", []float64{0.1, 0.1, 0.6, 0.1, 0.1}, 3},
		{"last", []float64{0.05, 0.05, 0.1, 0.2, 0.6}, 5},
		{"tie goes low", []float64{0.1, 0.4, 0.4, 0.05, 0.05}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScoreFromProbabilities(tt.probs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreFromProbabilitiesRejectsBadInput(t *testing.T) {
	_, err := ScoreFromProbabilities(nil)
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	_, err = ScoreFromProbabilities([]float64{0.5, math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	_, err = ScoreFromProbabilities([]float64{math.Inf(1), 0})
	assert.ErrorIs(t, err, ErrInvalidDistribution)
}

func TestValidateDistribution(t *testing.T) {
	assert.NoError(t, ValidateDistribution([]float64{0.2, 0.2, 0.2, 0.2, 0.2}, DISTRIBUTION_TOLERANCE))
	assert.NoError(t, ValidateDistribution([]float64{0.5, 0.50005}, DISTRIBUTION_TOLERANCE))

	assert.ErrorIs(t, ValidateDistribution([]float64{0.5, 0.6}, DISTRIBUTION_TOLERANCE), ErrInvalidDistribution)
	assert.ErrorIs(t, ValidateDistribution([]float64{-0.1, 1.1}, DISTRIBUTION_TOLERANCE), ErrInvalidDistribution)
	assert.ErrorIs(t, ValidateDistribution(nil, DISTRIBUTION_TOLERANCE), ErrInvalidDistribution)
}

func TestResultFromLogitsProperties(t *testing.T) {
	cases := [][]float32{
		{-2.1, -1.3, 0.2, 1.8, 2.9},
		{3.4, 1.1, -0.4, -1.9, -2.2},
		{0, 0, 0, 0, 0},
		{-0.3, 0.1, 2.2, 0.1, -0.3},
		{12, 11.9, -40, 3, 0},
	}

	for _, logits := range cases {
		result, err := ResultFromLogits("text", logits, nil)
		require.NoError(t, err)

		assert.InDelta(t, 1.0, sum(result.Probabilities), 1e-6)
		assert.GreaterOrEqual(t, result.Score, 1)
		assert.LessOrEqual(t, result.Score, 5)

		best := 0
		for i, p := range result.Probabilities {
			if p > result.Probabilities[best] {
				best = i
			}
		}
		assert.Equal(t, best+1, result.Score)
	}
}

func TestResultFromLogitsLabel(t *testing.T) {
	labels := []string{"1 star", "2 stars", "3 stars", "4 stars", "5 stars"}

	result, err := ResultFromLogits("great", []float32{0, 0, 0, 1, 4}, labels)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Score)
	assert.Equal(t, "5 stars", result.Label)
	assert.Equal(t, "great", result.Text)
}

func TestResultFromLogitsEmpty(t *testing.T) {
	_, err := ResultFromLogits("x", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidDistribution)
}

func TestPercentages(t *testing.T) {
	got := Percentages([]float64{0.861234, 0.102, 0.021, 0.00912, 0.006646})
	assert.Equal(t, []float64{86.12, 10.2, 2.1, 0.91, 0.66}, got)
}
