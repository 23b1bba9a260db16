package sentiment

import (
	"testing"

	"github.com/spacesedan/sentiscore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelIndex(t *testing.T) {
	tests := []struct {
		label string
		want  int
		ok    bool
	}{
		{"1 star", 0, true},
		{"2 stars", 1, true},
		{" 5 Stars ", 4, true},
		{"LABEL_0", 0, true},
		{"label_3", 3, true},
		{"0 stars", 0, false},
		{"LABEL_x", 0, false},
		{"positive", 0, false},
	}
	for _, tt := range tests {
		got, ok := LabelIndex(tt.label)
		assert.Equal(t, tt.ok, ok, "label %q", tt.label)
		if tt.ok {
			assert.Equal(t, tt.want, got, "label %q", tt.label)
		}
	}
}

func TestLabelsFromConfig(t *testing.T) {
	labels, err := LabelsFromConfig(models.ModelConfig{ID2Label: map[string]string{
		"2": "3 stars", "0": "1 star", "4": "5 stars", "1": "2 stars", "3": "4 stars",
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1 star", "2 stars", "3 stars", "4 stars", "5 stars"}, labels)

	labels, err = LabelsFromConfig(models.ModelConfig{})
	require.NoError(t, err)
	assert.Nil(t, labels)

	_, err = LabelsFromConfig(models.ModelConfig{ID2Label: map[string]string{"0": "a", "2": "c"}})
	assert.Error(t, err)

	_, err = LabelsFromConfig(models.ModelConfig{ID2Label: map[string]string{"zero": "a"}})
	assert.Error(t, err)
}

func TestOrderedProbabilitiesByLabelName(t *testing.T) {
	// providers return classes sorted by score, not by id
	scores := []models.LabelScore{
		{Label: "5 stars", Score: 0.6},
		{Label: "4 stars", Score: 0.25},
		{Label: "3 stars", Score: 0.1},
		{Label: "1 star", Score: 0.03},
		{Label: "2 stars", Score: 0.02},
	}

	probs, labels, err := OrderedProbabilities(scores, nil)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.03, 0.02, 0.1, 0.25, 0.6}, probs)
	assert.Equal(t, []string{"1 star", "2 stars", "3 stars", "4 stars", "5 stars"}, labels)
}

func TestOrderedProbabilitiesByConfigLabels(t *testing.T) {
	scores := []models.LabelScore{
		{Label: "positive", Score: 0.7},
		{Label: "negative", Score: 0.1},
		{Label: "neutral", Score: 0.2},
	}

	probs, labels, err := OrderedProbabilities(scores, []string{"negative", "neutral", "positive"})
	require.NoError(t, err)

	assert.Equal(t, []float64{0.1, 0.2, 0.7}, probs)
	assert.Equal(t, []string{"negative", "neutral", "positive"}, labels)
}

func TestOrderedProbabilitiesErrors(t *testing.T) {
	_, _, err := OrderedProbabilities(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	_, _, err = OrderedProbabilities([]models.LabelScore{{Label: "positive", Score: 1}}, nil)
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	_, _, err = OrderedProbabilities([]models.LabelScore{{Label: "2 stars", Score: 1}}, nil)
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	_, _, err = OrderedProbabilities([]models.LabelScore{{Label: "other", Score: 1}}, []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidDistribution)
}
