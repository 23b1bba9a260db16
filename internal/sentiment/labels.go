package sentiment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spacesedan/sentiscore/internal/models"
)

// LabelIndex maps a provider label onto a 0-based class index. It understands
// star ratings ("1 star", "4 stars") and generic "LABEL_n" names.
func LabelIndex(label string) (int, bool) {
	l := strings.ToLower(strings.TrimSpace(label))

	if rest, ok := strings.CutPrefix(l, "label_"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}

	for _, suffix := range []string{" stars", " star"} {
		if rest, ok := strings.CutSuffix(l, suffix); ok {
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil || n < 1 {
				return 0, false
			}
			return n - 1, true
		}
	}

	return 0, false
}

// LabelsFromConfig orders the id2label map of a model config by id.
func LabelsFromConfig(cfg models.ModelConfig) ([]string, error) {
	if len(cfg.ID2Label) == 0 {
		return nil, nil
	}

	labels := make([]string, len(cfg.ID2Label))
	seen := make([]bool, len(cfg.ID2Label))
	for rawID, label := range cfg.ID2Label {
		id, err := strconv.Atoi(rawID)
		if err != nil || id < 0 || id >= len(labels) {
			return nil, fmt.Errorf("id2label has unexpected id %q", rawID)
		}
		labels[id] = label
		seen[id] = true
	}
	for id, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("id2label is missing id %d", id)
		}
	}

	return labels, nil
}

// OrderedProbabilities arranges (label, score) pairs by class index. When
// labels is given it is the authoritative order, otherwise label names are
// parsed with LabelIndex.
func OrderedProbabilities(scores []models.LabelScore, labels []string) ([]float64, []string, error) {
	if len(scores) == 0 {
		return nil, nil, fmt.Errorf("%w: no scores", ErrInvalidDistribution)
	}

	if len(labels) > 0 {
		position := make(map[string]int, len(labels))
		for i, l := range labels {
			position[l] = i
		}
		probabilities := make([]float64, len(labels))
		for _, s := range scores {
			i, ok := position[s.Label]
			if !ok {
				return nil, nil, fmt.Errorf("%w: unknown label %q", ErrInvalidDistribution, s.Label)
			}
			probabilities[i] = s.Score
		}
		return probabilities, labels, nil
	}

	type indexed struct {
		index int
		score models.LabelScore
	}
	items := make([]indexed, 0, len(scores))
	for _, s := range scores {
		i, ok := LabelIndex(s.Label)
		if !ok {
			return nil, nil, fmt.Errorf("%w: cannot order label %q", ErrInvalidDistribution, s.Label)
		}
		items = append(items, indexed{index: i, score: s})
	}
	sort.Slice(items, func(a, b int) bool { return items[a].index < items[b].index })

	probabilities := make([]float64, len(items))
	ordered := make([]string, len(items))
	for pos, item := range items {
		if item.index != pos {
			return nil, nil, fmt.Errorf("%w: labels do not cover classes 0..%d", ErrInvalidDistribution, len(items)-1)
		}
		probabilities[pos] = item.score.Score
		ordered[pos] = item.score.Label
	}

	return probabilities, ordered, nil
}
