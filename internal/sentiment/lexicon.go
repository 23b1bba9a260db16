package sentiment

import (
	"context"
	"math"

	"github.com/jonreiter/govader"
	"github.com/spacesedan/sentiscore/internal/models"
)

const LEXICON_MODEL = "vader"

// Compound VADER scores are spread over five classes with a Gaussian kernel
// centred on each star rating.
var (
	lexiconCentres = []float64{-1, -0.5, 0, 0.5, 1}
	lexiconLabels  = []string{"1 star", "2 stars", "3 stars", "4 stars", "5 stars"}
)

const lexiconWidth = 0.25

type LexiconClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewLexiconClassifier(_ context.Context, _ Config) (Classifier, error) {
	return &LexiconClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}, nil
}

func (l *LexiconClassifier) Classify(_ context.Context, text string) (models.SentimentResult, error) {
	compound := l.analyzer.PolarityScores(text).Compound

	result, err := ResultFromLogits(text, CompoundLogits(compound), lexiconLabels)
	if err != nil {
		return models.SentimentResult{}, err
	}
	result.Model = LEXICON_MODEL
	return result, nil
}

func (l *LexiconClassifier) Close() error {
	return nil
}

// CompoundLogits maps a compound score in [-1, 1] onto one logit per class.
func CompoundLogits(compound float64) []float32 {
	compound = math.Max(-1, math.Min(1, compound))

	logits := make([]float32, len(lexiconCentres))
	for i, c := range lexiconCentres {
		d := compound - c
		logits[i] = float32(-(d * d) / (2 * lexiconWidth * lexiconWidth))
	}
	return logits
}
