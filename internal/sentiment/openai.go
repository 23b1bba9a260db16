package sentiment

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spacesedan/sentiscore/config"
	"github.com/spacesedan/sentiscore/internal/clients"
	"github.com/spacesedan/sentiscore/internal/models"
	"gonum.org/v1/gonum/floats"
)

const (
	OPENAI_CLASSES = 5
	OPENAI_PROMPT  = "Rate the sentiment of the user's message on a scale from 1 (very negative) to 5 (very positive). The message may be in any language. Reply with a single digit and nothing else."
)

// OpenAIClassifier asks a chat model for a one digit rating and reads the
// class distribution off the log probabilities of the candidate digits.
type OpenAIClassifier struct {
	client *clients.OpenAIClient
	model  string
}

// NewOpenAIClassifier uses cfg.Model as the chat model, except when it is
// still the default hub model, which no chat endpoint serves.
func NewOpenAIClassifier(_ context.Context, cfg Config) (Classifier, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrModelUnavailable)
	}

	model := cfg.Model
	if model == "" || model == config.DEFAULT_MODEL {
		model = config.DEFAULT_OPENAI_MODEL
	}

	return &OpenAIClassifier{
		client: clients.NewOpenAIClient(cfg.OpenAIURL, cfg.OpenAIKey),
		model:  model,
	}, nil
}

func (o *OpenAIClassifier) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	logprobs, err := o.client.FirstTokenLogProbs(ctx, o.model, OPENAI_PROMPT, text, OPENAI_CLASSES)
	if err != nil {
		if clients.IsModelRejected(err) {
			return models.SentimentResult{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
		}
		return models.SentimentResult{}, err
	}

	logits, err := RatingLogits(logprobs, OPENAI_CLASSES)
	if err != nil {
		return models.SentimentResult{}, err
	}

	result, err := ResultFromLogits(text, logits, nil)
	if err != nil {
		return models.SentimentResult{}, err
	}
	result.Model = o.model
	return result, nil
}

func (o *OpenAIClassifier) Close() error {
	return nil
}

// RatingLogits picks the log probabilities of the answers "1".."classes" out
// of the candidate tokens. A rating the model did not consider gets -Inf.
func RatingLogits(logprobs map[string]float64, classes int) ([]float32, error) {
	logits := make([]float32, classes)
	for i := range logits {
		logits[i] = float32(math.Inf(-1))
	}

	found := false
	for token, logprob := range logprobs {
		n, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil || n < 1 || n > classes {
			continue
		}
		// " 4" and "4" are different tokens for the same rating
		logits[n-1] = float32(floats.LogSumExp([]float64{float64(logits[n-1]), logprob}))
		found = true
	}

	if !found {
		return nil, fmt.Errorf("%w: no rating among the candidate answers", ErrInvalidDistribution)
	}
	return logits, nil
}
