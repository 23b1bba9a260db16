package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spacesedan/sentiscore/internal/clients"
	"github.com/spacesedan/sentiscore/internal/models"
)

// RemoteClassifier delegates to the hosted Hugging Face inference API.
// Class order comes from the model's id2label on the hub when it can be
// read, otherwise from the label names themselves.
type RemoteClassifier struct {
	client    *clients.HuggingFaceClient
	model     string
	maxLength int
	labels    []string
}

func NewRemoteClassifier(ctx context.Context, cfg Config) (Classifier, error) {
	client := clients.NewHuggingFaceClient(cfg.InferenceURL, cfg.HFToken)

	if !client.HealthCheck(ctx, cfg.Model) {
		slog.Warn("[RemoteClassifier] Inference endpoint is unhealthy, requests may fail",
			slog.String("model", cfg.Model),
			slog.String("base_url", cfg.InferenceURL))
	}

	return newRemoteClassifier(client, cfg, hubLabels(ctx, client, cfg)), nil
}

func hubLabels(ctx context.Context, client *clients.HuggingFaceClient, cfg Config) []string {
	if cfg.HubURL == "" {
		return nil
	}

	modelConfig, err := client.FetchModelConfig(ctx, cfg.HubURL, cfg.Model)
	if err != nil {
		slog.Warn("[RemoteClassifier] Model config unavailable, ordering classes by label name",
			slog.String("model", cfg.Model),
			slog.String("error", err.Error()))
		return nil
	}

	labels, err := LabelsFromConfig(modelConfig)
	if err != nil {
		slog.Warn("[RemoteClassifier] Ignoring model labels", slog.String("error", err.Error()))
		return nil
	}
	return labels
}

func newRemoteClassifier(client *clients.HuggingFaceClient, cfg Config, labels []string) *RemoteClassifier {
	return &RemoteClassifier{
		client:    client,
		model:     cfg.Model,
		maxLength: cfg.MaxLength,
		labels:    labels,
	}
}

func (r *RemoteClassifier) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	request := models.TextClassificationRequest{
		Inputs: text,
		Parameters: models.TextClassificationParameters{
			// large enough to get every class back
			TopK:            100,
			FunctionToApply: "softmax",
			Truncation:      true,
			MaxLength:       r.maxLength,
		},
	}

	scores, err := r.client.ClassifyText(ctx, r.model, request)
	if err != nil {
		if errors.Is(err, clients.ErrModelNotFound) {
			return models.SentimentResult{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
		}
		return models.SentimentResult{}, err
	}

	return resultFromLabelScores(text, scores, r.labels, r.model)
}

func (r *RemoteClassifier) Close() error {
	r.client.Client.CloseIdleConnections()
	return nil
}
