package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	Client *openai.Client
}

// NewOpenAIClient builds a chat completions client. An empty baseURL keeps
// the public OpenAI endpoint.
func NewOpenAIClient(baseURL string, apiKey string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	timeout := requestTimeout()
	config.HTTPClient = &http.Client{Timeout: timeout}

	slog.Debug("[OpenAIClient] Initializing Client",
		slog.Duration("timeout", timeout),
		slog.String("base_url", config.BaseURL))

	return &OpenAIClient{
		Client: openai.NewClientWithConfig(config),
	}
}

// FirstTokenLogProbs asks model for a one token answer and returns the log
// probability of each of the top most likely first tokens.
func (o *OpenAIClient) FirstTokenLogProbs(ctx context.Context, model string, instructions string, text string, top int) (map[string]float64, error) {
	start := time.Now()

	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instructions},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxCompletionTokens: 1,
		LogProbs:            true,
		TopLogProbs:         top,
	})
	if err != nil {
		slog.Error("[OpenAIClient] Chat completion failed",
			slog.String("model", model),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].LogProbs == nil || len(resp.Choices[0].LogProbs.Content) == 0 {
		return nil, errors.New("chat completion returned no log probabilities")
	}

	first := resp.Choices[0].LogProbs.Content[0]
	logprobs := map[string]float64{first.Token: first.LogProb}
	for _, candidate := range first.TopLogProbs {
		if _, ok := logprobs[candidate.Token]; !ok {
			logprobs[candidate.Token] = candidate.LogProb
		}
	}

	slog.Debug("[OpenAIClient] Chat completion successful",
		slog.String("model", model),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("candidates", len(logprobs)))
	return logprobs, nil
}

// IsModelRejected reports whether the API refused the key or does not know
// the model. Retrying such a request cannot succeed.
func IsModelRejected(err error) bool {
	var status int
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
