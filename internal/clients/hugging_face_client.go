package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spacesedan/sentiscore/internal/models"
	"golang.org/x/oauth2"
)

var ErrModelNotFound = errors.New("model not found on inference endpoint")

type HuggingFaceClient struct {
	Client         *http.Client
	BaseURL        string
	MaxRetries     int
	InitialBackoff time.Duration
}

func requestTimeout() time.Duration {
	if os.Getenv("APP_ENV") == "production" {
		return 10 * time.Second
	}
	return 60 * time.Second
}

// NewHuggingFaceClient builds a client for the hosted inference API. A
// non-empty token is sent as a bearer token on every request.
func NewHuggingFaceClient(baseURL string, token string) *HuggingFaceClient {
	timeout := requestTimeout()
	httpClient := &http.Client{Timeout: timeout}

	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		httpClient.Timeout = timeout
	}

	slog.Debug("[HuggingFaceClient] Initializing Client",
		slog.Duration("timeout", timeout),
		slog.String("base_url", baseURL),
		slog.Bool("authenticated", token != ""))

	return &HuggingFaceClient{
		Client:         httpClient,
		BaseURL:        strings.TrimRight(baseURL, "/"),
		MaxRetries:     MAX_RETRIES,
		InitialBackoff: INITIAL_BACKOFF,
	}
}

func (h *HuggingFaceClient) modelURL(model string) string {
	return h.BaseURL + "/" + strings.TrimLeft(model, "/")
}

// DoWithRetry retries transport errors and 5xx responses with exponential
// backoff. newRequest is called once per attempt so the body can be replayed.
func (h *HuggingFaceClient) DoWithRetry(ctx context.Context, newRequest func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := h.InitialBackoff
	attempts := max(h.MaxRetries, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		req, buildErr := newRequest()
		if buildErr != nil {
			return nil, buildErr
		}

		resp, err = h.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if attempt == attempts-1 {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}

		slog.Warn("[HuggingFaceClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", errMsg(err, resp)))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}

	if err == nil && resp != nil {
		status := resp.StatusCode
		resp.Body.Close()
		return nil, fmt.Errorf("server error: status code %d", status)
	}
	return nil, err
}

// ClassifyText asks the inference endpoint for every class score of model.
func (h *HuggingFaceClient) ClassifyText(ctx context.Context, model string, input models.TextClassificationRequest) ([]models.LabelScore, error) {
	slog.Debug("[HuggingFaceClient] Requesting text classification",
		slog.String("model", model))
	start := time.Now()

	var raw json.RawMessage
	if err := h.postJSON(ctx, h.modelURL(model), input, &raw); err != nil {
		slog.Error("[HuggingFaceClient] Text classification request failed",
			slog.String("model", model),
			slog.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	scores, err := DecodeLabelScores(raw)
	if err != nil {
		return nil, err
	}

	slog.Debug("[HuggingFaceClient] Text classification request successful",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("classes", len(scores)))
	return scores, nil
}

// DecodeLabelScores accepts both the batched [[{label,score}]] and the flat
// [{label,score}] response shapes.
func DecodeLabelScores(raw []byte) ([]models.LabelScore, error) {
	var nested [][]models.LabelScore
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, errors.New("empty classification response")
		}
		return nested[0], nil
	}

	var flat []models.LabelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(flat) == 0 {
		return nil, errors.New("empty classification response")
	}
	return flat, nil
}

// HealthCheck reports whether the endpoint for model answers without a
// server error.
func (h *HuggingFaceClient) HealthCheck(ctx context.Context, model string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.modelURL(model), nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := h.Client.Do(req)
	if err != nil {
		slog.Warn("[HuggingFaceClient] Health check failed",
			slog.String("model", model),
			slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}

// FetchModelConfig reads config.json of model from the hub at hubURL.
func (h *HuggingFaceClient) FetchModelConfig(ctx context.Context, hubURL string, model string) (models.ModelConfig, error) {
	endpoint := strings.TrimRight(hubURL, "/") + "/" + strings.Trim(model, "/") + "/resolve/main/" + CONFIG_FILE_NAME

	var cfg models.ModelConfig
	if err := h.doJSON(ctx, http.MethodGet, endpoint, nil, &cfg); err != nil {
		return models.ModelConfig{}, err
	}
	return cfg, nil
}

// helper for posting JSON to the inference endpoint
func (h *HuggingFaceClient) postJSON(ctx context.Context, endpoint string, input interface{}, output interface{}) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}
	return h.doJSON(ctx, http.MethodPost, endpoint, body, output)
}

func (h *HuggingFaceClient) doJSON(ctx context.Context, method string, endpoint string, body []byte, output interface{}) error {
	resp, err := h.DoWithRetry(ctx, func() (*http.Request, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("User-Agent", USER_AGENT)
		return req, nil
	})
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed request after retries",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, endpoint)
	case resp.StatusCode >= 400:
		slog.Error("[HuggingFaceClient] Request rejected",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			getPreview(respBody))
		return fmt.Errorf("request rejected: status code %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[HuggingFaceClient] Failed to unmarshal response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))

		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
