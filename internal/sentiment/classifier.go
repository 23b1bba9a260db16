package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spacesedan/sentiscore/config"
	"github.com/spacesedan/sentiscore/internal/models"
)

const (
	BACKEND_HUGOT   = "hugot"
	BACKEND_ONNX    = "onnx"
	BACKEND_REMOTE  = "remote"
	BACKEND_LEXICON = "lexicon"
	BACKEND_OPENAI  = "openai"

	PADDING_LONGEST    = "longest"
	PADDING_MAX_LENGTH = "max_length"
)

var (
	ErrEmptyText        = errors.New("text is empty")
	ErrUnknownBackend   = errors.New("unknown sentiment backend")
	ErrModelUnavailable = errors.New("model artifacts unavailable")
)

// Classifier scores one text at a time.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.SentimentResult, error)
	Close() error
}

type Config struct {
	Backend       string
	Model         string
	ModelDir      string
	MaxLength     int
	Padding       string
	OnnxLibrary   string
	InferenceURL  string
	HubURL        string
	HFToken       string
	OpenAIURL     string
	OpenAIKey     string
	StripMarkdown bool
}

type Option func(*Config)

func WithBackend(backend string) Option {
	return func(c *Config) { c.Backend = backend }
}

func WithModelDir(dir string) Option {
	return func(c *Config) { c.ModelDir = dir }
}

func WithMaxLength(n int) Option {
	return func(c *Config) { c.MaxLength = n }
}

func WithPadding(mode string) Option {
	return func(c *Config) { c.Padding = mode }
}

func WithOnnxLibrary(path string) Option {
	return func(c *Config) { c.OnnxLibrary = path }
}

func WithInferenceURL(url string, token string) Option {
	return func(c *Config) {
		c.InferenceURL = url
		c.HFToken = token
	}
}

func WithHubURL(url string) Option {
	return func(c *Config) { c.HubURL = url }
}

func WithOpenAI(url string, key string) Option {
	return func(c *Config) {
		c.OpenAIURL = url
		c.OpenAIKey = key
	}
}

func WithStripMarkdown(strip bool) Option {
	return func(c *Config) { c.StripMarkdown = strip }
}

func DefaultConfig() Config {
	return Config{
		Backend:      config.DEFAULT_BACKEND,
		Model:        config.DEFAULT_MODEL,
		ModelDir:     config.DEFAULT_MODEL_DIR,
		MaxLength:    config.DEFAULT_MAX_LENGTH,
		Padding:      config.DEFAULT_PADDING,
		InferenceURL: config.DEFAULT_INFERENCE_URL,
		HubURL:       config.DEFAULT_HUB_URL,
		OpenAIURL:    config.DEFAULT_OPENAI_URL,
	}
}

func ConfigFromSettings(s config.Settings) Config {
	return Config{
		Backend:       s.Backend,
		Model:         s.Model,
		ModelDir:      s.ModelDir,
		MaxLength:     s.MaxLength,
		Padding:       s.Padding,
		OnnxLibrary:   s.OnnxLibrary,
		InferenceURL:  s.InferenceURL,
		HubURL:        s.HubURL,
		HFToken:       s.HFToken,
		OpenAIURL:     s.OpenAIURL,
		OpenAIKey:     s.OpenAIKey,
		StripMarkdown: s.StripMarkdown,
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Model) == "" && c.Backend != BACKEND_LEXICON {
		return errors.New("model name is empty")
	}
	if c.MaxLength <= 2 {
		return fmt.Errorf("max length %d leaves no room for text", c.MaxLength)
	}
	if c.Padding != PADDING_LONGEST && c.Padding != PADDING_MAX_LENGTH {
		return fmt.Errorf("unsupported padding mode %q", c.Padding)
	}
	return nil
}

// Factory builds a backend classifier from a validated config.
type Factory func(ctx context.Context, cfg Config) (Classifier, error)

var factories = map[string]Factory{
	BACKEND_HUGOT:   NewHugotClassifier,
	BACKEND_ONNX:    NewOnnxClassifier,
	BACKEND_REMOTE:  NewRemoteClassifier,
	BACKEND_LEXICON: NewLexiconClassifier,
	BACKEND_OPENAI:  NewOpenAIClassifier,
}

func Backends() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New loads the configured backend. The returned classifier rejects empty
// text, applies optional markdown cleanup and stamps model/backend onto every
// result.
func New(ctx context.Context, cfg Config) (Classifier, error) {
	factory, ok := factories[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownBackend, cfg.Backend, strings.Join(Backends(), ", "))
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", cfg.Backend, err)
	}

	start := time.Now()
	inner, err := factory(ctx, cfg)
	if err != nil {
		slog.Error("[Classifier] Failed to load backend",
			slog.String("backend", cfg.Backend),
			slog.String("model", cfg.Model),
			slog.String("error", err.Error()))
		return nil, err
	}

	slog.Debug("[Classifier] Backend loaded",
		slog.String("backend", cfg.Backend),
		slog.String("model", cfg.Model),
		slog.Duration("elapsed", time.Since(start)))

	return &guardedClassifier{inner: inner, cfg: cfg}, nil
}

type guardedClassifier struct {
	inner Classifier
	cfg   Config
}

func (g *guardedClassifier) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	input := text
	if g.cfg.StripMarkdown {
		input = ConvertMarkdownToText(input)
	}
	if strings.TrimSpace(input) == "" {
		return models.SentimentResult{}, ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return models.SentimentResult{}, err
	}

	result, err := g.inner.Classify(ctx, input)
	if err != nil {
		return models.SentimentResult{}, err
	}

	result.Text = text
	result.Backend = g.cfg.Backend
	if result.Model == "" {
		result.Model = g.cfg.Model
	}
	return result, nil
}

func (g *guardedClassifier) Close() error {
	return g.inner.Close()
}

// ClassifySentiment loads the named model, scores text once and releases the
// model again. It returns the 1-based score and the class probabilities.
func ClassifySentiment(ctx context.Context, text string, modelName string, opts ...Option) (int, []float64, error) {
	cfg := DefaultConfig()
	cfg.Model = modelName
	for _, opt := range opts {
		opt(&cfg)
	}

	classifier, err := New(ctx, cfg)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if err := classifier.Close(); err != nil {
			slog.Warn("[Classifier] Failed to release backend",
				slog.String("backend", cfg.Backend),
				slog.String("error", err.Error()))
		}
	}()

	result, err := classifier.Classify(ctx, text)
	if err != nil {
		return 0, nil, err
	}

	return result.Score, result.Probabilities, nil
}
