package sentiment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "tensorflow"

	_, err := New(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model", func(c *Config) { c.Model = " " }},
		{"tiny max length", func(c *Config) { c.MaxLength = 2 }},
		{"bad padding", func(c *Config) { c.Padding = "left" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFactory{}
			registerFake(t, f)
			cfg := fakeConfig()
			tt.mutate(&cfg)

			_, err := New(context.Background(), cfg)
			assert.Error(t, err)
			assert.Zero(t, f.loads.Load())
		})
	}
}

func TestNewPropagatesLoadError(t *testing.T) {
	f := &fakeFactory{err: ErrModelUnavailable}
	registerFake(t, f)

	_, err := New(context.Background(), fakeConfig())
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestGuardedClassifier(t *testing.T) {
	f := &fakeFactory{}
	registerFake(t, f)

	classifier, err := New(context.Background(), fakeConfig())
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), "fine, I guess")
	require.NoError(t, err)
	assert.Equal(t, "fine, I guess", result.Text)
	assert.Equal(t, fakeBackend, result.Backend)
	assert.Equal(t, "org/fake-model", result.Model)
	assert.Equal(t, 4, result.Score)

	_, err = classifier.Classify(context.Background(), "  \n\t")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.EqualValues(t, 1, f.instances[0].calls.Load())

	require.NoError(t, classifier.Close())
	assert.EqualValues(t, 1, f.instances[0].closed.Load())
}

func TestGuardedClassifierStripsMarkdown(t *testing.T) {
	cfg := fakeConfig()
	cfg.StripMarkdown = true
	f := &fakeFactory{}
	registerFake(t, f)

	classifier, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer classifier.Close()

	_, err = classifier.Classify(context.Background(), "[](https://example.com)")
	assert.ErrorIs(t, err, ErrEmptyText)

	result, err := classifier.Classify(context.Background(), "**bold** claim")
	require.NoError(t, err)
	assert.Equal(t, "**bold** claim", result.Text)
}

func TestGuardedClassifierCanceledContext(t *testing.T) {
	f := &fakeFactory{}
	registerFake(t, f)

	classifier, err := New(context.Background(), fakeConfig())
	require.NoError(t, err)
	defer classifier.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = classifier.Classify(ctx, "text")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClassifySentiment(t *testing.T) {
	f := &fakeFactory{}
	registerFake(t, f)

	score, probs, err := ClassifySentiment(context.Background(), "Ten produkt jest wspaniały", "org/fake-model", WithBackend(fakeBackend))
	require.NoError(t, err)

	assert.Equal(t, 4, score)
	assert.Len(t, probs, 5)
	assert.InDelta(t, 1.0, sum(probs), 1e-6)

	// loaded and released per call
	assert.EqualValues(t, 1, f.loads.Load())
	assert.EqualValues(t, 1, f.instances[0].closed.Load())
}

func TestClassifySentimentLexicon(t *testing.T) {
	score, probs, err := ClassifySentiment(context.Background(), "What a wonderful, amazing day!", "", WithBackend(BACKEND_LEXICON))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, score, 4)
	assert.Len(t, probs, 5)
}

func TestClassifySentimentEmptyText(t *testing.T) {
	_, _, err := ClassifySentiment(context.Background(), "", "", WithBackend(BACKEND_LEXICON))
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithBackend(BACKEND_REMOTE),
		WithModelDir("/tmp/models"),
		WithMaxLength(128),
		WithPadding(PADDING_MAX_LENGTH),
		WithOnnxLibrary("/usr/lib/libonnxruntime.so"),
		WithInferenceURL("http://localhost:9000", "token"),
		WithStripMarkdown(true),
	} {
		opt(&cfg)
	}

	assert.Equal(t, Config{
		Backend:       BACKEND_REMOTE,
		Model:         DefaultConfig().Model,
		ModelDir:      "/tmp/models",
		MaxLength:     128,
		Padding:       PADDING_MAX_LENGTH,
		OnnxLibrary:   "/usr/lib/libonnxruntime.so",
		InferenceURL:  "http://localhost:9000",
		HFToken:       "token",
		StripMarkdown: true,
	}, cfg)
}

func TestBackends(t *testing.T) {
	assert.Equal(t, []string{BACKEND_HUGOT, BACKEND_LEXICON, BACKEND_ONNX, BACKEND_OPENAI, BACKEND_REMOTE}, Backends())
}
