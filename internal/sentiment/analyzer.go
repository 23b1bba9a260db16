package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/spacesedan/sentiscore/internal/models"
)

// Analyzer keeps loaded classifiers around between calls. A classifier that
// is not used for ttl is evicted and closed.
//
// The hugot and onnx backends share the process-wide ONNX Runtime
// environment, so at most one of them is held at a time: loading a native
// classifier first closes any other native one.
type Analyzer struct {
	base          Config
	cache         *ttlcache.Cache[string, *cachedClassifier]
	stopEviction  func()
	newClassifier Factory
	mu            sync.Mutex
	closed        bool
}

type cachedClassifier struct {
	Classifier
	native bool
	once   sync.Once
	err    error
}

func isNativeBackend(backend string) bool {
	return backend == BACKEND_HUGOT || backend == BACKEND_ONNX
}

func (c *cachedClassifier) Close() error {
	c.once.Do(func() {
		c.err = c.Classifier.Close()
	})
	return c.err
}

func NewAnalyzer(base Config, ttl time.Duration) *Analyzer {
	return newAnalyzer(base, ttl, New)
}

func newAnalyzer(base Config, ttl time.Duration, factory Factory) *Analyzer {
	cache := ttlcache.New[string, *cachedClassifier](
		ttlcache.WithTTL[string, *cachedClassifier](ttl),
	)

	stop := cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *cachedClassifier]) {
		slog.Debug("[Analyzer] Releasing classifier",
			slog.String("key", item.Key()),
			slog.Int("reason", int(reason)))
		if err := item.Value().Close(); err != nil {
			slog.Warn("[Analyzer] Failed to release classifier",
				slog.String("key", item.Key()),
				slog.String("error", err.Error()))
		}
	})
	go cache.Start()

	return &Analyzer{
		base:          base,
		cache:         cache,
		stopEviction:  stop,
		newClassifier: factory,
	}
}

func cacheKey(cfg Config) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s|%t", cfg.Backend, cfg.Model, cfg.ModelDir, cfg.MaxLength, cfg.Padding, cfg.StripMarkdown)
}

// Classify scores text with the analyzer's base config.
func (a *Analyzer) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	return a.ClassifyWith(ctx, a.base, text)
}

func (a *Analyzer) ClassifyWith(ctx context.Context, cfg Config, text string) (models.SentimentResult, error) {
	classifier, err := a.classifier(ctx, cfg)
	if err != nil {
		return models.SentimentResult{}, err
	}
	return classifier.Classify(ctx, text)
}

func (a *Analyzer) classifier(ctx context.Context, cfg Config) (Classifier, error) {
	key := cacheKey(cfg)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, errors.New("analyzer is closed")
	}

	if item := a.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	native := isNativeBackend(cfg.Backend)
	if native {
		a.releaseNative()
	}

	classifier, err := a.newClassifier(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cached := &cachedClassifier{Classifier: classifier, native: native}
	a.cache.Set(key, cached, ttlcache.DefaultTTL)
	return cached, nil
}

func (a *Analyzer) releaseNative() {
	for key, item := range a.cache.Items() {
		if !item.Value().native {
			continue
		}
		slog.Debug("[Analyzer] Releasing native classifier before loading another",
			slog.String("key", key))
		if err := item.Value().Close(); err != nil {
			slog.Warn("[Analyzer] Failed to release classifier",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		a.cache.Delete(key)
	}
}

// Loaded is the number of classifiers currently held.
func (a *Analyzer) Loaded() int {
	return a.cache.Len()
}

// Close stops the expiry loop and releases every held classifier.
func (a *Analyzer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	a.cache.Stop()
	a.stopEviction()

	var firstErr error
	for _, item := range a.cache.Items() {
		if err := item.Value().Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.cache.DeleteAll()

	return firstErr
}
