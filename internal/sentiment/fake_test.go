package sentiment

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/spacesedan/sentiscore/internal/models"
)

const fakeBackend = "fake"

// fakeClassifier returns fixed logits and counts its lifecycle.
type fakeClassifier struct {
	logits []float32
	calls  atomic.Int32
	closed atomic.Int32
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (models.SentimentResult, error) {
	f.calls.Add(1)
	return ResultFromLogits(text, f.logits, nil)
}

func (f *fakeClassifier) Close() error {
	f.closed.Add(1)
	return nil
}

type fakeFactory struct {
	loads     atomic.Int32
	instances []*fakeClassifier
	err       error
}

func (f *fakeFactory) build(_ context.Context, _ Config) (Classifier, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.loads.Add(1)
	c := &fakeClassifier{logits: []float32{-1, 0, 0.5, 2, 1}}
	f.instances = append(f.instances, c)
	return c, nil
}

func registerFake(t *testing.T, f *fakeFactory) {
	t.Helper()
	factories[fakeBackend] = f.build
	t.Cleanup(func() { delete(factories, fakeBackend) })
}

func fakeConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = fakeBackend
	cfg.Model = "org/fake-model"
	return cfg
}
