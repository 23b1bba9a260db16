package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"unicode/utf8"

	"github.com/daulet/tokenizers"
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelineBackends"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/spacesedan/sentiscore/internal/clients"
	"github.com/spacesedan/sentiscore/internal/models"
)

const hugotPipelineName = "sentimentPipeline"

// TokenSpan is one token of an encoding and the byte range of the text it
// covers. Special tokens cover nothing.
type TokenSpan struct {
	Start   int
	End     int
	Special bool
}

type spanTokenizer interface {
	Spans(text string) []TokenSpan
	Close() error
}

// TruncateText cuts text after the last token that still fits into
// maxLength tokens, special tokens included. Text that already fits is
// returned unchanged.
func TruncateText(tk spanTokenizer, text string, maxLength int) string {
	spans := tk.Spans(text)
	if len(spans) <= maxLength {
		return text
	}

	budget := maxLength
	for _, span := range spans {
		if span.Special {
			budget--
		}
	}

	cut := 0
	for _, span := range spans {
		if span.Special {
			continue
		}
		if budget <= 0 {
			break
		}
		budget--
		cut = max(cut, span.End)
	}

	cut = min(cut, len(text))
	for cut > 0 && cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// HugotClassifier runs a hugot text-classification pipeline on ONNX Runtime.
// hugot tokenizes without a length limit, so text is cut to maxLength tokens
// with the model's own tokenizer first.
type HugotClassifier struct {
	session   *hugot.Session
	pipeline  *pipelines.TextClassificationPipeline
	tokenizer spanTokenizer
	maxLength int
	labels    []string
	model     string
}

func NewHugotClassifier(ctx context.Context, cfg Config) (Classifier, error) {
	modelPath, err := clients.EnsureModel(ctx, cfg.ModelDir, cfg.Model, cfg.HFToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	var sessionOptions []options.WithOption
	if cfg.OnnxLibrary != "" {
		sessionOptions = append(sessionOptions, options.WithOnnxLibraryPath(cfg.OnnxLibrary))
	}

	session, err := hugot.NewORTSession(sessionOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hugot session: %w", err)
	}

	pipelineConfig := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      hugotPipelineName,
		Options: []pipelineBackends.PipelineOption[*pipelines.TextClassificationPipeline]{
			// every class score, normalised with softmax
			pipelines.WithMultiLabel(),
			pipelines.WithSoftmax(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, pipelineConfig)
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("failed to initialize text classification pipeline: %w", err)
	}

	tk, err := tokenizers.FromFile(filepath.Join(modelPath, clients.TOKENIZER_FILE_NAME))
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("%w: failed to load tokenizer: %w", ErrModelUnavailable, err)
	}

	if cfg.Padding == PADDING_MAX_LENGTH {
		slog.Debug("[HugotClassifier] Single texts are never padded, ignoring max_length padding")
	}

	var labels []string
	if modelConfig, err := clients.LoadModelConfig(modelPath); err == nil {
		labels, err = LabelsFromConfig(modelConfig)
		if err != nil {
			slog.Warn("[HugotClassifier] Ignoring model labels", slog.String("error", err.Error()))
			labels = nil
		}
	}

	slog.Info("[HugotClassifier] Pipeline ready",
		slog.String("model", cfg.Model),
		slog.String("path", modelPath),
		slog.Int("labels", len(labels)),
		slog.Int("max_length", cfg.MaxLength))

	return &HugotClassifier{
		session:   session,
		pipeline:  pipeline,
		tokenizer: hfTokenizer{tk: tk},
		maxLength: cfg.MaxLength,
		labels:    labels,
		model:     cfg.Model,
	}, nil
}

func (h *HugotClassifier) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return models.SentimentResult{}, err
	}

	input := TruncateText(h.tokenizer, text, h.maxLength)
	if len(input) < len(text) {
		slog.Debug("[HugotClassifier] Truncated long text",
			slog.Int("bytes", len(text)),
			slog.Int("kept", len(input)))
	}

	output, err := h.pipeline.RunPipeline([]string{input})
	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("text classification failed: %w", err)
	}
	if len(output.ClassificationOutputs) == 0 {
		return models.SentimentResult{}, fmt.Errorf("%w: pipeline returned no output", ErrInvalidDistribution)
	}

	scores := make([]models.LabelScore, 0, len(output.ClassificationOutputs[0]))
	for _, c := range output.ClassificationOutputs[0] {
		scores = append(scores, models.LabelScore{Label: c.Label, Score: float64(c.Score)})
	}

	return resultFromLabelScores(text, scores, h.labels, h.model)
}

func (h *HugotClassifier) Close() error {
	return errors.Join(h.session.Destroy(), h.tokenizer.Close())
}

func resultFromLabelScores(text string, scores []models.LabelScore, labels []string, model string) (models.SentimentResult, error) {
	probabilities, ordered, err := OrderedProbabilities(scores, labels)
	if err != nil {
		return models.SentimentResult{}, err
	}

	result, err := ResultFromProbabilities(text, probabilities, ordered)
	if err != nil {
		return models.SentimentResult{}, err
	}
	result.Model = model
	return result, nil
}
