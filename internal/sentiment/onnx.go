package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/daulet/tokenizers"
	"github.com/spacesedan/sentiscore/internal/clients"
	"github.com/spacesedan/sentiscore/internal/models"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	INPUT_IDS      = "input_ids"
	ATTENTION_MASK = "attention_mask"
	TOKEN_TYPE_IDS = "token_type_ids"
	LOGITS         = "logits"
	PAD_TOKEN_ID   = 0
)

// Tokenizer turns text into token ids (with special tokens) and segment ids.
type Tokenizer interface {
	Encode(text string) (ids []uint32, typeIDs []uint32)
	Close() error
}

type hfTokenizer struct {
	tk *tokenizers.Tokenizer
}

func loadTokenizer(modelPath string) (Tokenizer, error) {
	tk, err := tokenizers.FromFile(filepath.Join(modelPath, clients.TOKENIZER_FILE_NAME))
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return hfTokenizer{tk: tk}, nil
}

func (t hfTokenizer) Encode(text string) ([]uint32, []uint32) {
	enc := t.tk.EncodeWithOptions(text, true, tokenizers.WithReturnTypeIDs())
	return enc.IDs, enc.TypeIDs
}

func (t hfTokenizer) Spans(text string) []TokenSpan {
	enc := t.tk.EncodeWithOptions(text, true,
		tokenizers.WithReturnOffsets(),
		tokenizers.WithReturnSpecialTokensMask())

	spans := make([]TokenSpan, len(enc.IDs))
	for i := range spans {
		if i < len(enc.Offsets) {
			spans[i].Start = int(enc.Offsets[i][0])
			spans[i].End = int(enc.Offsets[i][1])
		}
		spans[i].Special = i < len(enc.SpecialTokensMask) && enc.SpecialTokensMask[i] == 1
	}
	return spans
}

func (t hfTokenizer) Close() error {
	return t.tk.Close()
}

// Encoding is one tokenized input, every slice the same length.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TypeIDs       []int64
}

func (e Encoding) Len() int {
	return len(e.InputIDs)
}

// BuildEncoding truncates ids to maxLength, keeping the trailing special
// token, and pads to maxLength when padding is PADDING_MAX_LENGTH. With
// PADDING_LONGEST a single input is never padded.
func BuildEncoding(ids []uint32, typeIDs []uint32, maxLength int, padding string) Encoding {
	if len(typeIDs) != len(ids) {
		typeIDs = make([]uint32, len(ids))
	}

	ids, typeIDs = truncate(ids, maxLength), truncate(typeIDs, maxLength)

	length := len(ids)
	if padding == PADDING_MAX_LENGTH && length < maxLength {
		length = maxLength
	}

	enc := Encoding{
		InputIDs:      make([]int64, length),
		AttentionMask: make([]int64, length),
		TypeIDs:       make([]int64, length),
	}
	for i := range ids {
		enc.InputIDs[i] = int64(ids[i])
		enc.AttentionMask[i] = 1
		enc.TypeIDs[i] = int64(typeIDs[i])
	}
	for i := len(ids); i < length; i++ {
		enc.InputIDs[i] = PAD_TOKEN_ID
	}

	return enc
}

func truncate(values []uint32, maxLength int) []uint32 {
	if len(values) <= maxLength {
		return values
	}
	out := make([]uint32, maxLength)
	copy(out, values[:maxLength-1])
	out[maxLength-1] = values[len(values)-1]
	return out
}

// OnnxClassifier tokenizes and runs the raw ONNX graph itself, then applies
// softmax to the logits.
type OnnxClassifier struct {
	session         *ort.DynamicAdvancedSession
	tokenizer       Tokenizer
	inputNames      []string
	numLabels       int
	labels          []string
	maxLength       int
	padding         string
	model           string
	ownsEnvironment bool
}

func NewOnnxClassifier(ctx context.Context, cfg Config) (Classifier, error) {
	modelPath, err := clients.EnsureModel(ctx, cfg.ModelDir, cfg.Model, cfg.HFToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	onnxPath, err := clients.FindOnnxFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	ownsEnvironment := false
	if !ort.IsInitialized() {
		if cfg.OnnxLibrary != "" {
			ort.SetSharedLibraryPath(cfg.OnnxLibrary)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
		}
		ownsEnvironment = true
	}

	c := &OnnxClassifier{
		maxLength:       cfg.MaxLength,
		padding:         cfg.Padding,
		model:           cfg.Model,
		ownsEnvironment: ownsEnvironment,
	}
	if err := c.load(modelPath, onnxPath); err != nil {
		c.Close()
		return nil, err
	}

	slog.Info("[OnnxClassifier] Session ready",
		slog.String("model", cfg.Model),
		slog.String("onnx", onnxPath),
		slog.Int("labels", c.numLabels),
		slog.Any("inputs", c.inputNames))
	return c, nil
}

func (c *OnnxClassifier) load(modelPath, onnxPath string) error {
	inputs, outputs, err := ort.GetInputOutputInfo(onnxPath)
	if err != nil {
		return fmt.Errorf("failed to inspect onnx graph: %w", err)
	}

	c.inputNames, err = selectInputs(infoNames(inputs))
	if err != nil {
		return err
	}

	outputName, outputDims, err := selectLogits(outputs)
	if err != nil {
		return err
	}

	if modelConfig, err := clients.LoadModelConfig(modelPath); err == nil {
		if c.labels, err = LabelsFromConfig(modelConfig); err != nil {
			slog.Warn("[OnnxClassifier] Ignoring model labels", slog.String("error", err.Error()))
			c.labels = nil
		}
	}
	c.numLabels = len(c.labels)
	if c.numLabels == 0 && len(outputDims) > 0 && outputDims[len(outputDims)-1] > 0 {
		c.numLabels = int(outputDims[len(outputDims)-1])
	}
	if c.numLabels == 0 {
		return errors.New("cannot determine the number of classes")
	}

	c.tokenizer, err = loadTokenizer(modelPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	c.session, err = ort.NewDynamicAdvancedSession(onnxPath, c.inputNames, []string{outputName}, nil)
	if err != nil {
		return fmt.Errorf("failed to create onnx session: %w", err)
	}
	return nil
}

func infoNames(infos []ort.InputOutputInfo) []string {
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}

// selectInputs orders the graph inputs we know how to feed.
func selectInputs(names []string) ([]string, error) {
	selected := make([]string, 0, 3)
	for _, want := range []string{INPUT_IDS, ATTENTION_MASK, TOKEN_TYPE_IDS} {
		if slices.Contains(names, want) {
			selected = append(selected, want)
		}
	}
	for _, required := range []string{INPUT_IDS, ATTENTION_MASK} {
		if !slices.Contains(selected, required) {
			return nil, fmt.Errorf("onnx graph has no %s input (inputs: %s)", required, strings.Join(names, ", "))
		}
	}
	if len(selected) != len(names) {
		return nil, fmt.Errorf("onnx graph has unsupported inputs: %s", strings.Join(names, ", "))
	}
	return selected, nil
}

func selectLogits(outputs []ort.InputOutputInfo) (string, []int64, error) {
	for _, out := range outputs {
		if strings.EqualFold(out.Name, LOGITS) {
			return out.Name, out.Dimensions, nil
		}
	}
	if len(outputs) == 1 {
		return outputs[0].Name, outputs[0].Dimensions, nil
	}
	return "", nil, fmt.Errorf("onnx graph has no logits output (outputs: %s)", strings.Join(infoNames(outputs), ", "))
}

func (c *OnnxClassifier) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return models.SentimentResult{}, err
	}

	ids, typeIDs := c.tokenizer.Encode(text)
	enc := BuildEncoding(ids, typeIDs, c.maxLength, c.padding)

	logits, err := c.forward(enc)
	if err != nil {
		return models.SentimentResult{}, err
	}

	result, err := ResultFromLogits(text, logits, c.labels)
	if err != nil {
		return models.SentimentResult{}, err
	}
	result.Model = c.model
	return result, nil
}

func (c *OnnxClassifier) forward(enc Encoding) ([]float32, error) {
	shape := ort.NewShape(1, int64(enc.Len()))
	feeds := map[string][]int64{
		INPUT_IDS:      enc.InputIDs,
		ATTENTION_MASK: enc.AttentionMask,
		TOKEN_TYPE_IDS: enc.TypeIDs,
	}

	inputs := make([]ort.Value, 0, len(c.inputNames))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, name := range c.inputNames {
		tensor, err := ort.NewTensor(shape, feeds[name])
		if err != nil {
			return nil, fmt.Errorf("failed to allocate %s tensor: %w", name, err)
		}
		inputs = append(inputs, tensor)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(c.numLabels)))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate logits tensor: %w", err)
	}
	defer output.Destroy()

	if err := c.session.Run(inputs, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx inference failed: %w", err)
	}

	return slices.Clone(output.GetData()), nil
}

func (c *OnnxClassifier) Close() error {
	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Destroy())
	}
	if c.tokenizer != nil {
		errs = append(errs, c.tokenizer.Close())
	}
	if c.ownsEnvironment {
		errs = append(errs, ort.DestroyEnvironment())
	}
	return errors.Join(errs...)
}
