package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/spacesedan/sentiscore/internal/models"
)

const (
	ONNX_FILE_NAME      = "model.onnx"
	TOKENIZER_FILE_NAME = "tokenizer.json"
	CONFIG_FILE_NAME    = "config.json"
)

// ModelPath is where hugot places the artifacts of a hub model.
func ModelPath(modelDir, model string) string {
	return filepath.Join(modelDir, strings.ReplaceAll(model, "/", "_"))
}

// HasModel reports whether a local model directory holds an ONNX graph.
func HasModel(path string) bool {
	matches, err := filepath.Glob(filepath.Join(path, "*.onnx"))
	if err == nil && len(matches) > 0 {
		return true
	}
	matches, err = filepath.Glob(filepath.Join(path, "onnx", "*.onnx"))
	return err == nil && len(matches) > 0
}

// EnsureModel returns a local directory holding the model's ONNX graph,
// tokenizer and config, downloading them from the hub if needed. A model
// name that is already a local directory is used as-is.
func EnsureModel(ctx context.Context, modelDir, model, token string) (string, error) {
	if HasModel(model) {
		slog.Debug("[ModelStore] Using local model directory", slog.String("path", model))
		return model, nil
	}

	modelPath := ModelPath(modelDir, model)
	if HasModel(modelPath) {
		slog.Debug("[ModelStore] Using existing model", slog.String("path", modelPath))
		return modelPath, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(modelDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	slog.Info("[ModelStore] Model not found, downloading...",
		slog.String("model", model),
		slog.String("dir", modelDir))

	opts := hugot.NewDownloadOptions()
	opts.AuthToken = token
	downloaded, err := hugot.DownloadModel(model, modelDir, opts)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", model, err)
	}

	slog.Info("[ModelStore] Model downloaded successfully", slog.String("path", downloaded))
	return downloaded, nil
}

// FindOnnxFile locates the graph inside a model directory, preferring
// model.onnx at the top level.
func FindOnnxFile(path string) (string, error) {
	for _, candidate := range []string{
		filepath.Join(path, ONNX_FILE_NAME),
		filepath.Join(path, "onnx", ONNX_FILE_NAME),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	for _, pattern := range []string{"*.onnx", filepath.Join("onnx", "*.onnx")} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err == nil && len(matches) > 0 {
			return matches[0], nil
		}
	}

	return "", fmt.Errorf("no onnx file in %s", path)
}

// LoadModelConfig reads config.json from a model directory.
func LoadModelConfig(path string) (models.ModelConfig, error) {
	var cfg models.ModelConfig

	raw, err := os.ReadFile(filepath.Join(path, CONFIG_FILE_NAME))
	if err != nil {
		return cfg, fmt.Errorf("failed to read model config: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse model config: %w", err)
	}
	return cfg, nil
}
