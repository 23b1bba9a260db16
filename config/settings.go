package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	DEFAULT_MODEL         = "nlptown/bert-base-multilingual-uncased-sentiment"
	DEFAULT_BACKEND       = "hugot"
	DEFAULT_MODEL_DIR     = "./models"
	DEFAULT_MAX_LENGTH    = 512
	DEFAULT_PADDING       = "longest"
	DEFAULT_INFERENCE_URL = "https://router.huggingface.co/hf-inference/models"
	DEFAULT_HUB_URL       = "https://huggingface.co"
	DEFAULT_OPENAI_URL    = "https://api.openai.com/v1"
	DEFAULT_OPENAI_MODEL  = "gpt-4o-mini"
	DEFAULT_CACHE_TTL     = 10 * time.Minute
)

// Settings is everything the scorer reads from the environment. CLI flags
// are applied on top of it.
type Settings struct {
	Env           string
	Model         string
	Backend       string
	ModelDir      string
	MaxLength     int
	Padding       string
	OnnxLibrary   string
	InferenceURL  string
	HubURL        string
	HFToken       string
	OpenAIURL     string
	OpenAIKey     string
	CacheTTL      time.Duration
	LogLevel      string
	StripMarkdown bool
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("[Config] Ignoring invalid integer",
			slog.String("key", key),
			slog.String("value", raw))
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		slog.Warn("[Config] Ignoring invalid duration",
			slog.String("key", key),
			slog.String("value", raw))
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func GetSettings() Settings {
	return Settings{
		Env:           getEnv("APP_ENV", "dev"),
		Model:         getEnv("SENTIMENT_MODEL", DEFAULT_MODEL),
		Backend:       getEnv("SENTIMENT_BACKEND", DEFAULT_BACKEND),
		ModelDir:      getEnv("SENTIMENT_MODEL_DIR", DEFAULT_MODEL_DIR),
		MaxLength:     getEnvInt("SENTIMENT_MAX_LENGTH", DEFAULT_MAX_LENGTH),
		Padding:       getEnv("SENTIMENT_PADDING", DEFAULT_PADDING),
		OnnxLibrary:   getEnv("ORT_LIBRARY_PATH", ""),
		InferenceURL:  getEnv("HF_INFERENCE_URL", DEFAULT_INFERENCE_URL),
		HubURL:        getEnv("HF_HUB_URL", DEFAULT_HUB_URL),
		HFToken:       getEnv("HF_API_TOKEN", ""),
		OpenAIURL:     getEnv("OPENAI_BASE_URL", DEFAULT_OPENAI_URL),
		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		CacheTTL:      getEnvDuration("SENTIMENT_CACHE_TTL", DEFAULT_CACHE_TTL),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		StripMarkdown: getEnvBool("SENTIMENT_STRIP_MARKDOWN", false),
	}
}
