package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tldrapp/scan-summary-service/internal/models"
)

const (
	DefaultCompression = 0.8
	DefaultLanguage    = "eng"
)

// Load reads the YAML config file, applies environment overrides and fills
// in defaults. A missing file is not an error: defaults plus environment
// are enough to run the CLI.
func Load(path string) (*models.Config, error) {
	var config models.Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&config)
	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values that would otherwise fail deep inside a run
func Validate(config *models.Config) error {
	if c := config.Summary.Compression; c < 0 || c > 1 {
		return fmt.Errorf("summary.compression must be within [0,1], got %v", c)
	}
	switch config.OCR.Engine {
	case "tesseract", "vision":
	default:
		return fmt.Errorf("unsupported OCR engine: %s", config.OCR.Engine)
	}
	switch config.OCR.RecognitionLevel {
	case "accurate", "fast":
	default:
		return fmt.Errorf("ocr.recognition_level must be accurate or fast, got %q", config.OCR.RecognitionLevel)
	}
	switch config.AI.DefaultProvider {
	case "openai", "gemini", "ollama":
	default:
		return fmt.Errorf("unsupported AI provider: %s", config.AI.DefaultProvider)
	}
	return nil
}

func applyEnv(config *models.Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.AI.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.AI.OpenAI.Model = model
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.AI.Gemini.Model = model
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.AI.Ollama.BaseURL = baseURL
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		config.AI.DefaultProvider = provider
	}
	if engine := os.Getenv("OCR_ENGINE"); engine != "" {
		config.OCR.Engine = engine
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

func applyDefaults(config *models.Config) {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.OCR.Engine == "" {
		config.OCR.Engine = "tesseract"
	}
	if config.OCR.Language == "" {
		config.OCR.Language = DefaultLanguage
	}
	if config.OCR.RecognitionLevel == "" {
		config.OCR.RecognitionLevel = "accurate"
	}
	if config.AI.DefaultProvider == "" {
		config.AI.DefaultProvider = "openai"
	}
	if config.AI.OpenAI.Model == "" {
		config.AI.OpenAI.Model = "gpt-4o-mini"
	}
	if config.AI.Gemini.Model == "" {
		config.AI.Gemini.Model = "gemini-1.5-flash"
	}
	if config.AI.Ollama.BaseURL == "" {
		config.AI.Ollama.BaseURL = "http://localhost:11434"
	}
	if config.AI.Ollama.Model == "" {
		config.AI.Ollama.Model = "llama3"
	}
	if config.Summary.Compression == 0 {
		config.Summary.Compression = DefaultCompression
	}
	if config.Summary.Attempts == 0 {
		config.Summary.Attempts = 3
	}
	if config.Summary.RetryDelay == 0 {
		config.Summary.RetryDelay = time.Second
	}
	if config.Summary.Timeout == 0 {
		config.Summary.Timeout = 2 * time.Minute
	}
	if config.Scan.Settle == 0 {
		config.Scan.Settle = 2 * time.Second
	}
	if config.Scan.MaxPages == 0 {
		config.Scan.MaxPages = 50
	}
	if config.Auth.Issuer == "" {
		config.Auth.Issuer = "scan-summary-service"
	}
	if config.Auth.TokenTTL == 0 {
		config.Auth.TokenTTL = 24 * time.Hour
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// NewLogger builds the process logger from the log section
func NewLogger(cfg models.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
