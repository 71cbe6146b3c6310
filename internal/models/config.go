package models

import "time"

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// AI config (summarization and vision OCR)
	AI AIConfig `yaml:"ai"`

	// Summary config
	Summary SummaryConfig `yaml:"summary"`

	// Scan sources
	Scan ScanConfig `yaml:"scan"`

	Auth AuthConfig `yaml:"auth"`
	Log  LogConfig  `yaml:"log"`
}

// OCRConfig represents OCR-specific configuration
type OCRConfig struct {
	Engine           string `yaml:"engine"`            // "tesseract" or "vision" (the default AI provider reads the page)
	Language         string `yaml:"language"`          // OCR language (default: "eng")
	RecognitionLevel string `yaml:"recognition_level"` // "accurate" or "fast"
	MaxDimension     int    `yaml:"max_dimension"`     // downscale pages larger than this (px), 0 = never
}

// AIConfig represents AI provider configuration
type AIConfig struct {
	// OpenAI
	OpenAI OpenAIConfig `yaml:"openai"`

	// Gemini
	Gemini GeminiConfig `yaml:"gemini"`

	// Ollama (local)
	Ollama OllamaConfig `yaml:"ollama"`

	// Default provider
	DefaultProvider string `yaml:"default_provider"` // "openai", "gemini", "ollama"

	// Requests per minute across all providers, 0 = unlimited
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// OllamaConfig for local Ollama
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"` // Default: "http://localhost:11434"
	Model   string `yaml:"model"`    // e.g., "mistral", "llama3"
}

// SummaryConfig controls the summarization step
type SummaryConfig struct {
	Compression float64       `yaml:"compression"` // fraction of the text to retain
	Attempts    uint          `yaml:"attempts"`    // provider attempts before giving up
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ScanConfig controls the hot folder watcher
type ScanConfig struct {
	WatchDir string        `yaml:"watch_dir"`
	Settle   time.Duration `yaml:"settle"` // quiet period before a folder counts as a complete scan
	MaxPages int           `yaml:"max_pages"`
}

// AuthConfig holds the JWT settings
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
	Disabled bool          `yaml:"disabled"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
