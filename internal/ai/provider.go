package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tldrapp/scan-summary-service/internal/models"
)

// Provider is a text-completion backend used for summarization
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// VisionProvider can read an image alongside the prompt
type VisionProvider interface {
	Provider
	CompleteWithImage(ctx context.Context, prompt string, mimeType string, image []byte) (string, error)
}

// NewProvider creates the configured AI provider. An empty modelName falls
// back to the provider's configured model.
func NewProvider(cfg models.AIConfig, providerName, modelName string) (VisionProvider, error) {
	switch providerName {
	case "openai":
		model := modelName
		if model == "" {
			model = cfg.OpenAI.Model
		}
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, model), nil

	case "gemini":
		model := modelName
		if model == "" {
			model = cfg.Gemini.Model
		}
		return NewGeminiProvider(cfg.Gemini.APIKey, model), nil

	case "ollama":
		model := modelName
		if model == "" {
			model = cfg.Ollama.Model
		}
		return NewOllamaProvider(cfg.Ollama.BaseURL, model), nil

	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", providerName)
	}
}

// cleanJSON strips markdown code fences models like to wrap JSON in
func cleanJSON(response string) string {
	cleaned := strings.TrimSpace(response)
	backticks := "```"
	cleaned = strings.ReplaceAll(cleaned, backticks+"json", "")
	cleaned = strings.ReplaceAll(cleaned, backticks, "")
	return strings.TrimSpace(cleaned)
}
