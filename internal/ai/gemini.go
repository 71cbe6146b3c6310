package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider talks to Google Gemini
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a Gemini provider
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		apiKey: apiKey,
		model:  model,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Complete sends a text-only prompt
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return p.generate(ctx, genai.Text(prompt))
}

// CompleteWithImage sends the prompt with the image attached
func (p *GeminiProvider) CompleteWithImage(ctx context.Context, prompt string, mimeType string, image []byte) (string, error) {
	format := strings.TrimPrefix(mimeType, "image/")
	return p.generate(ctx, genai.ImageData(format, image), genai.Text(prompt))
}

func (p *GeminiProvider) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	if p.apiKey == "" {
		return "", errors.New("gemini: api key not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini: empty response")
	}
	return sb.String(), nil
}
