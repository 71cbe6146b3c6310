package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tldrapp/scan-summary-service/internal/models"
	"github.com/tldrapp/scan-summary-service/internal/ocr"
)

const visionPrompt = `Read ALL printed or handwritten text in this scanned page, top to bottom.
For each text line give your best reading and, if unsure, up to 2 alternative readings.
Include a confidence between 0 and 1 for every reading.

Return ONLY valid JSON:
{"lines": [{"candidates": [{"text": "...", "confidence": 0.97}]}]}`

// VisionRecognizer uses a multimodal model as the OCR engine
type VisionRecognizer struct {
	provider VisionProvider
}

// NewVisionRecognizer wraps a vision-capable provider as an ocr.Recognizer
func NewVisionRecognizer(provider VisionProvider) *VisionRecognizer {
	return &VisionRecognizer{provider: provider}
}

func (v *VisionRecognizer) Name() string { return v.provider.Name() + "-vision" }

// Recognize ignores the level: the model always reads at full quality
func (v *VisionRecognizer) Recognize(ctx context.Context, pixels []byte, _ ocr.RecognitionLevel) (*models.RecognitionResult, error) {
	start := time.Now()
	response, err := v.provider.CompleteWithImage(ctx, visionPrompt, "image/png", pixels)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Lines []struct {
			Candidates []struct {
				Text       string  `json:"text"`
				Confidence float64 `json:"confidence"`
			} `json:"candidates"`
		} `json:"lines"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(response)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	result := &models.RecognitionResult{Engine: v.Name()}
	for _, line := range raw.Lines {
		var obs models.Observation
		for _, c := range line.Candidates {
			if c.Text == "" {
				continue
			}
			obs.Candidates = append(obs.Candidates, models.Candidate{Text: c.Text, Confidence: c.Confidence})
		}
		if len(obs.Candidates) > 0 {
			result.Observations = append(result.Observations, obs)
		}
	}
	result.Duration = time.Since(start)
	return result, nil
}
