package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/tldrapp/scan-summary-service/internal/models"
)

// TesseractOCR runs Tesseract through gosseract. A fresh client is created per
// page because gosseract clients are not safe for concurrent use.
type TesseractOCR struct {
	language      string
	clientFactory func() *gosseract.Client
}

// NewTesseractOCR creates a new Tesseract OCR instance
func NewTesseractOCR(language string) *TesseractOCR {
	if language == "" {
		language = "eng" // Default to English
	}
	return &TesseractOCR{
		language:      language,
		clientFactory: gosseract.NewClient,
	}
}

func (t *TesseractOCR) Name() string { return "tesseract" }

// Recognize performs OCR on a PNG pixel buffer. In accurate mode every text
// line becomes one observation carrying Tesseract's line confidence; fast
// mode reads the plain text and gives each line a single unranked candidate.
func (t *TesseractOCR) Recognize(ctx context.Context, pixels []byte, level RecognitionLevel) (*models.RecognitionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	client := t.clientFactory()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(t.language, "+")...); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetImageFromBytes(pixels); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	var observations []models.Observation
	var err error
	switch level {
	case Fast:
		observations, err = t.fastLines(client)
	default:
		observations, err = t.accurateLines(client)
	}
	if err != nil {
		return nil, err
	}

	return &models.RecognitionResult{
		Observations: observations,
		Engine:       t.Name(),
		Duration:     time.Since(start),
	}, nil
}

func (t *TesseractOCR) accurateLines(client *gosseract.Client) ([]models.Observation, error) {
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}

	observations := make([]models.Observation, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		observations = append(observations, models.Observation{
			Candidates: []models.Candidate{{Text: text, Confidence: b.Confidence / 100.0}},
		})
	}
	return observations, nil
}

func (t *TesseractOCR) fastLines(client *gosseract.Client) ([]models.Observation, error) {
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	return LinesToObservations(text), nil
}

// LinesToObservations turns plain OCR text into one observation per non-blank line
func LinesToObservations(text string) []models.Observation {
	var observations []models.Observation
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		observations = append(observations, models.Observation{
			Candidates: []models.Candidate{{Text: line, Confidence: 1}},
		})
	}
	return observations
}
