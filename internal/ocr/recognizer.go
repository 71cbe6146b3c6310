package ocr

import (
	"context"
	"fmt"

	"github.com/tldrapp/scan-summary-service/internal/models"
)

// RecognitionLevel trades speed for accuracy
type RecognitionLevel int

const (
	Accurate RecognitionLevel = iota
	Fast
)

func (l RecognitionLevel) String() string {
	switch l {
	case Accurate:
		return "accurate"
	case Fast:
		return "fast"
	default:
		return fmt.Sprintf("RecognitionLevel(%d)", int(l))
	}
}

// ParseRecognitionLevel maps the config value to a level
func ParseRecognitionLevel(s string) (RecognitionLevel, error) {
	switch s {
	case "", "accurate":
		return Accurate, nil
	case "fast":
		return Fast, nil
	default:
		return Accurate, fmt.Errorf("unknown recognition level %q", s)
	}
}

// Recognizer is an OCR engine. Input is a PNG pixel buffer as produced by
// Preprocessor.ToPixelBuffer.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, pixels []byte, level RecognitionLevel) (*models.RecognitionResult, error)
}
