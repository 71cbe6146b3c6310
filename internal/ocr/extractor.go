package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tldrapp/scan-summary-service/internal/models"
)

// maximumCandidates is how many hypotheses are kept per text region
const maximumCandidates = 1

// PageError records a page that contributed no text
type PageError struct {
	Index int
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Index+1, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Extractor turns page images into text, one page at a time
type Extractor struct {
	recognizer   Recognizer
	preprocessor *Preprocessor
	level        RecognitionLevel
	logger       *slog.Logger
}

// NewExtractor creates a page text extractor
func NewExtractor(recognizer Recognizer, preprocessor *Preprocessor, level RecognitionLevel, logger *slog.Logger) *Extractor {
	if preprocessor == nil {
		preprocessor = NewPreprocessor(0, true)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		recognizer:   recognizer,
		preprocessor: preprocessor,
		level:        level,
		logger:       logger,
	}
}

// ExtractPage returns the best candidate of every detected region joined by
// newlines. On failure the returned text is empty and the error is a *PageError.
func (e *Extractor) ExtractPage(ctx context.Context, page models.Page) (string, error) {
	pixels, err := e.preprocessor.ToPixelBuffer(page.Data)
	if err != nil {
		return "", &PageError{Index: page.Index, Err: err}
	}

	result, err := e.recognizer.Recognize(ctx, pixels, e.level)
	if err != nil {
		return "", &PageError{Index: page.Index, Err: fmt.Errorf("%s: %w", e.recognizer.Name(), err)}
	}

	lines := make([]string, 0, len(result.Observations))
	for _, observation := range result.Observations {
		top := observation.TopCandidates(maximumCandidates)
		if len(top) == 0 {
			continue
		}
		lines = append(lines, top[0].Text)
	}

	e.logger.Debug("page recognized",
		"page", page.Index+1,
		"engine", result.Engine,
		"observations", len(result.Observations),
		"duration", result.Duration,
	)
	return strings.Join(lines, "\n"), nil
}

// ExtractDocument processes pages sequentially in scan order. The returned
// slice always has one entry per page; failed pages are "" and their errors
// are collected rather than aborting the scan.
func (e *Extractor) ExtractDocument(ctx context.Context, doc *models.ScanDocument) ([]string, []error) {
	texts := make([]string, doc.PageCount())
	var pageErrs []error

	for i, page := range doc.Pages {
		text, err := e.ExtractPage(ctx, page)
		if err != nil {
			e.logger.Warn("page skipped", "scan", doc.ID, "page", i+1, "error", err)
			pageErrs = append(pageErrs, err)
			continue
		}
		texts[i] = text
	}
	return texts, pageErrs
}
