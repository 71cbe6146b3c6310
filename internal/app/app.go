// Package app assembles the scan pipeline from configuration.
package app

import (
	"fmt"
	"log/slog"

	"github.com/tldrapp/scan-summary-service/internal/ai"
	"github.com/tldrapp/scan-summary-service/internal/models"
	"github.com/tldrapp/scan-summary-service/internal/ocr"
	"github.com/tldrapp/scan-summary-service/internal/pipeline"
	"github.com/tldrapp/scan-summary-service/internal/scan"
)

// OCR engines selectable with ocr.engine / OCR_ENGINE
const (
	EngineTesseract = "tesseract"
	EngineVision    = "vision"
)

// App is a wired pipeline ready to accept scans
type App struct {
	Coordinator *pipeline.Coordinator
	Main        *pipeline.MainQueue
	Loader      *scan.Loader
	Recognizer  ocr.Recognizer
	Provider    ai.Provider
}

// Options customize Build
type Options struct {
	Logger        *slog.Logger
	OnStateChange func(from, to pipeline.State)

	// Recognizer and Provider replace the configured engines when set
	Recognizer ocr.Recognizer
	Provider   ai.VisionProvider
}

// Build creates the recognizer, summarizer and coordinator described by cfg.
// presenter receives all user-visible output on the returned main queue.
func Build(cfg *models.Config, presenter pipeline.Presenter, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider := opts.Provider
	if provider == nil {
		var err error
		provider, err = ai.NewProvider(cfg.AI, cfg.AI.DefaultProvider, "")
		if err != nil {
			return nil, err
		}
	}

	recognizer := opts.Recognizer
	if recognizer == nil {
		var err error
		recognizer, err = NewRecognizer(cfg.OCR, provider)
		if err != nil {
			return nil, err
		}
	}

	level, err := ocr.ParseRecognitionLevel(cfg.OCR.RecognitionLevel)
	if err != nil {
		return nil, err
	}

	extractor := ocr.NewExtractor(
		recognizer,
		ocr.NewPreprocessor(cfg.OCR.MaxDimension, true),
		level,
		logger.With("component", "ocr"),
	)
	summarizer := ai.NewSummarizer(provider, ai.SummarizerOptions{
		Attempts:          cfg.Summary.Attempts,
		RetryDelay:        cfg.Summary.RetryDelay,
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
		Logger:            logger.With("component", "summarizer"),
	})

	main := pipeline.NewMainQueue()
	coordinator := pipeline.NewCoordinator(extractor, summarizer, presenter, main, pipeline.Options{
		Compression:    cfg.Summary.Compression,
		SummaryTimeout: cfg.Summary.Timeout,
		Logger:         logger.With("component", "pipeline"),
		OnStateChange:  opts.OnStateChange,
	})

	logger.Info("pipeline ready",
		"ocr", recognizer.Name(),
		"level", level,
		"provider", provider.Name(),
		"compression", cfg.Summary.Compression,
	)

	return &App{
		Coordinator: coordinator,
		Main:        main,
		Loader:      scan.NewLoader(cfg.Scan.MaxPages, logger.With("component", "scan")),
		Recognizer:  recognizer,
		Provider:    provider,
	}, nil
}

// NewRecognizer returns the OCR engine named by cfg.Engine
func NewRecognizer(cfg models.OCRConfig, provider ai.VisionProvider) (ocr.Recognizer, error) {
	switch cfg.Engine {
	case EngineTesseract, "":
		return ocr.NewTesseractOCR(cfg.Language), nil
	case EngineVision:
		if provider == nil {
			return nil, fmt.Errorf("ocr engine %q needs an AI provider", cfg.Engine)
		}
		return ai.NewVisionRecognizer(provider), nil
	default:
		return nil, fmt.Errorf("unsupported OCR engine: %s", cfg.Engine)
	}
}

// Close stops the main queue
func (a *App) Close() {
	a.Main.Close()
}
