package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tldrapp/scan-summary-service/internal/models"
)

// ErrScanInProgress is returned when a scan arrives while another run is active
var ErrScanInProgress = errors.New("a scan is already being processed")

// PageExtractor turns every page of a scan into text, in page order
type PageExtractor interface {
	ExtractDocument(ctx context.Context, doc *models.ScanDocument) ([]string, []error)
}

// Summarizer selects summary phrases from the aggregated text
type Summarizer interface {
	Summarize(ctx context.Context, text string, compression float64) ([]string, error)
}

// Presenter receives everything the user sees. All calls happen on the MainQueue.
type Presenter interface {
	ClearScannedText()
	ShowScannedText(text string)
	ShowSummary(summary string)
	ShowSummaryError(message string)
}

// Options configures a Coordinator
type Options struct {
	Compression    float64
	SummaryTimeout time.Duration // 0 means no deadline beyond the run context
	Logger         *slog.Logger

	// OnStateChange is called synchronously on every transition and must not
	// call back into the Coordinator.
	OnStateChange func(from, to State)
}

// Coordinator sequences one scan at a time through extraction, aggregation
// and summarization.
type Coordinator struct {
	extractor  PageExtractor
	summarizer Summarizer
	presenter  Presenter
	main       *MainQueue
	opts       Options
	logger     *slog.Logger

	mu        sync.Mutex
	state     State
	lastError error
	current   *Run
}

// NewCoordinator wires the pipeline. The presenter is only ever called from main.
func NewCoordinator(extractor PageExtractor, summarizer Summarizer, presenter Presenter, main *MainQueue, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		extractor:  extractor,
		summarizer: summarizer,
		presenter:  presenter,
		main:       main,
		opts:       opts,
		logger:     opts.Logger,
	}
}

// Run is a handle on one submitted scan
type Run struct {
	ID     string
	ScanID string

	done   chan struct{}
	result *models.RunResult
	err    error
}

// Done is closed when the run has returned to Idle
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes. The error is the run's combined page
// and summary errors; a result is returned either way.
func (r *Run) Wait(ctx context.Context) (*models.RunResult, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State returns the current pipeline state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the errors recorded by the most recent run, nil if it was clean
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Current returns the in-flight run, or nil when idle
func (c *Coordinator) Current() *Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Submit starts a run for a completed scan. Only one run may be active;
// a second scan is rejected with ErrScanInProgress rather than queued.
func (c *Coordinator) Submit(ctx context.Context, doc *models.ScanDocument) (*Run, error) {
	if doc == nil {
		return nil, errors.New("nil scan document")
	}

	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return nil, ErrScanInProgress
	}
	run := &Run{
		ID:     uuid.New().String(),
		ScanID: doc.ID,
		done:   make(chan struct{}),
	}
	c.current = run
	c.lastError = nil
	c.transitionLocked(Scanning)
	c.mu.Unlock()

	c.logger.Info("scan received", "run", run.ID, "scan", doc.ID, "pages", doc.PageCount(), "source", doc.Source)

	c.main.Post(c.presenter.ClearScannedText)
	go c.process(ctx, run, doc)
	return run, nil
}

// process is the background recognition task. The page texts are local to
// this goroutine and handed over by value; nothing else writes them.
func (c *Coordinator) process(ctx context.Context, run *Run, doc *models.ScanDocument) {
	start := time.Now()

	c.transition(Extracting)
	texts, pageErrs := c.extractor.ExtractDocument(ctx, doc)

	c.transition(Aggregating)
	text := Aggregate(texts)

	var summary <-chan Result[[]string]
	c.main.Do(func() {
		c.presenter.ShowScannedText(text)
		c.transition(Summarizing)
		summary = Go(ctx, c.summarize(text))
	})

	var res Result[[]string]
	if summary == nil {
		res.Err = errors.New("presentation queue closed")
	} else {
		res = <-summary
	}

	c.transition(Displaying)
	rendered := JoinPhrases(res.Value)
	c.main.Do(func() {
		if res.Err != nil {
			c.presenter.ShowSummaryError(SummaryErrorMessage(res.Err))
			return
		}
		c.presenter.ShowSummary(rendered)
	})

	runErr := errors.Join(append(pageErrs, res.Err)...)
	result := &models.RunResult{
		RunID:       run.ID,
		ScanID:      doc.ID,
		PageCount:   doc.PageCount(),
		ScannedText: text,
		Phrases:     res.Value,
		Summary:     rendered,
		Duration:    time.Since(start),
	}
	if res.Err != nil {
		result.SummaryError = res.Err.Error()
	}
	if runErr != nil {
		result.Error = runErr.Error()
		c.logger.Warn("scan finished with errors", "run", run.ID, "error", runErr)
	} else {
		c.logger.Info("scan finished", "run", run.ID, "chars", len(text), "phrases", len(res.Value), "duration", result.Duration)
	}

	run.result, run.err = result, runErr

	c.mu.Lock()
	c.lastError = runErr
	c.current = nil
	c.transitionLocked(Idle)
	c.mu.Unlock()

	close(run.done)
}

func (c *Coordinator) summarize(text string) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		if c.opts.SummaryTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.opts.SummaryTimeout)
			defer cancel()
		}
		return c.summarizer.Summarize(ctx, text, c.opts.Compression)
	}
}

func (c *Coordinator) transition(to State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitionLocked(to)
}

func (c *Coordinator) transitionLocked(to State) {
	from := c.state
	c.state = to
	c.logger.Debug("pipeline state", "from", from, "to", to)
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(from, to)
	}
}

// SummaryErrorMessage is the text shown in place of a summary that could not be produced
func SummaryErrorMessage(err error) string {
	return fmt.Sprintf("Summary unavailable: %v. Scan again to retry.", err)
}
