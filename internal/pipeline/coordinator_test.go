package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tldrapp/scan-summary-service/internal/models"
)

type fakeExtractor struct {
	texts []string
	errs  []error
}

func (f *fakeExtractor) ExtractDocument(_ context.Context, doc *models.ScanDocument) ([]string, []error) {
	out := make([]string, doc.PageCount())
	copy(out, f.texts)
	return out, f.errs
}

type fakeSummarizer struct {
	mu          sync.Mutex
	phrases     []string
	err         error
	release     chan struct{}
	gotText     string
	compression float64
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string, compression float64) ([]string, error) {
	f.mu.Lock()
	f.gotText, f.compression = text, compression
	release := f.release
	f.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.phrases, f.err
}

type recordingPresenter struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPresenter) add(e string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPresenter) ClearScannedText() { p.add("clear") }
func (p *recordingPresenter) ShowScannedText(text string) { p.add("text:" + text) }
func (p *recordingPresenter) ShowSummary(summary string) { p.add("summary:" + summary) }
func (p *recordingPresenter) ShowSummaryError(msg string) { p.add("error:" + msg) }

func (p *recordingPresenter) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type transitions struct {
	mu  sync.Mutex
	seq []State
}

func (tr *transitions) record(_, to State) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.seq = append(tr.seq, to)
}

func (tr *transitions) get() []State {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]State(nil), tr.seq...)
}

func newTestCoordinator(t *testing.T, ex PageExtractor, sum Summarizer, pres Presenter, tr *transitions) *Coordinator {
	t.Helper()
	q := NewMainQueue()
	t.Cleanup(q.Close)
	opts := Options{
		Compression: 0.8,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if tr != nil {
		opts.OnStateChange = tr.record
	}
	return NewCoordinator(ex, sum, pres, q, opts)
}

func scan(pages int) *models.ScanDocument {
	return &models.ScanDocument{ID: "scan-1", Source: "test", Pages: make([]models.Page, pages)}
}

func waitRun(t *testing.T, run *Run) (*models.RunResult, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := run.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return res, err
}

func TestCoordinator_HappyPath(t *testing.T) {
	ex := &fakeExtractor{texts: []string{"Hello world", "Foo bar"}}
	sum := &fakeSummarizer{phrases: []string{"Short.", "Key point."}}
	pres := &recordingPresenter{}
	tr := &transitions{}
	c := newTestCoordinator(t, ex, sum, pres, tr)

	run, err := c.Submit(context.Background(), scan(2))
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	res, err := waitRun(t, run)
	require.NoError(t, err)

	assert.Equal(t, "Hello world  Foo bar  ", res.ScannedText)
	assert.Equal(t, "Short.Key point.", res.Summary)
	assert.Equal(t, []string{"Short.", "Key point."}, res.Phrases)
	assert.Equal(t, 2, res.PageCount)
	assert.Empty(t, res.Error)

	assert.Equal(t, "Hello world  Foo bar  ", sum.gotText)
	assert.Equal(t, 0.8, sum.compression)

	assert.Equal(t, []string{
		"clear",
		"text:Hello world  Foo bar  ",
		"summary:Short.Key point.",
	}, pres.Events())
	assert.Equal(t, []State{Scanning, Extracting, Aggregating, Summarizing, Displaying, Idle}, tr.get())
	assert.Equal(t, Idle, c.State())
	assert.NoError(t, c.LastError())
	assert.Nil(t, c.Current())
}

func TestCoordinator_PageFailureIsNotFatal(t *testing.T) {
	pageErr := errors.New("page 2: ocr failed")
	ex := &fakeExtractor{texts: []string{"one", "", "three"}, errs: []error{pageErr}}
	sum := &fakeSummarizer{phrases: []string{"one"}}
	pres := &recordingPresenter{}
	c := newTestCoordinator(t, ex, sum, pres, nil)

	run, err := c.Submit(context.Background(), scan(3))
	require.NoError(t, err)
	res, err := waitRun(t, run)

	assert.ErrorIs(t, err, pageErr)
	assert.Equal(t, "one    three  ", res.ScannedText)
	assert.Equal(t, "one", res.Summary)
	assert.Empty(t, res.SummaryError)
	assert.ErrorIs(t, c.LastError(), pageErr)
}

func TestCoordinator_SummaryFailureIsVisible(t *testing.T) {
	sumErr := errors.New("provider down")
	ex := &fakeExtractor{texts: []string{"text"}}
	sum := &fakeSummarizer{err: sumErr}
	pres := &recordingPresenter{}
	c := newTestCoordinator(t, ex, sum, pres, nil)

	run, err := c.Submit(context.Background(), scan(1))
	require.NoError(t, err)
	res, err := waitRun(t, run)

	assert.ErrorIs(t, err, sumErr)
	assert.Contains(t, res.Error, "provider down")
	assert.Equal(t, "provider down", res.SummaryError)
	assert.Empty(t, res.Summary)

	events := pres.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "error:"+SummaryErrorMessage(sumErr), events[2])
	assert.ErrorIs(t, c.LastError(), sumErr)
	assert.Equal(t, Idle, c.State())
}

func TestCoordinator_RejectsConcurrentScan(t *testing.T) {
	sum := &fakeSummarizer{phrases: []string{"x"}, release: make(chan struct{})}
	c := newTestCoordinator(t, &fakeExtractor{texts: []string{"a"}}, sum, &recordingPresenter{}, nil)

	run, err := c.Submit(context.Background(), scan(1))
	require.NoError(t, err)
	assert.Same(t, run, c.Current())

	_, err = c.Submit(context.Background(), scan(1))
	assert.ErrorIs(t, err, ErrScanInProgress)
	assert.True(t, c.State().Busy())

	close(sum.release)
	_, err = waitRun(t, run)
	require.NoError(t, err)

	// idle again: next scan is accepted
	sum.mu.Lock()
	sum.release = nil
	sum.mu.Unlock()
	run2, err := c.Submit(context.Background(), scan(1))
	require.NoError(t, err)
	_, err = waitRun(t, run2)
	require.NoError(t, err)
	assert.NotEqual(t, run.ID, run2.ID)
}

func TestCoordinator_NewRunReplacesLastError(t *testing.T) {
	sum := &fakeSummarizer{err: errors.New("boom")}
	c := newTestCoordinator(t, &fakeExtractor{}, sum, &recordingPresenter{}, nil)

	run, err := c.Submit(context.Background(), scan(0))
	require.NoError(t, err)
	_, _ = waitRun(t, run)
	require.Error(t, c.LastError())

	sum.mu.Lock()
	sum.err, sum.phrases = nil, []string{}
	sum.mu.Unlock()

	run, err = c.Submit(context.Background(), scan(0))
	require.NoError(t, err)
	res, err := waitRun(t, run)
	require.NoError(t, err)
	assert.Equal(t, "", res.ScannedText)
	assert.NoError(t, c.LastError())
}

func TestCoordinator_SummaryTimeout(t *testing.T) {
	sum := &fakeSummarizer{release: make(chan struct{})}
	q := NewMainQueue()
	t.Cleanup(q.Close)
	c := NewCoordinator(&fakeExtractor{texts: []string{"a"}}, sum, &recordingPresenter{}, q, Options{
		Compression:    0.5,
		SummaryTimeout: 20 * time.Millisecond,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	run, err := c.Submit(context.Background(), scan(1))
	require.NoError(t, err)
	_, err = waitRun(t, run)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMainQueue_FIFOAndDo(t *testing.T) {
	q := NewMainQueue()
	defer q.Close()

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		q.Post(func() { got = append(got, i) })
	}
	q.Do(func() { got = append(got, 10) })
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
}

func TestMainQueue_ClosedDoesNotBlock(t *testing.T) {
	q := NewMainQueue()
	q.Close()
	q.Close()

	done := make(chan struct{})
	go func() {
		q.Do(func() {})
		q.Post(func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("closed queue blocked")
	}
}

func TestMainQueue_DoWaitsForRunningClosureOnClose(t *testing.T) {
	q := NewMainQueue()

	running := make(chan struct{})
	release := make(chan struct{})
	returned := make(chan struct{})
	var finished atomic.Bool
	go func() {
		q.Do(func() {
			close(running)
			<-release
			finished.Store(true)
		})
		close(returned)
	}()

	<-running
	q.Close()
	select {
	case <-returned:
		t.Fatal("Do returned while its closure was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Do did not return after its closure finished")
	}
	assert.True(t, finished.Load())
}

func TestMainQueue_DoSkipsClosureAfterClose(t *testing.T) {
	q := NewMainQueue()

	block := make(chan struct{})
	q.Post(func() { <-block })

	var ran atomic.Bool
	returned := make(chan struct{})
	go func() {
		q.Do(func() { ran.Store(true) })
		close(returned)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Do blocked on a closed queue")
	}
	close(block)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestGo(t *testing.T) {
	res := <-Go(context.Background(), func(context.Context) (int, error) { return 7, nil })
	assert.Equal(t, 7, res.Value)
	assert.NoError(t, res.Err)
}
