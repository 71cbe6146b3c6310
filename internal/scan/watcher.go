package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tldrapp/scan-summary-service/internal/models"
	"github.com/tldrapp/scan-summary-service/internal/pipeline"
)

// DefaultSettle is how long a scan directory must be quiet before it is submitted
const DefaultSettle = 2 * time.Second

// SubmitFunc hands a finished scan to the pipeline. Returning an error
// wrapping pipeline.ErrScanInProgress asks the watcher to try the same scan
// again after another settle period.
type SubmitFunc func(ctx context.Context, doc *models.ScanDocument) error

// Watcher turns a hot folder into scans. A scanner writes each session into
// its own sub-directory; a PDF or image dropped directly into the folder is a
// scan on its own. An entry is submitted once no writes have touched it for
// the settle period, and only once.
type Watcher struct {
	dir    string
	settle time.Duration
	loader *Loader
	submit SubmitFunc
	logger *slog.Logger

	fs    *fsnotify.Watcher
	ready chan string
	done  chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
	handled map[string]bool
}

// NewWatcher starts watching dir. Events are buffered until Run is called.
func NewWatcher(dir string, settle time.Duration, loader *Loader, submit SubmitFunc, logger *slog.Logger) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory: %s is not a directory", dir)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:     dir,
		settle:  settle,
		loader:  loader,
		submit:  submit,
		logger:  logger.With("watch", dir),
		fs:      fs,
		ready:   make(chan string, 16),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
		handled: make(map[string]bool),
	}, nil
}

// Run processes events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	w.logger.Info("watching for scans", "settle", w.settle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case entry := <-w.ready:
			w.process(ctx, entry)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	entry := w.entryFor(event.Name)
	if entry == "" {
		return
	}

	if event.Has(fsnotify.Remove) && event.Name == entry {
		w.forget(entry)
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if event.Name == entry && event.Has(fsnotify.Create) {
		if info, err := os.Stat(entry); err == nil && info.IsDir() {
			if err := w.fs.Add(entry); err != nil {
				w.logger.Warn("failed to watch scan directory", "dir", entry, "error", err)
			}
		}
	}
	w.touch(entry)
}

// entryFor maps an event path to the top-level entry of the hot folder it
// belongs to, or "" for paths that are not scans.
func (w *Watcher) entryFor(path string) string {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	top := strings.Split(rel, string(filepath.Separator))[0]
	if strings.HasPrefix(top, ".") {
		return ""
	}
	entry := filepath.Join(w.dir, top)
	if top == rel && filepath.Ext(top) != "" && ContentTypeFor(top) == "" {
		return ""
	}
	return entry
}

// touch (re)starts the settle timer for entry
func (w *Watcher) touch(entry string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.handled[entry] {
		return
	}
	if t, ok := w.pending[entry]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[entry] = time.AfterFunc(w.settle, func() {
		select {
		case w.ready <- entry:
		case <-w.done:
		}
	})
}

func (w *Watcher) forget(entry string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[entry]; ok {
		t.Stop()
		delete(w.pending, entry)
	}
	delete(w.handled, entry)
}

func (w *Watcher) process(ctx context.Context, entry string) {
	w.mu.Lock()
	delete(w.pending, entry)
	if w.handled[entry] {
		w.mu.Unlock()
		return
	}
	w.handled[entry] = true
	w.mu.Unlock()

	doc, err := w.load(ctx, entry)
	if err != nil {
		w.logger.Warn("skipping scan", "entry", filepath.Base(entry), "error", err)
		return
	}

	if err := w.submit(ctx, doc); err != nil {
		if errors.Is(err, pipeline.ErrScanInProgress) {
			w.logger.Info("pipeline busy, will retry", "entry", filepath.Base(entry))
			w.mu.Lock()
			delete(w.handled, entry)
			w.mu.Unlock()
			w.touch(entry)
			return
		}
		w.logger.Error("scan submission failed", "entry", filepath.Base(entry), "error", err)
	}
}

func (w *Watcher) load(ctx context.Context, entry string) (*models.ScanDocument, error) {
	source := "watch:" + w.dir
	info, err := os.Stat(entry)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return w.loader.FromDir(ctx, source, entry)
	}
	return w.loader.FromFiles(ctx, source, []string{entry})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for entry, t := range w.pending {
		t.Stop()
		delete(w.pending, entry)
	}
	w.mu.Unlock()
	close(w.done)
	w.fs.Close()
}
