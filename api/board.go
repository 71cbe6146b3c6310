package api

import (
	"sync"
	"time"
)

// ScanBoard is the presenter behind the HTTP API. The pipeline writes to it
// from its main queue; handlers read snapshots concurrently.
type ScanBoard struct {
	mu           sync.RWMutex
	scannedText  string
	summary      string
	summaryError string
	updatedAt    time.Time
}

// BoardSnapshot is what GET /api/scans/current shows of the board
type BoardSnapshot struct {
	ScannedText  string    `json:"scannedText"`
	Summary      string    `json:"summary"`
	SummaryError string    `json:"summaryError,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// NewScanBoard creates an empty board
func NewScanBoard() *ScanBoard {
	return &ScanBoard{}
}

// ClearScannedText resets the board for a new scan
func (b *ScanBoard) ClearScannedText() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scannedText = ""
	b.summary = ""
	b.summaryError = ""
	b.updatedAt = time.Now().UTC()
}

func (b *ScanBoard) ShowScannedText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scannedText = text
	b.updatedAt = time.Now().UTC()
}

func (b *ScanBoard) ShowSummary(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summary = summary
	b.summaryError = ""
	b.updatedAt = time.Now().UTC()
}

func (b *ScanBoard) ShowSummaryError(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summary = ""
	b.summaryError = message
	b.updatedAt = time.Now().UTC()
}

// Snapshot returns a consistent copy of the board
func (b *ScanBoard) Snapshot() BoardSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BoardSnapshot{
		ScannedText:  b.scannedText,
		Summary:      b.summary,
		SummaryError: b.summaryError,
		UpdatedAt:    b.updatedAt,
	}
}
