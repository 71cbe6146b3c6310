package models

import (
	"sort"
	"time"
)

// ScanDocument is the ordered set of page images produced by one scan session.
// It lives only for the duration of a single pipeline run.
type ScanDocument struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"` // "upload", "files", "watch:<dir>"
	Pages     []Page    `json:"pages"`
	CreatedAt time.Time `json:"createdAt"`
}

// PageCount returns the number of pages in the scan
func (d *ScanDocument) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// Page is a single captured image within a scan
type Page struct {
	Index       int    `json:"index"` // 0-based position in the scan
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Candidate is one recognition hypothesis for a text region
type Candidate struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0-1
}

// Observation is a detected text region with its ranked candidates
type Observation struct {
	Candidates []Candidate `json:"candidates"`
}

// TopCandidates returns at most n candidates ordered by confidence, highest first.
// Candidates with equal confidence keep the order the engine reported them in.
func (o Observation) TopCandidates(n int) []Candidate {
	if n <= 0 || len(o.Candidates) == 0 {
		return nil
	}
	ranked := make([]Candidate, len(o.Candidates))
	copy(ranked, o.Candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// RecognitionResult is the OCR output for a single page
type RecognitionResult struct {
	Observations []Observation `json:"observations"`
	Engine       string        `json:"engine"`
	Duration     time.Duration `json:"duration"`
}

// RunResult is what a finished pipeline run produced
type RunResult struct {
	RunID        string        `json:"runId"`
	ScanID       string        `json:"scanId"`
	PageCount    int           `json:"pageCount"`
	ScannedText  string        `json:"scannedText"`
	Phrases      []string      `json:"phrases"`
	Summary      string        `json:"summary"`
	SummaryError string        `json:"summaryError,omitempty"` // set when no summary could be produced
	Error        string        `json:"error,omitempty"`        // page and summary failures combined
	Duration     time.Duration `json:"duration"`
}
