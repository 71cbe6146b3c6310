package main

import (
	"fmt"
	"io"
)

// writerPresenter prints what a user would see on screen. It is only called
// from the pipeline's main queue, so writes never interleave.
type writerPresenter struct {
	w io.Writer
}

func (p *writerPresenter) ClearScannedText() {
	fmt.Fprintln(p.w, "── new scan ──")
}

func (p *writerPresenter) ShowScannedText(text string) {
	fmt.Fprintf(p.w, "Scanned text:\n%s\n\n", text)
}

func (p *writerPresenter) ShowSummary(summary string) {
	fmt.Fprintf(p.w, "Summary:\n%s\n", summary)
}

func (p *writerPresenter) ShowSummaryError(message string) {
	fmt.Fprintf(p.w, "Summary:\n%s\n", message)
}
