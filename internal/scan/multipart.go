package scan

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/tldrapp/scan-summary-service/internal/models"
)

// Multipart field names accepted for uploads. "pages" carries the pages in
// order; "file" is the single-file form used by simple clients.
const (
	FieldPages = "pages"
	FieldFile  = "file"
)

// FromMultipart builds a scan from an uploaded form
func (l *Loader) FromMultipart(ctx context.Context, form *multipart.Form) (*models.ScanDocument, error) {
	if form == nil {
		return nil, ErrNoPages
	}
	headers := form.File[FieldPages]
	if len(headers) == 0 {
		headers = form.File[FieldFile]
	}

	doc := newDocument("upload")
	for _, header := range headers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := l.appendUpload(ctx, doc, header); err != nil {
			return nil, err
		}
	}
	return l.finish(doc)
}

func (l *Loader) appendUpload(ctx context.Context, doc *models.ScanDocument, header *multipart.FileHeader) error {
	contentType := uploadContentType(header)
	if contentType == "" {
		return fmt.Errorf("%s: %w", header.Filename, ErrUnsupportedFile)
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	if contentType != pdfContentType {
		data, err := io.ReadAll(file)
		if err != nil {
			return fmt.Errorf("failed to read upload: %w", err)
		}
		return l.appendPage(doc, filepath.Base(header.Filename), contentType, data)
	}

	// PDFs are rendered from disk
	tmp, err := os.CreateTemp("", "tldr-upload-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return l.appendPDF(ctx, doc, tmp.Name(), filepath.Base(header.Filename))
}

// uploadContentType trusts the file extension first and falls back to the
// part's declared type.
func uploadContentType(header *multipart.FileHeader) string {
	if ct := ContentTypeFor(header.Filename); ct != "" {
		return ct
	}
	declared := strings.ToLower(strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0]))
	for _, ct := range contentTypes {
		if ct == declared {
			return ct
		}
	}
	return ""
}
