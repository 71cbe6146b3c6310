package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tldrapp/scan-summary-service/internal/models"
)

var (
	// ErrNoPages is returned when a scan source yields no page images
	ErrNoPages = errors.New("scan contains no pages")
	// ErrTooManyPages is returned when a scan exceeds the configured page limit
	ErrTooManyPages = errors.New("scan exceeds page limit")
	// ErrUnsupportedFile is returned for files that are neither images nor PDFs
	ErrUnsupportedFile = errors.New("unsupported file type")
)

const pdfContentType = "application/pdf"

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
	".pdf":  pdfContentType,
}

// ContentTypeFor returns the MIME type for a page file name, or "" if the
// extension is not one a scan can contain.
func ContentTypeFor(name string) string {
	return contentTypes[strings.ToLower(filepath.Ext(name))]
}

// Loader assembles ScanDocuments from files on disk or uploads
type Loader struct {
	maxPages int
	logger   *slog.Logger

	countPages func(path string) (int, error)
	renderPage func(ctx context.Context, path string, page int) ([]byte, error)
}

// NewLoader creates a loader. maxPages <= 0 disables the page limit.
func NewLoader(maxPages int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		maxPages:   maxPages,
		logger:     logger,
		countPages: pdfPageCount,
		renderPage: renderPDFPage,
	}
}

// FromFiles builds a scan from image and PDF files, in argument order.
// Each PDF contributes one page per PDF page.
func (l *Loader) FromFiles(ctx context.Context, source string, paths []string) (*models.ScanDocument, error) {
	doc := newDocument(source)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		contentType := ContentTypeFor(path)
		switch contentType {
		case "":
			return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFile)
		case pdfContentType:
			if err := l.appendPDF(ctx, doc, path, filepath.Base(path)); err != nil {
				return nil, err
			}
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read page: %w", err)
			}
			if err := l.appendPage(doc, filepath.Base(path), contentType, data); err != nil {
				return nil, err
			}
		}
	}
	return l.finish(doc)
}

// FromDir builds a scan from every supported file in dir, ordered by name.
// Hidden files and unknown extensions are skipped.
func (l *Loader) FromDir(ctx context.Context, source, dir string) (*models.ScanDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || ContentTypeFor(name) == "" {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)

	return l.FromFiles(ctx, source, paths)
}

func (l *Loader) appendPage(doc *models.ScanDocument, name, contentType string, data []byte) error {
	if l.maxPages > 0 && len(doc.Pages) >= l.maxPages {
		return fmt.Errorf("%w (%d)", ErrTooManyPages, l.maxPages)
	}
	doc.Pages = append(doc.Pages, models.Page{
		Index:       len(doc.Pages),
		Name:        name,
		ContentType: contentType,
		Data:        data,
	})
	return nil
}

func (l *Loader) appendPDF(ctx context.Context, doc *models.ScanDocument, path, name string) error {
	count, err := l.countPages(path)
	if err != nil {
		return fmt.Errorf("failed to get page count for %s: %w", name, err)
	}
	if l.maxPages > 0 && len(doc.Pages)+count > l.maxPages {
		return fmt.Errorf("%w (%d)", ErrTooManyPages, l.maxPages)
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	for page := 1; page <= count; page++ {
		data, err := l.renderPage(ctx, path, page)
		if err != nil {
			return fmt.Errorf("failed to render %s page %d: %w", name, page, err)
		}
		if err := l.appendPage(doc, fmt.Sprintf("%s-%03d.png", base, page), "image/png", data); err != nil {
			return err
		}
	}
	l.logger.Debug("pdf expanded", "file", name, "pages", count)
	return nil
}

func (l *Loader) finish(doc *models.ScanDocument) (*models.ScanDocument, error) {
	if len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}
	l.logger.Info("scan loaded", "scan", doc.ID, "source", doc.Source, "pages", len(doc.Pages))
	return doc, nil
}

func newDocument(source string) *models.ScanDocument {
	return &models.ScanDocument{
		ID:        uuid.New().String(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}
