package document

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ExtractionError reports that a document could not be turned into page images.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PageCounter returns the number of pages in a PDF file.
type PageCounter func(path string) (int, error)

// Extractor converts every page of a PDF into a base64-encoded JPEG.
type Extractor struct {
	rasterizer Rasterizer
	countPages PageCounter
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPageCounter replaces the pdfcpu page counter.
func WithPageCounter(pc PageCounter) Option {
	return func(e *Extractor) { e.countPages = pc }
}

// WithLogger sets the logger used for extraction progress.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor backed by the given rasterizer.
func NewExtractor(r Rasterizer, opts ...Option) *Extractor {
	e := &Extractor{
		rasterizer: r,
		countPages: api.PageCountFile,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

var pdfMagic = []byte("%PDF-")

// Extract returns one base64 JPEG per page, in page order.
// The source file is only read.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) ([]string, error) {
	if err := checkPDF(pdfPath); err != nil {
		return nil, &ExtractionError{Path: pdfPath, Err: err}
	}

	pages, err := e.countPages(pdfPath)
	if err != nil {
		return nil, &ExtractionError{Path: pdfPath, Err: fmt.Errorf("reading PDF structure: %w", err)}
	}

	workDir, err := os.MkdirTemp("", "criticat-pages-*")
	if err != nil {
		return nil, &ExtractionError{Path: pdfPath, Err: fmt.Errorf("creating work directory: %w", err)}
	}
	defer os.RemoveAll(workDir)

	files, err := e.rasterizer.Rasterize(ctx, pdfPath, workDir)
	if err != nil {
		return nil, &ExtractionError{Path: pdfPath, Err: fmt.Errorf("rasterizing: %w", err)}
	}
	if len(files) == 0 {
		return nil, &ExtractionError{Path: pdfPath, Err: fmt.Errorf("conversion produced no images")}
	}
	if len(files) != pages {
		return nil, &ExtractionError{Path: pdfPath, Err: fmt.Errorf("conversion produced %d images for %d pages", len(files), pages)}
	}

	images := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, &ExtractionError{Path: pdfPath, Err: fmt.Errorf("reading page image: %w", err)}
		}
		images = append(images, base64.StdEncoding.EncodeToString(data))
	}

	e.logger.Info("extracted document images", "path", pdfPath, "pages", len(images))
	return images, nil
}

func checkPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory")
	}

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, pdfMagic) {
		return fmt.Errorf("not a PDF file")
	}
	return nil
}
