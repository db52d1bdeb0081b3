package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dshills/criticat/internal/review"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report review.Report) error
}

// Options carries run context that some formats embed.
type Options struct {
	// Document is the reviewed PDF path, used as the SARIF artifact.
	Document string
	Version  string
}

// Formats lists the names accepted by GetWriter.
var Formats = []string{"text", "json", "yaml", "markdown", "html", "sarif"}

// GetWriter returns a writer for the specified format.
func GetWriter(format string, opts Options) (Writer, error) {
	switch format {
	case "", "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "yaml":
		return &YAMLWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "html":
		return &HTMLWriter{}, nil
	case "sarif":
		return &SARIFWriter{Document: opts.Document, Version: opts.Version}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to outPath, or to stdout when outPath is empty.
func WriteReport(report review.Report, format, outPath string, opts Options) error {
	writer, err := GetWriter(format, opts)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}

func providerNames(report review.Report) []string {
	names := make([]string, 0, len(report.ReviewFeedback))
	for n := range report.ReviewFeedback {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
