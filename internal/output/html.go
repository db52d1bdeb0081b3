package output

import (
	"bytes"
	"fmt"
	"io"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/dshills/criticat/internal/review"
)

var (
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	htmlSanitizer = bluemonday.UGCPolicy()
)

// HTMLWriter renders the comment body as a standalone sanitized HTML page.
type HTMLWriter struct{}

func (h *HTMLWriter) Write(w io.Writer, report review.Report) error {
	body, err := RenderHTML(CommentBody(report))
	if err != nil {
		return err
	}
	ew := &errWriter{w: w}
	ew.println("<!DOCTYPE html>")
	ew.println(`<html><head><meta charset="utf-8"><title>Criticat Document Review</title></head><body>`)
	ew.printf("%s", body)
	ew.println("</body></html>")
	return ew.err
}

// RenderHTML converts markdown to HTML and strips anything unsafe. Model
// output is untrusted, so raw HTML in it survives only if the UGC policy
// allows it.
func RenderHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return htmlSanitizer.Sanitize(buf.String()), nil
}
