package document

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRasterizer struct {
	pages int
	err   error
	calls int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ string, outDir string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var files []string
	// Written out of order to exercise sorting.
	for i := f.pages; i >= 1; i-- {
		p := filepath.Join(outDir, fmt.Sprintf("page-%d.jpg", i))
		if err := os.WriteFile(p, []byte(fmt.Sprintf("jpeg-%d", i)), 0o644); err != nil {
			return nil, err
		}
		files = append(files, p)
	}
	return sortByPage(files), nil
}

func writePDF(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.7\n%fake body\n"), 0o644))
	return p
}

func pages(n int) PageCounter {
	return func(string) (int, error) { return n, nil }
}

func TestExtract_AllPagesInOrder(t *testing.T) {
	pdf := writePDF(t)
	r := &fakeRasterizer{pages: 3}
	e := NewExtractor(r, WithPageCounter(pages(3)))

	images, err := e.Extract(context.Background(), pdf)
	require.NoError(t, err)
	require.Len(t, images, 3)
	for i, img := range images {
		raw, err := base64.StdEncoding.DecodeString(img)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("jpeg-%d", i+1), string(raw))
	}

	_, err = os.Stat(pdf)
	assert.NoError(t, err, "source PDF must be left in place")
}

func TestExtract_Idempotent(t *testing.T) {
	pdf := writePDF(t)
	e := NewExtractor(&fakeRasterizer{pages: 2}, WithPageCounter(pages(2)))

	first, err := e.Extract(context.Background(), pdf)
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
	assert.Equal(t, first, second)
}

func TestExtract_Errors(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("hello"), 0o644))

	tests := []struct {
		name   string
		path   string
		raster *fakeRasterizer
		count  PageCounter
	}{
		{"missing file", filepath.Join(dir, "nope.pdf"), &fakeRasterizer{pages: 1}, pages(1)},
		{"directory", dir, &fakeRasterizer{pages: 1}, pages(1)},
		{"not a pdf", textFile, &fakeRasterizer{pages: 1}, pages(1)},
		{"zero images", writePDF(t), &fakeRasterizer{pages: 0}, pages(1)},
		{"image count mismatch", writePDF(t), &fakeRasterizer{pages: 1}, pages(2)},
		{"rasterizer failure", writePDF(t), &fakeRasterizer{err: errors.New("boom")}, pages(1)},
		{"unreadable structure", writePDF(t), &fakeRasterizer{pages: 1}, func(string) (int, error) { return 0, errors.New("corrupt xref") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.raster, WithPageCounter(tt.count))
			images, err := e.Extract(context.Background(), tt.path)
			assert.Nil(t, images)
			var ee *ExtractionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tt.path, ee.Path)
		})
	}
}

func TestSortByPage(t *testing.T) {
	got := sortByPage([]string{"/t/page-10.jpg", "/t/page-2.jpg", "/t/page-01.jpg"})
	assert.Equal(t, []string{"/t/page-01.jpg", "/t/page-2.jpg", "/t/page-10.jpg"}, got)
}

func TestPdftoppm_MissingBinary(t *testing.T) {
	p := Pdftoppm{Binary: filepath.Join(t.TempDir(), "no-such-pdftoppm")}
	_, err := p.Rasterize(context.Background(), "in.pdf", t.TempDir())
	assert.Error(t, err)
}
