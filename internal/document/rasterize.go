package document

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Rasterizer renders every page of pdfPath as a JPEG inside outDir and
// returns the image paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// DefaultDPI is the render resolution used when none is configured.
const DefaultDPI = 150

// Pdftoppm rasterizes with poppler's pdftoppm binary.
type Pdftoppm struct {
	Binary string
	DPI    int
}

var pageNumberRe = regexp.MustCompile(`-(\d+)\.jpg$`)

func (p Pdftoppm) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	bin := p.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(ctx, bin, "-jpeg", "-r", strconv.Itoa(dpi), pdfPath, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}

	matches, err := filepath.Glob(prefix + "-*.jpg")
	if err != nil {
		return nil, err
	}
	return sortByPage(matches), nil
}

// sortByPage orders page-N.jpg files numerically; pdftoppm zero-pads only
// for documents of ten pages or more.
func sortByPage(files []string) []string {
	num := func(f string) int {
		m := pageNumberRe.FindStringSubmatch(f)
		if m == nil {
			return 0
		}
		n, _ := strconv.Atoi(m[1])
		return n
	}
	sort.SliceStable(files, func(i, j int) bool { return num(files[i]) < num(files[j]) })
	return files
}
