package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/criticat/internal/review"
)

const (
	// ReportFile is the name of the persisted report inside the report directory.
	ReportFile = "criticat_feedback.json"
	// DefaultReportDir is used when no report directory is configured.
	DefaultReportDir = "./reports"
)

// SaveReport writes report to dir/criticat_feedback.json, creating dir when
// missing, and returns the file path. The file is replaced atomically, so
// concurrent saves leave one complete report.
func SaveReport(dir string, report review.Report) (string, error) {
	if dir == "" {
		dir = DefaultReportDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	path := filepath.Join(dir, ReportFile)
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".criticat_feedback-*.json")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadReport reads a report previously written by SaveReport.
func LoadReport(path string) (review.Report, error) {
	var report review.Report
	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("reading report: %w", err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return report, nil
}
