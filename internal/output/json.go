package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/criticat/internal/review"
	"gopkg.in/yaml.v3"
)

// JSONWriter outputs the report object as indented JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report review.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// YAMLWriter outputs the report object as YAML.
type YAMLWriter struct{}

func (y *YAMLWriter) Write(w io.Writer, report review.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("writing YAML: %w", err)
	}
	return enc.Close()
}
