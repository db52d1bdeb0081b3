package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/criticat/internal/review"
)

// SARIFWriter outputs issues in SARIF v2.1.0 format with one run per
// provider. Every issue is located on the reviewed document.
type SARIFWriter struct {
	Document string
	Version  string
}

func (s *SARIFWriter) Write(w io.Writer, report review.Report) error {
	data, err := json.MarshalIndent(buildSARIF(report, s.Document, s.Version), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID     string          `json:"ruleId"`
	Level      string          `json:"level"`
	Message    sarifMessage    `json:"message"`
	Locations  []sarifLocation `json:"locations,omitempty"`
	Properties sarifProperties `json:"properties"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifProperties struct {
	Status     review.IssueStatus `json:"status"`
	Confidence int                `json:"confidence"`
	Example    string             `json:"example,omitempty"`
	Cause      string             `json:"cause,omitempty"`
}

func buildSARIF(report review.Report, document, version string) sarifLog {
	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs:    []sarifRun{},
	}
	for _, name := range providerNames(report) {
		r := report.ReviewFeedback[name]
		run := sarifRun{
			Tool: sarifTool{Driver: sarifDriver{
				Name:           "criticat/" + name,
				Version:        version,
				InformationURI: "https://github.com/dshills/criticat",
				Rules:          []sarifRule{},
			}},
			Results: []sarifResult{},
		}
		seen := make(map[review.CategoryName]bool)
		for _, c := range r.Categories {
			if len(c.Issues) > 0 && !seen[c.Name] {
				seen[c.Name] = true
				run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
					ID:               ruleID(c.Name),
					Name:             string(c.Name),
					ShortDescription: sarifMessage{Text: "Formatting: " + string(c.Name)},
				})
			}
			for _, is := range c.Issues {
				res := sarifResult{
					RuleID:  ruleID(c.Name),
					Level:   statusToLevel(is.Status),
					Message: sarifMessage{Text: issueMessage(is)},
					Properties: sarifProperties{
						Status:     is.Status,
						Confidence: is.Confidence,
						Example:    is.Example,
						Cause:      is.Cause,
					},
				}
				if document != "" {
					res.Locations = []sarifLocation{{PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: document},
					}}}
				}
				run.Results = append(run.Results, res)
			}
		}
		log.Runs = append(log.Runs, run)
	}
	return log
}

func ruleID(c review.CategoryName) string { return "criticat/" + string(c) }

func issueMessage(is review.FormatIssue) string {
	if is.Explanation == "" {
		return is.Description
	}
	return is.Description + ": " + is.Explanation
}

// statusToLevel maps issue status to SARIF level.
func statusToLevel(s review.IssueStatus) string {
	switch s {
	case review.StatusCritical, review.StatusError:
		return "error"
	case review.StatusWarning:
		return "warning"
	default:
		return "note"
	}
}
