package output

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dshills/criticat/internal/review"
)

// TextWriter outputs a terminal report: a summary table, then issue details.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report review.Report) error {
	ew := &errWriter{w: w}
	names := providerNames(report)

	ew.println("Criticat Document Review")
	ew.println(strings.Repeat("─", 60))
	if len(names) == 0 {
		ew.println("No provider returned a review.")
		return ew.err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Provider", "Issues", "Critical", "Error", "Warning", "Info", "Verdict"})
	for _, name := range names {
		r := report.ReviewFeedback[name]
		c := r.CountByStatus()
		verdict := "pass"
		if r.HasIssues() {
			verdict = "FAIL"
		}
		tw.AppendRow(table.Row{name, r.IssueCount(),
			c[review.StatusCritical], c[review.StatusError], c[review.StatusWarning], c[review.StatusInfo], verdict})
	}
	if ew.err == nil {
		tw.Render()
	}

	for _, name := range names {
		r := report.ReviewFeedback[name]
		if r.IssueCount() == 0 {
			continue
		}
		ew.printf("\n%s\n", name)
		ew.println(strings.Repeat("─", 40))
		for _, line := range wrapText(r.Explanation, 70) {
			ew.printf("  %s\n", line)
		}
		for _, c := range r.Categories {
			for _, is := range c.Issues {
				ew.printf("\n  %s %s  %s\n", textStatusIcon(is.Status), c.Name, is.Description)
				ew.printf("  Status: %s | Confidence: %d/5\n", is.Status, is.Confidence)
				for _, line := range wrapText(is.Explanation, 70) {
					ew.printf("    %s\n", line)
				}
				if is.Example != "" {
					ew.printf("  Example: %s\n", is.Example)
				}
				if is.Cause != "" {
					ew.printf("  Cause: %s\n", is.Cause)
				}
			}
		}
	}

	if len(report.Jokes) > 0 {
		ew.printf("\n%s\n", strings.Repeat("─", 60))
		for _, j := range report.Jokes {
			ew.printf("😹 %s\n", j)
		}
	}
	return ew.err
}

func textStatusIcon(s review.IssueStatus) string {
	switch s {
	case review.StatusCritical:
		return "[!!!]"
	case review.StatusError:
		return "[!!]"
	case review.StatusWarning:
		return "[!]"
	case review.StatusInfo:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
