package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/criticat/internal/review"
)

// MarkdownWriter outputs the pull request comment body.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report review.Report) error {
	_, err := io.WriteString(w, CommentBody(report))
	return err
}

// CommentBody fills review.CommentTemplate with the feedback and jokes.
func CommentBody(report review.Report) string {
	return fmt.Sprintf(review.CommentTemplate, FeedbackMarkdown(report), review.JokesSection(report.Jokes))
}

// FeedbackMarkdown renders every provider's review as markdown.
func FeedbackMarkdown(report review.Report) string {
	names := providerNames(report)
	if len(names) == 0 {
		return "No provider returned a review."
	}

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		writeProviderMarkdown(&b, name, report.ReviewFeedback[name])
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeProviderMarkdown(b *strings.Builder, name string, r review.FormatReview) {
	fmt.Fprintf(b, "### 🔍 %s\n\n", name)
	if r.Explanation != "" {
		fmt.Fprintf(b, "%s\n\n", strings.TrimSpace(r.Explanation))
	}

	total := r.IssueCount()
	if total == 0 {
		b.WriteString("No formatting issues found. :white_check_mark:\n")
		return
	}

	counts := r.CountByStatus()
	var parts []string
	for i := len(review.Statuses) - 1; i >= 0; i-- {
		s := review.Statuses[i]
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	fmt.Fprintf(b, "**%d %s** (%s)\n\n", total, plural(total, "issue"), strings.Join(parts, ", "))

	b.WriteString("| Category | Status | Issue | Confidence |\n")
	b.WriteString("|----------|--------|-------|------------|\n")
	for _, c := range r.Categories {
		for _, is := range c.Issues {
			fmt.Fprintf(b, "| %s | %s %s | %s | %d/5 |\n",
				c.Name, statusIcon(is.Status), is.Status, cell(is.Description), is.Confidence)
		}
	}

	b.WriteString("\n<details>\n<summary>Details</summary>\n\n")
	for _, c := range r.Categories {
		for _, is := range c.Issues {
			fmt.Fprintf(b, "- **%s** (`%s`, %s)\n", oneLine(is.Description), c.Name, is.Status)
			if is.Explanation != "" {
				fmt.Fprintf(b, "  - %s\n", oneLine(is.Explanation))
			}
			if is.Example != "" {
				fmt.Fprintf(b, "  - Example: %s\n", oneLine(is.Example))
			}
			if is.Cause != "" {
				fmt.Fprintf(b, "  - Likely cause: %s\n", oneLine(is.Cause))
			}
		}
	}
	b.WriteString("\n</details>\n")
}

func statusIcon(s review.IssueStatus) string {
	switch s {
	case review.StatusCritical:
		return "🛑"
	case review.StatusError:
		return "🔴"
	case review.StatusWarning:
		return "🟡"
	case review.StatusInfo:
		return "🔵"
	default:
		return "⚪"
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cell makes s safe inside a markdown table cell.
func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
