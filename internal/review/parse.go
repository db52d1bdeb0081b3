package review

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseReview decodes a model response into a FormatReview.
// Markdown code fences around the JSON are tolerated.
func ParseReview(content string) (FormatReview, error) {
	content = stripCodeFences(content)
	if content == "" {
		return FormatReview{}, fmt.Errorf("empty response")
	}

	var r FormatReview
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return FormatReview{}, fmt.Errorf("invalid JSON object: %w", err)
	}
	if err := r.Validate(); err != nil {
		return FormatReview{}, fmt.Errorf("response validation failed: %w", err)
	}
	return r, nil
}

func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return ""
	}
	// Drop the opening ```json line and a closing ``` line.
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}
