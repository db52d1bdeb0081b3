package review

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are a LaTeX formatting expert helping the user review a résumé PDF for layout and presentation issues.

Identify formatting problems using only the visual and structural cues of the rendered pages. There is no source file available. Do not evaluate the content or the writing; focus purely on format.

Organize your analysis into the following areas:

1. Word and character spacing
- Words that are unintentionally joined ("Designedand" instead of "Designed and").
- Irregular letter spacing that hurts readability.
- Likely causes: font rendering or encoding problems, misuse of \hbox or \texttt, bad compiler flags.

2. Section and paragraph spacing
- Inconsistent vertical gaps between sections or lines.
- Abrupt white space or unbalanced flow across pages.
- Likely causes: \vspace, \newpage or template errors.

3. Text alignment
- Misaligned contact details, dates or bullets.
- Likely causes: tabular environments, margin configuration, inconsistent justification.

4. Repeated or misplaced links
- Hyperlinks repeated or placed in unrelated sections.
- Likely causes: duplicated \href commands or broken footer logic.

5. Font and rendering quality
- Inconsistent font sizes or styles, blurry areas, weight mismatches.
- Likely causes: missing font packages, pdflatex versus lualatex mismatches.

6. Bullet and list formatting
- Bullets that differ in style or alignment, unusual list spacing.
- Likely causes: list environments or wrong indentation.

7. Visual element alignment
- Icons (email, phone, GitHub) that do not sit on the baseline of their text.
- Likely causes: \raisebox misuse, baseline configuration, image or font issues.

8. Text occlusion (critical)
- Any text that is cut off, cropped, hidden or overlapped by another element, including lines that vanish mid-word, text behind icons or blocks, and content leaving the page margin.
- Likely causes: \clip, overflowing \parbox or minipage, incompatible packages.
- Mandatory rule: every occlusion finding must have status "error" or "critical". Never "warning" or "info".

For each issue, describe the problem, reference a visible example when possible and name the most likely LaTeX or PDF generation cause.

DO NOT comment on content, grammar or structure of the résumé, and do not report anything that is not visually obvious.
DO think like a LaTeX debugger and stay precise and diagnostic.`

const humanPromptTemplate = `Review the attached résumé pages, rendered from a LaTeX PDF, and identify any formatting issues. Focus only on layout and presentation, not content or grammar.

## Schema
%s

Respond with ONLY a JSON object that matches the schema. No markdown, no preamble.

Status logic:
- "critical" or "error" for anything that breaks readability (occlusion, unreadable overlaps)
- "warning" for misalignment, odd spacing or styling inconsistencies
- "info" for minor cosmetic inconsistencies

Occlusion is never "warning" or "info".

Group findings by category and give a confidence from 1 (guess) to 5 (certain) for each issue.
The attached images are the document pages in order.`

const jokeSystemPrompt = `You are Criticat, a sarcastic and judgmental feline reviewer who specializes in document formatting disasters.
Deliver short, snarky, cat-themed comments about bad formatting in a tone that says "I expected better, human."
Be witty. Keep it brief, clever and with claws out.`

const jokeHumanTemplate = `I just reviewed a document and found %d formatting issues.
Give me one sarcastic, cat-themed comment I can add to my review.
Make it short and sharp, like a judgmental cat who is sick of ugly layouts and inconsistent spacing.
Reply with the comment only.`

// FallbackJoke replaces a joke whenever generation fails.
const FallbackJoke = "Meow, I tried to think of something witty, but I got distracted by a formatting error."

// SystemPrompt returns the reviewing persona and inspection taxonomy.
func SystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt returns the human instruction with the output schema embedded.
func BuildUserPrompt() string {
	return fmt.Sprintf(humanPromptTemplate, Schema())
}

// JokeSystemPrompt returns the joke persona.
func JokeSystemPrompt() string {
	return jokeSystemPrompt
}

// BuildJokePrompt returns the joke instruction for a given issue count.
func BuildJokePrompt(issueCount int) string {
	return fmt.Sprintf(jokeHumanTemplate, issueCount)
}

// Schema returns the JSON schema of FormatReview, indented.
func Schema() string {
	categories := make([]string, len(Categories))
	for i, c := range Categories {
		categories[i] = string(c)
	}
	statuses := make([]string, len(Statuses))
	for i, s := range Statuses {
		statuses[i] = string(s)
	}

	issue := map[string]any{
		"type":     "object",
		"required": []string{"description", "explanation", "status", "confidence"},
		"properties": map[string]any{
			"description": map[string]any{"type": "string", "description": "What is wrong"},
			"explanation": map[string]any{"type": "string", "description": "Why it is a formatting problem"},
			"example":     map[string]any{"type": "string", "description": "Visible example from the page", "default": ""},
			"cause":       map[string]any{"type": "string", "description": "Most likely LaTeX or PDF generation cause", "default": ""},
			"status":      map[string]any{"type": "string", "enum": statuses},
			"confidence":  map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
		},
	}
	schema := map[string]any{
		"title":    "FormatReview",
		"type":     "object",
		"required": []string{"explanation", "categories"},
		"properties": map[string]any{
			"explanation": map[string]any{"type": "string", "description": "Overall assessment of the document layout"},
			"categories": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"name", "issues"},
					"properties": map[string]any{
						"name":   map[string]any{"type": "string", "enum": categories},
						"issues": map[string]any{"type": "array", "items": issue},
					},
				},
			},
		},
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		// Static data; marshaling cannot fail.
		panic(err)
	}
	return string(data)
}

// CommentTemplate is the pull request comment layout.
const CommentTemplate = `## 😼 Criticat Document Review

%s

%s

---
*Criticat is a document review assistant. Meow.*
`

// JokesSection renders jokes as the "CritiCat Says" block, or "" when empty.
func JokesSection(jokes []string) string {
	if len(jokes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n### 😹 CritiCat Says\n\n")
	for _, j := range jokes {
		fmt.Fprintf(&b, "> %s\n", strings.ReplaceAll(strings.TrimSpace(j), "\n", "\n> "))
	}
	return b.String()
}
