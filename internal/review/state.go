package review

import (
	"fmt"
	"strings"
)

// JokeMode controls how many remarks are appended per provider per run.
type JokeMode string

const (
	JokeModeNone    JokeMode = "none"
	JokeModeDefault JokeMode = "default"
	JokeModeChaotic JokeMode = "chaotic"
)

// ParseJokeMode accepts a mode name in any case. An empty string maps to default.
func ParseJokeMode(s string) (JokeMode, error) {
	switch JokeMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", JokeModeDefault:
		return JokeModeDefault, nil
	case JokeModeNone:
		return JokeModeNone, nil
	case JokeModeChaotic:
		return JokeModeChaotic, nil
	default:
		return "", fmt.Errorf("unknown joke mode %q (want none, default or chaotic)", s)
	}
}

// ReviewConfig is the immutable input of one run.
type ReviewConfig struct {
	PDFPath  string   `json:"pdf_path"`
	JokeMode JokeMode `json:"joke_mode"`
}

// GitConfig identifies the pull request that receives the summary comment.
type GitConfig struct {
	GitURL     string `json:"git_url,omitempty"`
	Repository string `json:"repository,omitempty"`
	PRNumber   int    `json:"pr_number,omitempty"`
	Token      string `json:"-"`
}

// Complete reports whether the target carries everything a post needs.
func (g GitConfig) Complete() bool {
	return g.Repository != "" && g.PRNumber > 0 && g.Token != ""
}

// ProvidersConfig holds the optional collaborators of a run.
type ProvidersConfig struct {
	GitProvider *GitConfig `json:"git_provider,omitempty"`
}

// ReviewState is the mutable working state of one run.
type ReviewState struct {
	DocumentImages []string                `json:"document_images,omitempty"`
	ReviewFeedback map[string]FormatReview `json:"review_feedback"`
	Jokes          []string                `json:"jokes"`
}

// NewReviewState returns an empty state ready for a run.
func NewReviewState() ReviewState {
	return ReviewState{
		ReviewFeedback: make(map[string]FormatReview),
		Jokes:          []string{},
	}
}

// AnyIssues reports whether any provider's review has blocking issues.
func (s ReviewState) AnyIssues() bool {
	for _, r := range s.ReviewFeedback {
		if r.HasIssues() {
			return true
		}
	}
	return false
}

// TotalIssues sums IssueCount over all providers.
func (s ReviewState) TotalIssues() int {
	n := 0
	for _, r := range s.ReviewFeedback {
		n += r.IssueCount()
	}
	return n
}

// Report is the persisted view of a ReviewState; page images are left out.
type Report struct {
	ReviewFeedback map[string]FormatReview `json:"review_feedback" yaml:"review_feedback"`
	Jokes          []string                `json:"jokes" yaml:"jokes"`
}

// Report returns the persisted view of s.
func (s ReviewState) Report() Report {
	r := Report{ReviewFeedback: s.ReviewFeedback, Jokes: s.Jokes}
	if r.ReviewFeedback == nil {
		r.ReviewFeedback = map[string]FormatReview{}
	}
	if r.Jokes == nil {
		r.Jokes = []string{}
	}
	return r
}

// AnyIssues reports whether any provider in the report has blocking issues.
func (r Report) AnyIssues() bool {
	return ReviewState{ReviewFeedback: r.ReviewFeedback}.AnyIssues()
}

// ControlState is the full workflow state passed between pipeline stages.
type ControlState struct {
	Review          ReviewState     `json:"review"`
	ProvidersConfig ProvidersConfig `json:"providers_config"`
	AppConfig       ReviewConfig    `json:"app_config"`
}

// NewControlState builds the initial state for a run.
func NewControlState(app ReviewConfig, pc ProvidersConfig) ControlState {
	return ControlState{
		Review:          NewReviewState(),
		ProvidersConfig: pc,
		AppConfig:       app,
	}
}
