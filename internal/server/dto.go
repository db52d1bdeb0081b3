package server

import (
	"time"

	"github.com/dshills/criticat/internal/store"
)

// ReviewBody is the POST /review payload.
type ReviewBody struct {
	PDFPath   string `json:"pdf_path" doc:"Path to the PDF on the server" example:"./resume.pdf"`
	ProjectID string `json:"project_id,omitempty" doc:"Google Cloud project for vertex_ai providers"`
	Location  string `json:"location,omitempty" doc:"Google Cloud region" example:"us-central1"`
	JokeMode  string `json:"joke_mode,omitempty" enum:"none,default,chaotic" doc:"Joke injection mode"`
}

// RunResponse is one recorded run.
type RunResponse struct {
	ID         string    `json:"id"`
	PDFPath    string    `json:"pdf_path"`
	JokeMode   string    `json:"joke_mode"`
	Providers  []string  `json:"providers"`
	Status     string    `json:"status"`
	IssueCount int       `json:"issue_count"`
	HasIssues  bool      `json:"has_issues"`
	JokeCount  int       `json:"joke_count"`
	Notified   bool      `json:"notified"`
	ReportPath string    `json:"report_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
}

func mapRuns(items []store.Run) []RunResponse {
	out := make([]RunResponse, 0, len(items))
	for _, r := range items {
		providers := r.Providers
		if providers == nil {
			providers = []string{}
		}
		out = append(out, RunResponse{
			ID:         r.ID,
			PDFPath:    r.PDFPath,
			JokeMode:   r.JokeMode,
			Providers:  providers,
			Status:     string(r.Status),
			IssueCount: r.IssueCount,
			HasIssues:  r.HasIssues,
			JokeCount:  r.JokeCount,
			Notified:   r.Notified,
			ReportPath: r.ReportPath,
			Error:      r.Error,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			DurationMS: r.Duration().Milliseconds(),
		})
	}
	return out
}
