package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dshills/criticat/internal/review"
)

// MCPServerName identifies criticat to MCP clients.
const MCPServerName = "criticat"

// ReviewToolInput are the arguments of the MCP review tool. Empty optional
// fields fall back to the server's configuration.
type ReviewToolInput struct {
	PDFPath     string `json:"pdf_path" jsonschema:"path to the PDF file to review"`
	ProjectID   string `json:"project_id,omitempty" jsonschema:"Google Cloud project ID for vertex_ai providers"`
	Location    string `json:"location,omitempty" jsonschema:"Google Cloud location, default us-central1"`
	GitHubToken string `json:"github_token,omitempty" jsonschema:"GitHub token used to comment on the pull request"`
	Repository  string `json:"repository,omitempty" jsonschema:"GitHub repository as owner/repo"`
	PRNumber    int    `json:"pr_number,omitempty" jsonschema:"pull request to comment on when issues are found"`
	JokeMode    string `json:"joke_mode,omitempty" jsonschema:"cat joke mode: none, default or chaotic"`
}

// NewMCP returns an MCP server with a single review tool backed by
// cfg.Run. Runs are not listed over MCP.
func NewMCP(cfg Config) (*mcp.Server, error) {
	if cfg.Run == nil {
		return nil, errors.New("server: run function is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := mcp.NewServer(&mcp.Implementation{Name: MCPServerName, Version: version}, nil)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "review",
		Description: "Review a PDF document's formatting and comment on a GitHub pull request if issues are found.",
	}, reviewTool(cfg.Run, logger))
	return s, nil
}

func reviewTool(run RunFunc, logger *slog.Logger) mcp.ToolHandlerFor[ReviewToolInput, review.Report] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ReviewToolInput) (*mcp.CallToolResult, review.Report, error) {
		req, err := in.request()
		if err != nil {
			return nil, review.Report{}, err
		}
		logger.Info("mcp review", "pdf_path", req.PDFPath, "pull_request", req.Target != nil)

		report, err := run(ctx, req)
		if err != nil {
			logger.Error("mcp review failed", "pdf_path", req.PDFPath, "error", err)
			return nil, review.Report{}, err
		}
		data, err := json.Marshal(report)
		if err != nil {
			return nil, review.Report{}, fmt.Errorf("encoding report: %w", err)
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, report, nil
	}
}

func (in ReviewToolInput) request() (ReviewRequest, error) {
	if strings.TrimSpace(in.PDFPath) == "" {
		return ReviewRequest{}, errors.New("pdf_path is required")
	}
	if _, err := review.ParseJokeMode(in.JokeMode); err != nil {
		return ReviewRequest{}, err
	}
	req := ReviewRequest{
		PDFPath:   in.PDFPath,
		ProjectID: in.ProjectID,
		Location:  in.Location,
		JokeMode:  in.JokeMode,
	}
	switch {
	case in.PRNumber > 0 && in.Repository == "":
		return ReviewRequest{}, errors.New("repository is required with pr_number")
	case in.PRNumber <= 0 && in.Repository != "":
		return ReviewRequest{}, errors.New("pr_number is required with repository")
	case in.PRNumber > 0:
		req.Target = &review.GitConfig{
			Repository: in.Repository,
			PRNumber:   in.PRNumber,
			Token:      in.GitHubToken,
		}
	}
	return req, nil
}
