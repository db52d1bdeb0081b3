package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/criticat/internal/config"
	"github.com/dshills/criticat/internal/flow"
	"github.com/dshills/criticat/internal/github"
	"github.com/dshills/criticat/internal/output"
	"github.com/dshills/criticat/internal/providers"
	"github.com/dshills/criticat/internal/review"
	"github.com/dshills/criticat/internal/store"
)

// Review flags
var (
	flagPDFPath      string
	flagJokeMode     string
	flagProjectID    string
	flagLocation     string
	flagProviders    []string
	flagRepository   string
	flagPRNumber     int
	flagGitHubToken  string
	flagGitURL       string
	flagFormat       string
	flagOut          string
	flagReportDir    string
	flagFailOnIssues bool
	flagConcurrency  int
	flagDPI          int
	flagNoCache      bool
	flagNoHistory    bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a PDF's formatting",
	Long: `Render every page of a PDF, ask each configured provider for a formatting
review and write the combined report to <report-dir>/criticat_feedback.json.

When a pull request is given (--pr-number with --repository, --git-url or the
origin remote) and any provider finds an error or critical issue, a summary
comment is posted to it.`,
	RunE: runReviewCmd,
}

func runReviewCmd(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(flagPDFPath) == "" {
		return errors.New("--pdf-path is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := output.GetWriter(cfg.Format, output.Options{}); err != nil {
		return err
	}
	logger := newLogger(cfg)

	var history *store.DB
	if !flagNoHistory {
		history = openHistory(cfg, logger)
	}
	wo := wireOptions{noCache: flagNoCache}
	if history != nil {
		defer history.Close()
		wo.recorder = store.NewRunRepo(history)
	}

	orch, err := newOrchestrator(cmd.Context(), cfg, logger, wo)
	if err != nil {
		return fail(cmd, err)
	}

	pc, err := gitTarget(cfg)
	if err != nil {
		return fail(cmd, err)
	}
	if pc.GitProvider != nil && pc.GitProvider.Token == "" {
		logger.Warn("pull request given without a GitHub token; no comment will be posted")
	}

	res, err := orch.Execute(cmd.Context(), review.ReviewConfig{
		PDFPath:  flagPDFPath,
		JokeMode: review.JokeMode(cfg.JokeMode),
	}, pc)
	if err != nil {
		return fail(cmd, err)
	}
	if err := allProvidersFailed(res); err != nil {
		return fail(cmd, err)
	}

	report := res.State.Review.Report()
	opts := output.Options{Document: flagPDFPath, Version: version}
	if err := output.WriteReport(report, cfg.Format, flagOut, opts); err != nil {
		return fail(cmd, fmt.Errorf("writing output: %w", err))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to %s\n", res.ReportPath)
	if res.Notified {
		fmt.Fprintf(cmd.ErrOrStderr(), "Commented on pull request: %s\n", res.CommentURL)
	}

	if flagFailOnIssues && report.AnyIssues() {
		exitCode = ExitIssues
	}
	return nil
}

// gitTarget builds the pull request target from flags. --pr-number without a
// repository falls back to the origin remote.
func gitTarget(cfg config.Config) (review.ProvidersConfig, error) {
	if flagPRNumber <= 0 {
		if flagRepository != "" || flagGitURL != "" {
			return review.ProvidersConfig{}, &config.ConfigurationError{Field: "pr-number", Err: errors.New("required with --repository or --git-url")}
		}
		return review.ProvidersConfig{}, nil
	}
	g := &review.GitConfig{
		GitURL:     flagGitURL,
		Repository: flagRepository,
		PRNumber:   flagPRNumber,
		Token:      cfg.GitHub.Token,
	}
	if g.Repository == "" && g.GitURL != "" {
		repo, err := github.RepositoryFromURL(g.GitURL)
		if err != nil {
			return review.ProvidersConfig{}, &config.ConfigurationError{Field: "git-url", Err: err}
		}
		g.Repository = repo
	}
	if g.Repository == "" {
		repo, err := github.DetectRepo()
		if err != nil {
			return review.ProvidersConfig{}, &config.ConfigurationError{Field: "repository", Err: err}
		}
		g.Repository = repo
	}
	return review.ProvidersConfig{GitProvider: g}, nil
}

// allProvidersFailed turns a run with no feedback at all into an error so the
// exit code reflects it. Auth failures take precedence.
func allProvidersFailed(res flow.Result) error {
	if len(res.State.Review.ReviewFeedback) > 0 || len(res.Failures) == 0 {
		return nil
	}
	var errs []error
	for _, err := range res.Failures {
		if providers.IsAuthError(err) {
			return fmt.Errorf("every provider failed: %w", err)
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("every provider failed: %w", errors.Join(errs...))
}

func init() {
	f := reviewCmd.Flags()
	f.StringVar(&flagPDFPath, "pdf-path", "", "Path to the PDF file to review (required)")
	f.StringVar(&flagJokeMode, "joke-mode", "", "Joke mode: none, default or chaotic")
	f.StringVar(&flagProjectID, "project-id", "", "Google Cloud project for vertex_ai providers")
	f.StringVar(&flagLocation, "location", "", "Google Cloud location (default us-central1)")
	f.StringSliceVar(&flagProviders, "provider", nil, "Providers to use by name or kind (repeatable)")
	f.StringVar(&flagRepository, "repository", "", "GitHub repository as owner/repo")
	f.IntVar(&flagPRNumber, "pr-number", 0, "Pull request number to comment on")
	f.StringVar(&flagGitHubToken, "github-token", "", "GitHub token (default $GITHUB_TOKEN)")
	f.StringVar(&flagGitURL, "git-url", "", "Git remote URL to derive the repository from")
	f.StringVar(&flagFormat, "format", "", fmt.Sprintf("Output format (%s)", strings.Join(output.Formats, ", ")))
	f.StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	f.StringVar(&flagReportDir, "report-dir", "", "Directory for criticat_feedback.json (default ./reports)")
	f.BoolVar(&flagFailOnIssues, "fail-on-issues", false, "Exit 1 when any provider reports an error or critical issue")
	f.IntVar(&flagConcurrency, "concurrency", 0, "Providers reviewed in parallel")
	f.IntVar(&flagDPI, "dpi", 0, "Page render resolution")
	f.BoolVar(&flagNoCache, "no-cache", false, "Bypass the review cache")
	f.BoolVar(&flagNoHistory, "no-history", false, "Do not record this run in the history database")
}
