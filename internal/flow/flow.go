package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/criticat/internal/config"
	"github.com/dshills/criticat/internal/github"
	"github.com/dshills/criticat/internal/output"
	"github.com/dshills/criticat/internal/providers"
	"github.com/dshills/criticat/internal/review"
	"github.com/dshills/criticat/internal/store"
)

// Extractor turns a PDF into ordered base64 page images.
type Extractor interface {
	Extract(ctx context.Context, pdfPath string) ([]string, error)
}

// Notifier posts the summary comment to a pull request.
type Notifier interface {
	Notify(ctx context.Context, p github.Payload) (string, error)
}

// Recorder persists a summary of each run.
type Recorder interface {
	Record(ctx context.Context, run store.Run) error
}

// Options configures an Orchestrator. Registry and Extractor are required.
type Options struct {
	Registry    *providers.Registry
	Extractor   Extractor
	Notifier    Notifier
	Recorder    Recorder
	ReportDir   string
	Rand        *rand.Rand
	Logger      *slog.Logger
	Concurrency int
}

// Orchestrator drives one review run through its stages.
type Orchestrator struct {
	registry    *providers.Registry
	extractor   Extractor
	notifier    Notifier
	recorder    Recorder
	reportDir   string
	logger      *slog.Logger
	concurrency int

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New validates opts and returns an Orchestrator. An empty registry is a
// configuration error: there is no one to review the document.
func New(opts Options) (*Orchestrator, error) {
	if opts.Registry == nil || opts.Registry.Len() == 0 {
		return nil, &config.ConfigurationError{Field: "providers", Err: errors.New("no usable provider")}
	}
	if opts.Extractor == nil {
		return nil, errors.New("flow: extractor is required")
	}
	o := &Orchestrator{
		registry:    opts.Registry,
		extractor:   opts.Extractor,
		notifier:    opts.Notifier,
		recorder:    opts.Recorder,
		reportDir:   opts.ReportDir,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
		rng:         opts.Rand,
	}
	if o.reportDir == "" {
		o.reportDir = output.DefaultReportDir
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o, nil
}

// Result is the outcome of a completed run.
type Result struct {
	RunID      string
	State      review.ControlState
	ReportPath string
	CommentURL string
	Notified   bool
	// Failures holds the review error of every provider missing from the feedback.
	Failures map[string]error
}

// Run executes every stage and returns the final state.
func (o *Orchestrator) Run(ctx context.Context, app review.ReviewConfig, pc review.ProvidersConfig) (review.ControlState, error) {
	res, err := o.Execute(ctx, app, pc)
	return res.State, err
}

// Execute is Run with the run metadata. Only extraction and report write
// failures are returned; provider, joke and notification failures degrade
// into the result.
func (o *Orchestrator) Execute(ctx context.Context, app review.ReviewConfig, pc review.ProvidersConfig) (Result, error) {
	mode, err := review.ParseJokeMode(string(app.JokeMode))
	if err != nil {
		return Result{}, &config.ConfigurationError{Field: "joke_mode", Err: err}
	}
	app.JokeMode = mode
	pc = resolveGit(pc)

	res := Result{RunID: uuid.NewString(), State: review.NewControlState(app, pc)}
	logger := o.logger.With("run_id", res.RunID)
	started := time.Now()

	var runErr error
	for stage := StageStart; stage != StageDone; stage = Next(stage, res.State) {
		switch stage {
		case StageExtracting:
			logger.Info("stage started", "stage", stage, "pdf_path", app.PDFPath)
			res.State, runErr = o.Extract(ctx, res.State)
		case StageReviewing:
			logger.Info("stage started", "stage", stage, "providers", o.registry.Len())
			res.State, res.Failures = o.review(ctx, res.State, logger)
			res.ReportPath, runErr = output.SaveReport(o.reportDir, res.State.Review.Report())
			if runErr == nil {
				logger.Info("report written", "path", res.ReportPath)
			}
		case StageNotifying:
			logger.Info("stage started", "stage", stage)
			res.CommentURL, res.Notified = o.Notify(ctx, res.State, logger)
		}
		if runErr != nil {
			break
		}
	}

	o.record(ctx, logger, res, started, runErr)
	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		return res, runErr
	}
	logger.Info("run finished",
		"providers", len(res.State.Review.ReviewFeedback),
		"issues", res.State.Review.TotalIssues(),
		"jokes", len(res.State.Review.Jokes),
		"notified", res.Notified,
		"duration", time.Since(started))
	return res, nil
}

// resolveGit fills Repository from GitURL when only the URL was given.
func resolveGit(pc review.ProvidersConfig) review.ProvidersConfig {
	if pc.GitProvider == nil {
		return pc
	}
	g := *pc.GitProvider
	if g.Repository == "" && g.GitURL != "" {
		if repo, err := github.RepositoryFromURL(g.GitURL); err == nil {
			g.Repository = repo
		}
	}
	pc.GitProvider = &g
	return pc
}

// Extract fills the document images. Failure is fatal to the run.
func (o *Orchestrator) Extract(ctx context.Context, state review.ControlState) (review.ControlState, error) {
	images, err := o.extractor.Extract(ctx, state.AppConfig.PDFPath)
	if err != nil {
		return state, err
	}
	state.Review.DocumentImages = images
	return state, nil
}

type providerResult struct {
	review review.FormatReview
	jokes  []string
	ok     bool
}

// Review asks every provider for a review and applies the joke policy.
// A failed provider is left out of the feedback and contributes no jokes.
func (o *Orchestrator) Review(ctx context.Context, state review.ControlState, logger *slog.Logger) review.ControlState {
	state, _ = o.review(ctx, state, logger)
	return state
}

func (o *Orchestrator) review(ctx context.Context, state review.ControlState, logger *slog.Logger) (review.ControlState, map[string]error) {
	if logger == nil {
		logger = o.logger
	}
	ps := o.registry.Providers()
	mode := state.AppConfig.JokeMode
	images := state.Review.DocumentImages

	draws := o.chaoticDraws(mode, len(ps))
	results := make([]providerResult, len(ps))

	var mu sync.Mutex
	feedback := make(map[string]review.FormatReview, len(ps))
	failures := make(map[string]error)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, p := range ps {
		g.Go(func() error {
			plog := logger.With("provider", p.Name)
			r, err := p.Reviewer.Review(gctx, images)
			if err != nil {
				plog.Error("review failed", "error", err)
				mu.Lock()
				failures[p.Name] = err
				mu.Unlock()
				return nil
			}
			plog.Info("review completed", "issues", r.IssueCount(), "has_issues", r.HasIssues())

			n := draws[i]
			if mode != review.JokeModeChaotic {
				n = JokeCount(mode, r, nil)
			} else {
				plog.Warn("chaotic mode activated", "jokes", n)
			}
			jokes := make([]string, 0, n)
			for range n {
				jokes = append(jokes, p.Joker.Joke(gctx, r))
			}

			mu.Lock()
			feedback[p.Name] = r
			results[i] = providerResult{review: r, jokes: jokes, ok: true}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	state.Review.ReviewFeedback = feedback
	state.Review.Jokes = []string{}
	for _, r := range results {
		if r.ok {
			state.Review.Jokes = append(state.Review.Jokes, r.jokes...)
		}
	}
	return state, failures
}

// chaoticDraws draws every provider's joke count up front so the sequence
// depends only on the seed, not on goroutine scheduling.
func (o *Orchestrator) chaoticDraws(mode review.JokeMode, n int) []int {
	draws := make([]int, n)
	if mode != review.JokeModeChaotic {
		return draws
	}
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	for i := range draws {
		draws[i] = JokeCount(mode, review.FormatReview{}, o.rng)
	}
	return draws
}

// Notify posts the comment. Failures are logged and never returned.
func (o *Orchestrator) Notify(ctx context.Context, state review.ControlState, logger *slog.Logger) (string, bool) {
	if logger == nil {
		logger = o.logger
	}
	if o.notifier == nil {
		logger.Warn("pull request target configured but no notifier available")
		return "", false
	}
	g := state.ProvidersConfig.GitProvider
	url, err := o.notifier.Notify(ctx, github.Payload{
		Repository: g.Repository,
		PRNumber:   g.PRNumber,
		Body:       output.CommentBody(state.Review.Report()),
		Token:      g.Token,
	})
	if err != nil {
		logger.Error("notification failed", "error", err)
		return "", false
	}
	logger.Info("posted pull request comment", "repository", g.Repository, "pr", g.PRNumber, "url", url)
	return url, true
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, res Result, started time.Time, runErr error) {
	if o.recorder == nil {
		return
	}
	run := store.Run{
		ID:         res.RunID,
		PDFPath:    res.State.AppConfig.PDFPath,
		JokeMode:   string(res.State.AppConfig.JokeMode),
		Providers:  o.registry.Names(),
		Status:     store.RunCompleted,
		IssueCount: res.State.Review.TotalIssues(),
		HasIssues:  res.State.Review.AnyIssues(),
		JokeCount:  len(res.State.Review.Jokes),
		Notified:   res.Notified,
		ReportPath: res.ReportPath,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if runErr != nil {
		run.Status = store.RunFailed
		run.Error = runErr.Error()
	}
	if err := o.recorder.Record(ctx, run); err != nil {
		logger.Warn("recording run history", "error", fmt.Errorf("run %s: %w", res.RunID, err))
	}
}
