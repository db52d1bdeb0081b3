package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/criticat/internal/config"
	"github.com/dshills/criticat/internal/flow"
	"github.com/dshills/criticat/internal/review"
	"github.com/dshills/criticat/internal/server"
	"github.com/dshills/criticat/internal/store"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		var runs server.RunLister
		wo := wireOptions{}
		if db := openHistory(cfg, logger); db != nil {
			defer db.Close()
			repo := store.NewRunRepo(db)
			runs, wo.recorder = repo, repo
		}

		handler, err := server.New(server.Config{
			Run:     apiRunner(cfg, wo, logger),
			Runs:    runs,
			Version: version,
			Logger:  logger,
		})
		if err != nil {
			return fail(cmd, err)
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		ctx := cmd.Context()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.Info("serving criticat API", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fail(cmd, fmt.Errorf("serving on %s: %w", cfg.Server.Addr, err))
		}
		logger.Info("server stopped")
		return nil
	},
}

// apiRunner returns the per-request pipeline shared by the HTTP and MCP
// servers. Each request may override the Google Cloud project, location and
// joke mode, so the orchestrator is built per call from a copy of cfg. A
// request target without a token uses the configured GitHub token.
func apiRunner(cfg config.Config, wo wireOptions, logger *slog.Logger) server.RunFunc {
	return func(ctx context.Context, req server.ReviewRequest) (review.Report, error) {
		c := cfg.WithGCP(req.ProjectID, req.Location)
		if req.JokeMode != "" {
			c.JokeMode = req.JokeMode
		}
		orch, err := newOrchestrator(ctx, c, logger, wo)
		if err != nil {
			return review.Report{}, err
		}
		logger.Info("api review", "pdf_path", req.PDFPath, "joke_mode", c.JokeMode)
		res, err := orch.Execute(ctx, review.ReviewConfig{PDFPath: req.PDFPath, JokeMode: review.JokeMode(c.JokeMode)}, requestTarget(req, cfg))
		if err != nil {
			return review.Report{}, err
		}
		return res.State.Review.Report(), nil
	}
}

func requestTarget(req server.ReviewRequest, cfg config.Config) review.ProvidersConfig {
	if req.Target == nil {
		return review.ProvidersConfig{}
	}
	g := *req.Target
	if g.Token == "" {
		g.Token = cfg.GitHub.Token
	}
	return review.ProvidersConfig{GitProvider: &g}
}

var _ flow.Recorder = (*store.RunRepo)(nil)

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default 0.0.0.0:8000)")
}
