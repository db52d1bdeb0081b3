package server

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dshills/criticat/internal/config"
	"github.com/dshills/criticat/internal/document"
	"github.com/dshills/criticat/internal/review"
	"github.com/dshills/criticat/internal/store"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Criticat API"

// ReviewRequest is one API review call. Empty fields fall back to the
// server's configuration.
type ReviewRequest struct {
	PDFPath   string
	ProjectID string
	Location  string
	JokeMode  string
	// Target is the pull request to comment on, if any.
	Target *review.GitConfig
}

// RunFunc performs a full review run.
type RunFunc func(ctx context.Context, req ReviewRequest) (review.Report, error)

// RunLister reads recorded runs.
type RunLister interface {
	List(ctx context.Context, limit int) ([]store.Run, error)
}

// Config for the HTTP API handler.
type Config struct {
	Run     RunFunc
	Runs    RunLister
	Version string
	Logger  *slog.Logger
}

type apiErrorBody struct {
	Code    string `json:"code" example:"bad_request"`
	Message string `json:"message" example:"pdf_path is required"`
}

// apiError is the error envelope for every non-2xx response.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

// New returns an HTTP handler exposing the criticat API.
func New(cfg Config) (http.Handler, error) {
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

	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		if len(errs) > 0 {
			parts := make([]string, 0, len(errs))
			for _, e := range errs {
				parts = append(parts, e.Error())
			}
			msg = msg + ": " + strings.Join(parts, "; ")
		}
		return newAPIError(status, "", msg)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		return huma.NewError(status, msg, errs...)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(logger))

	hcfg := huma.DefaultConfig(ServiceName, version)
	hcfg.CreateHooks = nil
	api := humachi.New(router, hcfg)

	registerHealth(api)
	registerReview(api, cfg.Run, logger)
	registerRuns(api, cfg.Runs)
	return router, nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start))
		})
	}
}

// handleError maps run errors onto HTTP statuses: bad configuration and
// unreadable paths are the caller's fault, everything else is ours.
func handleError(err error) huma.StatusError {
	var ce *config.ConfigurationError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusBadRequest, "configuration_error", err.Error())
	}
	var ee *document.ExtractionError
	if errors.As(err, &ee) {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return newAPIError(http.StatusBadRequest, "invalid_path", err.Error())
		}
		return newAPIError(http.StatusInternalServerError, "extraction_failed", err.Error())
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", err.Error())
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "healthy", "service": ServiceName}}, nil
	})
}

func registerReview(api huma.API, run RunFunc, logger *slog.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "review-document",
		Method:      http.MethodPost,
		Path:        "/review",
		Summary:     "Review a PDF document's formatting",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body ReviewBody `json:"body"`
	}) (*struct {
		Body review.Report `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.PDFPath) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "pdf_path is required")
		}
		if _, err := review.ParseJokeMode(input.Body.JokeMode); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error())
		}
		report, err := run(ctx, ReviewRequest{
			PDFPath:   input.Body.PDFPath,
			ProjectID: input.Body.ProjectID,
			Location:  input.Body.Location,
			JokeMode:  input.Body.JokeMode,
		})
		if err != nil {
			logger.Error("review request failed", "pdf_path", input.Body.PDFPath, "error", err)
			return nil, handleError(err)
		}
		return &struct {
			Body review.Report `json:"body"`
		}{Body: report}, nil
	})
}

func registerRuns(api huma.API, runs RunLister) {
	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "List recorded review runs",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"20" minimum:"0" doc:"Maximum runs to return; 0 returns all"`
	}) (*struct {
		Body []RunResponse `json:"body"`
	}, error) {
		if runs == nil {
			return nil, newAPIError(http.StatusNotFound, "history_disabled", "run history is disabled")
		}
		items, err := runs.List(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []RunResponse `json:"body"`
		}{Body: mapRuns(items)}, nil
	})
}
