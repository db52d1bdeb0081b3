package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/dshills/criticat/internal/redact"
)

// Payload is one comment to post.
type Payload struct {
	Repository string
	PRNumber   int
	Body       string
	Token      string
}

// NotificationError wraps any failure to post a comment.
type NotificationError struct {
	Repository string
	PRNumber   int
	Err        error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("commenting on %s#%d: %v", e.Repository, e.PRNumber, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Notifier posts issue comments on pull requests.
type Notifier struct {
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger
}

// NewNotifier creates a Notifier with the production transport stack:
// httpcache for conditional requests, then go-github-ratelimit, which sleeps
// on secondary rate limits.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	cacheTransport := httpcache.NewMemoryCacheTransport()
	return &Notifier{
		httpClient: github_ratelimit.NewClient(cacheTransport),
		logger:     logger,
	}
}

// NewNotifierWithHTTPClient creates a Notifier against a custom API base URL,
// such as GitHub Enterprise or an httptest server. baseURL must end in "/".
func NewNotifierWithHTTPClient(httpClient *http.Client, baseURL string, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Notifier{httpClient: httpClient, baseURL: u, logger: logger}, nil
}

// WithBaseURL returns a copy of n that talks to a GitHub Enterprise API
// root such as https://ghe.example.com/api/v3/.
func (n *Notifier) WithBaseURL(baseURL string) (*Notifier, error) {
	return NewNotifierWithHTTPClient(n.httpClient, baseURL, n.logger)
}

// Notify posts p.Body as a comment on the pull request and returns its URL.
// The token and any recognizable secret are scrubbed from the body first.
func (n *Notifier) Notify(ctx context.Context, p Payload) (string, error) {
	wrap := func(err error) error {
		return &NotificationError{Repository: p.Repository, PRNumber: p.PRNumber, Err: err}
	}

	owner, repo, err := splitRepo(p.Repository)
	if err != nil {
		return "", wrap(err)
	}
	if p.PRNumber <= 0 {
		return "", wrap(fmt.Errorf("invalid pull request number %d", p.PRNumber))
	}
	if p.Token == "" {
		return "", wrap(errors.New("missing GitHub token"))
	}

	client := gh.NewClient(n.httpClient).WithAuthToken(p.Token)
	if n.baseURL != nil {
		client.BaseURL = n.baseURL
	}

	n.logger.Info("commenting on pull request", "repository", p.Repository, "pr", p.PRNumber)
	comment, _, err := client.Issues.CreateComment(ctx, owner, repo, p.PRNumber, &gh.IssueComment{
		Body: gh.Ptr(redact.Values(p.Body, p.Token)),
	})
	if err != nil {
		return "", wrap(errors.New(redact.Values(err.Error(), p.Token)))
	}
	n.logger.Info("commented on pull request", "repository", p.Repository, "pr", p.PRNumber, "url", comment.GetHTMLURL())
	return comment.GetHTMLURL(), nil
}

// splitRepo splits "owner/repo" into its parts.
func splitRepo(fullName string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q, want owner/repo", fullName)
	}
	return owner, repo, nil
}
