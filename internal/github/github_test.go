package github

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(t *testing.T, handler http.Handler) *Notifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	n, err := NewNotifierWithHTTPClient(server.Client(), server.URL+"/", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return n
}

func TestNotify_PostsIssueComment(t *testing.T) {
	var gotBody string
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/octo/docs/issues/7/comments", r.URL.Path)
		assert.Equal(t, "Bearer tok-123456", r.Header.Get("Authorization"))

		var req struct {
			Body string `json:"body"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotBody = req.Body

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": 99, "html_url": "https://github.com/octo/docs/pull/7#issuecomment-99"}`)
	}))

	url, err := n.Notify(context.Background(), Payload{
		Repository: "octo/docs",
		PRNumber:   7,
		Body:       "## 😼 Criticat Document Review\n\nleaked tok-123456",
		Token:      "tok-123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/octo/docs/pull/7#issuecomment-99", url)
	assert.Contains(t, gotBody, "Criticat Document Review")
	assert.NotContains(t, gotBody, "tok-123456", "token must be scrubbed from the comment")
}

func TestNotify_APIErrorIsNotificationError(t *testing.T) {
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"message": "Resource not accessible by integration"}`)
	}))

	_, err := n.Notify(context.Background(), Payload{Repository: "octo/docs", PRNumber: 7, Body: "x", Token: "tok-123456"})
	var ne *NotificationError
	require.True(t, errors.As(err, &ne), "got %v", err)
	assert.Equal(t, "octo/docs", ne.Repository)
	assert.Equal(t, 7, ne.PRNumber)
	assert.Contains(t, err.Error(), "commenting on octo/docs#7")
}

func TestNotify_InvalidPayload(t *testing.T) {
	calls := 0
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for name, p := range map[string]Payload{
		"bad repo":  {Repository: "octo", PRNumber: 1, Token: "t"},
		"nested":    {Repository: "a/b/c", PRNumber: 1, Token: "t"},
		"zero pr":   {Repository: "octo/docs", PRNumber: 0, Token: "t"},
		"no token":  {Repository: "octo/docs", PRNumber: 1},
		"empty all": {},
	} {
		_, err := n.Notify(context.Background(), p)
		var ne *NotificationError
		assert.True(t, errors.As(err, &ne), name)
	}
	assert.Zero(t, calls, "invalid payloads must not reach the API")
}

func TestNewNotifierWithHTTPClient_TrailingSlash(t *testing.T) {
	n, err := NewNotifierWithHTTPClient(http.DefaultClient, "https://ghe.example.com/api/v3", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(n.baseURL.Path, "/"))
}

func TestWithBaseURL_KeepsTransport(t *testing.T) {
	base := NewNotifier(nil)
	n, err := base.WithBaseURL("https://ghe.example.com/api/v3")
	require.NoError(t, err)
	assert.Same(t, base.httpClient, n.httpClient)
	assert.Equal(t, "/api/v3/", n.baseURL.Path)
	assert.Nil(t, base.baseURL, "original notifier is unchanged")
}

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{name: "HTTPS", url: "https://github.com/dshills/criticat.git", wantOwner: "dshills", wantRepo: "criticat"},
		{name: "HTTPS no .git", url: "https://github.com/dshills/criticat", wantOwner: "dshills", wantRepo: "criticat"},
		{name: "web PR URL", url: "https://github.com/dshills/criticat/pull/12", wantOwner: "dshills", wantRepo: "criticat"},
		{name: "SSH", url: "git@github.com:dshills/criticat.git", wantOwner: "dshills", wantRepo: "criticat"},
		{name: "SSH no .git", url: "git@github.com:dshills/criticat", wantOwner: "dshills", wantRepo: "criticat"},
		{name: "invalid", url: "not-a-url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRemoteURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestRepositoryFromURL(t *testing.T) {
	got, err := RepositoryFromURL("https://github.com/octo/docs.git")
	require.NoError(t, err)
	assert.Equal(t, "octo/docs", got)
}
