package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/auth"
)

func shortBackoff(t *testing.T) {
	t.Helper()
	orig := backoffUnit
	backoffUnit = time.Millisecond
	t.Cleanup(func() { backoffUnit = orig })
}

var testRequest = Request{
	SystemPrompt: "system",
	UserPrompt:   "review these pages",
	Images:       []string{"cGFnZTE=", "cGFnZTI="},
	JSON:         true,
}

type staticToken struct{}

func (staticToken) Token(context.Context) (*auth.Token, error) {
	return &auth.Token{Value: "test-token", Type: "Bearer"}, nil
}

func newTestVertex(t *testing.T, server *httptest.Server, cfg ProviderConfig) *Vertex {
	t.Helper()
	cfg.Kind = KindVertexAI
	cfg.ProjectID = "proj"
	cfg.BaseURL = server.URL
	creds := auth.NewCredentials(&auth.CredentialsOptions{TokenProvider: staticToken{}})
	v, err := newVertex(context.Background(), cfg.WithDefaults(), server.Client(), creds)
	if err != nil {
		t.Fatalf("newVertex error: %v", err)
	}
	return v
}

type vertexBody struct {
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	Contents []struct {
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature      *float64 `json:"temperature"`
		ResponseMimeType string   `json:"responseMimeType"`
		MaxOutputTokens  int      `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func TestVertex_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, want := range []string{"projects/proj/locations/us-central1", "models/gemini-1.5-flash-002:generateContent"} {
			if !strings.Contains(r.URL.Path, want) {
				t.Errorf("path = %q, want it to contain %q", r.URL.Path, want)
			}
		}
		var body vertexBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		parts := body.Contents[0].Parts
		if len(parts) != 3 {
			t.Fatalf("parts = %d, want 3", len(parts))
		}
		if parts[0].Text != "review these pages" {
			t.Errorf("first part = %q, want user prompt", parts[0].Text)
		}
		if parts[1].InlineData == nil || parts[1].InlineData.Data != "cGFnZTE=" || parts[1].InlineData.MimeType != "image/jpeg" {
			t.Errorf("page 1 not attached in order: %+v", parts[1].InlineData)
		}
		if parts[2].InlineData == nil || parts[2].InlineData.Data != "cGFnZTI=" {
			t.Errorf("page 2 not attached in order: %+v", parts[2].InlineData)
		}
		if body.SystemInstruction == nil || body.SystemInstruction.Parts[0].Text != "system" {
			t.Error("missing system instruction")
		}
		if body.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("responseMimeType = %q", body.GenerationConfig.ResponseMimeType)
		}
		if body.GenerationConfig.Temperature == nil || *body.GenerationConfig.Temperature != DefaultTemperature {
			t.Error("temperature not forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"explanation\":"},{"text":"\"ok\",\"categories\":[]}"}]}}],"usageMetadata":{"totalTokenCount":42}}`)
	}))
	defer server.Close()

	v := newTestVertex(t, server, ProviderConfig{})
	resp, err := v.Generate(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content != `{"explanation":"ok","categories":[]}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TokensUsed != 42 {
		t.Errorf("TokensUsed = %d, want 42", resp.TokensUsed)
	}
}

func TestVertex_ZeroTemperatureIsSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body vertexBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if body.GenerationConfig.Temperature == nil || *body.GenerationConfig.Temperature != 0 {
			t.Errorf("temperature = %v, want explicit 0", body.GenerationConfig.Temperature)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"done"}]}}]}`)
	}))
	defer server.Close()

	zero := 0.0
	v := newTestVertex(t, server, ProviderConfig{Temperature: &zero})
	if _, err := v.Generate(context.Background(), testRequest); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
}

func TestVertex_RateLimitRetries(t *testing.T) {
	shortBackoff(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
			return
		}
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"done"}]}}]}`)
	}))
	defer server.Close()

	v := newTestVertex(t, server, ProviderConfig{})
	resp, err := v.Generate(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content != "done" {
		t.Errorf("Content = %q", resp.Content)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestVertex_AuthErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"code":401,"message":"token=ya29.secretvalue expired","status":"UNAUTHENTICATED"}}`)
	}))
	defer server.Close()

	v := newTestVertex(t, server, ProviderConfig{})
	_, err := v.Generate(context.Background(), testRequest)
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1", attempts.Load())
	}
}

func TestVertex_ServerErrorIsNotRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"code":500,"message":"backend error","status":"INTERNAL"}}`)
	}))
	defer server.Close()

	v := newTestVertex(t, server, ProviderConfig{})
	_, err := v.Generate(context.Background(), testRequest)
	var se *serverError
	if !errors.As(err, &se) {
		t.Fatalf("expected *serverError, got %v", err)
	}
}

func TestVertex_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[]}`)
	}))
	defer server.Close()

	v := newTestVertex(t, server, ProviderConfig{})
	if _, err := v.Generate(context.Background(), testRequest); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestVertex_BadPageEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for undecodable pages")
	}))
	defer server.Close()

	v := newTestVertex(t, server, ProviderConfig{})
	if _, err := v.Generate(context.Background(), Request{UserPrompt: "x", Images: []string{"%%%"}}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestOpenAI_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			t.Errorf("path = %q, want .../responses", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		raw, _ := io.ReadAll(r.Body)
		body := string(raw)
		for _, want := range []string{`"input_image"`, `data:image/jpeg;base64,cGFnZTE=`, `"json_object"`, `"instructions":"system"`} {
			if !strings.Contains(body, want) {
				t.Errorf("request body missing %s", want)
			}
		}
		if strings.Index(body, "cGFnZTE=") > strings.Index(body, "cGFnZTI=") {
			t.Error("pages attached out of order")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "resp_1",
			"object": "response",
			"created_at": 0,
			"model": "gpt-4o",
			"status": "completed",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"role": "assistant",
				"status": "completed",
				"content": [{"type": "output_text", "text": "{\"explanation\":\"ok\",\"categories\":[]}", "annotations": []}]
			}],
			"usage": {"input_tokens": 10, "output_tokens": 5, "total_tokens": 15,
				"input_tokens_details": {"cached_tokens": 0}, "output_tokens_details": {"reasoning_tokens": 0}}
		}`)
	}))
	defer server.Close()

	o := NewOpenAI(ProviderConfig{Kind: KindOpenAI, Model: "gpt-4o", APIKey: "sk-test", BaseURL: server.URL}.WithDefaults())
	resp, err := o.Generate(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content != `{"explanation":"ok","categories":[]}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TokensUsed != 15 {
		t.Errorf("TokensUsed = %d, want 15", resp.TokensUsed)
	}
}

func TestOpenAI_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	o := NewOpenAI(ProviderConfig{Kind: KindOpenAI, Model: "gpt-4o", APIKey: "bad", BaseURL: server.URL})
	if _, err := o.Generate(context.Background(), testRequest); !IsAuthError(err) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestOpenAI_RateLimitExhausted(t *testing.T) {
	shortBackoff(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"slow down"}}`)
	}))
	defer server.Close()

	o := NewOpenAI(ProviderConfig{Kind: KindOpenAI, Model: "gpt-4o", APIKey: "k", BaseURL: server.URL})
	if _, err := o.Generate(context.Background(), testRequest); err == nil {
		t.Fatal("expected rate limit error")
	}
	// 1 initial + 3 retries
	if attempts.Load() != 4 {
		t.Errorf("attempts = %d, want 4", attempts.Load())
	}
}

func TestAnthropic_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Error("missing API key header")
		}
		var body struct {
			System   []map[string]any `json:"system"`
			Messages []struct {
				Content []struct {
					Type   string `json:"type"`
					Text   string `json:"text"`
					Source struct {
						MediaType string `json:"media_type"`
						Data      string `json:"data"`
					} `json:"source"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		blocks := body.Messages[0].Content
		if len(blocks) != 3 || blocks[0].Type != "text" || blocks[1].Type != "image" {
			t.Fatalf("unexpected content blocks: %+v", blocks)
		}
		if blocks[1].Source.Data != "cGFnZTE=" || blocks[2].Source.Data != "cGFnZTI=" {
			t.Error("pages attached out of order")
		}
		if blocks[1].Source.MediaType != "image/jpeg" {
			t.Errorf("media_type = %q", blocks[1].Source.MediaType)
		}
		if len(body.System) != 1 || body.System[0]["text"] != "system" {
			t.Errorf("system = %+v", body.System)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "Meow."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 100, "output_tokens": 10}
		}`)
	}))
	defer server.Close()

	a := NewAnthropic(ProviderConfig{Kind: KindAnthropic, Model: "claude-sonnet-4-20250514", APIKey: "test-key", BaseURL: server.URL})
	resp, err := a.Generate(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content != "Meow." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TokensUsed != 110 {
		t.Errorf("TokensUsed = %d, want 110", resp.TokensUsed)
	}
}

func TestAnthropic_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer server.Close()

	a := NewAnthropic(ProviderConfig{Kind: KindAnthropic, Model: "m", APIKey: "bad", BaseURL: server.URL})
	if _, err := a.Generate(context.Background(), testRequest); !IsAuthError(err) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestAnthropic_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer server.Close()

	a := NewAnthropic(ProviderConfig{Kind: KindAnthropic, Model: "m", APIKey: "k", BaseURL: server.URL})
	if _, err := a.Generate(context.Background(), testRequest); err == nil {
		t.Fatal("expected error for empty content")
	}
}

type ollamaBody struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
	Temperature    *float64 `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type ollamaPart struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

const ollamaReply = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 0,
	"model": "llava",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{}"}}],
	"usage": {"prompt_tokens": 90, "completion_tokens": 10, "total_tokens": 100}
}`

func TestOllama_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+ollamaPlaceholderKey {
			t.Errorf("Authorization = %q, want placeholder key", got)
		}
		var body ollamaBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if body.Model != "llava" {
			t.Errorf("model = %q", body.Model)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
			t.Fatalf("messages = %+v", body.Messages)
		}
		var user []ollamaPart
		if err := json.Unmarshal(body.Messages[1].Content, &user); err != nil {
			t.Fatalf("user content: %v", err)
		}
		if len(user) != 3 || user[0].Text != "review these pages" || user[1].Type != "image_url" {
			t.Fatalf("user parts = %+v", user)
		}
		if user[1].ImageURL.URL != "data:image/jpeg;base64,cGFnZTE=" || user[2].ImageURL.URL != "data:image/jpeg;base64,cGFnZTI=" {
			t.Error("pages attached out of order")
		}
		if body.ResponseFormat == nil || body.ResponseFormat.Type != "json_object" {
			t.Error("missing json response format")
		}
		if body.Temperature == nil || *body.Temperature != DefaultTemperature {
			t.Errorf("temperature = %v", body.Temperature)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, ollamaReply)
	}))
	defer server.Close()

	o := NewOllama(ProviderConfig{Kind: KindOllama, BaseURL: server.URL}.WithDefaults())
	resp, err := o.Generate(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content != "{}" || resp.TokensUsed != 100 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOllama_GenerateWithAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-ollama-key" {
			t.Error("missing or wrong Authorization header")
		}
		var body ollamaBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if body.Temperature == nil || *body.Temperature != 0 {
			t.Errorf("temperature = %v, want explicit 0", body.Temperature)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, ollamaReply)
	}))
	defer server.Close()

	zero := 0.0
	o := NewOllama(ProviderConfig{Kind: KindOllama, APIKey: "test-ollama-key", BaseURL: server.URL, Temperature: &zero}.WithDefaults())
	if _, err := o.Generate(context.Background(), Request{UserPrompt: "hi"}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
}

func TestOllama_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":0,"model":"llava","choices":[]}`)
	}))
	defer server.Close()

	o := NewOllama(ProviderConfig{Kind: KindOllama, BaseURL: server.URL, Model: "llava"})
	if _, err := o.Generate(context.Background(), testRequest); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestOllama_RateLimitRetries(t *testing.T) {
	shortBackoff(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"error":{"message":"busy"}}`)
			return
		}
		io.WriteString(w, ollamaReply)
	}))
	defer server.Close()

	o := NewOllama(ProviderConfig{Kind: KindOllama, BaseURL: server.URL, Model: "llava"})
	if _, err := o.Generate(context.Background(), testRequest); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestOllamaBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantURL string
	}{
		{"default", "", "http://localhost:11434/v1/"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1/"},
		{"with v1", "http://localhost:11434/v1", "http://localhost:11434/v1/"},
		{"with full path", "http://localhost:11434/v1/chat/completions", "http://localhost:11434/v1/"},
		{"lm studio", "http://192.168.1.100:1234", "http://192.168.1.100:1234/v1/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOllama(ProviderConfig{Kind: KindOllama, BaseURL: tt.baseURL, Model: "llava"})
			if o.baseURL != tt.wantURL {
				t.Errorf("baseURL = %q, want %q", o.baseURL, tt.wantURL)
			}
		})
	}
}

func TestBackendNames(t *testing.T) {
	tests := []struct {
		m    Model
		want Kind
	}{
		{&Vertex{}, KindVertexAI},
		{&OpenAI{}, KindOpenAI},
		{&Anthropic{}, KindAnthropic},
		{&Ollama{}, KindOllama},
	}
	for _, tt := range tests {
		if tt.m.Name() != string(tt.want) {
			t.Errorf("Name() = %q, want %q", tt.m.Name(), tt.want)
		}
	}
}
