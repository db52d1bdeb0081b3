package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/auth"
	"google.golang.org/genai"
)

const vertexTimeout = 120 * time.Second

// Vertex implements Model for Gemini models served by Vertex AI.
type Vertex struct {
	model       string
	temperature float64
	client      *genai.Client
}

// NewVertex creates a Vertex AI backend authenticated with application
// default credentials.
func NewVertex(ctx context.Context, cfg ProviderConfig) (*Vertex, error) {
	return newVertex(ctx, cfg, nil, nil)
}

// newVertex builds the genai client. A nil httpClient and creds select the
// production transport and application default credentials.
func newVertex(ctx context.Context, cfg ProviderConfig, httpClient *http.Client, creds *auth.Credentials) (*Vertex, error) {
	cc := &genai.ClientConfig{
		Backend:     genai.BackendVertexAI,
		Project:     cfg.ProjectID,
		Location:    cfg.Location,
		Credentials: creds,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1", BaseURL: strings.TrimSpace(cfg.BaseURL)},
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &authError{message: fmt.Sprintf("creating Vertex AI client: %v", err)}
	}
	return &Vertex{
		model:       cfg.Model,
		temperature: cfg.SamplingTemperature(),
		client:      client,
	}, nil
}

func (v *Vertex) Name() string { return string(KindVertexAI) }

func (v *Vertex) Generate(ctx context.Context, req Request) (Response, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.UserPrompt)}
	for i, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return Response{}, fmt.Errorf("decoding page %d: %w", i+1, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, "image/jpeg"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}
	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Temperature:     genai.Ptr(float32(req.temperatureOr(v.temperature))),
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.JSON {
		gc.ResponseMIMEType = "application/json"
	}

	var resp Response
	err := retryWithBackoff(ctx, 3, func() error {
		callCtx, cancel := context.WithTimeout(ctx, vertexTimeout)
		defer cancel()

		out, err := v.client.Models.GenerateContent(callCtx, v.model, contents, gc)
		if err != nil {
			return mapGenAIError(err)
		}
		if len(out.Candidates) == 0 || out.Candidates[0].Content == nil || len(out.Candidates[0].Content.Parts) == 0 {
			return fmt.Errorf("no content in response")
		}

		var content strings.Builder
		for _, part := range out.Candidates[0].Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			content.WriteString(part.Text)
		}
		resp = Response{Content: content.String()}
		if out.UsageMetadata != nil {
			resp.TokensUsed = int(out.UsageMetadata.TotalTokenCount)
		}
		return nil
	})

	return resp, err
}

func mapGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if mapped := classifyStatus(apiErr.Code, apiErr.Message); mapped != nil {
			return mapped
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		if mapped := classifyStatus(apiErrPtr.Code, apiErrPtr.Message); mapped != nil {
			return mapped
		}
	}
	return fmt.Errorf("sending request: %w", err)
}
