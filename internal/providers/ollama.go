package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	oshared "github.com/openai/openai-go/shared"
)

const defaultOllamaURL = "http://localhost:11434"

// ollamaPlaceholderKey is sent when no key is configured. Ollama ignores
// it, but the OpenAI client rejects an empty key.
const ollamaPlaceholderKey = "ollama"

// Ollama implements Model for local vision models behind an OpenAI-compatible
// chat completions endpoint (Ollama, LM Studio).
type Ollama struct {
	model       string
	temperature float64
	baseURL     string
	client      openai.Client
}

// NewOllama creates an Ollama backend. No API key is required by default.
func NewOllama(cfg ProviderConfig, extra ...ooption.RequestOption) *Ollama {
	baseURL := ollamaBaseURL(cfg.BaseURL)
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		key = ollamaPlaceholderKey
	}
	opts := []ooption.RequestOption{
		ooption.WithBaseURL(baseURL),
		ooption.WithAPIKey(key),
		ooption.WithRequestTimeout(300 * time.Second),
		ooption.WithMaxRetries(0),
	}
	opts = append(opts, extra...)
	return &Ollama{
		model:       cfg.Model,
		temperature: cfg.SamplingTemperature(),
		baseURL:     baseURL,
		client:      openai.NewClient(opts...),
	}
}

// ollamaBaseURL normalizes a server address to its /v1 API root. A trailing
// slash, /v1 or /v1/chat/completions are all accepted.
func ollamaBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		base = defaultOllamaURL
	}
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/v1/chat/completions")
	base = strings.TrimSuffix(base, "/v1")
	return base + "/v1/"
}

func (o *Ollama) Name() string { return string(KindOllama) }

func (o *Ollama) Generate(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.UserPrompt)}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/jpeg;base64," + img,
		}))
	}
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(parts))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(req.temperatureOr(o.temperature)),
	}
	if req.JSON {
		obj := oshared.NewResponseFormatJSONObjectParam()
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &obj}
	}

	var resp Response
	err := retryWithBackoff(ctx, 3, func() error {
		out, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return mapOpenAIError(err)
		}
		if len(out.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}
		text := strings.TrimSpace(out.Choices[0].Message.Content)
		if text == "" {
			return fmt.Errorf("empty text content in API response")
		}
		resp = Response{Content: text, TokensUsed: int(out.Usage.TotalTokens)}
		return nil
	})
	return resp, err
}
