package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic implements Model with the Anthropic Messages API.
type Anthropic struct {
	model       string
	temperature float64
	client      anthropic.Client
}

// NewAnthropic creates an Anthropic backend. Extra options are appended after
// the key, base URL and timeout derived from cfg.
func NewAnthropic(cfg ProviderConfig, extra ...aoption.RequestOption) *Anthropic {
	opts := []aoption.RequestOption{
		aoption.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		aoption.WithRequestTimeout(120 * time.Second),
		aoption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, aoption.WithBaseURL(strings.TrimSpace(cfg.BaseURL)))
	}
	opts = append(opts, extra...)
	return &Anthropic{
		model:       cfg.Model,
		temperature: cfg.SamplingTemperature(),
		client:      anthropic.NewClient(opts...),
	}
}

func (a *Anthropic) Name() string { return string(KindAnthropic) }

func (a *Anthropic) Generate(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.UserPrompt)}
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64("image/jpeg", img))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	params.Temperature = anthropic.Float(req.temperatureOr(a.temperature))

	var resp Response
	err := retryWithBackoff(ctx, 3, func() error {
		msg, err := a.client.Messages.New(ctx, params)
		if err != nil {
			return mapAnthropicError(err)
		}
		var sb strings.Builder
		for _, block := range msg.Content {
			if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
				sb.WriteString(tb.Text)
			}
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			return fmt.Errorf("empty text content in API response")
		}
		resp = Response{
			Content:    text,
			TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		}
		return nil
	})
	return resp, err
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if mapped := classifyStatus(apiErr.StatusCode, apiErr.Error()); mapped != nil {
			return mapped
		}
	}
	return fmt.Errorf("sending request: %w", err)
}
