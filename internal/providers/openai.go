package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	oresponses "github.com/openai/openai-go/responses"
	oshared "github.com/openai/openai-go/shared"
)

// OpenAI implements Model with the OpenAI Responses API.
type OpenAI struct {
	model       string
	temperature float64
	client      openai.Client
}

// NewOpenAI creates an OpenAI backend. Extra options are appended after the
// key, base URL and timeout derived from cfg.
func NewOpenAI(cfg ProviderConfig, extra ...ooption.RequestOption) *OpenAI {
	opts := []ooption.RequestOption{
		ooption.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		ooption.WithRequestTimeout(120 * time.Second),
		ooption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ooption.WithBaseURL(strings.TrimSpace(cfg.BaseURL)))
	}
	opts = append(opts, extra...)
	return &OpenAI{
		model:       cfg.Model,
		temperature: cfg.SamplingTemperature(),
		client:      openai.NewClient(opts...),
	}
}

func (o *OpenAI) Name() string { return string(KindOpenAI) }

func (o *OpenAI) Generate(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	content := oresponses.ResponseInputMessageContentListParam{
		{OfInputText: &oresponses.ResponseInputTextParam{Text: req.UserPrompt}},
	}
	for _, img := range req.Images {
		content = append(content, oresponses.ResponseInputContentUnionParam{
			OfInputImage: &oresponses.ResponseInputImageParam{
				Detail:   oresponses.ResponseInputImageDetailAuto,
				ImageURL: openai.String("data:image/jpeg;base64," + img),
			},
		})
	}

	params := oresponses.ResponseNewParams{
		Model:           oshared.ResponsesModel(o.model),
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Input: oresponses.ResponseNewParamsInputUnion{
			OfInputItemList: oresponses.ResponseInputParam{
				oresponses.ResponseInputItemParamOfMessage(content, oresponses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.SystemPrompt != "" {
		params.Instructions = openai.String(req.SystemPrompt)
	}
	params.Temperature = openai.Float(req.temperatureOr(o.temperature))
	if req.JSON {
		obj := oshared.NewResponseFormatJSONObjectParam()
		params.Text = oresponses.ResponseTextConfigParam{
			Format: oresponses.ResponseFormatTextConfigUnionParam{OfJSONObject: &obj},
		}
	}

	var resp Response
	err := retryWithBackoff(ctx, 3, func() error {
		out, err := o.client.Responses.New(ctx, params)
		if err != nil {
			return mapOpenAIError(err)
		}
		text := openAIOutputText(*out)
		if text == "" {
			return fmt.Errorf("empty text content in API response")
		}
		resp = Response{Content: text, TokensUsed: int(out.Usage.TotalTokens)}
		return nil
	})
	return resp, err
}

func openAIOutputText(resp oresponses.Response) string {
	var sb strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.AsMessage().Content {
			if part.Type != "output_text" {
				continue
			}
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if mapped := classifyStatus(apiErr.StatusCode, apiErr.Error()); mapped != nil {
			return mapped
		}
	}
	return fmt.Errorf("sending request: %w", err)
}
