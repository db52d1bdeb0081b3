package providers

import (
	"context"
	"errors"
	"fmt"
)

// Request is one multimodal call to a vision-capable model.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	// Images are base64 JPEG pages, attached after the user prompt in order.
	Images    []string
	JSON      bool
	MaxTokens int
	// Temperature overrides the provider's temperature when set.
	Temperature *float64
}

func (r Request) temperatureOr(fallback float64) float64 {
	if r.Temperature != nil {
		return *r.Temperature
	}
	return fallback
}

// Response contains the raw text returned by a model.
type Response struct {
	Content    string
	TokensUsed int
}

// Model is the backend abstraction shared by review and joke clients.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Kind tags a provider backend.
type Kind string

const (
	KindVertexAI  Kind = "vertex_ai"
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindOllama    Kind = "ollama"
)

// Kinds lists every supported backend.
var Kinds = []Kind{KindVertexAI, KindOpenAI, KindAnthropic, KindOllama}

// ErrUnknownKind is returned for a provider entry whose kind is not supported.
var ErrUnknownKind = errors.New("unknown provider kind")

// DefaultModel returns the model used when a provider entry names none.
func DefaultModel(k Kind) string {
	switch k {
	case KindVertexAI:
		return "gemini-1.5-flash-002"
	case KindOpenAI:
		return "gpt-4o"
	case KindAnthropic:
		return "claude-sonnet-4-20250514"
	case KindOllama:
		return "llava"
	default:
		return ""
	}
}

// DefaultTemperature is the sampling temperature for review calls.
const DefaultTemperature = 0.35

// ProviderConfig configures one named backend.
type ProviderConfig struct {
	Kind      Kind   `json:"kind" yaml:"kind" mapstructure:"kind"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	ProjectID string `json:"project_id,omitempty" yaml:"project_id,omitempty" mapstructure:"project_id"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty" mapstructure:"location"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`
	// Temperature is nil when unset; an explicit 0 is kept.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" mapstructure:"temperature"`
	BaseURL     string   `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKeyEnv   string   `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty" mapstructure:"api_key_env"`
	APIKey      string   `json:"-" yaml:"-" mapstructure:"api_key"`
}

// SamplingTemperature returns the configured temperature, or
// DefaultTemperature when none was given.
func (c ProviderConfig) SamplingTemperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// WithDefaults fills the name, model and temperature when unset.
func (c ProviderConfig) WithDefaults() ProviderConfig {
	if c.Name == "" {
		c.Name = string(c.Kind)
	}
	if c.Model == "" {
		c.Model = DefaultModel(c.Kind)
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.Kind == KindVertexAI && c.Location == "" {
		c.Location = "us-central1"
	}
	return c
}

// Validate reports missing identifiers for the entry's kind.
func (c ProviderConfig) Validate() error {
	switch c.Kind {
	case KindVertexAI:
		if c.ProjectID == "" {
			return fmt.Errorf("provider %q: vertex_ai requires a project_id", c.Name)
		}
	case KindOpenAI, KindAnthropic:
		if c.APIKey == "" {
			return fmt.Errorf("provider %q: %s requires an API key", c.Name, c.Kind)
		}
	case KindOllama:
	default:
		return fmt.Errorf("provider %q: %w: %q", c.Name, ErrUnknownKind, c.Kind)
	}
	return nil
}

// NewModel creates the backend for a provider entry.
func NewModel(ctx context.Context, cfg ProviderConfig) (Model, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case KindVertexAI:
		return NewVertex(ctx, cfg)
	case KindOpenAI:
		return NewOpenAI(cfg), nil
	case KindAnthropic:
		return NewAnthropic(cfg), nil
	case KindOllama:
		return NewOllama(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}
