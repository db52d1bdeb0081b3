package providers

import (
	"context"
	"log/slog"

	"github.com/dshills/criticat/internal/review"
)

// Reviewer is the review capability of a provider.
type Reviewer interface {
	Review(ctx context.Context, images []string) (review.FormatReview, error)
}

// Joker is the joke capability of a provider.
type Joker interface {
	Joke(ctx context.Context, r review.FormatReview) string
}

// Provider is a named Reviewer and Joker pair.
type Provider struct {
	Name     string
	Kind     Kind
	Model    string
	Reviewer Reviewer
	Joker    Joker
}

// Registry is the immutable set of providers used by a run.
type Registry struct {
	names  []string
	byName map[string]Provider
}

// NewRegistry registers providers in order. A later provider with the same
// name replaces the earlier one and keeps its position.
func NewRegistry(logger *slog.Logger, providers ...Provider) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{byName: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, dup := r.byName[p.Name]; dup {
			logger.Warn("duplicate provider name, last registration wins", "provider", p.Name)
		} else {
			r.names = append(r.names, p.Name)
		}
		r.byName[p.Name] = p
	}
	return r
}

// ModelFactory creates the backend for one provider entry.
type ModelFactory func(ctx context.Context, cfg ProviderConfig) (Model, error)

// BuildOptions configures Build.
type BuildOptions struct {
	Factory ModelFactory
	Cache   ResponseCache
	Logger  *slog.Logger
}

// Build wires a provider for every usable entry. Entries with an unknown kind
// or missing identifiers are skipped with a warning.
func Build(ctx context.Context, cfgs []ProviderConfig, opts BuildOptions) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	factory := opts.Factory
	if factory == nil {
		factory = NewModel
	}

	var built []Provider
	for _, cfg := range cfgs {
		cfg = cfg.WithDefaults()
		if err := cfg.Validate(); err != nil {
			logger.Warn("skipping provider", "provider", cfg.Name, "kind", cfg.Kind, "error", err)
			continue
		}
		m, err := factory(ctx, cfg)
		if err != nil {
			logger.Warn("skipping provider", "provider", cfg.Name, "kind", cfg.Kind, "error", err)
			continue
		}
		built = append(built, Provider{
			Name:     cfg.Name,
			Kind:     cfg.Kind,
			Model:    cfg.Model,
			Reviewer: NewReviewClient(cfg.Name, cfg.Model, m, opts.Cache, logger),
			Joker:    NewJokeClient(cfg.Name, m, logger),
		})
	}
	return NewRegistry(logger, built...)
}

// Names returns provider names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Providers returns all providers in registration order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.byName[n])
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int { return len(r.names) }
