package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/criticat/internal/providers"
	"github.com/dshills/criticat/internal/review"
)

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "CRITICAT"

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".envrc"

// Config is the effective criticat configuration.
type Config struct {
	Providers []providers.ProviderConfig `yaml:"providers" mapstructure:"providers"`
	JokeMode  string                     `yaml:"joke_mode" mapstructure:"joke_mode"`
	ReportDir string                     `yaml:"report_dir" mapstructure:"report_dir"`
	Format    string                     `yaml:"format" mapstructure:"format"`
	GCP       GCPConfig                  `yaml:"gcp" mapstructure:"gcp"`
	Review    ReviewSettings             `yaml:"review" mapstructure:"review"`
	Server    ServerConfig               `yaml:"server" mapstructure:"server"`
	Log       LogConfig                  `yaml:"log" mapstructure:"log"`
	Cache     CacheConfig                `yaml:"cache" mapstructure:"cache"`
	Store     StoreConfig                `yaml:"store" mapstructure:"store"`
	GitHub    GitHubConfig               `yaml:"github" mapstructure:"github"`
}

// GCPConfig supplies defaults for vertex_ai providers.
type GCPConfig struct {
	ProjectID string `yaml:"project_id" mapstructure:"project_id"`
	Location  string `yaml:"location" mapstructure:"location"`
}

// ReviewSettings tunes the review stage.
type ReviewSettings struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	DPI         int `yaml:"dpi" mapstructure:"dpi"`
}

// ServerConfig controls `criticat serve`.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CacheConfig controls the review response cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir        string `yaml:"dir,omitempty" mapstructure:"dir"`
	TTLSeconds int    `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
}

// StoreConfig controls the run history database.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path,omitempty" mapstructure:"path"`
}

// GitHubConfig carries the credentials for pull request comments.
type GitHubConfig struct {
	Token  string `yaml:"-" mapstructure:"token"`
	APIURL string `yaml:"api_url,omitempty" mapstructure:"api_url"`
}

// ConfigurationError reports a configuration that cannot start a run.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Err.Error()
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Providers: []providers.ProviderConfig{{Kind: providers.KindVertexAI}},
		JokeMode:  string(review.JokeModeDefault),
		ReportDir: "./reports",
		Format:    "text",
		GCP:       GCPConfig{Location: "us-central1"},
		Review:    ReviewSettings{Concurrency: 1, DPI: 150},
		Server:    ServerConfig{Addr: "0.0.0.0:8000"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Cache:     CacheConfig{Enabled: false, TTLSeconds: 86400},
		Store:     StoreConfig{Enabled: true},
	}
}

// NewViper returns a viper instance carrying the defaults and the CRITICAT_
// environment binding. Callers bind flags to it before calling Load.
func NewViper() *viper.Viper {
	d := Default()
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("joke_mode", d.JokeMode)
	v.SetDefault("report_dir", d.ReportDir)
	v.SetDefault("format", d.Format)
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.location", "")
	v.SetDefault("review.concurrency", d.Review.Concurrency)
	v.SetDefault("review.dpi", d.Review.DPI)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)
	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.api_url", "")
	return v
}

// Load builds the effective config: defaults <- file <- .envrc <- env <- flags.
// configFile may be empty, in which case ConfigPath is used when it exists.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if v == nil {
		v = NewViper()
	}
	if err := loadEnvFile(DefaultEnvFile); err != nil {
		return Config{}, err
	}

	path := configFile
	if path == "" {
		if p, err := ConfigPath(); err == nil {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.Providers) == 0 {
		cfg.Providers = Default().Providers
	}
	if kinds := v.GetStringSlice("provider"); len(kinds) > 0 {
		cfg.Providers = selectProviders(cfg.Providers, kinds)
	}
	applyEnvFallbacks(&cfg)
	return cfg, nil
}

// loadEnvFile loads KEY=value pairs without overriding the environment.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// selectProviders keeps the entries named or typed by want, in want's order.
// Unconfigured kinds get a bare entry.
func selectProviders(configured []providers.ProviderConfig, want []string) []providers.ProviderConfig {
	var out []providers.ProviderConfig
	for _, w := range want {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		found := false
		for _, p := range configured {
			if p.Name == w || (p.Name == "" && string(p.Kind) == w) {
				out = append(out, p)
				found = true
			}
		}
		if !found {
			out = append(out, providers.ProviderConfig{Kind: providers.Kind(w)})
		}
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func applyEnvFallbacks(cfg *Config) {
	if cfg.GCP.ProjectID == "" {
		cfg.GCP.ProjectID = firstEnv("CLOUDSDK_CORE_PROJECT", "GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT")
	}
	if cfg.GCP.Location == "" {
		cfg.GCP.Location = firstEnv("CLOUDSDK_COMPUTE_REGION")
	}
	if cfg.GCP.Location == "" {
		cfg.GCP.Location = "us-central1"
	}
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = firstEnv("GITHUB_TOKEN")
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Kind == providers.KindVertexAI {
			if p.ProjectID == "" {
				p.ProjectID = cfg.GCP.ProjectID
			}
			if p.Location == "" {
				p.Location = cfg.GCP.Location
			}
		}
		if p.APIKey == "" {
			p.APIKey = resolveAPIKey(*p)
		}
	}
}

// resolveAPIKey reads api_key_env, then CRITICAT_<KIND>_API_KEY, then the
// vendor's conventional variable.
func resolveAPIKey(p providers.ProviderConfig) string {
	keys := []string{}
	if p.APIKeyEnv != "" {
		keys = append(keys, p.APIKeyEnv)
	}
	kind := strings.ToUpper(string(p.Kind))
	keys = append(keys, EnvPrefix+"_"+kind+"_API_KEY")
	switch p.Kind {
	case providers.KindOpenAI:
		keys = append(keys, "OPENAI_API_KEY")
	case providers.KindAnthropic:
		keys = append(keys, "ANTHROPIC_API_KEY")
	}
	return firstEnv(keys...)
}

// Validate checks that a run can start.
func (c Config) Validate() error {
	if _, err := review.ParseJokeMode(c.JokeMode); err != nil {
		return &ConfigurationError{Field: "joke_mode", Err: err}
	}
	if c.Review.Concurrency < 1 {
		return &ConfigurationError{Field: "review.concurrency", Err: fmt.Errorf("must be at least 1, got %d", c.Review.Concurrency)}
	}
	if _, err := c.UsableProviders(); err != nil {
		return err
	}
	return nil
}

// UsableProviders returns the entries that pass provider validation, or a
// ConfigurationError listing why none did.
func (c Config) UsableProviders() ([]providers.ProviderConfig, error) {
	var usable []providers.ProviderConfig
	var errs []error
	for _, p := range c.Providers {
		p = p.WithDefaults()
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		usable = append(usable, p)
	}
	if len(usable) == 0 {
		if len(errs) == 0 {
			errs = append(errs, errors.New("no providers configured"))
		}
		return nil, &ConfigurationError{Field: "providers", Err: fmt.Errorf("no usable provider: %w", errors.Join(errs...))}
	}
	return usable, nil
}

// ConfigDir returns the platform-appropriate config directory for criticat.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "criticat"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "criticat"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "criticat"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "criticat"), nil
	default:
		return filepath.Join(home, ".config", "criticat"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile reads only the YAML file at path over the defaults, without
// environment or flags. A missing file yields the defaults.
func LoadFile(path string) (Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// WithGCP returns a copy of c whose vertex_ai providers use the given
// project and location. Empty arguments keep the current values.
func (c Config) WithGCP(projectID, location string) Config {
	c.Providers = append([]providers.ProviderConfig(nil), c.Providers...)
	if projectID != "" {
		c.GCP.ProjectID = projectID
	}
	if location != "" {
		c.GCP.Location = location
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Kind != providers.KindVertexAI {
			continue
		}
		if projectID != "" {
			p.ProjectID = projectID
		}
		if location != "" {
			p.Location = location
		}
	}
	return c
}

// Save writes cfg as YAML to path, or to ConfigPath when path is empty.
// Secrets are never written.
func Save(cfg Config, path string) (string, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return n, nil
	}
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s must be a boolean: %w", key, err)
		}
		return b, nil
	}

	var err error
	switch key {
	case "joke_mode":
		var m review.JokeMode
		if m, err = review.ParseJokeMode(value); err == nil {
			cfg.JokeMode = string(m)
		}
	case "report_dir":
		cfg.ReportDir = value
	case "format":
		cfg.Format = value
	case "gcp.project_id":
		cfg.GCP.ProjectID = value
	case "gcp.location":
		cfg.GCP.Location = value
	case "review.concurrency":
		cfg.Review.Concurrency, err = atoi()
	case "review.dpi":
		cfg.Review.DPI, err = atoi()
	case "server.addr":
		cfg.Server.Addr = value
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "cache.enabled":
		cfg.Cache.Enabled, err = parseBool()
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttl_seconds":
		cfg.Cache.TTLSeconds, err = atoi()
	case "store.enabled":
		cfg.Store.Enabled, err = parseBool()
	case "store.path":
		cfg.Store.Path = value
	case "github.api_url":
		cfg.GitHub.APIURL = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return err
}

// Keys lists the keys accepted by SetField.
var Keys = []string{
	"joke_mode", "report_dir", "format", "gcp.project_id", "gcp.location",
	"review.concurrency", "review.dpi", "server.addr", "log.level", "log.format",
	"cache.enabled", "cache.dir", "cache.ttl_seconds", "store.enabled", "store.path",
	"github.api_url",
}
