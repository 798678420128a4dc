// Package config loads the analyst configuration from .analyst.yml and
// ANALYST_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/auto-analyst/internal/retry"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nested keys: ANALYST_OPTIONS__MAX_OPTIONS sets options.max_options.
const EnvPrefix = "ANALYST_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	// Unmarshal onto a zero value so configured lists replace the defaults
	// instead of being merged into them.
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderAnthropic:  true,
	ProviderOpenAI:     true,
	ProviderOllama:     true,
	ProviderOpenRouter: true,
	ProviderNone:       true,
}

var validQualityTiers = map[QualityTier]bool{
	QualityLite:   true,
	QualityNormal: true,
	QualityMax:    true,
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of anthropic, openai, ollama, openrouter, none", c.Provider)
	}
	if c.Model == "" && c.Provider != ProviderNone {
		return fmt.Errorf("model is required")
	}
	if c.Quality != "" && !validQualityTiers[c.Quality] {
		return fmt.Errorf("invalid quality %q: must be one of lite, normal, max", c.Quality)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format %q: must be text or json", c.LogFormat)
	}

	o := c.Options
	if o.MaxOptions < 1 {
		return fmt.Errorf("options.max_options must be at least 1")
	}
	if o.RelevanceWeight < 0 || o.SimplicityWeight < 0 {
		return fmt.Errorf("options weights must be non-negative")
	}
	if o.SimilarityThreshold <= 0 || o.SimilarityThreshold > 1 {
		return fmt.Errorf("options.similarity_threshold must be in (0, 1]")
	}

	cc := c.Collaborators
	if cc.Timeout <= 0 || cc.Deadline <= 0 || cc.Backoff <= 0 {
		return fmt.Errorf("collaborator timeout, deadline, and backoff must be positive")
	}
	if cc.MaxRetries > 5 {
		return fmt.Errorf("collaborators.max_retries must be at most 5")
	}
	if cc.RateLimitRPM < 0 {
		return fmt.Errorf("collaborators.rate_limit_rpm must be non-negative")
	}

	if c.Knowledge.Embedder != "hash" && c.Knowledge.Embedder != "openai" {
		return fmt.Errorf("invalid knowledge.embedder %q: must be hash or openai", c.Knowledge.Embedder)
	}
	if c.Synthesis.MaxStoriesPerEpic < 1 {
		return fmt.Errorf("synthesis.max_stories_per_epic must be at least 1")
	}
	if c.Synthesis.UseLLM && c.Provider == ProviderNone {
		return fmt.Errorf("synthesis.use_llm requires a provider")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// RetryPolicy bounds a single collaborator call. A negative max_retries
// disables retries.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		Timeout:    c.Collaborators.Timeout.Std(),
		MaxRetries: max(c.Collaborators.MaxRetries, 0),
		Backoff:    c.Collaborators.Backoff.Std(),
	}
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}
