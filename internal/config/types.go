package config

import (
	"fmt"
	"time"
)

// QualityTier controls which model a provider preset picks.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies the language-model collaborator.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOllama     ProviderType = "ollama"
	ProviderOpenRouter ProviderType = "openrouter"
	// ProviderNone runs without a language model: knowledge comes from the
	// local index only and stories are drafted from templates.
	ProviderNone ProviderType = "none"
)

// Config is the analyst configuration, corresponding to .analyst.yml.
type Config struct {
	Provider  ProviderType `yaml:"provider" koanf:"provider"`
	Model     string       `yaml:"model" koanf:"model"`
	Quality   QualityTier  `yaml:"quality" koanf:"quality"`
	DataDir   string       `yaml:"data_dir" koanf:"data_dir"`
	LogLevel  string       `yaml:"log_level" koanf:"log_level"`
	LogFormat string       `yaml:"log_format" koanf:"log_format"`

	Options       OptionsConfig       `yaml:"options" koanf:"options"`
	Collaborators CollaboratorsConfig `yaml:"collaborators" koanf:"collaborators"`
	Knowledge     KnowledgeConfig     `yaml:"knowledge" koanf:"knowledge"`
	Synthesis     SynthesisConfig     `yaml:"synthesis" koanf:"synthesis"`
	Clarify       ClarifyConfig       `yaml:"clarify" koanf:"clarify"`
	Server        ServerConfig        `yaml:"server" koanf:"server"`
}

// OptionsConfig tunes solution option generation.
type OptionsConfig struct {
	MaxOptions          int      `yaml:"max_options" koanf:"max_options"`
	RelevanceWeight     float64  `yaml:"relevance_weight" koanf:"relevance_weight"`
	SimplicityWeight    float64  `yaml:"simplicity_weight" koanf:"simplicity_weight"`
	SimilarityThreshold float64  `yaml:"similarity_threshold" koanf:"similarity_threshold"`
	Topics              []string `yaml:"topics" koanf:"topics"`
}

// CollaboratorsConfig bounds every call to the language model and the
// knowledge search.
type CollaboratorsConfig struct {
	Timeout      Duration `yaml:"timeout" koanf:"timeout"`
	Deadline     Duration `yaml:"deadline" koanf:"deadline"`
	MaxRetries   int      `yaml:"max_retries" koanf:"max_retries"`
	Backoff      Duration `yaml:"backoff" koanf:"backoff"`
	RateLimitRPM int      `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
}

// KnowledgeConfig describes the local knowledge index.
type KnowledgeConfig struct {
	Embedder string   `yaml:"embedder" koanf:"embedder"`
	Include  []string `yaml:"include" koanf:"include"`
	Exclude  []string `yaml:"exclude" koanf:"exclude"`
	IndexDir string   `yaml:"index_dir" koanf:"index_dir"`
}

// SynthesisConfig tunes document synthesis.
type SynthesisConfig struct {
	MaxRegenerations  int  `yaml:"max_regenerations" koanf:"max_regenerations"`
	MaxStoriesPerEpic int  `yaml:"max_stories_per_epic" koanf:"max_stories_per_epic"`
	UseLLM            bool `yaml:"use_llm" koanf:"use_llm"`
}

// ClarifyConfig sets the Analysis checklist.
type ClarifyConfig struct {
	Checklist         []string `yaml:"checklist" koanf:"checklist"`
	DisableExtraction bool     `yaml:"disable_extraction" koanf:"disable_extraction"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// Duration is a time.Duration written as "20s" in YAML and environment
// variables.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}
