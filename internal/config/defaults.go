package config

import "time"

// QualityPreset is the model to use for a given quality tier.
type QualityPreset struct {
	Model string
}

var qualityPresets = map[ProviderType]map[QualityTier]QualityPreset{
	ProviderAnthropic: {
		QualityLite:   {Model: "claude-haiku-4-5-20251001"},
		QualityNormal: {Model: "claude-sonnet-4-5-20250929"},
		QualityMax:    {Model: "claude-opus-4-6"},
	},
	ProviderOpenAI: {
		QualityLite:   {Model: "gpt-4o-mini"},
		QualityNormal: {Model: "gpt-4o"},
		QualityMax:    {Model: "gpt-4.1"},
	},
	ProviderOllama: {
		QualityLite:   {Model: "llama3"},
		QualityNormal: {Model: "llama3"},
		QualityMax:    {Model: "llama3:70b"},
	},
	ProviderOpenRouter: {
		QualityLite:   {Model: "openai/gpt-4o-mini"},
		QualityNormal: {Model: "anthropic/claude-sonnet-4.5"},
		QualityMax:    {Model: "anthropic/claude-opus-4"},
	},
}

// DefaultTopics are the solution aspects researched for every product.
var DefaultTopics = []string{"payment", "fulfillment", "platform"}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills every unset field. Booleans default to false.
func applyDefaults(c *Config) {
	if c.Provider == "" {
		c.Provider = ProviderAnthropic
	}
	if c.Quality == "" {
		c.Quality = QualityNormal
	}
	if c.Model == "" && c.Provider != ProviderNone {
		c.Model = GetPreset(c.Provider, c.Quality).Model
	}
	if c.DataDir == "" {
		c.DataDir = ".analyst"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}

	o := &c.Options
	if o.MaxOptions == 0 {
		o.MaxOptions = 4
	}
	if o.RelevanceWeight == 0 && o.SimplicityWeight == 0 {
		o.RelevanceWeight, o.SimplicityWeight = 0.7, 0.3
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = 0.6
	}
	if len(o.Topics) == 0 {
		o.Topics = append([]string(nil), DefaultTopics...)
	}

	cc := &c.Collaborators
	if cc.Timeout == 0 {
		cc.Timeout = Duration(20 * time.Second)
	}
	if cc.Deadline == 0 {
		cc.Deadline = Duration(45 * time.Second)
	}
	if cc.MaxRetries == 0 {
		cc.MaxRetries = 2
	}
	if cc.Backoff == 0 {
		cc.Backoff = Duration(500 * time.Millisecond)
	}

	k := &c.Knowledge
	if k.Embedder == "" {
		k.Embedder = "hash"
	}
	if len(k.Include) == 0 {
		k.Include = []string{"**/*.md"}
	}
	if k.IndexDir == "" {
		k.IndexDir = ".analyst/index"
	}

	if c.Synthesis.MaxRegenerations == 0 {
		c.Synthesis.MaxRegenerations = 2
	}
	if c.Synthesis.MaxStoriesPerEpic == 0 {
		c.Synthesis.MaxStoriesPerEpic = 3
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
}

// GetPreset returns the quality preset for the given provider and tier.
// Returns the Normal Anthropic preset if the combination is not found.
func GetPreset(provider ProviderType, tier QualityTier) QualityPreset {
	if tiers, ok := qualityPresets[provider]; ok {
		if preset, ok := tiers[tier]; ok {
			return preset
		}
	}
	return qualityPresets[ProviderAnthropic][QualityNormal]
}
