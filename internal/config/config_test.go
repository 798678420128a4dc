package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider %q, got %q", ProviderAnthropic, cfg.Provider)
	}
	if cfg.Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("expected preset model, got %q", cfg.Model)
	}
	if cfg.Options.MaxOptions != 4 {
		t.Errorf("expected max_options 4, got %d", cfg.Options.MaxOptions)
	}
	if cfg.Options.RelevanceWeight != 0.7 || cfg.Options.SimplicityWeight != 0.3 {
		t.Errorf("unexpected weights %v/%v", cfg.Options.RelevanceWeight, cfg.Options.SimplicityWeight)
	}
	if cfg.Collaborators.Deadline.Std() != 45*time.Second {
		t.Errorf("expected 45s deadline, got %v", cfg.Collaborators.Deadline.Std())
	}
	if cfg.Synthesis.MaxRegenerations != 2 {
		t.Errorf("expected max_regenerations 2, got %d", cfg.Synthesis.MaxRegenerations)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyst.yml")

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.Options.Topics = []string{"payment"}
	original.Collaborators.Timeout = Duration(5 * time.Second)
	original.Synthesis.UseLLM = true

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "timeout: 5s") {
		t.Errorf("durations should be written as text, got:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOpenAI || loaded.Model != "gpt-4o" {
		t.Errorf("provider/model: got %q/%q", loaded.Provider, loaded.Model)
	}
	if len(loaded.Options.Topics) != 1 || loaded.Options.Topics[0] != "payment" {
		t.Errorf("configured topics should replace defaults, got %v", loaded.Options.Topics)
	}
	if loaded.Collaborators.Timeout.Std() != 5*time.Second {
		t.Errorf("timeout: got %v", loaded.Collaborators.Timeout.Std())
	}
	if !loaded.Synthesis.UseLLM {
		t.Error("use_llm lost in round trip")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ANALYST_PROVIDER", "openai")
	t.Setenv("ANALYST_OPTIONS__MAX_OPTIONS", "6")
	t.Setenv("ANALYST_COLLABORATORS__TIMEOUT", "3s")

	loaded, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOpenAI {
		t.Errorf("env override failed: got %q", loaded.Provider)
	}
	if loaded.Model != "gpt-4o" {
		t.Errorf("model should follow the overridden provider's preset, got %q", loaded.Model)
	}
	if loaded.Options.MaxOptions != 6 {
		t.Errorf("nested override failed: got %d", loaded.Options.MaxOptions)
	}
	if loaded.Collaborators.Timeout.Std() != 3*time.Second {
		t.Errorf("duration override failed: got %v", loaded.Collaborators.Timeout.Std())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid provider", func(c *Config) { c.Provider = "invalid" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"invalid quality", func(c *Config) { c.Quality = "ultra" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"zero options", func(c *Config) { c.Options.MaxOptions = 0 }},
		{"negative weight", func(c *Config) { c.Options.RelevanceWeight = -1 }},
		{"threshold above one", func(c *Config) { c.Options.SimilarityThreshold = 1.5 }},
		{"zero deadline", func(c *Config) { c.Collaborators.Deadline = 0 }},
		{"too many retries", func(c *Config) { c.Collaborators.MaxRetries = 9 }},
		{"unknown embedder", func(c *Config) { c.Knowledge.Embedder = "magic" }},
		{"llm stories without provider", func(c *Config) { c.Provider = ProviderNone; c.Synthesis.UseLLM = true }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig should be valid, got: %v", err)
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestProviderNoneNeedsNoModel(t *testing.T) {
	cfg := &Config{Provider: ProviderNone}
	applyDefaults(cfg)
	if cfg.Model != "" {
		t.Errorf("expected no model, got %q", cfg.Model)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("provider none should be valid: %v", err)
	}
}

func TestRetryPolicy(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.RetryPolicy()
	if p.MaxRetries != 2 || p.Timeout != 20*time.Second || p.Backoff != 500*time.Millisecond {
		t.Errorf("unexpected policy %+v", p)
	}

	cfg.Collaborators.MaxRetries = -1
	if got := cfg.RetryPolicy().MaxRetries; got != 0 {
		t.Errorf("negative max_retries should disable retries, got %d", got)
	}
}

func TestGetPreset(t *testing.T) {
	if p := GetPreset(ProviderAnthropic, QualityLite); p.Model != "claude-haiku-4-5-20251001" {
		t.Errorf("expected haiku model, got %q", p.Model)
	}
	if p := GetPreset("unknown", QualityLite); p.Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("expected fallback to sonnet, got %q", p.Model)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{ProviderOllama, ""},
		{ProviderNone, ""},
	}
	for _, tt := range tests {
		if got := APIKeyEnvVar(tt.provider); got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"**/*.md", []string{"**/*.md"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
