package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// DefaultPath is where init writes the configuration.
const DefaultPath = ".analyst.yml"

// RunWizard asks for the provider, quality tier, and knowledge sources,
// saves the result to path, and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to the analyst! Let's configure your workspace.")
	fmt.Println()

	providerPrompt := promptui.Select{
		Label: "Select language model provider",
		Items: []string{"anthropic", "openai", "openrouter", "ollama", "none"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)

	quality := QualityNormal
	if provider != ProviderNone {
		qualityPrompt := promptui.Select{
			Label: "Select quality tier",
			Items: []string{
				"lite   (fast and cheap)",
				"normal (balanced)",
				"max    (highest quality)",
			},
		}
		idx, _, err := qualityPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("quality selection: %w", err)
		}
		quality = []QualityTier{QualityLite, QualityNormal, QualityMax}[idx]
	}

	includePrompt := promptui.Prompt{
		Label:   "Knowledge notes to index (comma-separated globs)",
		Default: "**/*.md",
	}
	includeStr, err := includePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}

	storiesPrompt := promptui.Select{
		Label: "Draft user stories with the language model?",
		Items: []string{"no, use templates", "yes"},
	}
	storiesIdx := 0
	if provider != ProviderNone {
		if storiesIdx, _, err = storiesPrompt.Run(); err != nil {
			return nil, fmt.Errorf("story drafting: %w", err)
		}
	}

	cfg := &Config{
		Provider:  provider,
		Quality:   quality,
		Knowledge: KnowledgeConfig{Include: splitAndTrim(includeStr)},
		Synthesis: SynthesisConfig{UseLLM: storiesIdx == 1},
	}
	applyDefaults(cfg)

	if envVar := APIKeyEnvVar(provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before starting a session.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and drops empty parts.
func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
