package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// corpusHints maps marker paths to a recommended include glob, so the
// wizard can suggest where the documents probably live.
var corpusHints = []struct {
	Marker  string
	Include string
}{
	{"docs", "docs/**/*.md"},
	{"documents", "documents/**"},
	{"knowledge", "knowledge/**"},
	{"README.md", "**/*.md"},
}

// detectCorpusHint checks the current directory for well-known document
// locations.
func detectCorpusHint() string {
	for _, h := range corpusHints {
		if _, err := os.Stat(h.Marker); err == nil {
			return h.Include
		}
	}
	return "**/*.md,**/*.txt"
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .ragent.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to ragent! Let's configure your project.")
	fmt.Println()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)

	// 2. Quality tier.
	qualityPrompt := promptui.Select{
		Label: "Select quality tier",
		Items: []string{
			"lite   — fast & cheap",
			"normal — balanced",
			"max    — highest quality",
		},
	}
	qualityIdx, _, err := qualityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quality selection: %w", err)
	}
	tiers := []QualityTier{QualityLite, QualityNormal, QualityMax}
	quality := tiers[qualityIdx]

	preset := GetPreset(provider, quality)

	// 3. Database location.
	dbPrompt := promptui.Prompt{
		Label:   "Database path",
		Default: ".ragent/ragent.db",
	}
	dbPath, err := dbPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}

	// 4. Include patterns.
	includePrompt := promptui.Prompt{
		Label:   "Document include patterns (comma-separated globs)",
		Default: detectCorpusHint(),
	}
	includeStr, err := includePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	include := splitAndTrim(includeStr)

	// 5. Extra exclude patterns.
	excludePrompt := promptui.Prompt{
		Label:   "Extra exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	exclude := DefaultExcludes
	if excludeStr != "" {
		exclude = append(exclude, splitAndTrim(excludeStr)...)
	}

	// Build the config from the defaults plus the answers.
	cfg := DefaultConfig()
	cfg.Provider = provider
	cfg.Model = preset.Model
	cfg.EmbeddingProvider = embeddingProviderFor(provider)
	cfg.EmbeddingModel = preset.EmbeddingModel
	cfg.Quality = quality
	cfg.DatabasePath = dbPath
	cfg.Include = include
	cfg.Exclude = exclude

	// Check for API keys.
	for _, envVar := range []string{APIKeyEnvVar(provider), APIKeyEnvVar(cfg.EmbeddingProvider)} {
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running ragent query.\n", envVar)
		}
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. OpenAI embeddings are used for all cloud providers.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
