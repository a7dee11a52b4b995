package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.Provider)
	}
	if cfg.Quality != QualityNormal {
		t.Errorf("expected default quality %q, got %q", QualityNormal, cfg.Quality)
	}
	if cfg.MaxIterations != 3 {
		t.Errorf("expected default max_iterations 3, got %d", cfg.MaxIterations)
	}
	if cfg.ConfidenceThreshold != 0.7 {
		t.Errorf("expected default confidence_threshold 0.7, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.Chunking.Strategy != "sentence" {
		t.Errorf("expected default chunking strategy sentence, got %q", cfg.Chunking.Strategy)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.ragent.yml")

	original := DefaultConfig()
	original.Provider = ProviderAnthropic
	original.Model = "claude-sonnet-4-5-20250929"
	original.Quality = QualityMax
	original.Include = []string{"docs/**/*.md", "notes/**"}
	original.TopK = 8
	original.ConfidenceThreshold = 0.6

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.Quality != original.Quality {
		t.Errorf("quality: got %q, want %q", loaded.Quality, original.Quality)
	}
	if loaded.TopK != original.TopK {
		t.Errorf("top_k: got %d, want %d", loaded.TopK, original.TopK)
	}
	if loaded.ConfidenceThreshold != original.ConfidenceThreshold {
		t.Errorf("confidence_threshold: got %v, want %v", loaded.ConfidenceThreshold, original.ConfidenceThreshold)
	}
	if len(loaded.Include) != len(original.Include) {
		t.Errorf("include length: got %d, want %d", len(loaded.Include), len(original.Include))
	}
	for i, v := range loaded.Include {
		if v != original.Include[i] {
			t.Errorf("include[%d]: got %q, want %q", i, v, original.Include[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Override provider via env var.
	os.Setenv("RAGENT_PROVIDER", "anthropic")
	defer os.Unsetenv("RAGENT_PROVIDER")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderAnthropic {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderAnthropic)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"invalid provider", func(c *Config) { c.Provider = "invalid" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"invalid quality", func(c *Config) { c.Quality = "ultra" }},
		{"empty database path", func(c *Config) { c.DatabasePath = "" }},
		{"zero top_k", func(c *Config) { c.TopK = 0 }},
		{"zero max_iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{"unknown chunk strategy", func(c *Config) { c.Chunking.Strategy = "paragraph" }},
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }},
		{"overlap >= size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	p := GetPreset(ProviderOpenAI, QualityLite)
	if p.Model != "gpt-4o-mini" {
		t.Errorf("expected gpt-4o-mini, got %q", p.Model)
	}

	p = GetPreset(ProviderAnthropic, QualityMax)
	if p.Model != "claude-opus-4-6" {
		t.Errorf("expected opus model, got %q", p.Model)
	}

	// Unknown combination falls back.
	p = GetPreset("unknown", QualityLite)
	if p.Model != "gpt-4o" {
		t.Errorf("expected fallback to gpt-4o, got %q", p.Model)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
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
