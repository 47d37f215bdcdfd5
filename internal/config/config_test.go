package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storydesk.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	Reset()
	defer Reset()

	cfg, err := Load(writeConfig(t, "database:\n  url: postgres://localhost/storydesk\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Similarity.Threshold != 0.85 {
		t.Errorf("Similarity.Threshold = %v, want 0.85", cfg.Similarity.Threshold)
	}
	if cfg.Similarity.Limit != 10 {
		t.Errorf("Similarity.Limit = %d, want 10", cfg.Similarity.Limit)
	}
	if cfg.Embedding.Dimensions != 768 {
		t.Errorf("Embedding.Dimensions = %d, want 768", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.Timeout != 20*time.Second {
		t.Errorf("Embedding.Timeout = %v, want 20s", cfg.Embedding.Timeout)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("LLM.Timeout = %v, want 30s", cfg.LLM.Timeout)
	}
	if !cfg.Adjudicator.StrictSubcategories {
		t.Error("Adjudicator.StrictSubcategories should default to true")
	}
	if cfg.Pipeline.Concurrency != 4 {
		t.Errorf("Pipeline.Concurrency = %d, want 4", cfg.Pipeline.Concurrency)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
}

func TestLoadOverrides(t *testing.T) {
	Reset()
	defer Reset()

	body := `
database:
  driver: sqlite
  sqlite_path: /tmp/storydesk-test.db
similarity:
  threshold: 0.8
  overrides:
    Technology:
      threshold: 0.9
    Sports:
      limit: 3
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	threshold, limit := cfg.Similarity.ThresholdFor("technology")
	if threshold != 0.9 || limit != 10 {
		t.Errorf("ThresholdFor(technology) = (%v, %d), want (0.9, 10)", threshold, limit)
	}
	threshold, limit = cfg.Similarity.ThresholdFor("SPORTS")
	if threshold != 0.8 || limit != 3 {
		t.Errorf("ThresholdFor(SPORTS) = (%v, %d), want (0.8, 3)", threshold, limit)
	}
	threshold, limit = cfg.Similarity.ThresholdFor("Health")
	if threshold != 0.8 || limit != 10 {
		t.Errorf("ThresholdFor(Health) = (%v, %d), want (0.8, 10)", threshold, limit)
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database:   Database{Driver: "postgres", URL: "postgres://x"},
			Embedding:  Embedding{Provider: "gemini", Dimensions: 768},
			LLM:        LLM{Provider: "gemini"},
			Similarity: Similarity{Threshold: 0.85, Limit: 10},
			Pipeline:   Pipeline{Concurrency: 4},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "Unknown database driver"},
		{"bad dimensions", func(c *Config) { c.Embedding.Dimensions = 100 }, "Unsupported embedding dimensions"},
		{"unknown llm", func(c *Config) { c.LLM.Provider = "llama" }, "Unknown LLM provider"},
		{"threshold out of range", func(c *Config) { c.Similarity.Threshold = 1.5 }, "similarity.threshold"},
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }, "pipeline.concurrency"},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }, "archive.bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIngestion(t *testing.T) {
	cfg := &Config{
		Database:  Database{Driver: "postgres", URL: "postgres://x"},
		Embedding: Embedding{Provider: "cohere", CohereKey: "your-api-key"},
		LLM:       LLM{Provider: "anthropic", AnthropicKey: "sk-real"},
	}

	err := cfg.ValidateIngestion()
	if err == nil || !strings.Contains(err.Error(), "COHERE_API_KEY") {
		t.Fatalf("expected missing cohere key error, got %v", err)
	}

	cfg.Embedding.CohereKey = "co-real"
	if err := cfg.ValidateIngestion(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Database.URL = ""
	if err := cfg.ValidateIngestion(); err == nil {
		t.Fatal("expected missing DATABASE_URL error")
	}
}

func TestIsValidAPIKey(t *testing.T) {
	for _, key := range []string{"", "TODO", "your-api-key", "CHANGE_ME"} {
		if isValidAPIKey(key) {
			t.Errorf("isValidAPIKey(%q) = true, want false", key)
		}
	}
	if !isValidAPIKey("AIza-something") {
		t.Error("expected real-looking key to be valid")
	}
}
