package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "provider:\n  provider: ollama\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Chunking.Size != 800 || cfg.Chunking.Overlap != 100 {
		t.Fatalf("chunking defaults lost: %+v", cfg.Chunking)
	}
	if cfg.Search.MaxResults != 5 || cfg.History.Window != 2 || cfg.Agent.MaxToolRounds != 2 {
		t.Fatalf("defaults lost: search=%+v history=%+v agent=%+v", cfg.Search, cfg.History, cfg.Agent)
	}
	if cfg.Search.CourseMatchCutoff != 0.4 {
		t.Fatalf("cutoff default lost: %v", cfg.Search.CourseMatchCutoff)
	}
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	t.Setenv("TEST_MODEL_KEY", "sk-test-123")
	path := writeConfig(t, `
provider:
  provider: anthropic
  model: claude-sonnet-4-5
  api_key: ${TEST_MODEL_KEY}
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider.APIKey != "sk-test-123" {
		t.Fatalf("env not expanded: %q", cfg.Provider.APIKey)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown provider", "provider:\n  provider: gemini\n", "unknown provider"},
		{"unknown backend", "storage:\n  backend: postgres\n", "unknown storage backend"},
		{"unknown embeddings", "embeddings:\n  provider: cohere\n", "unknown embeddings provider"},
		{"anthropic without key", "provider:\n  provider: anthropic\n", "requires api_key"},
		{"bad chunking", "chunking:\n  size: 100\n  overlap: 100\n", "chunking"},
		{"bad max results", "search:\n  max_results: 0\n", "max_results"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBuildMemoryBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = "memory"

	sys, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer sys.Close()

	if sys.Knowledge == nil || sys.Assistant == nil || sys.History == nil {
		t.Fatalf("incomplete system: %+v", sys)
	}
	defs := sys.Assistant.tools.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 registered tools, got %d", len(defs))
	}
	if defs[0].Name != "get_course_outline" || defs[1].Name != "search_course_content" {
		t.Fatalf("unexpected tools: %+v", defs)
	}
}

func TestBuildSQLiteBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "test.db")

	sys, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer sys.Close()

	stats, err := sys.Knowledge.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats on fresh store: %v", err)
	}
	if stats.CourseCount != 0 {
		t.Fatalf("fresh store not empty: %+v", stats)
	}
}
