package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/studyhall-ai/studyhall/engine/model"
	"github.com/studyhall-ai/studyhall/engine/tool"
	"github.com/studyhall-ai/studyhall/sdk/knowledge"
	"github.com/studyhall-ai/studyhall/sdk/session"
	"github.com/studyhall-ai/studyhall/storage"
	"github.com/studyhall-ai/studyhall/storage/adapters/memory"
	"github.com/studyhall-ai/studyhall/storage/adapters/sqlite"
)

// Config is the full application configuration, loaded from YAML with
// ${ENV_VAR} references expanded.
type Config struct {
	Provider struct {
		Provider   string `yaml:"provider"` // anthropic | ollama
		Model      string `yaml:"model"`
		APIKey     string `yaml:"api_key"`
		BaseURL    string `yaml:"base_url"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"provider"`

	Embeddings struct {
		Provider string `yaml:"provider"` // ollama | openai
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"embeddings"`

	Storage struct {
		Backend string `yaml:"backend"` // sqlite | memory
		DSN     string `yaml:"dsn"`
	} `yaml:"storage"`

	Chunking struct {
		Size    int `yaml:"size"`
		Overlap int `yaml:"overlap"`
	} `yaml:"chunking"`

	Search struct {
		MaxResults        int     `yaml:"max_results"`
		CourseMatchCutoff float64 `yaml:"course_match_cutoff"`
	} `yaml:"search"`

	History struct {
		Window int `yaml:"window"` // exchanges remembered per session
	} `yaml:"history"`

	Agent struct {
		MaxToolRounds int    `yaml:"max_tool_rounds"`
		SystemPrompt  string `yaml:"system_prompt"`
	} `yaml:"agent"`

	DocsDir string `yaml:"docs_dir"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns a config with working local defaults: Ollama for
// chat and embeddings, SQLite storage.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Provider.Provider = "ollama"
	cfg.Provider.Model = "llama3.2"
	cfg.Embeddings.Provider = "ollama"
	cfg.Embeddings.Model = "nomic-embed-text"
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.DSN = "studyhall.db"
	cfg.Chunking.Size = 800
	cfg.Chunking.Overlap = 100
	cfg.Search.MaxResults = 5
	cfg.Search.CourseMatchCutoff = 0.4
	cfg.History.Window = 2
	cfg.Agent.MaxToolRounds = 2
	cfg.DocsDir = "docs"
	cfg.Addr = ":8080"
	return cfg
}

// LoadConfig reads a YAML config file over the defaults. Values like
// ${ANTHROPIC_API_KEY} are expanded from the environment before parsing.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a working system.
func (c *Config) Validate() error {
	switch c.Provider.Provider {
	case "anthropic", "ollama":
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider.Provider)
	}
	switch c.Embeddings.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("config: unknown embeddings provider %q", c.Embeddings.Provider)
	}
	switch c.Storage.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Provider.Provider == "anthropic" && strings.TrimSpace(c.Provider.APIKey) == "" {
		return fmt.Errorf("config: anthropic provider requires api_key")
	}
	if c.Chunking.Size <= 0 || c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("config: chunking size %d / overlap %d", c.Chunking.Size, c.Chunking.Overlap)
	}
	if c.Search.MaxResults < 1 {
		return fmt.Errorf("config: search max_results must be at least 1")
	}
	return nil
}

// System is the fully wired application: every component the web server
// and the CLI need.
type System struct {
	Knowledge *knowledge.Service
	Assistant *Assistant
	History   *session.Store
	Close     func() error
}

// Build wires providers, storage and tools according to the config.
func Build(ctx context.Context, cfg *Config) (*System, error) {
	var catalog storage.CatalogStore
	var index storage.ContentIndex
	closeStore := func() error { return nil }

	switch cfg.Storage.Backend {
	case "memory":
		store := memory.New()
		catalog, index = store, store
	case "sqlite":
		store, err := sqlite.New(cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate sqlite store: %w", err)
		}
		catalog, index = store, store
		closeStore = store.Close
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		closeStore()
		return nil, err
	}

	svc, err := knowledge.NewService(catalog, index, model.NewCachedEmbeddings(embedder), knowledge.Config{
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: cfg.Chunking.Overlap,
		MatchCutoff:  cfg.Search.CourseMatchCutoff,
	})
	if err != nil {
		closeStore()
		return nil, err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		closeStore()
		return nil, err
	}

	registry := tool.NewRegistry()
	registry.Register(tool.NewSearchTool(svc, cfg.Search.MaxResults))
	registry.Register(tool.NewOutlineTool(svc))

	history := session.NewStore(cfg.History.Window)

	opts := []Option{WithMaxToolRounds(cfg.Agent.MaxToolRounds)}
	if cfg.Agent.SystemPrompt != "" {
		opts = append(opts, WithSystemPrompt(cfg.Agent.SystemPrompt))
	}
	assistant := New(provider, registry, history, opts...)

	return &System{
		Knowledge: svc,
		Assistant: assistant,
		History:   history,
		Close:     closeStore,
	}, nil
}

func buildProvider(cfg *Config) (model.Provider, error) {
	pc := model.ProviderConfig{
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		Model:      cfg.Provider.Model,
		TimeoutSec: cfg.Provider.TimeoutSec,
	}
	switch cfg.Provider.Provider {
	case "anthropic":
		return model.NewAnthropicWithConfig(pc), nil
	case "ollama":
		return model.NewOllamaWithConfig(pc), nil
	}
	return nil, fmt.Errorf("config: unknown provider %q", cfg.Provider.Provider)
}

func buildEmbedder(cfg *Config) (model.EmbeddingsProvider, error) {
	switch cfg.Embeddings.Provider {
	case "ollama":
		return model.NewOllamaEmbeddings(cfg.Embeddings.BaseURL, cfg.Embeddings.Model), nil
	case "openai":
		return model.NewOpenAIEmbeddingsWithConfig(model.ProviderConfig{
			APIKey:  cfg.Embeddings.APIKey,
			BaseURL: cfg.Embeddings.BaseURL,
			Model:   cfg.Embeddings.Model,
		}), nil
	}
	return nil, fmt.Errorf("config: unknown embeddings provider %q", cfg.Embeddings.Provider)
}
