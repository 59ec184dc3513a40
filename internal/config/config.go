// Package config loads and validates backend configuration from a TOML
// file plus command-line overrides. Validation runs once at startup so a
// bad routing table or chunking setup never reaches request handling.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig     `toml:"server"`
	Chat      ChatConfig       `toml:"chat"`
	Retrieval RetrievalConfig  `toml:"retrieval"`
	Embedding EmbeddingConfig  `toml:"embedding"`
	Index     IndexConfig      `toml:"index"`
	Loader    LoaderConfig     `toml:"loader"`
	Providers []ProviderConfig `toml:"providers"`
}

// ServerConfig configures the HTTP server and its directories.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	UploadDir string `toml:"upload_dir"`
	WatchDir  string `toml:"watch_dir"`
}

// ChatConfig configures the direct-completion path.
type ChatConfig struct {
	DefaultModel string `toml:"default_model"`
}

// RetrievalConfig configures chunking and top-k retrieval.
type RetrievalConfig struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
	TopK         int `toml:"top_k"`
}

// EmbeddingConfig selects and configures the embedding provider.
// API keys are read from the environment variable named by APIKeyEnv,
// never from the file itself.
type EmbeddingConfig struct {
	Provider          string  `toml:"provider"` // "ollama" or "openai"
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	APIKeyEnv         string  `toml:"api_key_env"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	Backend string `toml:"backend"` // "memory" or "sqlite"
	DataDir string `toml:"data_dir"`
}

// LoaderConfig configures document loading.
type LoaderConfig struct {
	PDFParserURL string `toml:"pdf_parser_url"`
}

// ProviderConfig configures one completion provider and the models it hosts.
type ProviderConfig struct {
	Name      string   `toml:"name"`
	Type      string   `toml:"type"` // "ollama" or "openai"
	BaseURL   string   `toml:"base_url"`
	APIKeyEnv string   `toml:"api_key_env"`
	Models    []string `toml:"models"`
}

// Default returns a configuration that serves plain chat against a local
// Ollama with an in-memory index.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8000",
			UploadDir: "uploads",
		},
		Chat: ChatConfig{
			DefaultModel: "llama3.2",
		},
		Retrieval: RetrievalConfig{
			ChunkSize:    1000,
			ChunkOverlap: 100,
			TopK:         4,
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
		},
		Index: IndexConfig{
			Backend: "memory",
		},
		Providers: []ProviderConfig{
			{Name: "local", Type: "ollama", Models: []string{"llama3.2"}},
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// returns the defaults; a named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Retrieval.ChunkSize <= 0 {
		return fmt.Errorf("retrieval.chunk_size must be positive, got %d", c.Retrieval.ChunkSize)
	}
	if c.Retrieval.ChunkOverlap < 0 || c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap must be in [0, chunk_size), got %d", c.Retrieval.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}

	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("embedding.provider must be ollama or openai, got %q", c.Embedding.Provider)
	}

	switch c.Index.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("index.backend must be memory or sqlite, got %q", c.Index.Backend)
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one completion provider is required")
	}
	defaultRouted := false
	for i, p := range c.Providers {
		switch p.Type {
		case "ollama", "openai":
		default:
			return fmt.Errorf("providers[%d].type must be ollama or openai, got %q", i, p.Type)
		}
		if len(p.Models) == 0 {
			return fmt.Errorf("providers[%d] (%s) lists no models", i, p.Name)
		}
		for _, m := range p.Models {
			if m == c.Chat.DefaultModel {
				defaultRouted = true
			}
		}
	}
	if !defaultRouted {
		return fmt.Errorf("chat.default_model %q is not hosted by any provider", c.Chat.DefaultModel)
	}

	return nil
}

// APIKey resolves a provider's API key from its configured environment
// variable. Empty when no variable is named.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}
