package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "llama3.2", cfg.Chat.DefaultModel)
	assert.Equal(t, 1000, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 100, cfg.Retrieval.ChunkOverlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "memory", cfg.Index.Backend)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9090"
watch_dir = "/srv/docs"

[chat]
default_model = "gpt-4o-mini"

[retrieval]
chunk_size = 500
chunk_overlap = 50
top_k = 8

[embedding]
provider = "openai"
model = "text-embedding-3-small"
api_key_env = "OPENAI_API_KEY"

[index]
backend = "sqlite"
data_dir = "/var/lib/assistant"

[[providers]]
name = "openai"
type = "openai"
api_key_env = "OPENAI_API_KEY"
models = ["gpt-4o-mini", "gpt-4o"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/srv/docs", cfg.Server.WatchDir)
	assert.Equal(t, "gpt-4o-mini", cfg.Chat.DefaultModel)
	assert.Equal(t, 500, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, []string{"gpt-4o-mini", "gpt-4o"}, cfg.Providers[0].Models)

	// Untouched sections keep their defaults.
	assert.Equal(t, "uploads", cfg.Server.UploadDir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.toml")
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Retrieval.ChunkSize = 0 }},
		{"overlap equals size", func(c *Config) { c.Retrieval.ChunkOverlap = c.Retrieval.ChunkSize }},
		{"negative overlap", func(c *Config) { c.Retrieval.ChunkOverlap = -1 }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"bad embedding provider", func(c *Config) { c.Embedding.Provider = "weaviate" }},
		{"bad index backend", func(c *Config) { c.Index.Backend = "redis" }},
		{"no providers", func(c *Config) { c.Providers = nil }},
		{"provider without models", func(c *Config) { c.Providers[0].Models = nil }},
		{"bad provider type", func(c *Config) { c.Providers[0].Type = "bedrock" }},
		{"unrouted default model", func(c *Config) { c.Chat.DefaultModel = "mistral" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("TEST_ASSISTANT_KEY", "sk-value")

	assert.Equal(t, "sk-value", APIKey("TEST_ASSISTANT_KEY"))
	assert.Empty(t, APIKey(""))
	assert.Empty(t, APIKey("TEST_ASSISTANT_KEY_UNSET"))
}
