package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, DefaultMaxEmbedTokens, cfg.Indexing.MaxEmbedTokens)
	assert.Equal(t, DefaultCodeMultiplier, cfg.Indexing.CodeMultiplier)
	assert.Equal(t, DefaultTopK, cfg.Retrieval.TopK)
	assert.Equal(t, DefaultQueryMaxTokens, cfg.Retrieval.QueryMaxTokens)
	assert.NotEmpty(t, cfg.StateDir)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty state dir", func(c *Config) { c.StateDir = "" }},
		{"zero embed ceiling", func(c *Config) { c.Indexing.MaxEmbedTokens = 0 }},
		{"multiplier below one", func(c *Config) { c.Indexing.CodeMultiplier = 0.5 }},
		{"query ceiling above embed ceiling", func(c *Config) { c.Retrieval.QueryMaxTokens = c.Indexing.MaxEmbedTokens + 1 }},
		{"zero batch size", func(c *Config) { c.Embedding.BatchSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWorkerCount(t *testing.T) {
	cfg := Default()
	assert.Greater(t, cfg.WorkerCount(), 0)
	assert.LessOrEqual(t, cfg.WorkerCount(), DefaultMaxWorkers)

	cfg.Indexing.Workers = 3
	assert.Equal(t, 3, cfg.WorkerCount())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
state_dir: /tmp/repovec-test
embedding:
  provider: ollama
  model: nomic-embed-text
  base_url: http://localhost:11434
indexing:
  max_embed_tokens: 4096
retrieval:
  top_k: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/repovec-test", cfg.StateDir)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 4096, cfg.Indexing.MaxEmbedTokens)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultQueryMaxTokens, cfg.Retrieval.QueryMaxTokens)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  provider: ollama\n"), 0o644))

	t.Setenv("REPOVEC_EMBEDDING_PROVIDER", "local")
	t.Setenv("REPOVEC_RETRIEVAL_TOP_K", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 7, cfg.Retrieval.TopK)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Embedding.Provider)
}

func TestTransformEnvKey(t *testing.T) {
	assert.Equal(t, "state_dir", transformEnvKey("REPOVEC_STATE_DIR"))
	assert.Equal(t, "embedding.provider", transformEnvKey("REPOVEC_EMBEDDING_PROVIDER"))
	assert.Equal(t, "indexing.max_embed_tokens", transformEnvKey("REPOVEC_INDEXING_MAX_EMBED_TOKENS"))
	assert.Equal(t, "retrieval.top_k", transformEnvKey("REPOVEC_RETRIEVAL_TOP_K"))
}
