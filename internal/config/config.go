// Package config provides configuration loading for repovec.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dmills/repovec/internal/logging"
)

// Embedding ceilings and pipeline defaults. The base ceiling is the maximum
// token count a single embedding call may accept; code files get
// base * CodeCeilingMultiplier before chunking kicks in.
const (
	DefaultMaxEmbedTokens   = 8192
	DefaultCodeMultiplier   = 2.0
	DefaultQueryMaxTokens   = 4096
	DefaultTopK             = 20
	DefaultEmbedBatchSize   = 50
	DefaultMaxWorkers       = 16
	DefaultGitTimeoutSecs   = 30
	DefaultMtimeToleranceMs = 1000
)

// Embedding configures the embedding provider for one indexing run. The
// provider selection is resolved once at pipeline construction and treated as
// immutable for the duration of the run.
type Embedding struct {
	// Provider is the embedder kind: "openai", "ollama", or "local".
	Provider string `koanf:"provider"`
	// Model is the provider's embedding model name.
	Model string `koanf:"model"`
	// BaseURL overrides the provider endpoint (required for ollama).
	BaseURL string `koanf:"base_url"`
	// APIKey is read from the environment when empty.
	APIKey string `koanf:"api_key"`
	// BatchSize bounds one batched embedding call.
	BatchSize int `koanf:"batch_size"`
}

// Indexing configures discovery, chunking, and the worker pool.
type Indexing struct {
	// MaxEmbedTokens is the base embedding ceiling per document.
	MaxEmbedTokens int `koanf:"max_embed_tokens"`
	// CodeMultiplier scales the ceiling for code documents.
	CodeMultiplier float64 `koanf:"code_multiplier"`
	// Workers caps the file-read worker pool; 0 means min(NumCPU, 16).
	Workers int `koanf:"workers"`
	// GitTimeoutSecs bounds the git tracked-file listing subprocess.
	GitTimeoutSecs int `koanf:"git_timeout_secs"`
}

// Retrieval configures query answering.
type Retrieval struct {
	// TopK is the default result cardinality.
	TopK int `koanf:"top_k"`
	// QueryMaxTokens is the query truncation safety ceiling.
	QueryMaxTokens int `koanf:"query_max_tokens"`
}

// Config is the root configuration.
type Config struct {
	// StateDir holds cloned repositories and snapshot databases.
	StateDir  string         `koanf:"state_dir"`
	Embedding Embedding      `koanf:"embedding"`
	Indexing  Indexing       `koanf:"indexing"`
	Retrieval Retrieval      `koanf:"retrieval"`
	Logging   logging.Config `koanf:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		StateDir: defaultStateDir(),
		Embedding: Embedding{
			Provider:  "local",
			Model:     "text-embedding-3-small",
			BatchSize: DefaultEmbedBatchSize,
		},
		Indexing: Indexing{
			MaxEmbedTokens: DefaultMaxEmbedTokens,
			CodeMultiplier: DefaultCodeMultiplier,
			GitTimeoutSecs: DefaultGitTimeoutSecs,
		},
		Retrieval: Retrieval{
			TopK:           DefaultTopK,
			QueryMaxTokens: DefaultQueryMaxTokens,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}
	if c.Indexing.MaxEmbedTokens <= 0 {
		return fmt.Errorf("indexing.max_embed_tokens must be positive")
	}
	if c.Indexing.CodeMultiplier < 1.0 {
		return fmt.Errorf("indexing.code_multiplier must be >= 1.0")
	}
	if c.Retrieval.QueryMaxTokens <= 0 || c.Retrieval.QueryMaxTokens > c.Indexing.MaxEmbedTokens {
		return fmt.Errorf("retrieval.query_max_tokens must be in (0, indexing.max_embed_tokens]")
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive")
	}
	return nil
}

// WorkerCount resolves the effective worker pool size: the configured value,
// or min(NumCPU, 16) to avoid file-descriptor exhaustion on large machines.
func (c *Config) WorkerCount() int {
	if c.Indexing.Workers > 0 {
		return c.Indexing.Workers
	}
	n := runtime.NumCPU()
	if n > DefaultMaxWorkers {
		n = DefaultMaxWorkers
	}
	return n
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repovec"
	}
	return filepath.Join(home, ".repovec")
}
