package embedder

import (
	"fmt"
	"strings"

	"github.com/dmills/repovec/internal/config"
)

// Kind identifies a provider family. The kind is resolved once when the
// provider is constructed; callers branch on provider capability, not on
// configuration strings.
type Kind int

const (
	KindLocal Kind = iota
	KindOpenAI
	KindOllama
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindOpenAI:
		return "openai"
	case KindOllama:
		return "ollama"
	default:
		return "local"
	}
}

// NewProvider builds the Provider named by the configuration. Unknown
// provider names and missing credentials are construction-time failures;
// nothing past this point re-validates configuration.
func NewProvider(cfg config.Embedding) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "ollama":
		return newOllamaProvider(cfg.Model, cfg.BaseURL), nil
	case "local", "":
		return newLocalProvider(), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
