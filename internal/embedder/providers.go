package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Provider limits and defaults.
const (
	// openAIBatchCap stays well under the provider's hard batch limit.
	openAIBatchCap = 100

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOpenAIModel   = "text-embedding-3-small"
	defaultOllamaModel   = "nomic-embed-text"
	defaultLocalModel    = "local-embeddings"

	localDimension = 384

	httpTimeout = 60 * time.Second
)

// openAIProvider embeds via the OpenAI embeddings endpoint, batched.
type openAIProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func newOpenAIProvider(apiKey, model, baseURL string) (*openAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai requires an API key", ErrInvalidConfig)
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: httpTimeout},
	}, nil
}

func (p *openAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": p.model,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderFailed, resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vectors := make([][]float32, len(apiResp.Data))
	for _, item := range apiResp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: response index %d out of range", ErrProviderFailed, item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func (p *openAIProvider) SupportsBatch() bool { return true }
func (p *openAIProvider) MaxBatch() int       { return openAIBatchCap }
func (p *openAIProvider) Kind() Kind          { return KindOpenAI }
func (p *openAIProvider) Model() string       { return p.model }

func (p *openAIProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// ollamaProvider embeds via a local Ollama server, which accepts one input
// per call.
type ollamaProvider struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

func newOllamaProvider(model, baseURL string) *ollamaProvider {
	if model == "" {
		model = defaultOllamaModel
	}
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &ollamaProvider{
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

func (p *ollamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) != 1 {
		return nil, fmt.Errorf("%w: ollama accepts one input per call", ErrInvalidConfig)
	}

	reqBody := map[string]interface{}{
		"model":  p.model,
		"prompt": texts[0],
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderFailed, resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrProviderFailed)
	}
	return [][]float32{apiResp.Embedding}, nil
}

func (p *ollamaProvider) SupportsBatch() bool { return false }
func (p *ollamaProvider) MaxBatch() int       { return 1 }
func (p *ollamaProvider) Kind() Kind          { return KindOllama }
func (p *ollamaProvider) Model() string       { return p.model }

func (p *ollamaProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// localProvider produces deterministic hash-derived vectors with no network.
// It is the default when no API key is configured and the workhorse of the
// test suite.
type localProvider struct {
	model string
}

func newLocalProvider() *localProvider {
	return &localProvider{model: defaultLocalModel}
}

func (p *localProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, ErrEmptyText
		}
		vectors[i] = localVector(text)
	}
	return vectors, nil
}

// localVector expands the text's SHA-256 digest into a unit-normalized
// vector. Identical text always yields an identical vector.
func localVector(text string) []float32 {
	digest := sha256.Sum256([]byte(text))
	vec := make([]float32, localDimension)
	for i := range vec {
		b := digest[i%len(digest)]
		vec[i] = float32(b)/255.0 - 0.5
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

func (p *localProvider) SupportsBatch() bool { return true }
func (p *localProvider) MaxBatch() int       { return 1000 }
func (p *localProvider) Kind() Kind          { return KindLocal }
func (p *localProvider) Model() string       { return p.model }
func (p *localProvider) Close() error        { return nil }
