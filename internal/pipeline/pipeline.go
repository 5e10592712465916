// Package pipeline wires the indexing and retrieval stages behind two
// entry points: Prepare builds or refreshes a repository index, Query runs
// similarity retrieval against the prepared index.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmills/repovec/internal/chunker"
	"github.com/dmills/repovec/internal/config"
	"github.com/dmills/repovec/internal/embedder"
	"github.com/dmills/repovec/internal/index"
	"github.com/dmills/repovec/internal/loader"
	"github.com/dmills/repovec/internal/retriever"
	"github.com/dmills/repovec/internal/scan"
	"github.com/dmills/repovec/internal/store"
	"github.com/dmills/repovec/pkg/types"
)

// PrepareRequest describes one repository to index.
type PrepareRequest struct {
	// RepoPathOrURL is a local directory or a remote git URL.
	RepoPathOrURL string
	// AccessToken authenticates remote clones. Never logged.
	AccessToken string
	// Filters select the file subset to index.
	Filters types.FilterRules
	// ExtraSkipDirs extends the built-in directory deny-list.
	ExtraSkipDirs []string
}

// PrepareResult summarizes one Prepare run.
type PrepareResult struct {
	Identity  string
	Root      string
	Documents int
	Stats     *index.Stats
}

// Service is the long-lived pipeline instance. The embedding provider is
// resolved once at construction; a misconfigured provider fails here, not
// mid-run.
type Service struct {
	cfg       *config.Config
	log       *zap.Logger
	provider  embedder.Provider
	generator *embedder.Generator
	scanner   *scan.Scanner

	mu        sync.RWMutex
	retriever *retriever.Retriever
	identity  string
	root      string
}

// New creates a pipeline service from validated configuration.
func New(cfg *config.Config, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := embedder.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:       cfg,
		log:       log,
		provider:  provider,
		generator: embedder.NewGenerator(provider, cfg.Embedding.BatchSize, log),
		scanner:   scan.New(log, time.Duration(cfg.Indexing.GitTimeoutSecs)*time.Second),
	}, nil
}

// Close releases the provider.
func (s *Service) Close() error {
	return s.provider.Close()
}

// Prepare indexes the repository incrementally and readies it for queries.
// Repeated calls against an unchanged repository reuse the stored snapshot
// without re-embedding anything.
func (s *Service) Prepare(ctx context.Context, req PrepareRequest) (*PrepareResult, error) {
	identity := scan.Identity(req.RepoPathOrURL)

	root, err := s.resolveRoot(ctx, req)
	if err != nil {
		return nil, err
	}

	paths, err := s.scanner.ListFiles(ctx, root, req.ExtraSkipDirs)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	ld := loader.New(s.log, s.provider.Model(), s.cfg.WorkerCount())
	docs, err := ld.Load(ctx, root, paths, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}

	st, err := store.Open(store.SnapshotPath(s.cfg.StateDir, identity))
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ch := chunker.New(s.log, s.provider.Model(),
		s.cfg.Indexing.MaxEmbedTokens, s.cfg.Indexing.CodeMultiplier)
	mgr := index.NewManager(s.log, ch, s.generator, st)

	snap, stats, err := mgr.Sync(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("sync index for %s: %w", identity, err)
	}

	s.mu.Lock()
	s.retriever = retriever.New(s.log, s.generator, snap,
		s.cfg.Retrieval.QueryMaxTokens, s.cfg.Retrieval.TopK)
	s.identity = identity
	s.root = root
	s.mu.Unlock()

	return &PrepareResult{
		Identity:  identity,
		Root:      root,
		Documents: len(snap.Documents),
		Stats:     stats,
	}, nil
}

// Query retrieves the top-K documents for text from the prepared index.
// Before any successful Prepare the result is empty, not an error.
func (s *Service) Query(ctx context.Context, text string) (*types.RetrievalResult, error) {
	s.mu.RLock()
	r := s.retriever
	s.mu.RUnlock()

	if r == nil {
		s.log.Warn("query before any prepared repository, returning empty result")
		return &types.RetrievalResult{Query: text}, nil
	}
	return r.Query(ctx, text), nil
}

// Identity returns the identity of the prepared repository, if any.
func (s *Service) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// resolveRoot returns the local working tree for the request, cloning
// remote repositories under the state directory.
func (s *Service) resolveRoot(ctx context.Context, req PrepareRequest) (string, error) {
	if scan.IsRemote(req.RepoPathOrURL) {
		dest := filepath.Join(s.cfg.StateDir, "repos", scan.Identity(req.RepoPathOrURL))
		if err := s.scanner.Clone(ctx, req.RepoPathOrURL, req.AccessToken, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	root, err := filepath.Abs(req.RepoPathOrURL)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(root); err != nil {
		return "", fmt.Errorf("repository path inaccessible: %w", err)
	}
	return root, nil
}
