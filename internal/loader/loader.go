// Package loader reads candidate files and produces Document records.
//
// For each scanned path matching a recognized code or documentation extension
// and passing the active filter mode, the loader reads the content (lossy
// UTF-8), classifies it, counts tokens with the provider's tokenizer, and
// emits a Document shell ready for chunking. Single-file failures are logged
// and skipped; they never abort the run.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dmills/repovec/internal/token"
	"github.com/dmills/repovec/pkg/types"
)

// codeExts are extensions classified as code.
var codeExts = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true,
	".jsx": true, ".java": true, ".c": true, ".cc": true, ".cpp": true,
	".h": true, ".hpp": true, ".rs": true, ".rb": true, ".php": true,
	".swift": true, ".kt": true, ".cs": true, ".scala": true, ".sh": true,
}

// docExts are extensions classified as documentation.
var docExts = map[string]bool{
	".md": true, ".mdx": true, ".rst": true, ".txt": true, ".adoc": true,
}

// defaultExcludedDirs augment the scanner deny-list for files discovered via
// the VCS listing, which bypasses the walk-level filtering.
var defaultExcludedDirs = []string{
	".git", ".svn", ".hg", "node_modules", "vendor", ".venv", "venv",
	"__pycache__", ".idea", ".vscode", "dist", "build", ".next", "target",
}

// defaultExcludedFiles are generated or lock files that add noise without
// retrieval value.
var defaultExcludedFiles = []string{
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "go.sum",
	"Cargo.lock", "poetry.lock", "Pipfile.lock", "*.min.js", "*.min.css",
	"*.map", "*.svg",
}

// Loader turns scanned paths into documents.
type Loader struct {
	log     *zap.Logger
	model   string
	workers int
}

// New creates a loader. model selects the tokenizer; workers bounds the
// parallel file-read pool.
func New(log *zap.Logger, model string, workers int) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Loader{log: log, model: model, workers: workers}
}

// Load produces one Document per accepted file. File reads and tokenization
// run on a bounded worker pool; results are collected per-slot so no mutable
// state is shared across workers.
func (l *Loader) Load(ctx context.Context, root string, paths []string, rules types.FilterRules) ([]*types.Document, error) {
	tk := token.For(l.model)

	accepted := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			continue
		}
		if l.accept(rel, rules) {
			accepted = append(accepted, p)
		}
	}

	docs := make([]*types.Document, len(accepted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, p := range accepted {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			rel, _ := filepath.Rel(root, p)
			doc, err := l.loadOne(p, rel, tk)
			if err != nil {
				l.log.Warn("skipping unreadable file",
					zap.String("file_path", rel), zap.Error(err))
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*types.Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// loadOne reads and classifies a single file.
func (l *Loader) loadOne(abs, rel string, tk *token.Tokenizer) (*types.Document, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	text := string(raw)
	if !utf8.ValidString(text) {
		// Lossy decode: invalid sequences become U+FFFD rather than
		// dropping the whole file.
		text = strings.ToValidUTF8(text, "�")
	}

	ext := strings.ToLower(filepath.Ext(rel))
	isCode := codeExts[ext]
	docType := types.DocTypeDoc
	if isCode {
		docType = types.DocTypeCode
	}

	return &types.Document{
		Text: text,
		Meta: types.Meta{
			FilePath:         filepath.ToSlash(rel),
			Type:             docType,
			IsCode:           isCode,
			IsImplementation: isCode && isImplementation(rel),
			Title:            filepath.Base(rel),
			TokenCount:       tk.Count(text),
			FileMtime:        info.ModTime(),
		},
	}, nil
}

// accept applies the active filter mode. Inclusion rules, when present,
// disable exclusion filtering entirely for the run.
func (l *Loader) accept(rel string, rules types.FilterRules) bool {
	rel = filepath.ToSlash(rel)
	ext := strings.ToLower(filepath.Ext(rel))
	if !codeExts[ext] && !docExts[ext] {
		return false
	}

	if rules.InclusionMode() {
		return matchesInclusion(rel, rules)
	}
	return !matchesExclusion(rel, rules)
}

func matchesInclusion(rel string, rules types.FilterRules) bool {
	for _, dir := range rules.IncludeDirs {
		if underDir(rel, dir) {
			return true
		}
	}
	base := filepath.Base(rel)
	for _, pattern := range rules.IncludeFiles {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func matchesExclusion(rel string, rules types.FilterRules) bool {
	for _, dir := range defaultExcludedDirs {
		if containsDir(rel, dir) {
			return true
		}
	}
	for _, dir := range rules.ExcludeDirs {
		if underDir(rel, dir) || containsDir(rel, dir) {
			return true
		}
	}
	base := filepath.Base(rel)
	for _, pattern := range append(append([]string{}, defaultExcludedFiles...), rules.ExcludeFiles...) {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// isImplementation reports whether a code file is implementation rather than
// test or application scaffolding.
func isImplementation(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	if strings.HasPrefix(base, "test_") || strings.HasPrefix(base, "app_") {
		return false
	}
	if strings.HasPrefix(rel, "tests/") || strings.HasPrefix(rel, "test/") {
		return false
	}
	return !strings.Contains(strings.ToLower(rel), "test")
}

// underDir reports whether rel lives beneath dir.
func underDir(rel, dir string) bool {
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}

// containsDir reports whether any path component equals dir.
func containsDir(rel, dir string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == dir {
			return true
		}
	}
	return false
}
