// Package scan discovers candidate files in a repository.
//
// Discovery prefers the version-control tracked-file listing (git ls-files
// under a bounded timeout) and falls back to a filtered directory walk that
// honors a fixed directory deny-list plus the repository's .gitignore
// patterns.
package scan

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// skipDirs are directories excluded at every depth of the fallback walk.
// They hold version-control metadata, vendored dependencies, or build output.
var skipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"target":       true,
}

// Scanner discovers indexable files under a repository root.
type Scanner struct {
	log        *zap.Logger
	gitTimeout time.Duration
}

// New creates a scanner. gitTimeout bounds the tracked-file subprocess.
func New(log *zap.Logger, gitTimeout time.Duration) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	if gitTimeout <= 0 {
		gitTimeout = 30 * time.Second
	}
	return &Scanner{log: log, gitTimeout: gitTimeout}
}

// ListFiles returns the absolute path of every regular file that should be
// considered for indexing. extraSkipDirs supplements the built-in deny-list
// and applies to both the tracked-file listing and the fallback walk. A
// completely inaccessible root is the only fatal condition.
func (s *Scanner) ListFiles(ctx context.Context, root string, extraSkipDirs []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("repository root inaccessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root is not a directory: %s", root)
	}

	extra := make(map[string]bool, len(extraSkipDirs))
	for _, d := range extraSkipDirs {
		extra[d] = true
	}

	if files, err := s.gitTrackedFiles(ctx, root, extra); err == nil {
		return files, nil
	} else {
		s.log.Debug("git listing unavailable, walking directory tree",
			zap.String("root", root), zap.Error(err))
	}

	return s.walk(root, extra)
}

// gitTrackedFiles runs git ls-files with a bounded timeout and resolves the
// output to absolute paths of existing regular files. Committed files under
// a deny-listed directory are dropped the same way the walk would skip them.
func (s *Scanner) gitTrackedFiles(ctx context.Context, root string, extra map[string]bool) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "-C", root, "ls-files")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var files []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rel := scanner.Text()
		if rel == "" {
			continue
		}
		if underSkippedDir(rel, extra) {
			continue
		}
		abs := filepath.Join(root, rel)
		// Tracked entries may be deleted locally or be submodule dirs.
		info, err := os.Stat(abs)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, abs)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

// underSkippedDir reports whether any directory component of rel is on the
// deny-list or among the caller's additions. The file's own name is not a
// directory component; a file merely named like a skipped directory passes.
func underSkippedDir(rel string, extra map[string]bool) bool {
	dir := filepath.Dir(rel)
	if dir == "." {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
		if skipDirs[seg] || extra[seg] {
			return true
		}
	}
	return false
}

// walk is the non-VCS fallback: a directory walk applying the deny-list at
// every depth and the repository's ignore patterns.
func (s *Scanner) walk(root string, extra map[string]bool) ([]string, error) {
	matcher := LoadIgnoreFile(root)

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			s.log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			name := d.Name()
			if path != root && (skipDirs[name] || extra[name]) {
				return filepath.SkipDir
			}
			if path != root && matcher.MatchDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if matcher.Match(rel) {
			return nil
		}

		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			return absErr
		}
		files = append(files, abs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking file tree: %w", err)
	}
	return files, nil
}
