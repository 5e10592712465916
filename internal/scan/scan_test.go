package scan

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func relPaths(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestListFiles_WalkFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "print('hi')")
	writeFile(t, root, "docs/readme.md", "# readme")
	writeFile(t, root, "node_modules/pkg/index.js", "x")
	writeFile(t, root, ".venv/lib/site.py", "x")

	s := New(nil, 5*time.Second)
	paths, err := s.ListFiles(context.Background(), root, nil)
	require.NoError(t, err)

	rels := relPaths(t, root, paths)
	assert.ElementsMatch(t, []string{"main.py", "docs/readme.md"}, rels)
}

func TestListFiles_ExtraSkipDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.py", "x")
	writeFile(t, root, "generated/out.py", "x")

	s := New(nil, 5*time.Second)
	paths, err := s.ListFiles(context.Background(), root, []string{"generated"})
	require.NoError(t, err)

	rels := relPaths(t, root, paths)
	assert.Equal(t, []string{"keep.py"}, rels)
}

func TestListFiles_GitignoreRespected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\nsecrets/\n")
	writeFile(t, root, "app.py", "x")
	writeFile(t, root, "debug.log", "x")
	writeFile(t, root, "secrets/key.txt", "x")

	s := New(nil, 5*time.Second)
	paths, err := s.ListFiles(context.Background(), root, nil)
	require.NoError(t, err)

	rels := relPaths(t, root, paths)
	assert.Contains(t, rels, "app.py")
	assert.NotContains(t, rels, "debug.log")
	assert.NotContains(t, rels, "secrets/key.txt")
}

func TestUnderSkippedDir(t *testing.T) {
	extra := map[string]bool{"generated": true}

	assert.True(t, underSkippedDir("vendor/lib/a.go", nil))
	assert.True(t, underSkippedDir("pkg/node_modules/x/index.js", nil))
	assert.True(t, underSkippedDir("pkg/generated/out.py", extra))
	assert.False(t, underSkippedDir("src/a.go", extra))
	assert.False(t, underSkippedDir("a.go", nil))
	// A file named like a skipped directory is not itself skipped.
	assert.False(t, underSkippedDir("vendor", nil))
	assert.False(t, underSkippedDir("src/vendored/a.go", nil))
}

func TestListFiles_GitListingHonorsSkipDirs(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	root := t.TempDir()
	writeFile(t, root, "main.py", "print('hi')")
	writeFile(t, root, "vendor/dep.py", "x")
	writeFile(t, root, "generated/out.py", "x")

	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", root}, args...)...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	git("init")
	git("config", "user.email", "test@example.com")
	git("config", "user.name", "test")
	git("add", ".")
	git("commit", "-m", "init", "--no-gpg-sign")

	s := New(nil, 5*time.Second)
	paths, err := s.ListFiles(context.Background(), root, []string{"generated"})
	require.NoError(t, err)

	rels := relPaths(t, root, paths)
	assert.Equal(t, []string{"main.py"}, rels)
}

func TestListFiles_InaccessibleRoot(t *testing.T) {
	s := New(nil, 5*time.Second)
	_, err := s.ListFiles(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestListFiles_AbsolutePaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")

	s := New(nil, 5*time.Second)
	paths, err := s.ListFiles(context.Background(), root, nil)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.True(t, filepath.IsAbs(paths[0]))
}
