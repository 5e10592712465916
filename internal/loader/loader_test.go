package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmills/repovec/pkg/types"
)

func writeFile(t *testing.T, root, rel string, content []byte) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func loadAll(t *testing.T, root string, rels []string, rules types.FilterRules) []*types.Document {
	t.Helper()
	paths := make([]string, len(rels))
	for i, rel := range rels {
		paths[i] = filepath.Join(root, rel)
	}
	l := New(nil, "text-embedding-3-small", 2)
	docs, err := l.Load(context.Background(), root, paths, rules)
	require.NoError(t, err)
	return docs
}

func byPath(docs []*types.Document) map[string]*types.Document {
	out := make(map[string]*types.Document)
	for _, d := range docs {
		out[d.Meta.FilePath] = d
	}
	return out
}

func TestLoad_Classification(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "svc/handler.py", []byte("def handle(): pass\n"))
	writeFile(t, root, "README.md", []byte("# project\n"))

	docs := loadAll(t, root, []string{"svc/handler.py", "README.md"}, types.FilterRules{})
	require.Len(t, docs, 2)

	m := byPath(docs)
	code := m["svc/handler.py"]
	require.NotNil(t, code)
	assert.Equal(t, types.DocTypeCode, code.Meta.Type)
	assert.True(t, code.Meta.IsCode)
	assert.True(t, code.Meta.IsImplementation)
	assert.Equal(t, "handler.py", code.Meta.Title)
	assert.False(t, code.Meta.FileMtime.IsZero())

	doc := m["README.md"]
	require.NotNil(t, doc)
	assert.Equal(t, types.DocTypeDoc, doc.Meta.Type)
	assert.False(t, doc.Meta.IsCode)
}

func TestLoad_TestFilesAreNotImplementation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tests/test_api.py", []byte("def test_it(): pass\n"))

	docs := loadAll(t, root, []string{"tests/test_api.py"}, types.FilterRules{})
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Meta.IsCode)
	assert.False(t, docs[0].Meta.IsImplementation)
}

func TestLoad_UnrecognizedExtensionSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "image.png", []byte{0x89, 0x50})
	writeFile(t, root, "data.bin", []byte{0x00, 0x01})

	docs := loadAll(t, root, []string{"image.png", "data.bin"}, types.FilterRules{})
	assert.Empty(t, docs)
}

func TestLoad_InclusionModeDisablesExclusion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.py", []byte("x = 1\n"))
	writeFile(t, root, "other/b.py", []byte("y = 2\n"))

	rules := types.FilterRules{IncludeDirs: []string{"src"}}
	docs := loadAll(t, root, []string{"src/app.py", "other/b.py"}, rules)
	require.Len(t, docs, 1)
	assert.Equal(t, "src/app.py", docs[0].Meta.FilePath)
}

func TestLoad_ExclusionMode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.py", []byte("x = 1\n"))
	writeFile(t, root, "skip/gone.py", []byte("y = 2\n"))
	writeFile(t, root, "lib.min.js", []byte("var a=1;"))

	rules := types.FilterRules{ExcludeDirs: []string{"skip"}}
	docs := loadAll(t, root, []string{"keep.py", "skip/gone.py", "lib.min.js"}, rules)
	require.Len(t, docs, 1)
	assert.Equal(t, "keep.py", docs[0].Meta.FilePath)
}

func TestLoad_LossyUTF8(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "weird.py", []byte{'x', ' ', '=', 0xff, 0xfe, '\n'})

	docs := loadAll(t, root, []string{"weird.py"}, types.FilterRules{})
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Text, "�")
	assert.Contains(t, docs[0].Text, "x =")
}

func TestLoad_UnreadableFileSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.py", []byte("x = 1\n"))

	l := New(nil, "text-embedding-3-small", 2)
	docs, err := l.Load(context.Background(), root,
		[]string{filepath.Join(root, "good.py"), filepath.Join(root, "missing.py")},
		types.FilterRules{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.py", docs[0].Meta.FilePath)
}
