package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmills/repovec/internal/token"
	"github.com/dmills/repovec/pkg/types"
)

const testModel = "text-embedding-3-small"

func doc(text string, isCode bool) *types.Document {
	docType := types.DocTypeDoc
	if isCode {
		docType = types.DocTypeCode
	}
	return &types.Document{
		Text: text,
		Meta: types.Meta{
			FilePath:   "some/file",
			Type:       docType,
			IsCode:     isCode,
			TokenCount: token.For(testModel).Count(text),
		},
	}
}

func TestCeiling_CodeMultiplier(t *testing.T) {
	c := New(nil, testModel, 100, 2.0)

	assert.Equal(t, 100, c.Ceiling(doc("x", false)))
	assert.Equal(t, 200, c.Ceiling(doc("x", true)))
}

func TestCeiling_MultiplierFloor(t *testing.T) {
	c := New(nil, testModel, 100, 0.5)
	assert.Equal(t, 100, c.Ceiling(doc("x", true)))
}

func TestSplit_SmallDocPassesThrough(t *testing.T) {
	c := New(nil, testModel, 1000, 2.0)
	d := doc("short text", false)

	out := c.Split([]*types.Document{d})
	require.Len(t, out, 1)
	assert.Same(t, d, out[0])
	assert.False(t, out[0].Meta.IsChunked)
}

func TestSplit_OversizedDocChunked(t *testing.T) {
	c := New(nil, testModel, 20, 2.0)
	d := doc(strings.Repeat("alpha beta gamma delta ", 200), false)
	require.Greater(t, d.Meta.TokenCount, 20)

	out := c.Split([]*types.Document{d})
	require.Greater(t, len(out), 1)

	for i, chunk := range out {
		assert.True(t, chunk.Meta.IsChunked)
		assert.Equal(t, i, chunk.Meta.ChunkIndex)
		assert.Equal(t, d.Meta.FilePath, chunk.Meta.FilePath)
		assert.LessOrEqual(t, chunk.Meta.TokenCount, 20)
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestSplit_ChunksReconstructOriginal(t *testing.T) {
	tk := token.For(testModel)
	if !tk.Exact() {
		t.Skip("no encoding available in this environment")
	}

	c := New(nil, testModel, 15, 2.0)
	d := doc(strings.Repeat("the quick brown fox jumps over the lazy dog ", 50), false)

	out := c.Split([]*types.Document{d})
	require.Greater(t, len(out), 1)

	var rebuilt strings.Builder
	for _, chunk := range out {
		rebuilt.WriteString(chunk.Text)
	}
	assert.Equal(t, d.Text, rebuilt.String())
}

func TestSplitHeuristic_MultiByteTextStaysUnderCeiling(t *testing.T) {
	c := New(nil, testModel, 10, 1.0)
	tk := &token.Tokenizer{}
	require.False(t, tk.Exact())

	// 3-byte runes: a rune-based step would record counts up to 3x the
	// ceiling, and a naive byte cut would land mid-rune.
	text := strings.Repeat("世界和平萬歲", 40)
	d := &types.Document{
		Text: text,
		Meta: types.Meta{FilePath: "notes/cjk.md", TokenCount: tk.Count(text)},
	}

	chunks := c.splitHeuristic(d, tk)
	require.Greater(t, len(chunks), 1)

	var rebuilt strings.Builder
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Meta.ChunkIndex)
		assert.True(t, chunk.Meta.IsChunked)
		assert.True(t, utf8.ValidString(chunk.Text))
		assert.LessOrEqual(t, chunk.Meta.TokenCount, 10)
		rebuilt.WriteString(chunk.Text)
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplit_CodeCeilingLargerThanDocCeiling(t *testing.T) {
	c := New(nil, testModel, 20, 2.0)
	text := strings.Repeat("word ", 120)
	tokens := token.For(testModel).Count(text)
	require.Greater(t, tokens, 20)

	// The same content splits when classified as doc but may pass as code.
	if tokens <= 40 {
		codeDoc := doc(text, true)
		out := c.Split([]*types.Document{codeDoc})
		assert.Len(t, out, 1)
	}

	docDoc := doc(text, false)
	out := c.Split([]*types.Document{docDoc})
	assert.Greater(t, len(out), 1)
}
