package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentValidate(t *testing.T) {
	valid := &Document{Meta: Meta{FilePath: "a.py"}}
	assert.NoError(t, valid.Validate())

	noPath := &Document{}
	assert.Error(t, noPath.Validate())

	badIndex := &Document{Meta: Meta{FilePath: "a.py", ChunkIndex: 2}}
	assert.Error(t, badIndex.Validate())

	chunk := &Document{Meta: Meta{FilePath: "a.py", ChunkIndex: 2, IsChunked: true}}
	assert.NoError(t, chunk.Validate())
}

func TestDocumentHasVector(t *testing.T) {
	d := &Document{}
	assert.False(t, d.HasVector())
	d.Vector = []float32{0.1}
	assert.True(t, d.HasVector())
}

func TestFilterRulesInclusionMode(t *testing.T) {
	assert.False(t, FilterRules{}.InclusionMode())
	assert.False(t, FilterRules{ExcludeDirs: []string{"x"}}.InclusionMode())
	assert.True(t, FilterRules{IncludeDirs: []string{"src"}}.InclusionMode())
	assert.True(t, FilterRules{IncludeFiles: []string{"*.py"}}.InclusionMode())
}

func TestRetrievalResultEmpty(t *testing.T) {
	var nilResult *RetrievalResult
	assert.True(t, nilResult.Empty())
	assert.True(t, (&RetrievalResult{Query: "q"}).Empty())
	assert.False(t, (&RetrievalResult{Matches: []Match{{Rank: 1}}}).Empty())
}
