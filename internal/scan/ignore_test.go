package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnoreMatcher_Basics(t *testing.T) {
	m := NewIgnoreMatcher([]string{
		"# comment",
		"",
		"*.log",
		"build/",
		"/rooted.txt",
		"docs/internal",
	})

	assert.True(t, m.Match("debug.log"))
	assert.True(t, m.Match("nested/deep/trace.log"))
	assert.False(t, m.Match("debug.txt"))

	assert.True(t, m.MatchDir("build"))
	assert.True(t, m.MatchDir("sub/build"))
	assert.False(t, m.MatchDir("builder"))

	assert.True(t, m.Match("rooted.txt"))
	assert.False(t, m.Match("sub/rooted.txt"))

	assert.True(t, m.Match("docs/internal"))
	assert.False(t, m.Match("other/internal"))
}

func TestIgnoreMatcher_NegationsSkipped(t *testing.T) {
	m := NewIgnoreMatcher([]string{"*.log", "!keep.log"})

	// Negation patterns are not supported and must not un-ignore.
	assert.True(t, m.Match("keep.log"))
}

func TestIgnoreMatcher_Doublestar(t *testing.T) {
	m := NewIgnoreMatcher([]string{"**/generated", "assets/**"})

	assert.True(t, m.Match("a/b/generated"))
	assert.True(t, m.Match("assets/img/logo.png"))
	assert.False(t, m.Match("src/main.go"))
}

func TestIgnoreMatcher_FileInIgnoredDir(t *testing.T) {
	m := NewIgnoreMatcher([]string{"tmp/"})

	assert.True(t, m.Match("tmp/scratch.txt"))
	assert.True(t, m.MatchDir("tmp"))
}
