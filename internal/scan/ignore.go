package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreMatcher applies gitignore-style patterns to repository-relative
// paths. Supported forms: root-anchored patterns (leading slash), directory
// patterns (trailing slash), and ** wildcards. Negated patterns are parsed
// but not applied.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	// glob is the normalized pattern without anchors.
	glob string
	// anchored patterns match from the repository root only.
	anchored bool
	// dirOnly patterns match directories and everything beneath them.
	dirOnly bool
}

// LoadIgnoreFile reads the repository's .gitignore. A missing or unreadable
// file yields an empty matcher.
func LoadIgnoreFile(root string) *IgnoreMatcher {
	m := &IgnoreMatcher{}

	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return m
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p, ok := parseIgnoreLine(scanner.Text()); ok {
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// NewIgnoreMatcher builds a matcher from raw gitignore lines. Used by tests
// and callers that carry patterns out of band.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range lines {
		if p, ok := parseIgnoreLine(line); ok {
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// parseIgnoreLine normalizes one gitignore line. Comments, blanks, and
// negations produce no pattern.
func parseIgnoreLine(line string) (ignorePattern, bool) {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return ignorePattern{}, false
	}

	p := ignorePattern{}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	// A slash in the middle anchors the pattern to the root, per gitignore.
	if strings.Contains(line, "/") {
		p.anchored = true
	}
	p.glob = line
	return p, line != ""
}

// Match reports whether a repository-relative file path is ignored.
func (m *IgnoreMatcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range m.patterns {
		if p.dirOnly {
			continue
		}
		if matchPattern(p, rel) {
			return true
		}
	}
	// A file is also ignored when any parent directory is.
	return m.MatchDir(parentDirs(rel))
}

// MatchDir reports whether a repository-relative directory path (or any of
// its components) is ignored. Accepts a single path; empty input matches
// nothing.
func (m *IgnoreMatcher) MatchDir(rel string) bool {
	rel = filepath.ToSlash(rel)
	if rel == "" || rel == "." {
		return false
	}
	for _, p := range m.patterns {
		if matchPattern(p, rel) {
			return true
		}
		// Directory patterns apply to every path component.
		if p.dirOnly || !strings.Contains(p.glob, "/") {
			for _, seg := range strings.Split(rel, "/") {
				if ok, _ := filepath.Match(p.glob, seg); ok {
					return true
				}
			}
		}
	}
	return false
}

// matchPattern applies one normalized pattern to a slash-separated path.
func matchPattern(p ignorePattern, rel string) bool {
	glob := p.glob

	if strings.Contains(glob, "**") {
		return matchDoublestar(glob, rel)
	}

	if p.anchored {
		if ok, _ := filepath.Match(glob, rel); ok {
			return true
		}
		// Anchored directory prefix: "docs/build" ignores docs/build/x.
		return strings.HasPrefix(rel, glob+"/")
	}

	// Unanchored patterns match the base name at any depth.
	if ok, _ := filepath.Match(glob, filepath.Base(rel)); ok {
		return true
	}
	return false
}

// matchDoublestar handles the ** wildcard: a leading **/ matches at any
// depth, a trailing /** matches everything under a prefix.
func matchDoublestar(glob, rel string) bool {
	switch {
	case strings.HasPrefix(glob, "**/"):
		tail := strings.TrimPrefix(glob, "**/")
		if ok, _ := filepath.Match(tail, rel); ok {
			return true
		}
		segs := strings.Split(rel, "/")
		for i := range segs {
			if ok, _ := filepath.Match(tail, strings.Join(segs[i:], "/")); ok {
				return true
			}
		}
		return false
	case strings.HasSuffix(glob, "/**"):
		prefix := strings.TrimSuffix(glob, "/**")
		return rel == prefix || strings.HasPrefix(rel, prefix+"/")
	default:
		// Interior **: treat each side as prefix/suffix globs.
		parts := strings.SplitN(glob, "**", 2)
		return strings.HasPrefix(rel, strings.TrimSuffix(parts[0], "/")) &&
			strings.HasSuffix(rel, strings.TrimPrefix(parts[1], "/"))
	}
}

// parentDirs returns the directory portion of a relative path.
func parentDirs(rel string) string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir == "." {
		return ""
	}
	return dir
}
