package types

// FilterRules selects which discovered files become documents.
//
// The two modes are mutually exclusive: any inclusion rule switches the run to
// inclusion mode and the exclusion lists are ignored entirely. In exclusion
// mode the loader's default deny-lists apply plus the caller's additions.
type FilterRules struct {
	// IncludeDirs keeps only files under the named directories
	// (relative to the repository root).
	IncludeDirs []string

	// IncludeFiles keeps only files whose base name matches one of these
	// glob patterns.
	IncludeFiles []string

	// ExcludeDirs removes files under the named directories, in addition
	// to the default deny-list.
	ExcludeDirs []string

	// ExcludeFiles removes files whose base name matches one of these
	// glob patterns, in addition to the default deny-list.
	ExcludeFiles []string
}

// InclusionMode reports whether any inclusion rule is present.
func (f FilterRules) InclusionMode() bool {
	return len(f.IncludeDirs) > 0 || len(f.IncludeFiles) > 0
}
