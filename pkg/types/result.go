package types

// Match pairs a document with its similarity rank for one query.
type Match struct {
	Document *Document
	// Rank starts at 1 for the most similar document.
	Rank int
	// Score is the cosine similarity between query and document vectors.
	Score float64
}

// RetrievalResult is the ordered answer to one query. It is transient and
// references snapshot documents read-only.
type RetrievalResult struct {
	Query   string
	Matches []Match
	// K is the requested result cardinality; len(Matches) may be smaller.
	K int
}

// Empty reports whether the query produced no matches. Queries against an
// unbuilt or empty index degrade to an empty result rather than an error.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Matches) == 0
}
