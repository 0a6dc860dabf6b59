// Package store provides the two persistence layers searched by a
// Pipeline: LexicalIndex (BM25 keyword search over chunk text and tags)
// and DenseStore (embedding vectors with an HNSW acceleration graph).
package store

import "fmt"

// Document is a single chunk submitted to the LexicalIndex.
type Document struct {
	ID      string   // chunk ID
	Content string   // chunk body text
	Tags    []string // the owning document's frontmatter + inline tags
}

// LexicalResult is a single BM25 match.
type LexicalResult struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// LexicalStats summarizes a LexicalIndex.
type LexicalStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// BM25Config parameterizes the lexical scorer. Defaults (K1=1.5, B=0.75,
// TagBoost=0.3) match the retrieval formula's stated defaults.
type BM25Config struct {
	// K1 is the term-frequency saturation parameter.
	K1 float64
	// B is the length-normalization parameter.
	B float64
	// TagBoost (λ) scales the additive per-matching-tag idf(t) bonus.
	TagBoost float64
	// MinTokenLength discards tokens shorter than this during indexing
	// and querying.
	MinTokenLength int
}

// DefaultBM25Config returns the retrieval formula's stated defaults.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.5,
		B:              0.75,
		TagBoost:       0.3,
		MinTokenLength: 2,
	}
}

// DenseVector is a single embedding row plus the chunk it came from.
type DenseVector struct {
	ChunkID string
	DocPath string
	Vector  []float32
}

// DenseResult is a single nearest-neighbor match.
type DenseResult struct {
	ChunkID string
	Score   float32 // cosine similarity, normalized to [0,1]
}

// ErrDimensionMismatch indicates a vector's width disagrees with the
// store's recorded embedding dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run a full reindex)", e.Expected, e.Got)
}

// ErrModelMismatch indicates an attempt to add vectors from a different
// embedding model than the one the store was built with.
type ErrModelMismatch struct {
	Expected string
	Got      string
}

func (e ErrModelMismatch) Error() string {
	return fmt.Sprintf("embedding model mismatch: store built with %q, got %q (run a full reindex)", e.Expected, e.Got)
}
