// Package pipeline implements the query-time stage graph: optional query
// expansion, retrieval (dense, lexical, or both fused by RRF), result-level
// filtering, chunk dedup, optional cross-encoder re-ranking, and a final
// time-decay boost. A Pipeline owns one vault's stores and is meant to be
// cached by a registry, not reconstructed per request.
package pipeline

import "time"

// Mode selects which retrieval paths the primary-retrieval stage runs.
type Mode int

const (
	ModeHybrid Mode = iota
	ModeDenseOnly
	ModeBM25Only
)

// ExpandMode controls when the query-expansion stage runs.
type ExpandMode int

const (
	// ExpandAuto triggers expansion only for short queries (word_count < 3).
	ExpandAuto ExpandMode = iota
	// ExpandOn always attempts expansion, regardless of query length.
	ExpandOn
	// ExpandOff never attempts expansion.
	ExpandOff
)

// ResultFilters are the result-level and file-prefilter predicates a query
// can carry. Inclusion filters narrow the prefilter whitelist (stage 2) and
// the post-retrieval result set (stage 5); exclusion filters apply only at
// stage 5, never at the prefilter.
type ResultFilters struct {
	IncludeStatuses []string // empty means the default: active only
	IncludeTypes    []string
	ExcludeTypes    []string
	IncludeTags     []string
	ExcludeTags     []string
	IncludePaths    []string // path prefix matches, relative to vault root
	ExcludePaths    []string
	IncludeProps    map[string]string
	ExcludeProps    map[string]string
}

// Params is a fully-resolved set of query-time parameters: whatever a
// profile set plus whatever the caller overrode. Pipeline.Search takes no
// profile name directly — profile resolution happens upstream.
type Params struct {
	Limit            int
	Mode             Mode
	Expand           ExpandMode
	Rerank           bool
	ChunkingEnabled  bool
	TimeBoostEnabled bool
	HalfLifeDays     float64
	MaxBoost         float64
	Filters          ResultFilters
}

// DefaultParams mirrors the "default" profile's parameter bundle.
func DefaultParams() Params {
	return Params{
		Limit:            10,
		Mode:             ModeHybrid,
		Expand:           ExpandAuto,
		Rerank:           true,
		ChunkingEnabled:  true,
		TimeBoostEnabled: true,
		HalfLifeDays:     90,
		MaxBoost:         0.2,
	}
}

// SearchResult is one chunk in a ranked result list. It carries everything
// a caller needs to render or re-filter without re-reading the vault.
type SearchResult struct {
	ChunkID  string `json:"chunk_id"`
	DocPath  string `json:"doc_path"`
	Ordinal  int    `json:"ordinal"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Snippet  string `json:"snippet"`
	Tags     []string       `json:"tags"`
	Status   string         `json:"status"`
	Type     string         `json:"type"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`

	CreatedDate  time.Time `json:"created_date"`
	ModifiedDate time.Time `json:"modified_date"`

	Score             float64 `json:"score"`
	BM25Score         float64 `json:"bm25_score,omitempty"`
	DenseScore        float64 `json:"dense_score,omitempty"`
	BM25Rank          int     `json:"bm25_rank,omitempty"`
	DenseRank         int     `json:"dense_rank,omitempty"`
	InBothLists       bool    `json:"in_both_lists,omitempty"`
	CrossEncoderScore float64 `json:"cross_encoder_score,omitempty"`
	Reranked          bool    `json:"reranked,omitempty"`
}
