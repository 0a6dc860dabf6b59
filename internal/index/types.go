package index

import (
	"time"

	"github.com/pborenstein/temoa/internal/store"
)

// Manifest is the small JSON sidecar recording what a vault's on-disk
// store was built with and from. It is the thing change detection
// compares against: a mismatched model identifier or dimension forces a
// full rebuild rather than an incremental merge.
type Manifest struct {
	VaultPath      string               `json:"vault_path"`
	EmbeddingModel string               `json:"embedding_model"`
	Dimensions     int                  `json:"dimensions"`
	CreatedAt      time.Time            `json:"created_at"`
	IndexedAt      time.Time            `json:"indexed_at"`
	NumEmbeddings  int                  `json:"num_embeddings"`
	FileModTimes   map[string]time.Time `json:"file_mod_times"`
}

// ChunkMeta is the per-row metadata record parallel to an embedding: the
// frontmatter-derived fields a Pipeline needs to filter and render a
// result without re-opening the source file. Result-level filters read
// predicates already carried on the result, never re-reading the vault
// at that stage.
type ChunkMeta struct {
	ChunkID       string
	DocPath       string
	Ordinal       int
	Title         string
	Body          string
	Tags          []string
	Frontmatter   map[string]any
	Status        string
	Type          string
	CreatedDate   time.Time
	ModifiedDate  time.Time
	ContentLength int
}

// Stats summarizes one index build for the /reindex response.
type Stats struct {
	New      int           `json:"new"`
	Modified int           `json:"modified"`
	Deleted  int           `json:"deleted"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration_ms"`
}

// BuildResult is everything a VaultRegistry needs to construct a Pipeline
// after a build: the three stores plus the manifest that now describes
// them.
type BuildResult struct {
	Dense    *store.DenseStore
	Lexical  *store.LexicalIndex
	Meta     *MetaStore
	Manifest Manifest
	Stats    Stats
}
