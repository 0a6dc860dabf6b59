package pipeline

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pborenstein/temoa/internal/embed"
	"github.com/pborenstein/temoa/internal/index"
	"github.com/pborenstein/temoa/internal/store"
)

// overfetchFactor multiplies the candidate count when a prefilter
// whitelist is active: the underlying stores have no native whitelist
// parameter, so a Pipeline overfetches from the store and filters down to
// the requested candidate count in memory.
const overfetchFactor = 5

// Pipeline holds one vault's stores and runs the nine-stage query graph
// over them. It is deliberately cheap to hold in a registry's LRU cache —
// everything it touches (matrix, lexical index, metadata) is already
// loaded in memory; Search does no disk I/O of its own except the
// time-boost stage's file-mtime read.
type Pipeline struct {
	VaultRoot string
	Dense     *store.DenseStore
	Lexical   *store.LexicalIndex
	Meta      *index.MetaStore
	Embedder  embed.Embedder
	Reranker  Reranker
}

// NewPipeline constructs a Pipeline from already-built stores. Reranker may
// be nil; a nil reranker behaves as if every query disabled the re-rank
// stage.
func NewPipeline(vaultRoot string, dense *store.DenseStore, lexical *store.LexicalIndex, meta *index.MetaStore, embedder embed.Embedder, reranker Reranker) *Pipeline {
	return &Pipeline{
		VaultRoot: vaultRoot,
		Dense:     dense,
		Lexical:   lexical,
		Meta:      meta,
		Embedder:  embedder,
		Reranker:  reranker,
	}
}

// Search runs the full query stage graph: expansion, prefilter, retrieval,
// fusion, result filters, dedup, re-rank, time boost, truncation.
func (p *Pipeline) Search(ctx context.Context, query string, params Params) ([]*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultParams().Limit
	}

	// Stage 1: optional query expansion.
	effectiveQuery := query
	if shouldExpand(params.Expand, query) {
		effectiveQuery = p.expandQuery(ctx, query)
	}

	// Stage 2: file-prefilter construction.
	whitelist := buildPrefilterWhitelist(p.metaRecords(), params.Filters)

	// Stage 3: primary retrieval.
	candidateCount := limit
	if candidateCount < 100 {
		candidateCount = 100
	}

	var bm25Results []*store.LexicalResult
	var denseResults []*store.DenseResult
	var err error

	if params.Mode == ModeHybrid || params.Mode == ModeBM25Only {
		bm25Results, err = p.searchLexical(ctx, effectiveQuery, candidateCount, whitelist)
		if err != nil {
			return nil, err
		}
	}
	if params.Mode == ModeHybrid || params.Mode == ModeDenseOnly {
		denseResults, err = p.searchDense(ctx, effectiveQuery, candidateCount, whitelist)
		if err != nil {
			return nil, err
		}
	}

	// Stage 4: fusion (hybrid only; single-source modes pass through).
	var fused []*fusedCandidate
	switch params.Mode {
	case ModeHybrid:
		fused = fuseRRF(bm25Results, denseResults, DefaultRRFConstant)
	case ModeDenseOnly:
		fused = fuseRRF(nil, denseResults, DefaultRRFConstant)
	case ModeBM25Only:
		fused = fuseRRF(bm25Results, nil, DefaultRRFConstant)
	}

	results := p.enrich(fused)
	results = restrictToDocumentGranularity(results, params.ChunkingEnabled)

	// Stage 5: result-level filters.
	results = applyResultFilters(results, params.Filters)

	// Stage 6: chunk deduplication.
	results = dedupeByPath(results)

	// Stage 7: cross-encoder re-ranking.
	if params.Rerank && p.Reranker != nil && len(results) > 1 {
		results = p.rerank(ctx, effectiveQuery, results)
	}

	// Stage 8: time-decay boost.
	if params.TimeBoostEnabled && params.HalfLifeDays > 0 {
		results = applyTimeBoost(results, p.VaultRoot, params.HalfLifeDays, params.MaxBoost, time.Now())
	}

	// Stage 9: truncation.
	if len(results) > limit {
		results = results[:limit]
	}

	sanitizeScores(results)
	return results, nil
}

func shouldExpand(mode ExpandMode, query string) bool {
	switch mode {
	case ExpandOff:
		return false
	case ExpandOn:
		return true
	default: // ExpandAuto
		return wordCount(query) < 3
	}
}

// searchLexical overfetches when a whitelist is active, since LexicalIndex
// has no native whitelist parameter, then filters and truncates in memory.
func (p *Pipeline) searchLexical(ctx context.Context, query string, want int, whitelist map[string]bool) ([]*store.LexicalResult, error) {
	k := want
	if whitelist != nil {
		k = want * overfetchFactor
	}
	results, err := p.Lexical.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if whitelist == nil {
		return results, nil
	}
	return filterLexicalByWhitelist(results, p.Meta, whitelist, want), nil
}

func (p *Pipeline) searchDense(ctx context.Context, query string, want int, whitelist map[string]bool) ([]*store.DenseResult, error) {
	embedding, err := p.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	k := want
	if whitelist != nil {
		k = want * overfetchFactor
	}
	results, err := p.Dense.Search(ctx, embedding, k)
	if err != nil {
		return nil, err
	}
	if whitelist == nil {
		return results, nil
	}
	return filterDenseByWhitelist(results, p.Meta, whitelist, want), nil
}

func filterLexicalByWhitelist(results []*store.LexicalResult, meta *index.MetaStore, whitelist map[string]bool, want int) []*store.LexicalResult {
	out := make([]*store.LexicalResult, 0, want)
	for _, r := range results {
		m := meta.Get(r.DocID)
		if m == nil || !whitelist[m.DocPath] {
			continue
		}
		out = append(out, r)
		if len(out) == want {
			break
		}
	}
	return out
}

func filterDenseByWhitelist(results []*store.DenseResult, meta *index.MetaStore, whitelist map[string]bool, want int) []*store.DenseResult {
	out := make([]*store.DenseResult, 0, want)
	for _, r := range results {
		m := meta.Get(r.ChunkID)
		if m == nil || !whitelist[m.DocPath] {
			continue
		}
		out = append(out, r)
		if len(out) == want {
			break
		}
	}
	return out
}

// enrich attaches metadata to each fused candidate, dropping any chunk ID
// whose metadata record has since been deleted (a race between search and
// a concurrent reindex's eviction — rare, and never fatal to the query).
func (p *Pipeline) enrich(fused []*fusedCandidate) []*SearchResult {
	out := make([]*SearchResult, 0, len(fused))
	for _, c := range fused {
		m := p.Meta.Get(c.chunkID)
		if m == nil {
			continue
		}
		out = append(out, &SearchResult{
			ChunkID:           c.chunkID,
			DocPath:           m.DocPath,
			Ordinal:           m.Ordinal,
			Title:             m.Title,
			Body:              m.Body,
			Snippet:           snippet(m.Body, 240),
			Tags:              m.Tags,
			Status:            m.Status,
			Type:              m.Type,
			Frontmatter:       m.Frontmatter,
			CreatedDate:       m.CreatedDate,
			ModifiedDate:      m.ModifiedDate,
			Score:             c.rrfScore,
			BM25Score:         c.bm25Score,
			DenseScore:        c.denseScore,
			BM25Rank:          c.bm25Rank,
			DenseRank:         c.denseRank,
			InBothLists:       c.inBothLists,
		})
	}
	return out
}

func (p *Pipeline) metaRecords() []metaRecord {
	all := p.Meta.All()
	out := make([]metaRecord, len(all))
	for i, m := range all {
		out[i] = metaRecord{
			ChunkID: m.ChunkID,
			DocPath: m.DocPath,
			Tags:    m.Tags,
			Status:  m.Status,
			Type:    m.Type,
			Props:   m.Frontmatter,
		}
	}
	return out
}

// rerank forms (query, passage) pairs for up to 100 candidates, skipping
// any with empty passage text, scores them with the cross-encoder, and
// sorts by that score descending — overriding whatever ordering fusion or
// filtering produced.
func (p *Pipeline) rerank(ctx context.Context, query string, results []*SearchResult) []*SearchResult {
	limit := len(results)
	if limit > 100 {
		limit = 100
	}
	candidates := results[:limit]
	rest := results[limit:]

	docs := make([]string, 0, len(candidates))
	idxByDoc := make([]int, 0, len(candidates))
	for i, r := range candidates {
		if r.Body == "" {
			continue
		}
		docs = append(docs, r.Body)
		idxByDoc = append(idxByDoc, i)
	}
	if len(docs) == 0 {
		return results
	}

	rerankCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if !p.Reranker.Available(rerankCtx) {
		slog.Debug("reranker unavailable, keeping prior ordering")
		return results
	}

	scored, err := p.Reranker.Rerank(rerankCtx, query, docs)
	if err != nil {
		slog.Warn("rerank failed, keeping prior ordering", slog.String("error", err.Error()))
		return results
	}

	reordered := make([]*SearchResult, 0, len(candidates)+len(rest))
	for _, s := range scored {
		if s.Index < 0 || s.Index >= len(idxByDoc) {
			continue
		}
		r := candidates[idxByDoc[s.Index]]
		r.CrossEncoderScore = s.Score
		r.Score = s.Score
		r.Reranked = true
		reordered = append(reordered, r)
	}
	return append(reordered, rest...)
}

func snippet(body string, maxLen int) string {
	body = strings.TrimSpace(body)
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen] + "…"
}

// sanitizeScores replaces any non-finite score with 0 before the results
// leave the pipeline, so JSON encoding downstream never sees NaN or ±Inf.
func sanitizeScores(results []*SearchResult) {
	for _, r := range results {
		if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
			r.Score = 0
		}
		if math.IsNaN(r.CrossEncoderScore) || math.IsInf(r.CrossEncoderScore, 0) {
			r.CrossEncoderScore = 0
		}
	}
}
