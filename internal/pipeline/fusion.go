package pipeline

import (
	"sort"

	"github.com/pborenstein/temoa/internal/store"
)

// DefaultRRFConstant is k in the reciprocal rank fusion formula.
const DefaultRRFConstant = 60

// fusedCandidate is one chunk's combined ranking after RRF, before
// enrichment with its metadata record.
type fusedCandidate struct {
	chunkID     string
	rrfScore    float64
	bm25Score   float64
	denseScore  float64
	bm25Rank    int // 1-indexed; 0 means absent from the BM25 list
	denseRank   int // 1-indexed; 0 means absent from the dense list
	inBothLists bool
}

// fuseRRF combines BM25 and dense result lists by reciprocal rank fusion:
// score(d) = sum over the sources d appears in of 1/(k+rank_source(d)).
// Unlike a weighted fusion, a source a document is absent from contributes
// nothing — there is no missing-rank surrogate and no post-hoc
// normalization. This is deliberately simpler than a weighted variant: the
// formula is parameter-free and scale-invariant across the two rankers.
func fuseRRF(bm25 []*store.LexicalResult, dense []*store.DenseResult, k int) []*fusedCandidate {
	byID := make(map[string]*fusedCandidate, len(bm25)+len(dense))

	order := func(id string) *fusedCandidate {
		c, ok := byID[id]
		if !ok {
			c = &fusedCandidate{chunkID: id}
			byID[id] = c
		}
		return c
	}

	for i, r := range bm25 {
		c := order(r.DocID)
		c.bm25Rank = i + 1
		c.bm25Score = r.Score
		c.rrfScore += 1.0 / float64(k+c.bm25Rank)
	}
	for i, r := range dense {
		c := order(r.ChunkID)
		c.denseRank = i + 1
		c.denseScore = float64(r.Score)
		c.rrfScore += 1.0 / float64(k+c.denseRank)
	}

	out := make([]*fusedCandidate, 0, len(byID))
	for _, c := range byID {
		c.inBothLists = c.bm25Rank > 0 && c.denseRank > 0
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].rrfScore != out[j].rrfScore {
			return out[i].rrfScore > out[j].rrfScore
		}
		return out[i].chunkID < out[j].chunkID // deterministic tie-break
	})
	return out
}
