package pipeline

import (
	"testing"

	"github.com/pborenstein/temoa/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lex(ids ...string) []*store.LexicalResult {
	out := make([]*store.LexicalResult, len(ids))
	for i, id := range ids {
		out[i] = &store.LexicalResult{DocID: id, Score: float64(len(ids) - i)}
	}
	return out
}

func dense(ids ...string) []*store.DenseResult {
	out := make([]*store.DenseResult, len(ids))
	for i, id := range ids {
		out[i] = &store.DenseResult{ChunkID: id, Score: float32(len(ids)-i) / float32(len(ids))}
	}
	return out
}

func TestFuseRRFRewardsDocumentsInBothLists(t *testing.T) {
	bm25 := lex("a", "b", "c")
	vec := dense("c", "a", "d")

	fused := fuseRRF(bm25, vec, 60)

	assert.True(t, fused[0].inBothLists)
	// "a" is at rank 1 bm25 / rank 2 dense; "c" at rank 3 bm25 / rank 1 dense.
	// a: 1/61 + 1/62; c: 1/63 + 1/61 -- a should lead.
	assert.Equal(t, "a", fused[0].chunkID)
}

func TestFuseRRFGivesNoCreditForAbsence(t *testing.T) {
	bm25 := lex("a")
	vec := dense("b")

	fused := fuseRRF(bm25, vec, 60)

	var scoreA, scoreB float64
	for _, f := range fused {
		if f.chunkID == "a" {
			scoreA = f.rrfScore
		}
		if f.chunkID == "b" {
			scoreB = f.rrfScore
		}
	}
	assert.Equal(t, 1.0/61.0, scoreA)
	assert.Equal(t, 1.0/61.0, scoreB)
}

func TestFuseRRFDeterministicTieBreak(t *testing.T) {
	// "a" and "z" tie exactly: both absent from one list, rank 1 in the other.
	bm25 := lex("z")
	vec := dense("a")

	fused := fuseRRF(bm25, vec, 60)

	require.Len(t, fused, 2)
	assert.Equal(t, fused[0].rrfScore, fused[1].rrfScore)
	assert.Equal(t, "a", fused[0].chunkID) // lexicographic tie-break
}
