package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pborenstein/temoa/internal/index"
	"github.com/pborenstein/temoa/internal/store"
)

// fixedEmbedder maps known phrases to orthogonal unit vectors so dense
// search behaves predictably in tests, without depending on a real model.
type fixedEmbedder struct {
	dims int
	vecs map[string][]float32
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vecs[text]; ok {
		return v, nil
	}
	// default: a generic vector distinct from any fixture.
	v := make([]float32, f.dims)
	v[0] = 1
	return v, nil
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int   { return f.dims }
func (f *fixedEmbedder) ModelName() string { return "fixed-test" }

func buildTestPipeline(t *testing.T) (*Pipeline, *fixedEmbedder) {
	t.Helper()

	embedder := &fixedEmbedder{
		dims: 3,
		vecs: map[string][]float32{
			"gardening tips for spring":      {1, 0, 0},
			"quarterly planning notes":       {0, 1, 0},
			"gardening tips for spring query": {1, 0, 0},
		},
	}

	dense := store.NewDenseStore(embedder.ModelName(), embedder.Dimensions())
	lexical := store.NewLexicalIndex(store.DefaultBM25Config())
	meta := index.NewMetaStore()

	ctx := context.Background()
	docs := []struct {
		id, path, body, status, typ string
		tags                        []string
	}{
		{"garden.md#0", "garden.md", "gardening tips for spring", "active", "note", []string{"garden"}},
		{"work.md#0", "work.md", "quarterly planning notes", "active", "note", []string{"work"}},
	}

	for _, d := range docs {
		vec, err := embedder.Embed(ctx, d.body)
		require.NoError(t, err)
		require.NoError(t, dense.Add(ctx, []store.DenseVector{{ChunkID: d.id, DocPath: d.path, Vector: vec}}))
		require.NoError(t, lexical.Index(ctx, []*store.Document{{ID: d.id, Content: d.body, Tags: d.tags}}))
		meta.Put([]*index.ChunkMeta{{
			ChunkID: d.id, DocPath: d.path, Title: d.path, Body: d.body,
			Tags: d.tags, Status: d.status, Type: d.typ,
			ModifiedDate: time.Now(),
		}})
	}

	return NewPipeline("/vault", dense, lexical, meta, embedder, NoOpReranker{}), embedder
}

func TestPipelineSearchHybridReturnsBestMatchFirst(t *testing.T) {
	p, _ := buildTestPipeline(t)

	params := DefaultParams()
	params.Expand = ExpandOff
	params.Rerank = false
	params.TimeBoostEnabled = false

	results, err := p.Search(context.Background(), "gardening tips for spring query", params)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "garden.md", results[0].DocPath)
}

func TestPipelineSearchAppliesResultFilters(t *testing.T) {
	p, _ := buildTestPipeline(t)

	params := DefaultParams()
	params.Expand = ExpandOff
	params.Rerank = false
	params.TimeBoostEnabled = false
	params.Filters = ResultFilters{IncludeTags: []string{"work"}}

	results, err := p.Search(context.Background(), "gardening tips for spring query", params)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "work.md", r.DocPath)
	}
}

func TestPipelineSearchEmptyQueryReturnsNil(t *testing.T) {
	p, _ := buildTestPipeline(t)
	results, err := p.Search(context.Background(), "   ", DefaultParams())
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestPipelineSearchBM25OnlyMode(t *testing.T) {
	p, _ := buildTestPipeline(t)

	params := DefaultParams()
	params.Mode = ModeBM25Only
	params.Expand = ExpandOff
	params.Rerank = false
	params.TimeBoostEnabled = false

	results, err := p.Search(context.Background(), "quarterly planning", params)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "work.md", results[0].DocPath)
}
