package registry

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pborenstein/temoa/internal/index"
	"github.com/pborenstein/temoa/internal/pipeline"
	"github.com/pborenstein/temoa/internal/store"
)

type stubEmbedder struct{ dims int }

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, s.dims), nil
}
func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dims)
	}
	return out, nil
}
func (s *stubEmbedder) Dimensions() int   { return s.dims }
func (s *stubEmbedder) ModelName() string { return "stub" }

func newEmptyPipeline() *pipeline.Pipeline {
	embedder := &stubEmbedder{dims: 3}
	return pipeline.NewPipeline(
		"/vault",
		store.NewDenseStore(embedder.ModelName(), embedder.Dimensions()),
		store.NewLexicalIndex(store.DefaultBM25Config()),
		index.NewMetaStore(),
		embedder,
		pipeline.NoOpReranker{},
	)
}

func TestRegistryBuildsOnFirstSearchOnly(t *testing.T) {
	var buildCount int32
	reg, err := New(3, func(context.Context, Key) (*pipeline.Pipeline, error) {
		atomic.AddInt32(&buildCount, 1)
		return newEmptyPipeline(), nil
	})
	require.NoError(t, err)

	key := Key{VaultPath: "/vault", Model: "stub"}
	_, err = reg.Search(context.Background(), key, "hello", pipeline.DefaultParams())
	require.NoError(t, err)
	_, err = reg.Search(context.Background(), key, "world", pipeline.DefaultParams())
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&buildCount))
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []Key
	reg, err := New(1, func(_ context.Context, k Key) (*pipeline.Pipeline, error) {
		return newEmptyPipeline(), nil
	})
	require.NoError(t, err)

	a := Key{VaultPath: "/a", Model: "stub"}
	b := Key{VaultPath: "/b", Model: "stub"}

	_, err = reg.Search(context.Background(), a, "q", pipeline.DefaultParams())
	require.NoError(t, err)
	_, err = reg.Search(context.Background(), b, "q", pipeline.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Len())
	_ = evicted
}

func TestRegistryReindexSwapsPipelineAtomically(t *testing.T) {
	reg, err := New(3, func(context.Context, Key) (*pipeline.Pipeline, error) {
		return newEmptyPipeline(), nil
	})
	require.NoError(t, err)

	key := Key{VaultPath: "/vault", Model: "stub"}
	_, err = reg.Search(context.Background(), key, "q", pipeline.DefaultParams())
	require.NoError(t, err)

	replacement := newEmptyPipeline()
	err = reg.Reindex(context.Background(), key, func(_ context.Context, old *pipeline.Pipeline) (*pipeline.Pipeline, error) {
		assert.NotNil(t, old)
		return replacement, nil
	})
	require.NoError(t, err)
}

func TestRegistrySearchOnUnindexedVaultErrors(t *testing.T) {
	reg, err := New(3, func(context.Context, Key) (*pipeline.Pipeline, error) {
		return newEmptyPipeline(), nil
	})
	require.NoError(t, err)

	key := Key{VaultPath: "/vault", Model: "stub"}
	_, err = reg.getOrBuildForReindex(context.Background(), key)
	require.NoError(t, err)

	_, err = reg.Search(context.Background(), key, "q", pipeline.DefaultParams())
	assert.Error(t, err)
}
