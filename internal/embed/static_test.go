package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedderDimensions(t *testing.T) {
	e := NewStaticEmbedder(0)
	assert.Equal(t, DefaultDimensions, e.Dimensions())

	e2 := NewStaticEmbedder(128)
	assert.Equal(t, 128, e2.Dimensions())
}

func TestStaticEmbedderIsDeterministic(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	v3, err := e.Embed(ctx, "something entirely different")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v3)
}

func TestStaticEmbedderEmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(32)
	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, f := range v {
		assert.Zero(t, f)
	}
}

func TestStaticEmbedderEmbedBatchMatchesEmbed(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx := context.Background()
	texts := []string{"alpha note", "beta note", ""}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestStaticEmbedderCloseDisablesFurtherUse(t *testing.T) {
	e := NewStaticEmbedder(16)
	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))

	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestStaticEmbedderModelNameIncludesDimensions(t *testing.T) {
	e := NewStaticEmbedder(256)
	assert.Equal(t, "static-256", e.ModelName())
}
