package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderDefaultsToOllama(t *testing.T) {
	assert.Equal(t, ProviderOllama, ParseProvider("unknown"))
	assert.Equal(t, ProviderStatic, ParseProvider("static"))
	assert.Equal(t, ProviderOllama, ParseProvider("OLLAMA"))
}

func TestIsValidProvider(t *testing.T) {
	assert.True(t, IsValidProvider("static"))
	assert.True(t, IsValidProvider("ollama"))
	assert.False(t, IsValidProvider("mlx"))
}

func TestNewEmbedderStaticProviderWraps(t *testing.T) {
	t.Setenv("TEMOA_EMBED_CACHE", "false")
	e, err := NewEmbedder(context.Background(), ProviderStatic, "")
	require.NoError(t, err)
	defer e.Close()

	info := GetInfo(context.Background(), e)
	assert.Equal(t, ProviderStatic, info.Provider)
	assert.Equal(t, DefaultDimensions, info.Dimensions)
}

func TestNewEmbedderCachingEnabledByDefault(t *testing.T) {
	e, err := NewEmbedder(context.Background(), ProviderStatic, "")
	require.NoError(t, err)
	defer e.Close()

	_, ok := e.(*CachedEmbedder)
	assert.True(t, ok)
}
