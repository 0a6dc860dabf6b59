package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOllamaServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(OllamaModelListResponse{
			Models: []OllamaModelInfo{{Name: DefaultOllamaModel}},
		})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req OllamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var n int
		switch v := req.Input.(type) {
		case string:
			n = 1
		case []any:
			n = len(v)
		}
		embeddings := make([][]float64, n)
		for i := range embeddings {
			vec := make([]float64, dims)
			vec[0] = 1
			embeddings[i] = vec
		}
		_ = json.NewEncoder(w).Encode(OllamaEmbedResponse{Model: DefaultOllamaModel, Embeddings: embeddings})
	})
	return httptest.NewServer(mux)
}

func TestOllamaEmbedderDetectsDimensions(t *testing.T) {
	srv := newTestOllamaServer(t, 32)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.Timeout = 2 * time.Second
	cfg.ConnectTimeout = 2 * time.Second

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 32, e.Dimensions())
}

func TestOllamaEmbedderEmbedReturnsNormalizedVector(t *testing.T) {
	srv := newTestOllamaServer(t, 8)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.Timeout = 2 * time.Second
	cfg.ConnectTimeout = 2 * time.Second

	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	v, err := e.Embed(context.Background(), "hello vault")
	require.NoError(t, err)
	assert.Len(t, v, 8)
	assert.InDelta(t, 1.0, v[0], 0.0001)
}

func TestOllamaEmbedderEmbedEmptyTextSkipsNetwork(t *testing.T) {
	cfg := DefaultOllamaConfig()
	cfg.SkipHealthCheck = true
	cfg.Dimensions = 16
	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, v, 16)
	for _, f := range v {
		assert.Zero(t, f)
	}
}

func TestOllamaEmbedderCloseIsIdempotent(t *testing.T) {
	cfg := DefaultOllamaConfig()
	cfg.SkipHealthCheck = true
	cfg.Dimensions = 16
	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Embed(context.Background(), "text")
	assert.Error(t, err)
}
