package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpRerankerPreservesOrderWithDecreasingScores(t *testing.T) {
	r := NoOpReranker{}
	results, err := r.Rerank(context.Background(), "q", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestHTTPRerankerUnavailableWhenUnreachable(t *testing.T) {
	r := NewHTTPReranker(HTTPRerankerConfig{Endpoint: "http://127.0.0.1:1"})
	assert.False(t, r.Available(context.Background()))
}
