package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants.
const (
	MinBatchSize      = 1
	MaxBatchSize      = 256
	DefaultBatchSize  = 32
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
)

// DefaultDimensions is the embedding dimension produced by the static,
// dependency-free Embedder. A real model adapter reports its own
// dimension; DenseStore treats it as opaque and simply requires every
// vector in a given store to agree with the manifest's embedding_dim.
const DefaultDimensions = 768

// Embedder generates vector embeddings for text. Temoa treats the
// embedding model as an external, swappable implementation detail: a
// vault's store records which Embedder produced it (model name and
// dimension) and refuses to mix vectors from two different models.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier recorded in a store's manifest.
	ModelName() string

	// Available reports whether the embedder can currently serve requests.
	Available(ctx context.Context) bool

	// Close releases any resources held by the embedder.
	Close() error
}

// normalizeVector normalizes a vector to unit length, leaving a zero
// vector unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
