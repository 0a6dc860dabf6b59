package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// RerankResult is one scored (query, passage) pair. Index refers back into
// the documents slice the caller passed to Rerank.
type RerankResult struct {
	Index int
	Score float64
}

// Reranker scores (query, passage) pairs with a cross-encoder model, which
// jointly encodes the pair for more accurate relevance judgments than a
// bi-encoder's separately-computed similarity — at the cost of one model
// call per candidate instead of one per query.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error)
	Available(ctx context.Context) bool
	Close() error
}

// NoOpReranker returns documents in their original order with strictly
// decreasing scores. Used when reranking is disabled.
type NoOpReranker struct{}

func (NoOpReranker) Rerank(_ context.Context, _ string, documents []string) ([]RerankResult, error) {
	out := make([]RerankResult, len(documents))
	for i := range documents {
		out[i] = RerankResult{Index: i, Score: 1.0 - float64(i)*0.001}
	}
	return out, nil
}

func (NoOpReranker) Available(context.Context) bool { return true }
func (NoOpReranker) Close() error                   { return nil }

var _ Reranker = NoOpReranker{}

// HTTPRerankerConfig configures a cross-encoder server reached over HTTP.
type HTTPRerankerConfig struct {
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// DefaultHTTPRerankerConfig returns sensible defaults for a locally-hosted
// cross-encoder server.
func DefaultHTTPRerankerConfig() HTTPRerankerConfig {
	return HTTPRerankerConfig{
		Endpoint: "http://localhost:9659",
		Model:    "reranker-small",
		Timeout:  1 * time.Second,
	}
}

// HTTPReranker calls a local cross-encoder server's /rerank endpoint. It is
// a thin client: the pipeline's re-rank stage owns the candidate-count cap
// and empty-passage skip described by the query stage graph; this type only
// knows how to score a batch of (query, document) pairs.
type HTTPReranker struct {
	client *http.Client
	config HTTPRerankerConfig
}

var _ Reranker = (*HTTPReranker)(nil)

// NewHTTPReranker constructs a reranker client. It does not perform a
// health check; callers should call Available before relying on it.
func NewHTTPReranker(cfg HTTPRerankerConfig) *HTTPReranker {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultHTTPRerankerConfig().Endpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultHTTPRerankerConfig().Timeout
	}
	return &HTTPReranker{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Rerank scores every document against query in a single request.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Documents: documents, Model: r.config.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank server returned %d: %s", resp.StatusCode, string(b))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	out := make([]RerankResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, RerankResult{Index: r.Index, Score: r.Score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Available reports whether the cross-encoder server answers a health
// check within 2 seconds.
func (r *HTTPReranker) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.Endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close releases the underlying HTTP client's idle connections.
func (r *HTTPReranker) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
