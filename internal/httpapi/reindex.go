package httpapi

import (
	"context"
	"errors"

	"github.com/pborenstein/temoa/internal/index"
	"github.com/pborenstein/temoa/internal/pipeline"
	"github.com/pborenstein/temoa/internal/registry"
)

var (
	errRateLimited       = errors.New("rate limit exceeded")
	errReindexInProgress = errors.New("a reindex for this vault is already in progress")
)

// doReindex runs a full or incremental build for key and swaps the
// resulting Pipeline into the registry under its exclusive per-key lock,
// so concurrent searches see either the prior version or the new one
// atomically — never a mix.
func (s *Server) doReindex(ctx context.Context, key registry.Key, force bool) (index.Stats, error) {
	var stats index.Stats

	err := s.registry.Reindex(ctx, key, func(ctx context.Context, old *pipeline.Pipeline) (*pipeline.Pipeline, error) {
		ix, embedder, err := s.newIndexer(ctx, key.VaultPath)
		if err != nil {
			return old, err
		}

		var result *index.BuildResult
		if force {
			result, err = ix.Full(ctx)
		} else {
			result, err = ix.Incremental(ctx)
		}
		if err != nil {
			return old, err
		}

		stats = result.Stats
		return pipeline.NewPipeline(key.VaultPath, result.Dense, result.Lexical, result.Meta, embedder, s.reranker()), nil
	})
	if err != nil {
		return index.Stats{}, err
	}
	return stats, nil
}
