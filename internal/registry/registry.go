// Package registry implements VaultRegistry: an LRU cache of Pipelines,
// keyed by (absolute vault path, embedding-model identifier), so repeated
// requests against the same vault amortize model loading and index reads
// instead of rebuilding a Pipeline per query.
package registry

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pborenstein/temoa/internal/pipeline"
)

// DefaultCapacity is the registry's default number of cached Pipelines.
const DefaultCapacity = 3

// Key identifies one cached Pipeline. Two requests against the same vault
// root but different embedding models get distinct cache slots, since their
// stores are not interchangeable.
type Key struct {
	VaultPath string
	Model     string
}

// Builder constructs a fresh Pipeline for a cache miss: loading the store,
// building or loading the LexicalIndex, and warming the embedding model.
type Builder func(ctx context.Context, key Key) (*pipeline.Pipeline, error)

// entry pairs a cached Pipeline with the lock that makes a reindex-swap
// atomic with respect to concurrent searches: readers hold the shared
// lock, a reindex holds the exclusive lock while swapping the Pipeline in.
type entry struct {
	mu       sync.RWMutex
	pipeline *pipeline.Pipeline
}

// Registry is a capacity-bounded LRU of Pipelines. Registry mutation
// (lookup-miss insertion, eviction) is serialized by mu; this serializes
// cold misses against unrelated keys too, but misses are rare relative to
// hits once a vault is warm, and the alternative (per-key double-checked
// locking) adds complexity this cache size (default 3) doesn't justify.
type Registry struct {
	mu    sync.Mutex
	cache *lru.Cache[Key, *entry]
	build Builder
}

// New constructs a Registry with the given capacity (0 means
// DefaultCapacity) and Builder. Eviction releases the evicted Pipeline's
// stores.
func New(capacity int, build Builder) (*Registry, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Registry{build: build}

	cache, err := lru.NewWithEvict[Key, *entry](capacity, func(_ Key, e *entry) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.pipeline == nil {
			return
		}
		_ = e.pipeline.Dense.Close()
		_ = e.pipeline.Lexical.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("create registry cache: %w", err)
	}
	r.cache = cache
	return r, nil
}

// getOrBuild returns the cached entry for key, building and inserting one
// on a miss. The registry lock is held for the duration of a cold build,
// so concurrent misses serialize — acceptable since a miss is already the
// slow path (store load, embedder warm-up).
func (r *Registry) getOrBuild(ctx context.Context, key Key) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.cache.Get(key); ok {
		return e, nil
	}

	p, err := r.build(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("build pipeline for %s (%s): %w", key.VaultPath, key.Model, err)
	}

	e := &entry{pipeline: p}
	r.cache.Add(key, e)
	return e, nil
}

// Search runs a query against the Pipeline cached for key, building it
// first if this is the first request for that vault/model pair. Held under
// the entry's shared lock, so it can run concurrently with other searches
// but waits out an in-flight reindex.
func (r *Registry) Search(ctx context.Context, key Key, query string, params pipeline.Params) ([]*pipeline.SearchResult, error) {
	e, err := r.getOrBuild(ctx, key)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.pipeline == nil {
		return nil, fmt.Errorf("vault %s has not been indexed yet", key.VaultPath)
	}
	return e.pipeline.Search(ctx, query, params)
}

// Reindex rebuilds the Pipeline cached for key under the entry's exclusive
// lock, so queries that started before the reindex see the prior version
// consistently and queries starting during it wait for the swap. rebuild
// receives the current Pipeline (nil on a first-ever index) and returns
// its replacement.
func (r *Registry) Reindex(ctx context.Context, key Key, rebuild func(ctx context.Context, old *pipeline.Pipeline) (*pipeline.Pipeline, error)) error {
	e, err := r.getOrBuildForReindex(ctx, key)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := rebuild(ctx, e.pipeline)
	if err != nil {
		return err
	}
	e.pipeline = next
	return nil
}

// getOrBuildForReindex returns the cache entry for key without forcing a
// build through r.build — a reindex for a vault with no cached Pipeline
// yet still needs an entry to hold the lock, but its Pipeline starts nil
// and is populated entirely by rebuild.
func (r *Registry) getOrBuildForReindex(_ context.Context, key Key) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.cache.Get(key); ok {
		return e, nil
	}
	e := &entry{}
	r.cache.Add(key, e)
	return e, nil
}

// Len reports the number of cached Pipelines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

// Evict removes a cached Pipeline for key, if present, releasing its
// stores. Used by tests and by an explicit "forget this vault" operation.
func (r *Registry) Evict(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(key)
}
