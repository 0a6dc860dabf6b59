// Package httpapi implements the HTTP surface: search, reindex,
// stats, health, and enumeration endpoints over a VaultRegistry, with a
// configurable CORS whitelist and per-endpoint sliding-window rate limits.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pborenstein/temoa/internal/chunk"
	"github.com/pborenstein/temoa/internal/config"
	"github.com/pborenstein/temoa/internal/embed"
	"github.com/pborenstein/temoa/internal/index"
	"github.com/pborenstein/temoa/internal/pipeline"
	"github.com/pborenstein/temoa/internal/registry"
	"github.com/pborenstein/temoa/internal/store"
	"github.com/pborenstein/temoa/internal/vault"
)

const storeDirName = ".temoa"

// Server wires the VaultRegistry, profile resolution, and rate limiters to
// chi's router. It holds no per-request state; everything it needs to
// answer a request lives in cfg or is looked up from registry.
type Server struct {
	cfg              *config.Config
	registry         *registry.Registry
	router           http.Handler
	defaultVaultName string
	startedAt        time.Time
	logger           *slog.Logger

	searchLimiter  *Limiter
	reindexLimiter *Limiter

	reindexing map[string]bool
}

// New constructs a Server. The registry's Builder is wired here so a
// search against a never-before-seen vault/model pair triggers an
// incremental build (which itself falls back to a full build for an
// unindexed vault) rather than failing.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:              cfg,
		defaultVaultName: defaultVaultName(cfg.Vault.Root),
		startedAt:        time.Now(),
		logger:           logger,
		searchLimiter:    NewLimiter(cfg.Server.RateLimit.SearchPerMinute, time.Minute),
		reindexLimiter:   NewLimiter(cfg.Server.RateLimit.ReindexPerMinute, time.Minute),
		reindexing:       make(map[string]bool),
	}

	// The Builder is a method value bound to s, so it can resolve vault
	// roots and per-config embedders once s's own fields (set above) are
	// in place, even though s.registry itself isn't assigned until below.
	reg, err := registry.New(cfg.Registry.Capacity, s.buildPipeline)
	if err != nil {
		return nil, fmt.Errorf("construct registry: %w", err)
	}
	s.registry = reg

	s.router = s.newRouter()
	return s, nil
}

func (s *Server) newRouter() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/health", s.handleHealth)
	mux.Get("/search", s.handleSearch)
	mux.Post("/reindex", s.handleReindex)
	mux.Get("/stats", s.handleStats)
	mux.Get("/vaults", s.handleVaults)
	mux.Get("/profiles", s.handleProfiles)
	mux.Get("/models", s.handleModels)
	mux.Get("/config", s.handleConfig)

	return mux
}

// ServeHTTP exposes the router so Server satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) storeDir(vaultRoot, model string) string {
	return filepath.Join(vaultRoot, storeDirName, model)
}

// excludedDirNames reduces the config's "**/name/**" glob-style exclusion
// patterns to the plain directory names vault.WithExcludedDirs expects.
func excludedDirNames(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.Trim(p, "*/")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// embedderFor constructs the configured embedding provider for a vault.
// Embedders are cheap HTTP-client wrappers, so a fresh one per build is
// simpler than threading a shared instance through the registry.
func (s *Server) embedderFor(ctx context.Context) (embed.Embedder, error) {
	provider := embed.ParseProvider(s.cfg.Embeddings.Provider)
	return embed.NewEmbedder(ctx, provider, s.cfg.Embeddings.Model)
}

// modelID is the on-disk store directory segment and registry cache key
// for the configured embedder, computed without constructing one: the
// static provider names itself "static-<dimensions>" regardless of the
// configured model string, so callers that only need to locate a store
// (stats, health, the registry key) must derive the same identifier the
// indexer's actual embedder will report from ModelName().
func (s *Server) modelID() string {
	if embed.ParseProvider(s.cfg.Embeddings.Provider) == embed.ProviderStatic {
		dim := s.cfg.Embeddings.Dimensions
		if dim <= 0 {
			dim = embed.DefaultDimensions
		}
		return fmt.Sprintf("static-%d", dim)
	}
	return s.cfg.Embeddings.Model
}

func (s *Server) newIndexer(ctx context.Context, vaultRoot string) (*index.Indexer, embed.Embedder, error) {
	embedder, err := s.embedderFor(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("construct embedder: %w", err)
	}

	v := &vault.Vault{Root: vaultRoot}
	reader := vault.NewReader(vault.WithExcludedDirs(excludedDirNames(s.cfg.Vault.Exclude)), vault.WithLogger(s.logger))
	chunkCfg := chunk.DefaultConfig()
	chunkCfg.Threshold = s.cfg.Chunking.Threshold
	chunkCfg.Size = s.cfg.Chunking.Size
	chunkCfg.Overlap = s.cfg.Chunking.Overlap

	ix := index.NewIndexer(v, reader, embedder, chunkCfg, s.storeDir(vaultRoot, s.modelID()))
	ix.BM25Cfg = store.BM25Config{
		K1:             s.cfg.Search.BM25K1,
		B:              s.cfg.Search.BM25B,
		TagBoost:       s.cfg.Search.TagBoostLambda,
		MinTokenLength: store.DefaultBM25Config().MinTokenLength,
	}
	ix.BatchSize = s.cfg.Embeddings.BatchSize
	return ix, embedder, nil
}

func (s *Server) reranker() pipeline.Reranker {
	if !s.cfg.Reranker.Enabled {
		return pipeline.NoOpReranker{}
	}
	return pipeline.NewHTTPReranker(pipeline.HTTPRerankerConfig{
		Endpoint: s.cfg.Reranker.Endpoint,
		Model:    s.cfg.Reranker.Model,
		Timeout:  time.Duration(s.cfg.Reranker.TimeoutMS) * time.Millisecond,
	})
}

// buildPipeline is the registry.Builder for a cache miss: it loads (or, on
// a never-indexed vault, fully builds) the on-disk store via Incremental,
// which already implements "load store, rebuild LexicalIndex, warm
// embedder" as its no-op-change fast path.
func (s *Server) buildPipeline(ctx context.Context, key registry.Key) (*pipeline.Pipeline, error) {
	ix, embedder, err := s.newIndexer(ctx, key.VaultPath)
	if err != nil {
		return nil, err
	}

	result, err := ix.Incremental(ctx)
	if err != nil {
		return nil, err
	}

	return pipeline.NewPipeline(key.VaultPath, result.Dense, result.Lexical, result.Meta, embedder, s.reranker()), nil
}
