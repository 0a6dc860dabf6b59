package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	temoaerrors "github.com/pborenstein/temoa/internal/errors"
	"github.com/pborenstein/temoa/internal/index"
	"github.com/pborenstein/temoa/internal/pipeline"
	"github.com/pborenstein/temoa/internal/profile"
	"github.com/pborenstein/temoa/internal/registry"
)

var reindexMu sync.Mutex

func clientIdentity(r *http.Request) string {
	if ip := r.RemoteAddr; ip != "" {
		if host, _, err := splitHostPort(ip); err == nil {
			return host
		}
		return ip
	}
	return "unknown"
}

func splitHostPort(addr string) (string, string, error) {
	return netSplitHostPort(addr)
}

func (s *Server) registryKey(vaultRoot string) registry.Key {
	return registry.Key{VaultPath: vaultRoot, Model: s.modelID()}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info, err := s.resolveVault(r.URL.Query().Get("vault"))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"model":    s.cfg.Embeddings.Model,
			"uptime_s": int(time.Since(s.startedAt).Seconds()),
		})
		return
	}

	manifest, _ := s.readManifest(info.Root)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"model":         s.cfg.Embeddings.Model,
		"files_indexed": len(manifest.FileModTimes),
		"uptime_s":      int(time.Since(s.startedAt).Seconds()),
	})
}

// SearchVault runs a search against vaultName (empty for the default
// vault) outside of an HTTP request, for the CLI's `temoa search`
// command — it shares the registry/pipeline path handleSearch uses, so
// the CLI and the HTTP surface never disagree about how a query runs.
func (s *Server) SearchVault(ctx context.Context, vaultName, query string, params pipeline.Params) ([]*pipeline.SearchResult, error) {
	info, err := s.resolveVault(vaultName)
	if err != nil {
		return nil, err
	}
	return s.registry.Search(ctx, s.registryKey(info.Root), query, params)
}

// ReindexVault runs a full or incremental build against vaultName outside
// of an HTTP request, for the CLI's `temoa reindex` command.
func (s *Server) ReindexVault(ctx context.Context, vaultName string, force bool) (index.Stats, error) {
	info, err := s.resolveVault(vaultName)
	if err != nil {
		return index.Stats{}, err
	}
	return s.doReindex(ctx, s.registryKey(info.Root), force)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !s.searchLimiter.Allow(clientIdentity(r)) {
		writeError(w, http.StatusTooManyRequests, errRateLimited)
		return
	}

	req := parseSearchRequest(r)
	info, err := s.resolveVault(req.Vault)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	params := resolveParams(req)
	results, err := s.registry.Search(r.Context(), s.registryKey(info.Root), req.Query, params)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if !s.reindexLimiter.Allow(clientIdentity(r)) {
		writeError(w, http.StatusTooManyRequests, errRateLimited)
		return
	}

	q := r.URL.Query()
	info, err := s.resolveVault(q.Get("vault"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	force, _ := strconv.ParseBool(q.Get("force"))

	key := s.registryKey(info.Root)
	lockKey := key.VaultPath + "|" + key.Model

	reindexMu.Lock()
	if s.reindexing[lockKey] {
		reindexMu.Unlock()
		writeError(w, http.StatusServiceUnavailable, errReindexInProgress)
		return
	}
	s.reindexing[lockKey] = true
	reindexMu.Unlock()
	defer func() {
		reindexMu.Lock()
		delete(s.reindexing, lockKey)
		reindexMu.Unlock()
	}()

	stats, err := s.doReindex(r.Context(), key, force)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"new":         stats.New,
		"modified":    stats.Modified,
		"deleted":     stats.Deleted,
		"total":       stats.Total,
		"duration_ms": stats.Duration.Milliseconds(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.VaultStats(r.URL.Query().Get("vault"))
	if err != nil {
		if _, ok := err.(*errUnknownVault); ok {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, temoaerrors.Index("failed to read vault stats", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// VaultStats reports file/embedding/tag counts for vaultName, for the
// /stats endpoint and the CLI's `temoa stats` command.
func (s *Server) VaultStats(vaultName string) (map[string]any, error) {
	info, err := s.resolveVault(vaultName)
	if err != nil {
		return nil, err
	}

	manifest, err := s.readManifest(info.Root)
	if err != nil {
		return nil, err
	}

	dirs := make(map[string]struct{})
	for relPath := range manifest.FileModTimes {
		dirs[filepath.Dir(relPath)] = struct{}{}
	}

	tagCount := 0
	if meta, err := s.readMeta(info.Root); err == nil {
		tags := make(map[string]struct{})
		for _, c := range meta.All() {
			for _, t := range c.Tags {
				tags[t] = struct{}{}
			}
		}
		tagCount = len(tags)
	}

	return map[string]any{
		"file_count":      len(manifest.FileModTimes),
		"embedding_count": manifest.NumEmbeddings,
		"tag_count":       tagCount,
		"directory_count": len(dirs),
		"model_id":        manifest.EmbeddingModel,
		"dimension":       manifest.Dimensions,
		"created_at":      manifest.CreatedAt,
	}, nil
}

func (s *Server) handleVaults(w http.ResponseWriter, r *http.Request) {
	vaults := s.vaultList()
	out := make([]map[string]string, 0, len(vaults))
	for _, v := range vaults {
		out = append(out, map[string]string{"name": v.Name, "root": v.Root})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	names := profile.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"provider":   s.cfg.Embeddings.Provider,
		"model":      s.cfg.Embeddings.Model,
		"dimensions": s.cfg.Embeddings.Dimensions,
		"reranker": map[string]any{
			"enabled": s.cfg.Reranker.Enabled,
			"model":   s.cfg.Reranker.Model,
		},
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg)
}

// readManifest loads the on-disk manifest for vaultRoot under the
// currently-configured embedding model, for the /stats and /health
// endpoints. It does not require the vault to be in the registry's cache.
func (s *Server) readManifest(vaultRoot string) (index.Manifest, error) {
	path := filepath.Join(s.storeDir(vaultRoot, s.modelID()), "manifest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return index.Manifest{}, err
	}
	var m index.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return index.Manifest{}, err
	}
	return m, nil
}

// readMeta loads the per-chunk metadata store for vaultRoot, for /stats'
// tag_count — the manifest alone doesn't carry tag information.
func (s *Server) readMeta(vaultRoot string) (*index.MetaStore, error) {
	path := filepath.Join(s.storeDir(vaultRoot, s.modelID()), "meta.gob")
	m := index.NewMetaStore()
	if err := m.Load(path); err != nil {
		return nil, err
	}
	return m, nil
}
