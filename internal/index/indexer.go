// Package index orchestrates full and incremental builds of a vault's
// on-disk search store: change detection, the ordered delete/append
// merge, and the from-scratch lexical rebuild.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pborenstein/temoa/internal/chunk"
	temoaerrors "github.com/pborenstein/temoa/internal/errors"
	"github.com/pborenstein/temoa/internal/store"
	"github.com/pborenstein/temoa/internal/vault"
)

const (
	denseFileName    = "dense.gob"
	lexicalFileName  = "lexical.gob"
	metaFileName     = "meta.gob"
	manifestFileName = "manifest.json"
)

// Indexer builds and maintains one vault's on-disk store.
type Indexer struct {
	Vault     *vault.Vault
	Reader    *vault.Reader
	Embedder  Embedder
	ChunkCfg  chunk.Config
	StoreDir  string
	BM25Cfg   store.BM25Config
	BatchSize int
}

// Embedder is the subset of embed.Embedder the Indexer depends on,
// declared locally to avoid importing internal/embed's provider
// machinery into this package's surface.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// NewIndexer constructs an Indexer. BatchSize defaults to 32 when zero.
func NewIndexer(v *vault.Vault, reader *vault.Reader, embedder Embedder, chunkCfg chunk.Config, storeDir string) *Indexer {
	return &Indexer{
		Vault:     v,
		Reader:    reader,
		Embedder:  embedder,
		ChunkCfg:  chunkCfg,
		StoreDir:  storeDir,
		BM25Cfg:   store.DefaultBM25Config(),
		BatchSize: 32,
	}
}

func (ix *Indexer) batchSize() int {
	if ix.BatchSize > 0 {
		return ix.BatchSize
	}
	return 32
}

func (ix *Indexer) paths() (dense, lexical, meta, manifest string) {
	return filepath.Join(ix.StoreDir, denseFileName),
		filepath.Join(ix.StoreDir, lexicalFileName),
		filepath.Join(ix.StoreDir, metaFileName),
		filepath.Join(ix.StoreDir, manifestFileName)
}

// Full reads the entire vault, embeds every chunk, and writes a fresh
// store, discarding whatever was there before.
func (ix *Indexer) Full(ctx context.Context) (*BuildResult, error) {
	start := time.Now()

	docs, err := ix.Reader.ReadVault(ctx, ix.Vault)
	if err != nil {
		return nil, err
	}

	dense := store.NewDenseStore(ix.Embedder.ModelName(), ix.Embedder.Dimensions())
	meta := NewMetaStore()

	fileModTimes := make(map[string]time.Time, len(docs))
	for _, doc := range docs {
		fileModTimes[doc.RelPath] = doc.ModifiedDate
		if err := ix.embedDocument(ctx, doc, dense, meta); err != nil {
			return nil, err
		}
	}

	lexical := ix.rebuildLexical(ctx, meta)

	manifest := Manifest{
		VaultPath:      ix.Vault.Root,
		EmbeddingModel: ix.Embedder.ModelName(),
		Dimensions:     ix.Embedder.Dimensions(),
		CreatedAt:      start,
		IndexedAt:      start,
		NumEmbeddings:  dense.Count(),
		FileModTimes:   fileModTimes,
	}

	if err := ix.save(dense, lexical, meta, manifest); err != nil {
		return nil, err
	}

	return &BuildResult{
		Dense: dense, Lexical: lexical, Meta: meta, Manifest: manifest,
		Stats: Stats{New: len(docs), Total: dense.Count(), Duration: time.Since(start)},
	}, nil
}

// Incremental detects changes since the last build and merges them into
// the existing store. It falls back to Full when no usable prior store
// exists, the embedding model has changed, or the loaded store fails a
// basic consistency check.
func (ix *Indexer) Incremental(ctx context.Context) (*BuildResult, error) {
	start := time.Now()
	densePath, lexicalPath, metaPath, manifestPath := ix.paths()

	manifest, err := loadManifest(manifestPath)
	if err != nil {
		slog.Debug("no usable manifest, falling back to full build", "error", err)
		return ix.Full(ctx)
	}
	if manifest.EmbeddingModel != ix.Embedder.ModelName() || manifest.Dimensions != ix.Embedder.Dimensions() {
		slog.Info("embedding model changed, falling back to full build",
			"manifest_model", manifest.EmbeddingModel, "current_model", ix.Embedder.ModelName())
		return ix.Full(ctx)
	}

	dense := store.NewDenseStore(manifest.EmbeddingModel, manifest.Dimensions)
	if err := dense.Load(densePath); err != nil {
		slog.Debug("dense store unreadable, falling back to full build", "error", err)
		return ix.Full(ctx)
	}
	meta := NewMetaStore()
	if err := meta.Load(metaPath); err != nil {
		slog.Debug("metadata store unreadable, falling back to full build", "error", err)
		return ix.Full(ctx)
	}
	if dense.Count() != meta.Count() {
		slog.Warn("store-length invariant violated, falling back to full build",
			"dense_count", dense.Count(), "meta_count", meta.Count())
		return ix.Full(ctx)
	}

	docs, err := ix.Reader.ReadVault(ctx, ix.Vault)
	if err != nil {
		return nil, err
	}
	docByPath := make(map[string]*vault.Document, len(docs))
	currentModTimes := make(map[string]time.Time, len(docs))
	for _, doc := range docs {
		docByPath[doc.RelPath] = doc
		currentModTimes[doc.RelPath] = doc.ModifiedDate
	}

	var newPaths, modifiedPaths, deletedPaths []string
	for path, mtime := range currentModTimes {
		if prior, tracked := manifest.FileModTimes[path]; !tracked {
			newPaths = append(newPaths, path)
		} else if !prior.Equal(mtime) {
			modifiedPaths = append(modifiedPaths, path)
		}
	}
	for path := range manifest.FileModTimes {
		if _, stillPresent := currentModTimes[path]; !stillPresent {
			deletedPaths = append(deletedPaths, path)
		}
	}

	if len(newPaths) == 0 && len(modifiedPaths) == 0 && len(deletedPaths) == 0 {
		lexical, err := loadLexical(lexicalPath, ix.BM25Cfg)
		if err != nil {
			lexical = ix.rebuildLexical(ctx, meta)
		}
		return &BuildResult{
			Dense: dense, Lexical: lexical, Meta: meta, Manifest: manifest,
			Stats: Stats{Total: dense.Count(), Duration: time.Since(start)},
		}, nil
	}

	// Step 1 (delete): deleted and modified paths both lose their current
	// chunks. DenseStore and MetaStore key by chunk ID rather than row
	// position, so removal order never matters here — the "sort
	// descending" position bookkeeping the merge-order algorithm
	// describes is an artifact of manipulating a raw array directly,
	// which this ID-keyed API already subsumes.
	for _, path := range deletedPaths {
		if err := dense.DeleteByPath(ctx, path); err != nil {
			return nil, temoaerrors.Index("failed to delete chunks for removed file", err)
		}
		meta.DeleteByPath(path)
	}
	for _, path := range modifiedPaths {
		if err := dense.DeleteByPath(ctx, path); err != nil {
			return nil, temoaerrors.Index("failed to delete chunks for modified file", err)
		}
		meta.DeleteByPath(path)
	}

	// Step 2 (update in place) is skipped: modified files are always
	// treated as delete+append, which is correctness-equivalent to an
	// in-place overwrite and considerably simpler.

	// Step 3 (append): new files and modified files' re-embedded chunks.
	for _, path := range append(append([]string{}, newPaths...), modifiedPaths...) {
		doc := docByPath[path]
		if err := ix.embedDocument(ctx, doc, dense, meta); err != nil {
			return nil, err
		}
	}

	// LexicalIndex has no incremental update path; it is always rebuilt
	// from the final, fully-merged metadata set.
	lexical := ix.rebuildLexical(ctx, meta)

	manifest.IndexedAt = start
	manifest.NumEmbeddings = dense.Count()
	manifest.FileModTimes = currentModTimes

	if err := ix.save(dense, lexical, meta, manifest); err != nil {
		return nil, err
	}

	return &BuildResult{
		Dense: dense, Lexical: lexical, Meta: meta, Manifest: manifest,
		Stats: Stats{
			New: len(newPaths), Modified: len(modifiedPaths), Deleted: len(deletedPaths),
			Total: dense.Count(), Duration: time.Since(start),
		},
	}, nil
}

// embedDocument chunks a single document, embeds its chunks in batches,
// and adds the results to dense and meta.
func (ix *Indexer) embedDocument(ctx context.Context, doc *vault.Document, dense *store.DenseStore, meta *MetaStore) error {
	if doc == nil || doc.Unreadable {
		return nil
	}

	chunks := chunk.Split(doc.RelPath, doc.Body, ix.ChunkCfg)
	if len(chunks) == 0 {
		return nil
	}

	batch := ix.batchSize()
	for start := 0; start < len(chunks); start += batch {
		end := min(start+batch, len(chunks))
		slice := chunks[start:end]

		texts := make([]string, len(slice))
		for i, c := range slice {
			texts[i] = c.Body
		}
		vectors, err := ix.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return temoaerrors.Index("failed to embed chunks for "+doc.RelPath, err)
		}

		denseVecs := make([]store.DenseVector, len(slice))
		metas := make([]*ChunkMeta, len(slice))
		for i, c := range slice {
			chunkID := fmt.Sprintf("%s#%d", doc.RelPath, c.Ordinal)
			denseVecs[i] = store.DenseVector{ChunkID: chunkID, DocPath: doc.RelPath, Vector: vectors[i]}
			metas[i] = &ChunkMeta{
				ChunkID: chunkID, DocPath: doc.RelPath, Ordinal: c.Ordinal,
				Title: doc.Title, Body: c.Body, Tags: doc.Tags, Frontmatter: doc.Frontmatter,
				Status: string(doc.Status), Type: doc.Type,
				CreatedDate: doc.CreatedDate, ModifiedDate: doc.ModifiedDate, ContentLength: doc.ContentLength,
			}
		}

		if err := dense.Add(ctx, denseVecs); err != nil {
			return temoaerrors.Index("failed to add embeddings for "+doc.RelPath, err)
		}
		meta.Put(metas)
	}

	return nil
}

// rebuildLexical constructs a fresh LexicalIndex over every chunk
// currently in meta. The lexical index is always rebuilt from
// scratch; there is no incremental lexical update path.
func (ix *Indexer) rebuildLexical(ctx context.Context, meta *MetaStore) *store.LexicalIndex {
	lexical := store.NewLexicalIndex(ix.BM25Cfg)
	all := meta.All()
	docs := make([]*store.Document, len(all))
	for i, c := range all {
		docs[i] = &store.Document{ID: c.ChunkID, Content: c.Body, Tags: c.Tags}
	}
	if err := lexical.Index(ctx, docs); err != nil {
		slog.Error("lexical rebuild failed", "error", err)
	}
	return lexical
}

// save persists all three stores and the manifest, guarded by a
// cross-process save lock on the store directory. Refuses to write when
// an existing on-disk manifest names a different vault path than the one
// being saved — this is the only thing standing between a misconfigured
// shared StoreDir and silently clobbering another vault's index.
func (ix *Indexer) save(dense *store.DenseStore, lexical *store.LexicalIndex, meta *MetaStore, manifest Manifest) error {
	lock, err := store.NewSaveLock(ix.StoreDir)
	if err != nil {
		return temoaerrors.Index("failed to acquire save lock", err)
	}
	if err := lock.Lock(); err != nil {
		return temoaerrors.Index("failed to acquire save lock", err)
	}
	defer lock.Unlock()

	densePath, lexicalPath, metaPath, manifestPath := ix.paths()

	if existing, err := loadManifest(manifestPath); err == nil && existing.VaultPath != "" && existing.VaultPath != manifest.VaultPath {
		return temoaerrors.Index(fmt.Sprintf(
			"refusing to save: store at %s belongs to vault %s, not %s",
			ix.StoreDir, existing.VaultPath, manifest.VaultPath), nil)
	}

	if err := dense.Save(densePath); err != nil {
		return temoaerrors.Index("failed to save dense store", err)
	}
	if err := lexical.Save(lexicalPath); err != nil {
		return temoaerrors.Index("failed to save lexical index", err)
	}
	if err := meta.Save(metaPath); err != nil {
		return temoaerrors.Index("failed to save metadata store", err)
	}
	if err := saveManifest(manifestPath, manifest); err != nil {
		return temoaerrors.Index("failed to save manifest", err)
	}
	return nil
}

func saveManifest(path string, m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func loadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}

func loadLexical(path string, cfg store.BM25Config) (*store.LexicalIndex, error) {
	lexical := store.NewLexicalIndex(cfg)
	if err := lexical.Load(path); err != nil {
		return nil, err
	}
	return lexical, nil
}
