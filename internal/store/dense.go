package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// DenseManifest records the embedding model a DenseStore was built with.
// A vector whose dimension differs from the manifest is rejected rather
// than silently mixed in, since cosine distances across two different
// embedding spaces aren't comparable. DenseVector carries no model name,
// so Add checks the dimension only; the model name is not compared.
type DenseManifest struct {
	EmbeddingModel string
	Dimensions     int
}

type denseRow struct {
	ChunkID string
	DocPath string
}

// DenseStore holds embedding vectors in a flat row-major matrix — the
// store's source of truth — alongside parallel per-row metadata and a
// file_tracking index from document path to that document's row
// positions. An HNSW graph is built over the matrix lazily to accelerate
// search; it is rebuilt from scratch on Load and after any mutation,
// never persisted itself, so a corrupted or stale graph can never take
// the place of the matrix as ground truth.
type DenseStore struct {
	mu sync.RWMutex

	manifest DenseManifest

	matrix []float32 // len = len(rows) * manifest.Dimensions
	rows   []denseRow
	index  map[string]int // chunkID -> row index

	fileTracking map[string][]string // docPath -> chunkIDs

	graph      *hnsw.Graph[int]
	graphDirty bool

	closed bool
}

// NewDenseStore constructs an empty store for the given embedding model.
func NewDenseStore(model string, dimensions int) *DenseStore {
	return &DenseStore{
		manifest:     DenseManifest{EmbeddingModel: model, Dimensions: dimensions},
		index:        make(map[string]int),
		fileTracking: make(map[string][]string),
	}
}

// Add inserts or replaces vectors. Vectors are normalized to unit length
// on the way in so HNSW's cosine distance and the stored matrix agree.
func (s *DenseStore) Add(_ context.Context, vectors []DenseVector) error {
	if len(vectors) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for _, v := range vectors {
		if len(v.Vector) != s.manifest.Dimensions {
			return ErrDimensionMismatch{Expected: s.manifest.Dimensions, Got: len(v.Vector)}
		}
	}

	for _, v := range vectors {
		vec := normalizeVectorCopy(v.Vector)

		if existing, ok := s.index[v.ChunkID]; ok {
			copy(s.rowSlice(existing), vec)
			s.rows[existing] = denseRow{ChunkID: v.ChunkID, DocPath: v.DocPath}
			continue
		}

		rowIdx := len(s.rows)
		s.matrix = append(s.matrix, vec...)
		s.rows = append(s.rows, denseRow{ChunkID: v.ChunkID, DocPath: v.DocPath})
		s.index[v.ChunkID] = rowIdx
		s.fileTracking[v.DocPath] = append(s.fileTracking[v.DocPath], v.ChunkID)
	}

	s.graphDirty = true
	return nil
}

func (s *DenseStore) rowSlice(rowIdx int) []float32 {
	d := s.manifest.Dimensions
	return s.matrix[rowIdx*d : (rowIdx+1)*d]
}

// Delete removes vectors by chunk ID. Rows are removed by swapping with
// the last row and truncating, so deletion never leaves a hole in the
// matrix; the HNSW graph is marked dirty and rebuilt on next Search.
func (s *DenseStore) Delete(_ context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for _, id := range chunkIDs {
		s.deleteOneLocked(id)
	}
	s.graphDirty = true
	return nil
}

func (s *DenseStore) deleteOneLocked(chunkID string) {
	rowIdx, ok := s.index[chunkID]
	if !ok {
		return
	}
	d := s.manifest.Dimensions
	lastIdx := len(s.rows) - 1

	docPath := s.rows[rowIdx].DocPath
	s.fileTracking[docPath] = removeString(s.fileTracking[docPath], chunkID)
	if len(s.fileTracking[docPath]) == 0 {
		delete(s.fileTracking, docPath)
	}

	if rowIdx != lastIdx {
		copy(s.rowSlice(rowIdx), s.rowSlice(lastIdx))
		s.rows[rowIdx] = s.rows[lastIdx]
		s.index[s.rows[rowIdx].ChunkID] = rowIdx
	}

	s.matrix = s.matrix[:lastIdx*d]
	s.rows = s.rows[:lastIdx]
	delete(s.index, chunkID)
}

// DeleteByPath removes every chunk tracked under docPath, for use when a
// file is removed or fully re-chunked during an incremental reindex.
func (s *DenseStore) DeleteByPath(ctx context.Context, docPath string) error {
	s.mu.RLock()
	ids := append([]string(nil), s.fileTracking[docPath]...)
	s.mu.RUnlock()
	return s.Delete(ctx, ids)
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// Search returns the k nearest neighbors to query by cosine similarity,
// rebuilding the acceleration graph first if the matrix has changed since
// the last Search.
func (s *DenseStore) Search(_ context.Context, query []float32, k int) ([]*DenseResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("store is closed")
	}
	if len(query) != s.manifest.Dimensions {
		s.mu.Unlock()
		return nil, ErrDimensionMismatch{Expected: s.manifest.Dimensions, Got: len(query)}
	}
	if s.graphDirty || s.graph == nil {
		s.rebuildGraphLocked()
	}
	graph := s.graph
	rows := s.rows
	s.mu.Unlock()

	if len(rows) == 0 {
		return []*DenseResult{}, nil
	}

	q := normalizeVectorCopy(query)
	nodes := graph.Search(q, k)

	results := make([]*DenseResult, 0, len(nodes))
	for _, node := range nodes {
		if node.Key < 0 || node.Key >= len(rows) {
			continue
		}
		dist := hnsw.CosineDistance(q, node.Value)
		score := 1 - dist/2
		if score < 0 {
			score = 0
		}
		results = append(results, &DenseResult{ChunkID: rows[node.Key].ChunkID, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// rebuildGraphLocked recreates the ephemeral HNSW acceleration graph from
// the authoritative matrix. Must be called with s.mu held.
func (s *DenseStore) rebuildGraphLocked() {
	graph := hnsw.NewGraph[int]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20

	for i := range s.rows {
		graph.Add(hnsw.MakeNode(i, s.rowSlice(i)))
	}

	s.graph = graph
	s.graphDirty = false
}

// Count returns the number of stored vectors.
func (s *DenseStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Contains reports whether chunkID has a stored vector.
func (s *DenseStore) Contains(chunkID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[chunkID]
	return ok
}

// Manifest returns the embedding model/dimension this store was built
// with.
func (s *DenseStore) Manifest() DenseManifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}

// persistedDenseStore is the on-disk snapshot of a DenseStore.
type persistedDenseStore struct {
	Manifest     DenseManifest
	Matrix       []float32
	Rows         []denseRow
	FileTracking map[string][]string
}

// Save persists the matrix, row metadata, and file_tracking table
// atomically: written to a temp file in the same directory, then renamed
// into place. The HNSW graph is never part of the payload — it is
// rebuilt from the matrix on every Load.
func (s *DenseStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	snapshot := persistedDenseStore{
		Manifest:     s.manifest,
		Matrix:       s.matrix,
		Rows:         s.rows,
		FileTracking: s.fileTracking,
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(snapshot); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode store: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load replaces the store's contents with a previously saved snapshot and
// marks the acceleration graph dirty so it rebuilds on first Search.
func (s *DenseStore) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()

	var snapshot persistedDenseStore
	if err := gob.NewDecoder(f).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.manifest = snapshot.Manifest
	s.matrix = snapshot.Matrix
	s.rows = snapshot.Rows
	s.fileTracking = snapshot.FileTracking
	if s.fileTracking == nil {
		s.fileTracking = make(map[string][]string)
	}

	s.index = make(map[string]int, len(s.rows))
	for i, r := range s.rows {
		s.index[r.ChunkID] = i
	}

	s.graph = nil
	s.graphDirty = true
	s.closed = false

	return nil
}

// Close marks the store unusable. Idempotent.
func (s *DenseStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graph = nil
	return nil
}

func normalizeVectorCopy(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	var sumSquares float64
	for _, val := range out {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range out {
		out[i] *= inv
	}
	return out
}
