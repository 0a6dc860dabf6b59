package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pborenstein/temoa/internal/chunk"
	"github.com/pborenstein/temoa/internal/vault"
)

func writeNote(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// stubEmbedder produces a deterministic low-dimension vector from text
// length, avoiding any dependency on internal/embed's provider machinery
// in these tests.
type stubEmbedder struct {
	dims int
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, s.dims)
		v[len(t)%s.dims] = 1
		out[i] = v
	}
	return out, nil
}
func (s *stubEmbedder) Dimensions() int   { return s.dims }
func (s *stubEmbedder) ModelName() string { return "stub-4" }

func newTestIndexer(t *testing.T, root string) *Indexer {
	t.Helper()
	v := &vault.Vault{Root: root}
	reader := vault.NewReader()
	embedder := &stubEmbedder{dims: 4}
	storeDir := filepath.Join(root, ".temoa", embedder.ModelName())
	return NewIndexer(v, reader, embedder, chunk.DefaultConfig(), storeDir)
}

func TestIndexerFullBuildIndexesAllNotes(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "---\ntags: [work]\n---\nfirst note body")
	writeNote(t, root, "b.md", "second note body about gardening")

	ix := newTestIndexer(t, root)
	result, err := ix.Full(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.New)
	assert.Equal(t, 2, result.Dense.Count())
	assert.Equal(t, 2, result.Meta.Count())
	assert.True(t, result.Dense.Contains("a.md#0"))
}

func TestIndexerIncrementalDetectsNewModifiedDeleted(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "original content")
	writeNote(t, root, "b.md", "will be deleted")

	ix := newTestIndexer(t, root)
	ctx := context.Background()
	_, err := ix.Full(ctx)
	require.NoError(t, err)

	// Ensure a distinguishable mtime for the modification.
	time.Sleep(10 * time.Millisecond)
	writeNote(t, root, "a.md", "modified content, much longer than before")
	require.NoError(t, os.Remove(filepath.Join(root, "b.md")))
	writeNote(t, root, "c.md", "brand new note")

	result, err := ix.Incremental(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.New)
	assert.Equal(t, 1, result.Stats.Modified)
	assert.Equal(t, 1, result.Stats.Deleted)
	assert.False(t, result.Dense.Contains("b.md#0"))
	assert.True(t, result.Dense.Contains("c.md#0"))
}

func TestIndexerIncrementalEmptyChangeSetShortCircuits(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "stable content")

	ix := newTestIndexer(t, root)
	ctx := context.Background()
	first, err := ix.Full(ctx)
	require.NoError(t, err)

	second, err := ix.Incremental(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Stats.New)
	assert.Equal(t, 0, second.Stats.Modified)
	assert.Equal(t, 0, second.Stats.Deleted)
	assert.Equal(t, first.Dense.Count(), second.Dense.Count())
}

func TestIndexerIncrementalFallsBackToFullWithoutPriorManifest(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "some content")

	ix := newTestIndexer(t, root)
	result, err := ix.Incremental(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.New)
	assert.Equal(t, 1, result.Dense.Count())
}

func TestIndexerIncrementalFallsBackOnModelMismatch(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "some content")

	ix := newTestIndexer(t, root)
	ctx := context.Background()
	_, err := ix.Full(ctx)
	require.NoError(t, err)

	ix.Embedder = &stubEmbedder{dims: 8}
	result, err := ix.Incremental(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, result.Manifest.Dimensions)
}

func TestIndexerFullRefusesCrossVaultOverwrite(t *testing.T) {
	rootA := t.TempDir()
	writeNote(t, rootA, "a.md", "vault A content")
	ixA := newTestIndexer(t, rootA)
	_, err := ixA.Full(context.Background())
	require.NoError(t, err)

	// Point a second Indexer at vault B's files but vault A's store
	// directory - the shared-StoreDir misconfiguration this guards against.
	rootB := t.TempDir()
	writeNote(t, rootB, "b.md", "vault B content")
	ixB := &Indexer{
		Vault:    &vault.Vault{Root: rootB},
		Reader:   vault.NewReader(),
		Embedder: &stubEmbedder{dims: 4},
		ChunkCfg: chunk.DefaultConfig(),
		StoreDir: ixA.StoreDir,
	}

	before, readErr := os.ReadFile(filepath.Join(ixA.StoreDir, manifestFileName))
	require.NoError(t, readErr)

	_, err = ixB.Full(context.Background())
	require.Error(t, err)

	after, readErr := os.ReadFile(filepath.Join(ixA.StoreDir, manifestFileName))
	require.NoError(t, readErr)
	assert.Equal(t, before, after)
}

func TestIndexerRebuildsLexicalIndexFromFullMergedSet(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "zephyr keyword present here")

	ix := newTestIndexer(t, root)
	ctx := context.Background()
	result, err := ix.Full(ctx)
	require.NoError(t, err)

	results, err := result.Lexical.Search(ctx, "zephyr", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}
