package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestReadVaultParsesFrontmatterAndTags(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes/a.md", "---\ntitle: Hello\ntags:\n  - work\n  - idea\nstatus: active\n---\nBody with #inline tag.\n")
	writeFile(t, dir, "notes/b.md", "No frontmatter here.\n")
	writeFile(t, dir, ".git/ignored.md", "should be skipped\n")

	r := NewReader()
	docs, err := r.ReadVault(context.Background(), &Vault{Root: dir})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	a := docs[0]
	assert.Equal(t, "notes/a.md", a.RelPath)
	assert.Equal(t, "Hello", a.Title)
	assert.ElementsMatch(t, []string{"work", "idea", "inline"}, a.Tags)
	assert.Equal(t, StatusActive, a.Status)

	b := docs[1]
	assert.Equal(t, "b", b.Title)
	assert.Empty(t, b.Frontmatter)
}

func TestReadFileCachesByMtime(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "first\n")

	r := NewReader()
	v := &Vault{Root: dir}
	first, err := r.ReadFile(v, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "first\n", first.Body)

	second, err := r.ReadFile(v, "a.md")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestReadFileTombstoneOnMissing(t *testing.T) {
	dir := t.TempDir()
	r := NewReader()
	doc, err := r.ReadFile(&Vault{Root: dir}, "missing.md")
	require.NoError(t, err)
	assert.True(t, doc.Unreadable)
}

func TestReadVaultMissingRootIsFatal(t *testing.T) {
	r := NewReader()
	_, err := r.ReadVault(context.Background(), &Vault{Root: "/nonexistent/path/xyz"})
	require.Error(t, err)
}
