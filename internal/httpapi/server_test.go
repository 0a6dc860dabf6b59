package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pborenstein/temoa/internal/config"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "note.md"), []byte("---\ntitle: Hello\n---\nworkout good walk\n"), 0644))

	cfg := config.NewConfig()
	cfg.Vault.Root = root
	cfg.Embeddings.Provider = "static"
	cfg.Reranker.Enabled = false
	cfg.Server.RateLimit = config.RateLimitConfig{SearchPerMinute: 0, ReindexPerMinute: 0}

	s, err := New(cfg, nil)
	require.NoError(t, err)
	return s, root
}

func TestNewBuildsAWorkingRouter(t *testing.T) {
	s, _ := testServer(t)
	assert.NotNil(t, s.router)
}

func TestHandleHealthReturnsStatusOK(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleProfilesListsFiveBuiltins(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/profiles")
	require.NoError(t, err)
	defer resp.Body.Close()

	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Len(t, names, 5)
}

func TestHandleVaultsListsTheConfiguredVault(t *testing.T) {
	s, root := testServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/vaults")
	require.NoError(t, err)
	defer resp.Body.Close()

	var vaults []map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vaults))
	require.Len(t, vaults, 1)
	assert.Equal(t, root, vaults[0]["root"])
}

func TestHandleSearchEmptyQueryReturnsEmptyList(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/search?q=")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var results []any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	assert.Empty(t, results)
}

func TestHandleSearchUnknownVaultReturns404(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/search?q=hello&vault=nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleReindexBuildsTheVaultStore(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/reindex?force=true", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.EqualValues(t, 1, stats["new"])
	assert.EqualValues(t, 0, stats["deleted"])
}

func TestExcludedDirNamesStripsGlobWrapping(t *testing.T) {
	got := excludedDirNames([]string{"**/.git/**", "**/node_modules/**"})
	assert.Equal(t, []string{".git", "node_modules"}, got)
}

func TestResolveVaultFallsBackToDefaultOnEmptyName(t *testing.T) {
	s, root := testServer(t)
	info, err := s.resolveVault("")
	require.NoError(t, err)
	assert.Equal(t, root, info.Root)
}

func TestResolveVaultReturnsErrorForUnknownName(t *testing.T) {
	s, _ := testServer(t)
	_, err := s.resolveVault("does-not-exist")
	assert.Error(t, err)
}

// TestModelIDMatchesStaticEmbedderName guards against the store directory
// a build writes to (newIndexer, via modelID) diverging from the one
// reads look under (registryKey, readManifest, readMeta) when the
// configured model string isn't the one the resolved embedder reports.
func TestModelIDMatchesStaticEmbedderName(t *testing.T) {
	s, _ := testServer(t)
	assert.Equal(t, "static-768", s.modelID())
}

func TestHandleStatsReadsTheStoreTheReindexWrote(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/reindex?force=true", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.EqualValues(t, 1, stats["file_count"])
}
