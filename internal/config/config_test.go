package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Default configuration
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, 1.5, cfg.Search.BM25K1)
	assert.Equal(t, 0.75, cfg.Search.BM25B)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, 20, cfg.Search.MaxResults)

	assert.Equal(t, 4000, cfg.Chunking.Threshold)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)

	assert.Equal(t, "", cfg.Embeddings.Provider) // empty selects the Ollama provider
	assert.Equal(t, 32, cfg.Embeddings.BatchSize)

	assert.Equal(t, 90.0, cfg.TimeBoost.HalfLifeDays)
	assert.Equal(t, 0.2, cfg.TimeBoost.MaxBoost)

	assert.Equal(t, 3, cfg.Registry.Capacity)

	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.NotContains(t, cfg.Server.AllowedOrigins, "*")

	assert.Contains(t, cfg.Vault.Exclude, "**/.git/**")
}

func TestConfig_VersionDefaultsToOne(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 1, cfg.Version)
}

func TestConfig_AllowedOriginsHasNoWildcardDefault(t *testing.T) {
	cfg := NewConfig()
	for _, origin := range cfg.Server.AllowedOrigins {
		assert.NotEqual(t, "*", origin)
	}
}

// =============================================================================
// Per-vault configuration file loading
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 1.5, cfg.Search.BM25K1)
	assert.Equal(t, tmpDir, cfg.Vault.Root)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
search:
  bm25_k1: 1.2
  rrf_constant: 100
  max_results: 50
`
	err := os.WriteFile(filepath.Join(tmpDir, ".temoa.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 1.2, cfg.Search.BM25K1)
	assert.Equal(t, 100, cfg.Search.RRFConstant)
	assert.Equal(t, 50, cfg.Search.MaxResults)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
embeddings:
  provider: ollama
`
	err := os.WriteFile(filepath.Join(tmpDir, ".temoa.yml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := "version: 1\nembeddings:\n  provider: ollama\n"
	ymlContent := "version: 1\nembeddings:\n  provider: static\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".temoa.yaml"), []byte(yamlContent), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".temoa.yml"), []byte(ymlContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	invalidContent := "version: 1\nsearch:\n  bm25_k1: [invalid yaml syntax\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".temoa.yaml"), []byte(invalidContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_WildcardCORSOrigin_FailsValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "version: 1\nserver:\n  allowed_origins: [\"*\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".temoa.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "wildcard")
}

// =============================================================================
// Environment variable overrides
// =============================================================================

func TestLoad_EnvVarOverridesProvider(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "version: 1\nembeddings:\n  provider: ollama\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".temoa.yaml"), []byte(configContent), 0o644))
	t.Setenv("TEMOA_EMBEDDINGS_PROVIDER", "static")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestLoad_EnvVarOverridesRRFConstant(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "version: 1\nsearch:\n  rrf_constant: 100\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".temoa.yaml"), []byte(configContent), 0o644))
	t.Setenv("TEMOA_RRF_CONSTANT", "80")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Search.RRFConstant)
}

func TestLoad_EnvVarOverridesLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TEMOA_LOG_LEVEL", "debug")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_EnvVarOverridesCORSOrigins(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TEMOA_CORS_ORIGINS", "https://notes.example.com,https://notes2.example.com")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://notes.example.com", "https://notes2.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoad_EnvVarEmptyString_DoesNotOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TEMOA_EMBEDDINGS_PROVIDER", "")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "", cfg.Embeddings.Provider)
}

// =============================================================================
// User/global configuration
// =============================================================================

func TestGetUserConfigPath_DefaultsToXDGLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path := GetUserConfigPath()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "temoa", "config.yaml"), path)
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	customConfig := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", customConfig)

	path := GetUserConfigPath()

	assert.Equal(t, filepath.Join(customConfig, "temoa", "config.yaml"), path)
}

func TestUserConfigExists_ReturnsFalseWhenMissing(t *testing.T) {
	emptyDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", emptyDir)

	assert.False(t, UserConfigExists())
}

func TestUserConfigExists_ReturnsTrueWhenPresent(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	temoaDir := filepath.Join(configDir, "temoa")
	require.NoError(t, os.MkdirAll(temoaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(temoaDir, "config.yaml"), []byte("version: 1"), 0o644))

	assert.True(t, UserConfigExists())
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	temoaDir := filepath.Join(configDir, "temoa")
	require.NoError(t, os.MkdirAll(temoaDir, 0o755))
	userConfig := "version: 1\nembeddings:\n  ollama_host: http://custom-host:11434\n"
	require.NoError(t, os.WriteFile(filepath.Join(temoaDir, "config.yaml"), []byte(userConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "http://custom-host:11434", cfg.Embeddings.OllamaHost)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	temoaDir := filepath.Join(configDir, "temoa")
	require.NoError(t, os.MkdirAll(temoaDir, 0o755))
	userConfig := "version: 1\nembeddings:\n  provider: ollama\n  model: user-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(temoaDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "version: 1\nembeddings:\n  model: project-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".temoa.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "project-model", cfg.Embeddings.Model)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestLoad_NamedVaultsMergeAcrossUserAndProjectConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	temoaDir := filepath.Join(configDir, "temoa")
	require.NoError(t, os.MkdirAll(temoaDir, 0o755))
	userConfig := "version: 1\nvault:\n  named:\n    work: /vaults/work\n"
	require.NoError(t, os.WriteFile(filepath.Join(temoaDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "version: 1\nvault:\n  named:\n    personal: /vaults/personal\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".temoa.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "/vaults/work", cfg.Vault.Named["work"])
	assert.Equal(t, "/vaults/personal", cfg.Vault.Named["personal"])
}

func TestLoad_EnvVarOverridesUserAndProjectConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("TEMOA_EMBEDDINGS_MODEL", "env-model")

	temoaDir := filepath.Join(configDir, "temoa")
	require.NoError(t, os.MkdirAll(temoaDir, 0o755))
	userConfig := "version: 1\nembeddings:\n  model: user-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(temoaDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "version: 1\nembeddings:\n  model: project-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".temoa.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Embeddings.Model)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	temoaDir := filepath.Join(configDir, "temoa")
	require.NoError(t, os.MkdirAll(temoaDir, 0o755))
	invalidConfig := "version: 1\nembeddings:\n  model: [invalid yaml\n"
	require.NoError(t, os.WriteFile(filepath.Join(temoaDir, "config.yaml"), []byte(invalidConfig), 0o644))

	cfg, err := Load(projectDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "user config")
}
