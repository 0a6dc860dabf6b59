package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Temoa configuration: the per-vault
// tunables that are configurable per vault, plus the ambient
// server/registry settings that sit above any one vault.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Vault      VaultConfig      `yaml:"vault" json:"vault"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Reranker   RerankerConfig   `yaml:"reranker" json:"reranker"`
	TimeBoost  TimeBoostConfig  `yaml:"time_boost" json:"time_boost"`
	Registry   RegistryConfig   `yaml:"registry" json:"registry"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// VaultConfig configures which paths under the vault root are read.
// Named holds additional vaults the VaultRegistry can serve besides Root,
// keyed by the identifier a request's vault= parameter selects; Root is
// always reachable under the empty-string key.
type VaultConfig struct {
	Root    string            `yaml:"root" json:"root"`
	Exclude []string          `yaml:"exclude" json:"exclude"`
	Named   map[string]string `yaml:"named" json:"named"`
}

// ChunkingConfig configures the sliding-window chunker.
type ChunkingConfig struct {
	Threshold int `yaml:"threshold" json:"threshold"`
	Size      int `yaml:"size" json:"size"`
	Overlap   int `yaml:"overlap" json:"overlap"`
}

// SearchConfig configures BM25 scoring and RRF fusion.
type SearchConfig struct {
	BM25K1         float64 `yaml:"bm25_k1" json:"bm25_k1"`
	BM25B          float64 `yaml:"bm25_b" json:"bm25_b"`
	TagBoostLambda float64 `yaml:"tag_boost_lambda" json:"tag_boost_lambda"`
	RRFConstant    int     `yaml:"rrf_constant" json:"rrf_constant"`
	MaxResults     int     `yaml:"max_results" json:"max_results"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
}

// RerankerConfig configures the cross-encoder re-ranking stage.
type RerankerConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Model     string `yaml:"model" json:"model"`
	TimeoutMS int    `yaml:"timeout_ms" json:"timeout_ms"`
}

// TimeBoostConfig configures the recency-decay stage.
type TimeBoostConfig struct {
	HalfLifeDays float64 `yaml:"half_life_days" json:"half_life_days"`
	MaxBoost     float64 `yaml:"max_boost" json:"max_boost"`
}

// RegistryConfig configures the VaultRegistry LRU.
type RegistryConfig struct {
	Capacity int `yaml:"capacity" json:"capacity"`
}

// ServerConfig configures the HTTP surface including the CORS
// whitelist and per-endpoint rate-limit windows. AllowedOrigins has
// no wildcard default: an empty list means "same-origin only", never "*".
type ServerConfig struct {
	Host           string          `yaml:"host" json:"host"`
	Port           int             `yaml:"port" json:"port"`
	LogLevel       string          `yaml:"log_level" json:"log_level"`
	AllowedOrigins []string        `yaml:"allowed_origins" json:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig sets one sliding-window limit per guarded endpoint.
type RateLimitConfig struct {
	SearchPerMinute  int `yaml:"search_per_minute" json:"search_per_minute"`
	ReindexPerMinute int `yaml:"reindex_per_minute" json:"reindex_per_minute"`
	ExtractPerMinute int `yaml:"extract_per_minute" json:"extract_per_minute"`
}

// defaultExcludePatterns are always excluded from vault enumeration.
var defaultExcludePatterns = []string{
	"**/.git/**",
	"**/.obsidian/**",
	"**/.trash/**",
	"**/node_modules/**",
}

// NewConfig creates a new Config with sensible defaults for every
// component.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Vault: VaultConfig{
			Exclude: defaultExcludePatterns,
		},
		Chunking: ChunkingConfig{
			Threshold: 4000,
			Size:      1000,
			Overlap:   200,
		},
		Search: SearchConfig{
			BM25K1:         1.5,
			BM25B:          0.75,
			TagBoostLambda: 0.3,
			RRFConstant:    60,
			MaxResults:     20,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "", // empty selects Ollama; there is no automatic fallback to static
			Model:      "nomic-embed-text",
			Dimensions: 0, // auto-detected from the embedder
			BatchSize:  32,
			OllamaHost: "",
		},
		Reranker: RerankerConfig{
			Enabled:   true,
			Endpoint:  "",
			Model:     "reranker-small",
			TimeoutMS: 1000,
		},
		TimeBoost: TimeBoostConfig{
			HalfLifeDays: 90,
			MaxBoost:     0.2,
		},
		Registry: RegistryConfig{
			Capacity: 3,
		},
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8765,
			LogLevel: "info",
			// No wildcard default: an operator who wants the browser UI to
			// reach the API from another origin must list it explicitly.
			AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			RateLimit: RateLimitConfig{
				SearchPerMinute:  120,
				ReindexPerMinute: 6,
				ExtractPerMinute: 60,
			},
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration
// file, following the XDG Base Directory specification.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "temoa", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "temoa", "config.yaml")
	}
	return filepath.Join(home, ".config", "temoa", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load loads configuration for a vault directory, applying overrides in
// order of increasing precedence: hardcoded defaults, user/global config
// (~/.config/temoa/config.yaml), per-vault config (.temoa.yaml in the
// vault root), then TEMOA_* environment variables.
func Load(vaultDir string) (*Config, error) {
	cfg := NewConfig()
	cfg.Vault.Root = vaultDir

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(vaultDir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .temoa.yaml or
// .temoa.yml within dir.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".temoa.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}
	ymlPath := filepath.Join(dir, ".temoa.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Vault.Root != "" {
		c.Vault.Root = other.Vault.Root
	}
	if len(other.Vault.Exclude) > 0 {
		c.Vault.Exclude = append(c.Vault.Exclude, other.Vault.Exclude...)
	}
	for name, root := range other.Vault.Named {
		if c.Vault.Named == nil {
			c.Vault.Named = make(map[string]string)
		}
		c.Vault.Named[name] = root
	}

	if other.Chunking.Threshold != 0 {
		c.Chunking.Threshold = other.Chunking.Threshold
	}
	if other.Chunking.Size != 0 {
		c.Chunking.Size = other.Chunking.Size
	}
	if other.Chunking.Overlap != 0 {
		c.Chunking.Overlap = other.Chunking.Overlap
	}

	if other.Search.BM25K1 != 0 {
		c.Search.BM25K1 = other.Search.BM25K1
	}
	if other.Search.BM25B != 0 {
		c.Search.BM25B = other.Search.BM25B
	}
	if other.Search.TagBoostLambda != 0 {
		c.Search.TagBoostLambda = other.Search.TagBoostLambda
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}

	if other.Reranker.Endpoint != "" {
		c.Reranker.Endpoint = other.Reranker.Endpoint
	}
	if other.Reranker.Model != "" {
		c.Reranker.Model = other.Reranker.Model
	}
	if other.Reranker.TimeoutMS != 0 {
		c.Reranker.TimeoutMS = other.Reranker.TimeoutMS
	}

	if other.TimeBoost.HalfLifeDays != 0 {
		c.TimeBoost.HalfLifeDays = other.TimeBoost.HalfLifeDays
	}
	if other.TimeBoost.MaxBoost != 0 {
		c.TimeBoost.MaxBoost = other.TimeBoost.MaxBoost
	}

	if other.Registry.Capacity != 0 {
		c.Registry.Capacity = other.Registry.Capacity
	}

	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if len(other.Server.AllowedOrigins) > 0 {
		c.Server.AllowedOrigins = other.Server.AllowedOrigins
	}
	if other.Server.RateLimit.SearchPerMinute != 0 {
		c.Server.RateLimit.SearchPerMinute = other.Server.RateLimit.SearchPerMinute
	}
	if other.Server.RateLimit.ReindexPerMinute != 0 {
		c.Server.RateLimit.ReindexPerMinute = other.Server.RateLimit.ReindexPerMinute
	}
	if other.Server.RateLimit.ExtractPerMinute != 0 {
		c.Server.RateLimit.ExtractPerMinute = other.Server.RateLimit.ExtractPerMinute
	}
}

// applyEnvOverrides applies TEMOA_* environment variable overrides, the
// highest-precedence configuration layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TEMOA_BM25_K1"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Search.BM25K1 = f
		}
	}
	if v := os.Getenv("TEMOA_BM25_B"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Search.BM25B = f
		}
	}
	if v := os.Getenv("TEMOA_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("TEMOA_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("TEMOA_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("TEMOA_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("TEMOA_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("TEMOA_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("TEMOA_CORS_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
}

func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.BM25K1 < 0 {
		return fmt.Errorf("bm25_k1 must be non-negative, got %f", c.Search.BM25K1)
	}
	if c.Search.BM25B < 0 || c.Search.BM25B > 1 {
		return fmt.Errorf("bm25_b must be between 0 and 1, got %f", c.Search.BM25B)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Chunking.Threshold < 0 || c.Chunking.Size < 0 || c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking values must be non-negative")
	}
	if c.TimeBoost.HalfLifeDays < 0 {
		return fmt.Errorf("time_boost.half_life_days must be non-negative, got %f", c.TimeBoost.HalfLifeDays)
	}
	if c.TimeBoost.MaxBoost < 0 {
		return fmt.Errorf("time_boost.max_boost must be non-negative, got %f", c.TimeBoost.MaxBoost)
	}
	if c.Registry.Capacity <= 0 {
		return fmt.Errorf("registry.capacity must be positive, got %d", c.Registry.Capacity)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("server.allowed_origins must not contain a wildcard; list explicit origins")
		}
	}
	if c.Embeddings.BatchSize < 0 {
		return fmt.Errorf("embeddings.batch_size must be non-negative, got %d", c.Embeddings.BatchSize)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file. Returns nil config
// and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
