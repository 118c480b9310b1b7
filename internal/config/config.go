// Package config provides configuration loading and structs for the Kensaku server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kensaku/internal/models"
)

// Embedding providers.
const (
	EmbeddingHash   = "hash"
	EmbeddingONNX   = "onnx"
	EmbeddingOpenAI = "openai"
)

// Rerank providers.
const (
	RerankLexical = "lexical"
	RerankONNX    = "onnx"
	RerankCohere  = "cohere"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug" toml:"debug"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Vector    VectorConfig    `yaml:"vector" toml:"vector"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank" toml:"rerank"`
	Search    SearchConfig    `yaml:"search" toml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string `yaml:"cors_origins" toml:"cors_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// VectorConfig fixes the shape of every collection in a deployment.
type VectorConfig struct {
	Dimension int    `yaml:"dimension" toml:"dimension"`
	Distance  string `yaml:"distance" toml:"distance"`
}

// StorageConfig selects the vector store backend.
type StorageConfig struct {
	// Backend is memory, sqlite or bolt.
	Backend string `yaml:"backend" toml:"backend"`
	Path    string `yaml:"path" toml:"path"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider" toml:"provider"`
	ModelPath   string `yaml:"model_path" toml:"model_path"`
	LibraryPath string `yaml:"library_path" toml:"library_path"`
	MaxTokens   int    `yaml:"max_tokens" toml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size" toml:"cache_size"`
	HTTPModelConfig `yaml:",inline"`
}

// RerankConfig selects and configures the relevance scorer.
type RerankConfig struct {
	Provider    string `yaml:"provider" toml:"provider"`
	ModelPath   string `yaml:"model_path" toml:"model_path"`
	LibraryPath string `yaml:"library_path" toml:"library_path"`
	MaxTokens   int    `yaml:"max_tokens" toml:"max_tokens"`

	// TypoTolerance is the edit distance the lexical scorer allows per query term. 0 disables it.
	TypoTolerance int `yaml:"typo_tolerance" toml:"typo_tolerance"`

	HTTPModelConfig `yaml:",inline"`
}

// HTTPModelConfig holds settings shared by hosted model clients.
type HTTPModelConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	Model   string `yaml:"model" toml:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv         string  `yaml:"api_key_env" toml:"api_key_env"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `yaml:"burst" toml:"burst"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// APIKey reads the key from the configured environment variable.
func (h HTTPModelConfig) APIKey() string {
	if h.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(h.APIKeyEnv)
}

// Timeout returns TimeoutSeconds as a duration.
func (h HTTPModelConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// SearchConfig bounds search requests.
type SearchConfig struct {
	DefaultLimit   int `yaml:"default_limit" toml:"default_limit"`
	MaxLimit       int `yaml:"max_limit" toml:"max_limit"`
	MinQueryLength int `yaml:"min_query_length" toml:"min_query_length"`
	MaxQueryLength int `yaml:"max_query_length" toml:"max_query_length"`
}

// Bounds converts the search settings to query bounds.
func (s SearchConfig) Bounds() models.QueryBounds {
	return models.QueryBounds{
		MinQueryLength: s.MinQueryLength,
		MaxQueryLength: s.MaxQueryLength,
		DefaultLimit:   s.DefaultLimit,
		MaxLimit:       s.MaxLimit,
	}
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, expands paths, applies defaults and validates.
// Files ending in .toml are decoded as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.Path = expandPath(cfg.Storage.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.LibraryPath = expandPath(cfg.Embedding.LibraryPath, configDir)
	cfg.Rerank.ModelPath = expandPath(cfg.Rerank.ModelPath, configDir)
	cfg.Rerank.LibraryPath = expandPath(cfg.Rerank.LibraryPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path in the format implied by its extension.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting in cfg.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Vector.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("vector.dimension must be positive"))
	}
	if _, err := models.ParseDistance(c.Vector.Distance); err != nil {
		errs = append(errs, fmt.Errorf("vector.distance: %w", err))
	}
	switch c.Storage.Backend {
	case "memory":
	case "sqlite", "bolt":
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q not supported (memory, sqlite, bolt)", c.Storage.Backend))
	}
	switch c.Embedding.Provider {
	case EmbeddingHash, EmbeddingOpenAI:
	case EmbeddingONNX:
		if c.Embedding.ModelPath == "" {
			errs = append(errs, errors.New("embedding.model_path is required for the onnx provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q not supported (hash, onnx, openai)", c.Embedding.Provider))
	}
	switch c.Rerank.Provider {
	case RerankLexical, RerankCohere:
	case RerankONNX:
		if c.Rerank.ModelPath == "" {
			errs = append(errs, errors.New("rerank.model_path is required for the onnx provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("rerank.provider %q not supported (lexical, onnx, cohere)", c.Rerank.Provider))
	}
	if c.Rerank.TypoTolerance < 0 || c.Rerank.TypoTolerance > 2 {
		errs = append(errs, errors.New("rerank.typo_tolerance must be between 0 and 2"))
	}
	s := c.Search
	if s.MinQueryLength < 1 || s.MaxQueryLength < s.MinQueryLength {
		errs = append(errs, fmt.Errorf("search query length range %d..%d is invalid", s.MinQueryLength, s.MaxQueryLength))
	}
	if s.MaxLimit < 1 || s.DefaultLimit < 1 || s.DefaultLimit > s.MaxLimit {
		errs = append(errs, fmt.Errorf("search limits default=%d max=%d are invalid", s.DefaultLimit, s.MaxLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" paths are relative to the home directory. Empty paths and ":memory:" are left alone.
func expandPath(path string, configDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
