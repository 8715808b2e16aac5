// Package config loads docindex configuration from defaults, an optional YAML
// file, an optional .env file and the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	ierrors "github.com/Aman-CERP/docindex/internal/errors"
)

// Environment variables holding the credentials and endpoints.
const (
	EnvHuggingFaceKey = "HUGGINGFACE_KEY"
	EnvSupabaseURL    = "SUPABASE_URL"
	EnvSupabaseKey    = "SUPABASE_KEY"
)

// Default values.
const (
	DefaultDocumentsDir   = "./documentos"
	DefaultHFBaseURL      = "https://api-inference.huggingface.co"
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultTable          = "conocimiento_agente"
	DefaultSQLitePath     = "docindex.db"
	DefaultConfigFile     = ".docindex.yaml"
	DefaultEnvFile        = ".env"
	DefaultMatchFunction  = "match_documents"
	DefaultMatchThreshold = 0.5
	DefaultMatchCount     = 3
)

// Embedding providers.
const (
	ProviderHuggingFace = "huggingface"
	ProviderStatic      = "static"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Config represents the complete docindex configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Documents  DocumentsConfig  `yaml:"documents" json:"documents"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Run        RunConfig        `yaml:"run" json:"run"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// DocumentsConfig configures where documents are read from.
type DocumentsConfig struct {
	// Dir is the directory whose *.txt files are indexed (no recursion).
	Dir string `yaml:"dir" json:"dir"`
	// Sort processes files in name order instead of directory-listing order.
	Sort bool `yaml:"sort" json:"sort"`
	// CreateIfMissing creates Dir and stops the run when it does not exist.
	// When false a missing Dir is an error.
	CreateIfMissing bool `yaml:"create_if_missing" json:"create_if_missing"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider string        `yaml:"provider" json:"provider"`
	BaseURL  string        `yaml:"base_url" json:"base_url"`
	Model    string        `yaml:"model" json:"model"`
	APIKey   string        `yaml:"api_key" json:"api_key"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"` // 0 = no per-request timeout
}

// StoreConfig configures where records are written.
type StoreConfig struct {
	Backend    string        `yaml:"backend" json:"backend"`
	URL        string        `yaml:"url" json:"url"`
	APIKey     string        `yaml:"api_key" json:"api_key"`
	Table      string        `yaml:"table" json:"table"`
	SQLitePath string        `yaml:"sqlite_path" json:"sqlite_path"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	// MatchFunction is the Postgres function `docindex search` calls over RPC.
	MatchFunction string `yaml:"match_function" json:"match_function"`
}

// RunConfig configures failure handling.
type RunConfig struct {
	// ContinueOnError keeps processing remaining files after a file fails.
	ContinueOnError bool `yaml:"continue_on_error" json:"continue_on_error"`
}

// SearchConfig configures `docindex search`.
type SearchConfig struct {
	// Threshold is the minimum cosine similarity of a returned document.
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// Count is the maximum number of documents returned.
	Count int `yaml:"count" json:"count"`
}

// LoggingConfig configures the file logger.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Documents: DocumentsConfig{
			Dir:             DefaultDocumentsDir,
			Sort:            false,
			CreateIfMissing: true,
		},
		Embeddings: EmbeddingsConfig{
			Provider: ProviderHuggingFace,
			BaseURL:  DefaultHFBaseURL,
			Model:    DefaultEmbeddingModel,
			Timeout:  2 * time.Minute, // cold model loads with wait_for_model can be slow
		},
		Store: StoreConfig{
			Backend:    BackendSupabase,
			Table:      DefaultTable,
			SQLitePath:    DefaultSQLitePath,
			Timeout:       30 * time.Second,
			MatchFunction: DefaultMatchFunction,
		},
		Search: SearchConfig{
			Threshold: DefaultMatchThreshold,
			Count:     DefaultMatchCount,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// LoadOptions locates the configuration sources.
type LoadOptions struct {
	// WorkDir is where .docindex.yaml and .env are looked up (default ".").
	WorkDir string
	// ConfigFile is an explicit YAML file; it must exist when set.
	ConfigFile string
	// Getenv reads the process environment (default os.Getenv).
	Getenv func(string) string
}

// Load builds the configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. YAML file (--config, or .docindex.yaml / .docindex.yml in WorkDir)
//  3. .env file in WorkDir
//  4. Process environment
//
// Missing credentials are not an error here; see RequireCredentials.
func Load(opts LoadOptions) (*Config, error) {
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	cfg := NewConfig()

	if err := cfg.loadFromFile(opts.WorkDir, opts.ConfigFile); err != nil {
		return nil, err
	}

	dotenv, err := readDotEnv(filepath.Join(opts.WorkDir, DefaultEnvFile))
	if err != nil {
		return nil, err
	}

	lookup := func(key string) string {
		if v := opts.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}
	cfg.applyEnv(lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile returns the YAML file Load would read from dir, or "" when
// there is none.
func FindConfigFile(dir string) string {
	for _, name := range []string{DefaultConfigFile, ".docindex.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFromFile applies the YAML file on top of the current values.
func (c *Config) loadFromFile(dir, explicit string) error {
	if explicit != "" {
		return c.loadYAML(explicit)
	}
	if path := FindConfigFile(dir); path != "" {
		return c.loadYAML(path)
	}
	return nil
}

// loadYAML decodes path onto c, so keys absent from the file keep their
// current value.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ierrors.InvalidConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return ierrors.InvalidConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	return nil
}

// readDotEnv parses a .env file. A missing file yields an empty map.
func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return map[string]string{}, nil
	}

	env, err := gotenv.Read(path)
	if err != nil {
		return nil, ierrors.InvalidConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return env, nil
}

// applyEnv applies credentials and DOCINDEX_* overrides.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvHuggingFaceKey); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := getenv(EnvSupabaseURL); v != "" {
		c.Store.URL = v
	}
	if v := getenv(EnvSupabaseKey); v != "" {
		c.Store.APIKey = v
	}

	if v := getenv("DOCINDEX_DOCUMENTS_DIR"); v != "" {
		c.Documents.Dir = v
	}
	if v := getenv("DOCINDEX_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := getenv("DOCINDEX_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := getenv("DOCINDEX_HF_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := getenv("DOCINDEX_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := getenv("DOCINDEX_STORE_TABLE"); v != "" {
		c.Store.Table = v
	}
	if v := getenv("DOCINDEX_SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := getenv("DOCINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks values that are present but unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Documents.Dir) == "" {
		return ierrors.InvalidConfigError("documents.dir must not be empty", nil)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case ProviderHuggingFace, ProviderStatic:
	default:
		return ierrors.InvalidConfigError(
			fmt.Sprintf("embeddings.provider must be '%s' or '%s', got %q", ProviderHuggingFace, ProviderStatic, c.Embeddings.Provider), nil)
	}
	if c.Embeddings.Model == "" {
		return ierrors.InvalidConfigError("embeddings.model must not be empty", nil)
	}
	if c.Embeddings.Timeout < 0 || c.Store.Timeout < 0 {
		return ierrors.InvalidConfigError("timeouts must be non-negative", nil)
	}

	switch strings.ToLower(c.Store.Backend) {
	case BackendSupabase:
		if c.Store.Table == "" {
			return ierrors.InvalidConfigError("store.table must not be empty", nil)
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return ierrors.InvalidConfigError("store.sqlite_path must not be empty", nil)
		}
	default:
		return ierrors.InvalidConfigError(
			fmt.Sprintf("store.backend must be '%s' or '%s', got %q", BackendSupabase, BackendSQLite, c.Store.Backend), nil)
	}

	if c.Store.MatchFunction == "" {
		return ierrors.InvalidConfigError("store.match_function must not be empty", nil)
	}
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		return ierrors.InvalidConfigError(
			fmt.Sprintf("search.threshold must be between -1 and 1, got %g", c.Search.Threshold), nil)
	}
	if c.Search.Count < 1 {
		return ierrors.InvalidConfigError(
			fmt.Sprintf("search.count must be at least 1, got %d", c.Search.Count), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ierrors.InvalidConfigError(
			fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}

	return nil
}

// RequireCredentials reports the first credential the selected provider and
// backend need but do not have. The offline provider and the sqlite backend
// need none.
func (c *Config) RequireCredentials() error {
	if strings.EqualFold(c.Embeddings.Provider, ProviderHuggingFace) && c.Embeddings.APIKey == "" {
		return ierrors.ConfigurationError(EnvHuggingFaceKey)
	}
	if strings.EqualFold(c.Store.Backend, BackendSupabase) {
		if c.Store.URL == "" {
			return ierrors.ConfigurationError(EnvSupabaseURL)
		}
		if c.Store.APIKey == "" {
			return ierrors.ConfigurationError(EnvSupabaseKey)
		}
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Embeddings.APIKey = mask(c.Embeddings.APIKey)
	cp.Store.APIKey = mask(c.Store.APIKey)
	return &cp
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
