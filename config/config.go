package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for demandcast.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Predictor PredictorConfig `yaml:"predictor"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CatalogConfig selects where items and their historical series come from.
type CatalogConfig struct {
	Source         string   `yaml:"source"` // "files" or "postgres"
	Dir            string   `yaml:"dir"`    // relative to the project dir
	Includes       []string `yaml:"includes"`
	Excludes       []string `yaml:"excludes"`
	DatabaseURLEnv string   `yaml:"database_url_env"`
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	Backend      string `yaml:"backend"` // "bolt" or "postgres"
	BuildOnStart bool   `yaml:"build_on_start"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Provider          string  `yaml:"provider"` // "openai", "ollama", "jina", "mock"
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Dimension         int     `yaml:"dimension"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
}

// ResolverConfig holds acceptance thresholds for the resolution cascade.
type ResolverConfig struct {
	FuzzyThreshold    int     `yaml:"fuzzy_threshold"`    // 0-100
	SemanticThreshold float64 `yaml:"semantic_threshold"` // cosine similarity
}

// ForecastConfig holds forecast horizon and seed defaults.
type ForecastConfig struct {
	DefaultHorizon int     `yaml:"default_horizon"`
	ClosingStock   float64 `yaml:"closing_stock"`
	MinStockLimit  float64 `yaml:"min_stock_limit"`
	LeadTimeDays   float64 `yaml:"lead_time_days"`
	MaxCapacity    float64 `yaml:"max_capacity"`
}

// PredictorConfig selects the regression predictor.
type PredictorConfig struct {
	Kind      string `yaml:"kind"` // "xgboost" or "http"
	ModelPath string `yaml:"model_path"`
	URL       string `yaml:"url"`
}

// ServerConfig holds transport configuration for `serve`.
type ServerConfig struct {
	Transport string `yaml:"transport"` // "stdio", "sse", "http"
	Addr      string `yaml:"addr"`
	BaseURL   string `yaml:"base_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Source:         "files",
			Dir:            "models",
			Includes:       []string{"**/*.csv", "**/*.xlsx"},
			Excludes:       []string{"**/.git/**", "**/~$*"},
			DatabaseURLEnv: "DATABASE_URL",
		},
		Index: IndexConfig{
			Backend:      "bolt",
			BuildOnStart: true,
		},
		Embedding: EmbeddingConfig{
			Enabled:   false,
			Provider:  "ollama",
			Model:     "all-minilm",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 384,
			BatchSize: 100,
		},
		Resolver: ResolverConfig{
			FuzzyThreshold:    85,
			SemanticThreshold: 0.70,
		},
		Forecast: ForecastConfig{
			DefaultHorizon: 7,
			ClosingStock:   100,
			MinStockLimit:  10,
			LeadTimeDays:   3,
			MaxCapacity:    500,
		},
		Predictor: PredictorConfig{
			Kind:      "xgboost",
			ModelPath: "models/demand_agent_xgb.json",
		},
		Server: ServerConfig{
			Transport: "sse",
			Addr:      ":8000",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for demandcast.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "demandcast.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".demandcast", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Validate rejects values the resolver and forecaster cannot work with.
func (c *Config) Validate() error {
	if c.Resolver.FuzzyThreshold < 0 || c.Resolver.FuzzyThreshold > 100 {
		return errors.Newf("resolver.fuzzy_threshold must be within 0-100, got %d", c.Resolver.FuzzyThreshold)
	}
	if c.Resolver.SemanticThreshold < -1 || c.Resolver.SemanticThreshold > 1 {
		return errors.Newf("resolver.semantic_threshold must be within [-1, 1], got %g", c.Resolver.SemanticThreshold)
	}
	if c.Forecast.DefaultHorizon < 0 {
		return errors.Newf("forecast.default_horizon must not be negative, got %d", c.Forecast.DefaultHorizon)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the vector index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".demandcast", "index.db")
}

// EnsureDataDir ensures the .demandcast directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".demandcast"), 0755)
}
