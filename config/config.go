// Package config loads wordcrack settings from defaults, an optional YAML
// file, a .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hubenschmidt/go-wordcrack/core"
)

const envPrefix = "WORDCRACK_"

type Config struct {
	// DatabaseURL selects the backend: postgres://, badger://, memory:// or
	// a SQLite path.
	DatabaseURL string `yaml:"database_url"`
	Addr        string `yaml:"addr"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Similarity SimilarityConfig `yaml:"similarity"`
}

type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`

	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	Timeout     time.Duration `yaml:"timeout"`

	OpenAIKey     string `yaml:"-"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OllamaURL     string `yaml:"ollama_url"`
}

type SimilarityConfig struct {
	Strategy string `yaml:"strategy"`
	TopK     int    `yaml:"top_k"`
	UseCache bool   `yaml:"use_cache"`
	// Candidates is the HNSW ef_search used by the pgvector index.
	Candidates int `yaml:"candidates"`
}

func Default() *Config {
	return &Config{
		DatabaseURL: "data/wordcrack.db",
		Addr:        ":8000",
		LogLevel:    "info",
		LogFormat:   "text",
		Embedding: EmbeddingConfig{
			Model:       "text-embedding-3-small",
			Dimension:   1536,
			BatchSize:   100,
			MaxAttempts: 3,
			Backoff:     2 * time.Second,
			Timeout:     60 * time.Second,
		},
		Similarity: SimilarityConfig{
			Strategy:   "auto",
			TopK:       5,
			Candidates: 200,
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DatabaseURL, envPrefix+"DATABASE_URL")
	setString(&c.Addr, envPrefix+"ADDR")
	setString(&c.LogLevel, envPrefix+"LOG_LEVEL")
	setString(&c.LogFormat, envPrefix+"LOG_FORMAT")

	setString(&c.Embedding.Model, envPrefix+"EMBED_MODEL")
	setString(&c.Embedding.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.Embedding.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.Embedding.OllamaURL, "OLLAMA_URL")
	setString(&c.Similarity.Strategy, envPrefix+"STRATEGY")

	ints := []struct {
		dst *int
		key string
	}{
		{&c.Embedding.Dimension, envPrefix + "EMBED_DIMENSION"},
		{&c.Embedding.BatchSize, envPrefix + "BATCH_SIZE"},
		{&c.Embedding.MaxAttempts, envPrefix + "MAX_ATTEMPTS"},
		{&c.Similarity.TopK, envPrefix + "TOP_K"},
	}
	for _, e := range ints {
		if err := setInt(e.dst, e.key); err != nil {
			return err
		}
	}

	if v := os.Getenv(envPrefix + "BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sBACKOFF: %w", envPrefix, core.ErrInvalidConfig)
		}
		c.Embedding.Backoff = d
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must be positive"))
	}
	if c.Embedding.BatchSize <= 0 || c.Embedding.BatchSize > 2048 {
		errs = append(errs, fmt.Errorf("embedding.batch_size must be in 1..2048, got %d", c.Embedding.BatchSize))
	}
	if c.Embedding.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("embedding.max_attempts must be positive"))
	}
	if c.Embedding.Backoff < 0 {
		errs = append(errs, fmt.Errorf("embedding.backoff must not be negative"))
	}
	switch c.Similarity.Strategy {
	case "auto", "brute", "index":
	default:
		errs = append(errs, fmt.Errorf("similarity.strategy must be auto, brute or index, got %q", c.Similarity.Strategy))
	}
	if c.Similarity.TopK <= 0 {
		errs = append(errs, fmt.Errorf("similarity.top_k must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s=%q is not a number: %w", key, v, core.ErrInvalidConfig)
	}
	*dst = n
	return nil
}
