// Package config loads the matcher service's YAML configuration file, with
// environment-variable overrides and default values, in the same
// Load/validate/loadFromEnv shape used across the rest of the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP and metrics listeners.
type ServerConfig struct {
	Port        string `yaml:"port"`
	MetricsPort string `yaml:"metrics_port"`
}

// RetrievalConfig controls the vector index and embedding provider.
type RetrievalConfig struct {
	IndexPath            string `yaml:"index_path"`
	CollectionName       string `yaml:"collection_name"`
	EmbedModel           string `yaml:"embed_model"`
	EmbeddingProvider    string `yaml:"embedding_provider"`
	TopKDefault          int    `yaml:"top_k_default"`
	RetrievalMultiplier  int    `yaml:"retrieval_multiplier"`
}

// LLMConfig controls the LLM-judge provider used for extraction and scoring.
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	Seed           int           `yaml:"seed"`
	Temperature    float32       `yaml:"temperature"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxConcurrency int           `yaml:"max_concurrency"`
}

// Weights are the fusion weights applied to rule/content/goal subscores.
type Weights struct {
	Rule    float64 `yaml:"rule"`
	Content float64 `yaml:"content"`
	Goal    float64 `yaml:"goal"`
}

// MatchingConfig controls fusion weights and the calibration strategy.
type MatchingConfig struct {
	Weights     Weights `yaml:"weights"`
	Calibration string  `yaml:"calibration"`
}

// LoggingConfig controls the logrus level/format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root matcher-service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Matching  MatchingConfig  `yaml:"matching"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns a Config with every field at its documented default.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			MetricsPort: "9090",
		},
		Retrieval: RetrievalConfig{
			IndexPath:           "./data/index",
			CollectionName:      "programs_index",
			EmbedModel:          "amazon.titan-embed-text-v2:0",
			EmbeddingProvider:   "bedrock",
			TopKDefault:         10,
			RetrievalMultiplier: 2,
		},
		LLM: LLMConfig{
			Provider:       "anthropic",
			Model:          "claude-3-5-sonnet-20241022",
			Seed:           42,
			Temperature:    0.0,
			Timeout:        30 * time.Second,
			MaxConcurrency: 8,
		},
		Matching: MatchingConfig{
			Weights:     Weights{Rule: 0.45, Content: 0.35, Goal: 0.20},
			Calibration: "relative_minmax",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads, parses, defaults, and validates the configuration at path,
// then applies any environment-variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	mergeDefaults(cfg, loaded)

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return cfg, nil
}

// mergeDefaults overlays loaded onto defaults, only replacing fields loaded
// actually set (zero-value fields in loaded keep the default).
func mergeDefaults(defaults, loaded *Config) {
	if loaded.Server.Port != "" {
		defaults.Server.Port = loaded.Server.Port
	}
	if loaded.Server.MetricsPort != "" {
		defaults.Server.MetricsPort = loaded.Server.MetricsPort
	}
	if loaded.Retrieval.IndexPath != "" {
		defaults.Retrieval.IndexPath = loaded.Retrieval.IndexPath
	}
	if loaded.Retrieval.CollectionName != "" {
		defaults.Retrieval.CollectionName = loaded.Retrieval.CollectionName
	}
	if loaded.Retrieval.EmbedModel != "" {
		defaults.Retrieval.EmbedModel = loaded.Retrieval.EmbedModel
	}
	if loaded.Retrieval.EmbeddingProvider != "" {
		defaults.Retrieval.EmbeddingProvider = loaded.Retrieval.EmbeddingProvider
	}
	if loaded.Retrieval.TopKDefault != 0 {
		defaults.Retrieval.TopKDefault = loaded.Retrieval.TopKDefault
	}
	if loaded.Retrieval.RetrievalMultiplier != 0 {
		defaults.Retrieval.RetrievalMultiplier = loaded.Retrieval.RetrievalMultiplier
	}
	if loaded.LLM.Provider != "" {
		defaults.LLM.Provider = loaded.LLM.Provider
	}
	if loaded.LLM.Model != "" {
		defaults.LLM.Model = loaded.LLM.Model
	}
	if loaded.LLM.Seed != 0 {
		defaults.LLM.Seed = loaded.LLM.Seed
	}
	defaults.LLM.Temperature = loaded.LLM.Temperature
	if loaded.LLM.Timeout != 0 {
		defaults.LLM.Timeout = loaded.LLM.Timeout
	}
	if loaded.LLM.MaxConcurrency != 0 {
		defaults.LLM.MaxConcurrency = loaded.LLM.MaxConcurrency
	}
	if loaded.Matching.Weights != (Weights{}) {
		defaults.Matching.Weights = loaded.Matching.Weights
	}
	if loaded.Matching.Calibration != "" {
		defaults.Matching.Calibration = loaded.Matching.Calibration
	}
	if loaded.Logging.Level != "" {
		defaults.Logging.Level = loaded.Logging.Level
	}
	if loaded.Logging.Format != "" {
		defaults.Logging.Format = loaded.Logging.Format
	}
}

func validate(cfg *Config) error {
	switch cfg.LLM.Provider {
	case "anthropic", "bedrock":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}

	if cfg.LLM.Model == "" {
		return fmt.Errorf("LLM model is required")
	}

	if cfg.LLM.Temperature < 0.0 || cfg.LLM.Temperature > 1.0 {
		return fmt.Errorf("LLM temperature must be between 0.0 and 1.0")
	}

	sum := cfg.Matching.Weights.Rule + cfg.Matching.Weights.Content + cfg.Matching.Weights.Goal
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("matching weights must sum to 1.0, got %.3f", sum)
	}

	if cfg.Retrieval.TopKDefault <= 0 {
		return fmt.Errorf("top_k_default must be greater than 0")
	}

	if cfg.LLM.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be greater than 0")
	}

	return nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		cfg.Server.MetricsPort = v
	}
	if v := os.Getenv("INDEX_PATH"); v != "" {
		cfg.Retrieval.IndexPath = v
	}
	if v := os.Getenv("COLLECTION_NAME"); v != "" {
		cfg.Retrieval.CollectionName = v
	}
	if v := os.Getenv("EMBED_MODEL"); v != "" {
		cfg.Retrieval.EmbedModel = v
	}
	if v := os.Getenv("MATCH_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopKDefault = n
		}
	}
	if v := os.Getenv("MATCH_RETRIEVAL_MULTIPLIER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.RetrievalMultiplier = n
		}
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_SEED"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLM.Seed = n
		}
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(f)
		}
	}
	if v := os.Getenv("MATCH_WEIGHTS"); v != "" {
		if w, err := parseWeights(v); err == nil {
			cfg.Matching.Weights = w
		}
	}
	if v := os.Getenv("MATCH_CALIBRATION"); v != "" {
		cfg.Matching.Calibration = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// parseWeights parses a "rule,content,goal" triple such as "0.45,0.35,0.20"
// into a Weights value.
func parseWeights(v string) (Weights, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 3 {
		return Weights{}, fmt.Errorf("MATCH_WEIGHTS must have 3 comma-separated values, got %d", len(parts))
	}
	rule, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Weights{}, fmt.Errorf("invalid rule weight: %w", err)
	}
	content, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Weights{}, fmt.Errorf("invalid content weight: %w", err)
	}
	goal, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return Weights{}, fmt.Errorf("invalid goal weight: %w", err)
	}
	return Weights{Rule: rule, Content: content, Goal: goal}, nil
}
