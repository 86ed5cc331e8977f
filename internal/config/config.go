package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the insight engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Registry RegistryConfig `yaml:"registry"`
	Cache    CacheConfig    `yaml:"cache"`
	Training TrainingConfig `yaml:"training"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the HTTP listener and metrics sidecar.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// StoreConfig configures access to the review record service.
type StoreConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	EventsPath string        `yaml:"eventsPath"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheTTL   time.Duration `yaml:"cacheTTL"`
}

// RegistryConfig configures the embedded model registry.
type RegistryConfig struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"inMemory"`
	SyncWrites bool   `yaml:"syncWrites"`
}

// CacheConfig controls in-process caching of review store queries.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TrainingConfig tunes the training protocol.
type TrainingConfig struct {
	ModelName     string  `yaml:"modelName"`
	HoldoutDays   int     `yaml:"holdoutDays"`
	Trees         int     `yaml:"trees"`
	MaxDepth      int     `yaml:"maxDepth"`
	Clusters      int     `yaml:"clusters"`
	Contamination float64 `yaml:"contamination"`
	Seed          int64   `yaml:"seed"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PEERINSIGHT_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			EventsPath: "/api/v1/reviews/query",
			Timeout:    5 * time.Second,
			CacheTTL:   time.Minute,
		},
		Registry: RegistryConfig{
			Path:       "data/registry",
			SyncWrites: true,
		},
		Cache: CacheConfig{Enabled: true},
		Training: TrainingConfig{
			ModelName:     "behavioral",
			HoldoutDays:   14,
			Trees:         100,
			MaxDepth:      10,
			Clusters:      4,
			Contamination: 0.1,
			Seed:          42,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PEERINSIGHT_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("PEERINSIGHT_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("PEERINSIGHT_STORE_BASE_URL"); v != "" {
		cfg.Store.BaseURL = v
	}
	if v := os.Getenv("PEERINSIGHT_STORE_EVENTS_PATH"); v != "" {
		cfg.Store.EventsPath = v
	}
	if v := os.Getenv("PEERINSIGHT_STORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.Timeout = d
		}
	}
	if v := os.Getenv("PEERINSIGHT_STORE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.CacheTTL = d
		}
	}
	if v := os.Getenv("PEERINSIGHT_REGISTRY_PATH"); v != "" {
		cfg.Registry.Path = v
	}
	if v := os.Getenv("PEERINSIGHT_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("PEERINSIGHT_MODEL_NAME"); v != "" {
		cfg.Training.ModelName = v
	}
	if v := os.Getenv("PEERINSIGHT_TRAINING_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Training.Seed = seed
		}
	}
	if v := os.Getenv("PEERINSIGHT_TRAINING_TREES"); v != "" {
		if trees, err := strconv.Atoi(v); err == nil {
			cfg.Training.Trees = trees
		}
	}
	if v := os.Getenv("PEERINSIGHT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PEERINSIGHT_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
