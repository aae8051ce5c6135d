// Package config loads the service settings from an optional YAML file and
// WORKFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Addr      string          `mapstructure:"addr"`
	StaticDir string          `mapstructure:"static_dir"`
	SeedDemo  bool            `mapstructure:"seed_demo"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Assistant AssistantConfig `mapstructure:"assistant"`
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

// StorageConfig selects the collection backend.
type StorageConfig struct {
	Driver        string        `mapstructure:"driver"`
	Path          string        `mapstructure:"path"`
	MongoURI      string        `mapstructure:"mongo_uri"`
	MongoDatabase string        `mapstructure:"mongo_database"`
	Retries       int           `mapstructure:"retries"`
	Backoff       time.Duration `mapstructure:"backoff"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	HashCost  int           `mapstructure:"hash_cost"`
}

type AssistantConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return EnvOrDefault("WORKFLOW_CONFIG", "config.yaml")
}

// EnvOrDefault returns the environment variable value or fallback when it is empty.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Load reads path when it exists and overlays the environment. A missing
// file is not an error; every setting has a default.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WORKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return errors.New("storage.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Retries < 0 {
		return errors.New("storage.retries must not be negative")
	}
	switch c.Assistant.Provider {
	case "", "gemini", "openai":
	default:
		return fmt.Errorf("unknown assistant provider %q", c.Assistant.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("static_dir", "web/dist")
	v.SetDefault("seed_demo", false)
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "data/workflow.db")
	v.SetDefault("storage.mongo_uri", "")
	v.SetDefault("storage.mongo_database", "workflow")
	v.SetDefault("storage.retries", 3)
	v.SetDefault("storage.backoff", 100*time.Millisecond)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.hash_cost", 0)
	v.SetDefault("assistant.provider", "gemini")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.model", "")
	v.SetDefault("assistant.base_url", "")
}
