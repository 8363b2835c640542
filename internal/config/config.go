package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr           string          `yaml:"addr"`
	APITimeout     time.Duration   `yaml:"timeout"`
	DatabasePath   string          `yaml:"database_path"`
	MigrateOnStart bool            `yaml:"migrate_on_start"`
	Workers        int             `yaml:"workers"`
	Network        NetworkConfig   `yaml:"network"`
	Remote         RemoteConfig    `yaml:"remote"`
	Workspace      WorkspaceConfig `yaml:"workspace"`
	Log            LogConfig       `yaml:"log"`
}

// NetworkConfig controls the failure simulation of the remote service.
type NetworkConfig struct {
	MinLatency time.Duration `yaml:"min_latency"`
	MaxLatency time.Duration `yaml:"max_latency"`
	ErrorRate  float64       `yaml:"error_rate"`
	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// RemoteConfig configures the client side of the remote service.
type RemoteConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

type WorkspaceConfig struct {
	DatabasePath     string        `yaml:"database_path"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig builds the configuration from defaults, the environment (after
// an optional .env file) and finally the YAML file at path, if any.
func LoadConfig(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:         getEnv("TALENTFLOW_ADDR", ":8080"),
		APITimeout:   15 * time.Second,
		DatabasePath: getEnv("TALENTFLOW_DATABASE_PATH", "talentflow.db"),
		Workers:      2,
		Network: NetworkConfig{
			MinLatency: getEnvDuration("TALENTFLOW_MIN_LATENCY", 200*time.Millisecond),
			MaxLatency: getEnvDuration("TALENTFLOW_MAX_LATENCY", 1200*time.Millisecond),
			ErrorRate:  getEnvFloat("TALENTFLOW_ERROR_RATE", 0.05),
		},
		Remote: RemoteConfig{
			BaseURL:    getEnv("TALENTFLOW_REMOTE_URL", "http://localhost:8080"),
			Timeout:    10 * time.Second,
			Retries:    2,
			Backoff:    200 * time.Millisecond,
			MaxBackoff: 5 * time.Second,
		},
		Workspace: WorkspaceConfig{
			DatabasePath:     getEnv("TALENTFLOW_WORKSPACE_DB", "workspace.db"),
			AutosaveInterval: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  getEnv("TALENTFLOW_LOG_LEVEL", "info"),
			Format: getEnv("TALENTFLOW_LOG_FORMAT", "json"),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// LoadDotEnv loads environment files without overriding variables that are
// already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}
