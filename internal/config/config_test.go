package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/garnizeh/talentflow/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Addr:         ":8080",
		APITimeout:   5 * time.Second,
		DatabasePath: "talentflow.db",
		Network: config.NetworkConfig{
			MinLatency: 200 * time.Millisecond,
			MaxLatency: 1200 * time.Millisecond,
			ErrorRate:  0.05,
		},
	}
}

func TestValidate_DefaultsPopulated(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}

	if cfg.Remote.BaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected Remote.BaseURL: %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Timeout <= 0 {
		t.Fatalf("expected Remote.Timeout to be > 0")
	}
	if cfg.Remote.MaxBackoff != 5*time.Second {
		t.Fatalf("expected Remote.MaxBackoff default of 5s, got %v", cfg.Remote.MaxBackoff)
	}
	if cfg.Workspace.AutosaveInterval <= 0 {
		t.Fatalf("expected Workspace.AutosaveInterval to be > 0")
	}
	if cfg.Workers == 0 {
		t.Fatalf("expected Workers default to be non-zero")
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(c *config.Config){
		"error rate above one":  func(c *config.Config) { c.Network.ErrorRate = 1.5 },
		"negative error rate":   func(c *config.Config) { c.Network.ErrorRate = -0.1 },
		"max below min latency": func(c *config.Config) { c.Network.MaxLatency = 10 * time.Millisecond },
		"negative retries":      func(c *config.Config) { c.Remote.Retries = -1 },
		"negative timeout":      func(c *config.Config) { c.APITimeout = -time.Second },
		"missing database path": func(c *config.Config) { c.DatabasePath = "" },
		"unknown log level":     func(c *config.Config) { c.Log.Level = "loud" },
		"unknown log format":    func(c *config.Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected Validate to fail")
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"TALENTFLOW_ADDR", "TALENTFLOW_DATABASE_PATH", "TALENTFLOW_ERROR_RATE", "TALENTFLOW_REMOTE_URL"} {
		t.Setenv(k, "")
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error for empty path: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":8080")
	}
	if cfg.DatabasePath != "talentflow.db" {
		t.Fatalf("unexpected DatabasePath: got %q want %q", cfg.DatabasePath, "talentflow.db")
	}
	if cfg.APITimeout != 15*time.Second {
		t.Fatalf("unexpected APITimeout: got %v want %v", cfg.APITimeout, 15*time.Second)
	}
	if cfg.Network.ErrorRate != 0.05 {
		t.Fatalf("unexpected ErrorRate: got %v", cfg.Network.ErrorRate)
	}
	if cfg.Remote.Retries != 2 {
		t.Fatalf("unexpected Retries: got %d", cfg.Remote.Retries)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("TALENTFLOW_ADDR", ":7070")
	t.Setenv("TALENTFLOW_ERROR_RATE", "0.5")
	t.Setenv("TALENTFLOW_MAX_LATENCY", "3s")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("unexpected Addr: %q", cfg.Addr)
	}
	if cfg.Network.ErrorRate != 0.5 {
		t.Fatalf("unexpected ErrorRate: %v", cfg.Network.ErrorRate)
	}
	if cfg.Network.MaxLatency != 3*time.Second {
		t.Fatalf("unexpected MaxLatency: %v", cfg.Network.MaxLatency)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`addr: ":9090"
timeout: "30s"
database_path: "test.db"
network:
  min_latency: "0s"
  max_latency: "50ms"
  error_rate: 0.2
remote:
  base_url: "http://remote:9090"
  retries: 4
workspace:
  autosave_interval: "500ms"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error for file: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":9090")
	}
	if cfg.DatabasePath != "test.db" {
		t.Fatalf("unexpected DatabasePath: got %q want %q", cfg.DatabasePath, "test.db")
	}
	if cfg.APITimeout != 30*time.Second {
		t.Fatalf("unexpected APITimeout: got %v want %v", cfg.APITimeout, 30*time.Second)
	}
	if cfg.Network.MaxLatency != 50*time.Millisecond || cfg.Network.ErrorRate != 0.2 {
		t.Fatalf("unexpected network section: %+v", cfg.Network)
	}
	if cfg.Remote.BaseURL != "http://remote:9090" || cfg.Remote.Retries != 4 {
		t.Fatalf("unexpected remote section: %+v", cfg.Remote)
	}
	if cfg.Workspace.AutosaveInterval != 500*time.Millisecond {
		t.Fatalf("unexpected autosave interval: %v", cfg.Workspace.AutosaveInterval)
	}
	// untouched keys keep their defaults
	if cfg.Remote.Backoff != 200*time.Millisecond {
		t.Fatalf("unexpected Backoff: %v", cfg.Remote.Backoff)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TALENTFLOW_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("TALENTFLOW_TEST_DOTENV") })

	if err := config.LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("TALENTFLOW_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

func TestLoadConfig_BadPath(t *testing.T) {
	if _, err := config.LoadConfig("/path/that/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent path, got nil")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("timeout: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("failed to write bad yaml: %v", err)
	}

	if _, err := config.LoadConfig(path); err == nil {
		t.Fatalf("expected YAML decode error, got nil")
	}
}
