package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks ranges and fills zero values with defaults.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.APITimeout < 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.APITimeout)
	}
	if c.APITimeout == 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.Workers == 0 {
		c.Workers = 2
	}

	n := &c.Network
	if n.ErrorRate < 0 || n.ErrorRate > 1 {
		return fmt.Errorf("network.error_rate must be in [0,1], got %v", n.ErrorRate)
	}
	if n.MinLatency < 0 || n.MaxLatency < 0 {
		return fmt.Errorf("network latencies must be >= 0")
	}
	if n.MaxLatency < n.MinLatency {
		return fmt.Errorf("network.max_latency (%v) is below network.min_latency (%v)", n.MaxLatency, n.MinLatency)
	}

	r := &c.Remote
	if r.BaseURL == "" {
		r.BaseURL = "http://localhost" + c.Addr
		if !strings.HasPrefix(c.Addr, ":") {
			r.BaseURL = "http://" + c.Addr
		}
	}
	if r.Timeout <= 0 {
		r.Timeout = 10 * time.Second
	}
	if r.Retries < 0 {
		return fmt.Errorf("remote.retries must be >= 0, got %d", r.Retries)
	}
	if r.Backoff <= 0 {
		r.Backoff = 200 * time.Millisecond
	}
	if r.MaxBackoff <= 0 {
		r.MaxBackoff = 5 * time.Second
	}

	w := &c.Workspace
	if w.DatabasePath == "" {
		w.DatabasePath = "workspace.db"
	}
	if w.AutosaveInterval <= 0 {
		w.AutosaveInterval = 2 * time.Second
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug|info|warn|error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json|text", c.Log.Format)
	}

	return nil
}
