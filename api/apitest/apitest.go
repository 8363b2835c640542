// Package apitest runs the REST service in-process for tests.
package apitest

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/garnizeh/talentflow/api"
	"github.com/garnizeh/talentflow/internal/config"
	"github.com/garnizeh/talentflow/internal/db"
	"github.com/garnizeh/talentflow/internal/db/dbtest"
	"github.com/garnizeh/talentflow/internal/jobs"
)

// Server is a running service with its backing database.
type Server struct {
	*httptest.Server
	DB *db.DB
}

// New starts the service over a fresh migrated database. The server is
// closed when the test ends. queue may be nil.
func New(t testing.TB, network config.NetworkConfig, queue jobs.Enqueuer) *Server {
	t.Helper()
	api.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	d := dbtest.New(t)
	cfg := &config.Config{Network: network}
	r, err := api.SetupRoutes(context.Background(), cfg, "test", "now", d, queue, nil)
	if err != nil {
		t.Fatalf("setup routes: %v", err)
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &Server{Server: srv, DB: d}
}

// RemoteConfig points a client at the server without retries.
func (s *Server) RemoteConfig() config.RemoteConfig {
	return config.RemoteConfig{BaseURL: s.URL}
}
