// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"

	dbfs "github.com/garnizeh/talentflow/db"
	"github.com/garnizeh/talentflow/internal/db"
)

var (
	unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)
	counter    atomic.Int64
)

// DSN returns an in-memory DSN private to the calling test.
func DSN(t testing.TB) string {
	t.Helper()
	name := unsafeName.ReplaceAllString(t.Name(), "_")
	return fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, counter.Add(1))
}

// New opens a fresh in-memory database with every migration applied. It is
// closed when the test ends.
func New(t testing.TB) *db.DB {
	t.Helper()
	ctx := context.Background()
	d, err := db.New(ctx, DSN(t), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}
