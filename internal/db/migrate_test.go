package db_test

import (
	"context"
	"testing"

	dbfs "github.com/garnizeh/talentflow/db"
	"github.com/garnizeh/talentflow/internal/db"
	"github.com/garnizeh/talentflow/internal/db/dbtest"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, dbtest.DSN(t), nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 migration recorded, got %d", count)
	}

	for _, table := range []string{"jobs", "candidates", "candidate_notes", "timeline_events", "assessments", "assessment_responses", "request_schemas", "background_jobs", "dead_letter_jobs"} {
		var name string
		if err := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Fatalf("expected %s table exists: %v", table, err)
		}
	}
}

func TestMigrate_SeedsRequestSchemas(t *testing.T) {
	ctx := context.Background()
	d := dbtest.New(t)

	for _, collection := range []string{"jobs", "candidates", "notes", "assessments", "assessment-responses"} {
		var schema string
		if err := d.QueryRow(ctx, `SELECT schema_json FROM request_schemas WHERE collection = ?`, collection).Scan(&schema); err != nil {
			t.Fatalf("expected schema for %s: %v", collection, err)
		}
		if schema == "" {
			t.Fatalf("empty schema for %s", collection)
		}
	}
}
