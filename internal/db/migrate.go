package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
)

// Migrate applies migrations and seed files found in the repository.
// It creates a `schema_migrations` table to track applied migrations and applies
// any SQL files in `migrations/` that have not yet been recorded. Seed files
// named `seed/schema_<collection>.json` are upserted into request_schemas so the
// remote service can validate create bodies.
func Migrate(ctx context.Context, d *DB, migrationFS embed.FS, seedFS embed.FS) error {
	// ensure migrations table exists
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migDir := "migrations"

	entries, err := fs.ReadDir(migrationFS, migDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		// use filename (without extension) as migration version key
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec migration %s: %w", fname, err)
		}

		if _, err := d.Exec(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
		d.logger.Info("migration applied", slog.String("version", version))
	}

	// seeds are optional; a missing seed dir is not an error
	seeds, err := fs.ReadDir(seedFS, "seed")
	if err != nil {
		return nil
	}
	for _, e := range seeds {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "schema_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		collection := strings.TrimSuffix(strings.TrimPrefix(name, "schema_"), ".json")
		b, err := fs.ReadFile(seedFS, path.Join("seed", name))
		if err != nil {
			return fmt.Errorf("read seed %s: %w", name, err)
		}
		if _, err := d.Exec(ctx, `INSERT INTO request_schemas (collection, schema_json, updated) VALUES (?, ?, strftime('%s','now')) ON CONFLICT(collection) DO UPDATE SET schema_json=excluded.schema_json, updated=excluded.updated`, collection, string(b)); err != nil {
			return fmt.Errorf("seed schema %s: %w", collection, err)
		}
	}

	return nil
}
