package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetRequestSchema returns the JSON schema used to validate create bodies of
// a collection, or "" when none is stored.
func (r *SQLiteRepo) GetRequestSchema(ctx context.Context, collection string) (string, error) {
	var s string
	err := r.conn.QueryRow(ctx, `SELECT schema_json FROM request_schemas WHERE collection = ?`, collection).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return s, err
}

// PutRequestSchema inserts or replaces the schema of a collection.
func (r *SQLiteRepo) PutRequestSchema(ctx context.Context, collection, schemaJSON string) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO request_schemas (collection, schema_json, updated) VALUES (?, ?, ?) ON CONFLICT(collection) DO UPDATE SET schema_json=excluded.schema_json, updated=excluded.updated`, collection, schemaJSON, millis(now()))
	return err
}

func (r *SQLiteRepo) ListRequestSchemas(ctx context.Context) (map[string]string, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT collection, schema_json FROM request_schemas ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list request schemas: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var c, s string
		if err := rows.Scan(&c, &s); err != nil {
			return nil, err
		}
		out[c] = s
	}
	return out, rows.Err()
}
