package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/garnizeh/talentflow/internal/db"
	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn     *db.DB
	logger   *slog.Logger
	validate *validator.Validate
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.Store = (*SQLiteRepo)(nil)
var _ repository.SchemaRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &SQLiteRepo{conn: conn, logger: logger, validate: v}
}

// DB exposes the wrapped connection (backups, workers).
func (r *SQLiteRepo) DB() *db.DB { return r.conn }

// now and newID are swapped in tests.
var (
	now   = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
	newID = func() string { return uuid.NewString() }
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepo) q() querier { return r.conn.GetConn() }

func millis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// check runs struct-tag validation and converts failures into a field-scoped
// validation error.
func (r *SQLiteRepo) check(v any) error {
	err := r.validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return errs.Wrap(errs.KindValidation, err, "invalid input")
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return errs.Validation("invalid input", fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be >= " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// mapWriteErr turns unique constraint violations into Conflict errors.
func mapWriteErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return errs.Wrap(errs.KindConflict, err, "%s already exists", what)
	}
	return fmt.Errorf("write %s: %w", what, err)
}

// upsert inserts a row keyed by id, or overwrites every column of an existing
// one. The existing seq is kept unless seq > 0 is given for a fresh insert.
func upsert(ctx context.Context, q querier, table string, cols []string, vals []any, seq int64) error {
	insertCols := cols
	args := vals
	if seq > 0 {
		insertCols = append([]string{"seq"}, cols...)
		args = append([]any{seq}, vals...)
	}
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "id" {
			continue
		}
		sets = append(sets, c+"=excluded."+c)
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s`,
		table, strings.Join(insertCols, ", "), placeholders(len(insertCols)), strings.Join(sets, ", "))
	if _, err := q.ExecContext(ctx, stmt, args...); err != nil {
		return mapWriteErr(err, table)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// collect drains rows with scan. Rows are closed before returning so the
// single connection is free for the next statement.
func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func list[T any](ctx context.Context, q querier, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scan)
}

// one returns (nil, nil) when no row matches.
func one[T any](ctx context.Context, q querier, scan func(scanner) (T, error), query string, args ...any) (*T, error) {
	v, err := scan(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
