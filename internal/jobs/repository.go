// small contract description
// inputs: background_jobs rows, handlers map
// outputs: job status updates, dead-letter moves on permanent failure
// error modes: db errors, handler errors
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/talentflow/internal/db"
)

type Repository struct {
	db *db.DB
}

func NewRepository(d *db.DB) *Repository { return &Repository{db: d} }

func nowMilli() int64 { return time.Now().UTC().UnixMilli() }

func fromMilli(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

const jobCols = `id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`

// Enqueue inserts a job into the background_jobs table and returns the new ID
func (r *Repository) Enqueue(ctx context.Context, j *Job) (int64, error) {
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now()
	}
	now := nowMilli()
	q := `INSERT INTO background_jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`
	res, err := r.db.Exec(ctx, q, j.Type, string(j.Payload), StatusQueued, j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.UTC().UnixMilli(), now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return res.LastInsertId()
}

func scanJob(row interface{ Scan(...any) error }) (*Job, error) {
	var (
		j           Job
		payload     sql.NullString
		scheduledAt int64
		nextTry     sql.NullInt64
		lastError   sql.NullString
		created     int64
		updated     int64
	)
	if err := row.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority, &scheduledAt, &nextTry, &lastError, &created, &updated); err != nil {
		return nil, err
	}
	j.ScheduledAt = fromMilli(scheduledAt)
	j.Created = fromMilli(created)
	j.Updated = fromMilli(updated)
	if payload.Valid {
		j.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		t := fromMilli(nextTry.Int64)
		j.NextTryAt = &t
	}
	if lastError.Valid {
		j.LastError = lastError.String
	}
	return &j, nil
}

// FetchNext fetches the next available job respecting priority and schedule
func (r *Repository) FetchNext(ctx context.Context) (*Job, error) {
	q := `SELECT ` + jobCols + ` FROM background_jobs WHERE (status = 'queued' OR status = 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ? ORDER BY priority ASC, scheduled_at ASC, id ASC LIMIT 1`
	now := nowMilli()
	j, err := scanJob(r.db.QueryRow(ctx, q, now, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch next job: %w", err)
	}
	return j, nil
}

// Get returns a job by id or (nil, nil).
func (r *Repository) Get(ctx context.Context, id int64) (*Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobCols+` FROM background_jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

// UpdateJob updates attempts, status, next_try_at, last_error
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.UTC().UnixMilli()
	}
	q := `UPDATE background_jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.db.Exec(ctx, q, j.Status, j.Attempts, nextTry, j.LastError, nowMilli(), j.ID)
	return err
}

// MoveToDeadLetter moves a job to dead_letter_jobs and deletes the original
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		insert := `INSERT INTO dead_letter_jobs(job_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`
		if _, err := tx.ExecContext(ctx, insert, j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, nowMilli()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM background_jobs WHERE id = ?`, j.ID)
		return err
	})
}

// DeadLetter is a job that exhausted its attempts.
type DeadLetter struct {
	JobID     int64
	Type      string
	Payload   json.RawMessage
	Attempts  int
	LastError string
	FailedAt  time.Time
}

func (r *Repository) DeadLetters(ctx context.Context) ([]DeadLetter, error) {
	rows, err := r.db.QueryRows(ctx, `SELECT job_id, type, payload, attempts, last_error, failed_at FROM dead_letter_jobs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DeadLetter{}
	for rows.Next() {
		var (
			d        DeadLetter
			payload  sql.NullString
			lastErr  sql.NullString
			failedAt int64
		)
		if err := rows.Scan(&d.JobID, &d.Type, &payload, &d.Attempts, &lastErr, &failedAt); err != nil {
			return nil, err
		}
		d.Payload = json.RawMessage(payload.String)
		d.LastError = lastErr.String
		d.FailedAt = fromMilli(failedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByStatus reports how many jobs are in each status.
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryRows(ctx, `SELECT status, COUNT(1) FROM background_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}
