package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/pkg/models"
)

const jobCols = `seq, id, title, slug, status, tags, ord, description, requirements, created, updated`

func scanJob(s scanner) (models.Job, error) {
	var (
		j                models.Job
		tags, reqs       string
		created, updated int64
	)
	if err := s.Scan(&j.Seq, &j.ID, &j.Title, &j.Slug, &j.Status, &tags, &j.Order, &j.Description, &reqs, &created, &updated); err != nil {
		return j, err
	}
	if err := decodeJSON(tags, &j.Tags); err != nil {
		return j, err
	}
	if err := decodeJSON(reqs, &j.Requirements); err != nil {
		return j, err
	}
	j.Tags = orEmpty(j.Tags)
	j.Requirements = orEmpty(j.Requirements)
	j.CreatedAt = fromMillis(created)
	j.UpdatedAt = fromMillis(updated)
	return j, nil
}

func putJob(ctx context.Context, q querier, j models.Job) error {
	tags, err := encodeJSON(orEmpty(j.Tags))
	if err != nil {
		return err
	}
	reqs, err := encodeJSON(orEmpty(j.Requirements))
	if err != nil {
		return err
	}
	return upsert(ctx, q, "jobs",
		[]string{"id", "title", "slug", "status", "tags", "ord", "description", "requirements", "created", "updated"},
		[]any{j.ID, j.Title, j.Slug, string(j.Status), tags, j.Order, j.Description, reqs, millis(j.CreatedAt), millis(j.UpdatedAt)},
		j.Seq)
}

func slugTaken(ctx context.Context, q querier, slug, exceptID string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE slug = ? AND id <> ?`, slug, exceptID).Scan(&n); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

// CreateJob stores a new job at the end of the ordering. The slug is derived
// from the title when not given.
func (r *SQLiteRepo) CreateJob(ctx context.Context, in *models.Job) (*models.Job, error) {
	if in == nil {
		return nil, fmt.Errorf("job is nil")
	}

	j := *in
	j.ID = newID()
	if j.Slug == "" {
		j.Slug = models.Slugify(j.Title)
	}
	if j.Status == "" {
		j.Status = models.JobActive
	}
	j.Tags = models.NormalizeTags(j.Tags)
	j.Requirements = orEmpty(append([]string(nil), j.Requirements...))
	j.CreatedAt = now()
	j.UpdatedAt = j.CreatedAt
	j.Order = 0
	j.Seq = 0
	if err := r.check(j); err != nil {
		return nil, err
	}

	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		taken, err := slugTaken(ctx, tx, j.Slug, j.ID)
		if err != nil {
			return err
		}
		if taken {
			return errs.Conflict("slug %q is already used by another job", j.Slug)
		}
		if j.Order, err = nextOrder(ctx, tx); err != nil {
			return err
		}
		if err := putJob(ctx, tx, j); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT seq FROM jobs WHERE id = ?`, j.ID).Scan(&j.Seq)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("job created", slog.String("id", j.ID), slog.Int("order", j.Order))
	return &j, nil
}

func (r *SQLiteRepo) GetJob(ctx context.Context, id string) (*models.Job, error) {
	return one(ctx, r.q(), scanJob, `SELECT `+jobCols+` FROM jobs WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetJobBySlug(ctx context.Context, slug string) (*models.Job, error) {
	return one(ctx, r.q(), scanJob, `SELECT `+jobCols+` FROM jobs WHERE slug = ?`, slug)
}

// ListJobs returns every job in insertion order.
func (r *SQLiteRepo) ListJobs(ctx context.Context) ([]models.Job, error) {
	return list(ctx, r.q(), scanJob, `SELECT `+jobCols+` FROM jobs ORDER BY seq`)
}

// UpdateJob merges p into the stored job. A title change without an explicit
// slug recomputes the slug.
func (r *SQLiteRepo) UpdateJob(ctx context.Context, id string, p models.JobPatch) (*models.Job, error) {
	var out *models.Job
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		cur, err := one(ctx, tx, scanJob, `SELECT `+jobCols+` FROM jobs WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return errs.NotFound("job", id)
		}

		j := *cur
		p.Apply(&j)
		if p.Title.IsPresent() && p.Slug.IsAbsent() {
			j.Slug = models.Slugify(j.Title)
		}
		j.UpdatedAt = now()
		if err := r.check(j); err != nil {
			return err
		}
		if j.Slug != cur.Slug {
			taken, err := slugTaken(ctx, tx, j.Slug, j.ID)
			if err != nil {
				return err
			}
			if taken {
				return errs.Conflict("slug %q is already used by another job", j.Slug)
			}
		}
		if err := putJob(ctx, tx, j); err != nil {
			return err
		}
		out = &j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteJob removes the job and everything it owns in one transaction, then
// closes the gap it leaves in the ordering.
func (r *SQLiteRepo) DeleteJob(ctx context.Context, id string) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		var ord int
		if err := tx.QueryRowContext(ctx, `SELECT ord FROM jobs WHERE id = ?`, id).Scan(&ord); err != nil {
			if err == sql.ErrNoRows {
				return errs.NotFound("job", id)
			}
			return fmt.Errorf("load job: %w", err)
		}

		stmts := []string{
			`DELETE FROM candidate_notes WHERE candidate_id IN (SELECT id FROM candidates WHERE job_id = ?)`,
			`DELETE FROM timeline_events WHERE candidate_id IN (SELECT id FROM candidates WHERE job_id = ?)`,
			`DELETE FROM assessment_responses WHERE candidate_id IN (SELECT id FROM candidates WHERE job_id = ?)`,
			`DELETE FROM assessment_responses WHERE assessment_id IN (SELECT id FROM assessments WHERE job_id = ?)`,
			`DELETE FROM candidates WHERE job_id = ?`,
			`DELETE FROM assessments WHERE job_id = ?`,
			`DELETE FROM jobs WHERE id = ?`,
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s, id); err != nil {
				return fmt.Errorf("delete job %s: %w", id, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET ord = ord - 1 WHERE ord > ?`, ord); err != nil {
			return fmt.Errorf("compact order: %w", err)
		}
		return nil
	})
}

// PutJob writes j as-is. Used to reconcile with the remote copy and to roll
// back optimistic changes.
func (r *SQLiteRepo) PutJob(ctx context.Context, j models.Job) error {
	return putJob(ctx, r.q(), j)
}
