package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/pkg/models"
)

const candidateCols = `seq, id, name, email, stage, job_id, applied, updated`

func scanCandidate(s scanner) (models.Candidate, error) {
	var (
		c                models.Candidate
		applied, updated int64
	)
	if err := s.Scan(&c.Seq, &c.ID, &c.Name, &c.Email, &c.Stage, &c.JobID, &applied, &updated); err != nil {
		return c, err
	}
	c.AppliedAt = fromMillis(applied)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func putCandidate(ctx context.Context, q querier, c models.Candidate) error {
	return upsert(ctx, q, "candidates",
		[]string{"id", "name", "email", "stage", "job_id", "applied", "updated"},
		[]any{c.ID, c.Name, c.Email, string(c.Stage), c.JobID, millis(c.AppliedAt), millis(c.UpdatedAt)},
		c.Seq)
}

func jobExists(ctx context.Context, q querier, id string) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("check job: %w", err)
	}
	if n == 0 {
		return errs.Validation("unknown job", map[string]string{"jobId": "references a job that does not exist"})
	}
	return nil
}

// CreateCandidate stores a new candidate for an existing job. Stage defaults
// to applied.
func (r *SQLiteRepo) CreateCandidate(ctx context.Context, in *models.Candidate) (*models.Candidate, error) {
	if in == nil {
		return nil, fmt.Errorf("candidate is nil")
	}

	c := *in
	c.ID = newID()
	c.Seq = 0
	if c.Stage == "" {
		c.Stage = models.StageApplied
	}
	c.AppliedAt = now()
	c.UpdatedAt = c.AppliedAt
	if err := r.check(c); err != nil {
		return nil, err
	}

	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if err := jobExists(ctx, tx, c.JobID); err != nil {
			return err
		}
		if err := putCandidate(ctx, tx, c); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT seq FROM candidates WHERE id = ?`, c.ID).Scan(&c.Seq)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteRepo) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	return one(ctx, r.q(), scanCandidate, `SELECT `+candidateCols+` FROM candidates WHERE id = ?`, id)
}

func (r *SQLiteRepo) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	return list(ctx, r.q(), scanCandidate, `SELECT `+candidateCols+` FROM candidates ORDER BY seq`)
}

func (r *SQLiteRepo) UpdateCandidate(ctx context.Context, id string, p models.CandidatePatch) (*models.Candidate, error) {
	var out *models.Candidate
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		cur, err := one(ctx, tx, scanCandidate, `SELECT `+candidateCols+` FROM candidates WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return errs.NotFound("candidate", id)
		}

		c := *cur
		p.Apply(&c)
		c.UpdatedAt = now()
		if err := r.check(c); err != nil {
			return err
		}
		if c.JobID != cur.JobID {
			if err := jobExists(ctx, tx, c.JobID); err != nil {
				return err
			}
		}
		if err := putCandidate(ctx, tx, c); err != nil {
			return err
		}
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCandidate removes the candidate with its notes, timeline and
// responses in one transaction.
func (r *SQLiteRepo) DeleteCandidate(ctx context.Context, id string) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM candidates WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete candidate %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.NotFound("candidate", id)
		}
		return deleteCandidateDependents(ctx, tx, id)
	})
}

func deleteCandidateDependents(ctx context.Context, q querier, id string) error {
	for _, s := range []string{
		`DELETE FROM candidate_notes WHERE candidate_id = ?`,
		`DELETE FROM timeline_events WHERE candidate_id = ?`,
		`DELETE FROM assessment_responses WHERE candidate_id = ?`,
	} {
		if _, err := q.ExecContext(ctx, s, id); err != nil {
			return fmt.Errorf("delete dependents of %s: %w", id, err)
		}
	}
	return nil
}

func (r *SQLiteRepo) PutCandidate(ctx context.Context, c models.Candidate) error {
	return putCandidate(ctx, r.q(), c)
}
