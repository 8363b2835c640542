package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/pkg/models"
)

const assessmentCols = `seq, id, job_id, title, sections, created, updated`

func scanAssessment(s scanner) (models.Assessment, error) {
	var (
		a                models.Assessment
		sections         string
		created, updated int64
	)
	if err := s.Scan(&a.Seq, &a.ID, &a.JobID, &a.Title, &sections, &created, &updated); err != nil {
		return a, err
	}
	if err := decodeJSON(sections, &a.Sections); err != nil {
		return a, err
	}
	if a.Sections == nil {
		a.Sections = []models.AssessmentSection{}
	}
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}

func putAssessment(ctx context.Context, q querier, a models.Assessment) error {
	if a.Sections == nil {
		a.Sections = []models.AssessmentSection{}
	}
	sections, err := encodeJSON(a.Sections)
	if err != nil {
		return err
	}
	return upsert(ctx, q, "assessments",
		[]string{"id", "job_id", "title", "sections", "created", "updated"},
		[]any{a.ID, a.JobID, a.Title, sections, millis(a.CreatedAt), millis(a.UpdatedAt)},
		a.Seq)
}

// CreateAssessment stores the assessment of a job. A job has at most one
// assessment; a second one is a Conflict.
func (r *SQLiteRepo) CreateAssessment(ctx context.Context, in *models.Assessment) (*models.Assessment, error) {
	if in == nil {
		return nil, fmt.Errorf("assessment is nil")
	}

	a := in.Clone()
	a.ID = newID()
	a.Seq = 0
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	if err := r.check(a); err != nil {
		return nil, err
	}

	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if err := jobExists(ctx, tx, a.JobID); err != nil {
			return err
		}
		existing, err := one(ctx, tx, scanAssessment, `SELECT `+assessmentCols+` FROM assessments WHERE job_id = ?`, a.JobID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.Conflict("job %s already has assessment %s", a.JobID, existing.ID)
		}
		if err := putAssessment(ctx, tx, a); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT seq FROM assessments WHERE id = ?`, a.ID).Scan(&a.Seq)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *SQLiteRepo) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	return one(ctx, r.q(), scanAssessment, `SELECT `+assessmentCols+` FROM assessments WHERE id = ?`, id)
}

// GetAssessmentByJob returns the job's assessment or (nil, nil).
func (r *SQLiteRepo) GetAssessmentByJob(ctx context.Context, jobID string) (*models.Assessment, error) {
	return one(ctx, r.q(), scanAssessment, `SELECT `+assessmentCols+` FROM assessments WHERE job_id = ? ORDER BY seq LIMIT 1`, jobID)
}

func (r *SQLiteRepo) ListAssessments(ctx context.Context) ([]models.Assessment, error) {
	return list(ctx, r.q(), scanAssessment, `SELECT `+assessmentCols+` FROM assessments ORDER BY seq`)
}

// UpdateAssessment replaces the title and sections. The owning job and the
// creation time never change.
func (r *SQLiteRepo) UpdateAssessment(ctx context.Context, id string, in models.Assessment) (*models.Assessment, error) {
	var out *models.Assessment
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		cur, err := one(ctx, tx, scanAssessment, `SELECT `+assessmentCols+` FROM assessments WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return errs.NotFound("assessment", id)
		}

		a := in.Clone()
		a.ID = cur.ID
		a.JobID = cur.JobID
		a.Seq = cur.Seq
		a.CreatedAt = cur.CreatedAt
		a.UpdatedAt = now()
		if a.Title == "" {
			a.Title = cur.Title
		}
		if err := r.check(a); err != nil {
			return err
		}
		if err := putAssessment(ctx, tx, a); err != nil {
			return err
		}
		out = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAssessment removes the assessment and every response to it.
func (r *SQLiteRepo) DeleteAssessment(ctx context.Context, id string) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete assessment %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.NotFound("assessment", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM assessment_responses WHERE assessment_id = ?`, id); err != nil {
			return fmt.Errorf("delete responses of %s: %w", id, err)
		}
		return nil
	})
}

func (r *SQLiteRepo) PutAssessment(ctx context.Context, a models.Assessment) error {
	return putAssessment(ctx, r.q(), a)
}
