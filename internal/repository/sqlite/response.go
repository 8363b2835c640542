package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/pkg/models"
)

const responseCols = `seq, id, assessment_id, candidate_id, responses, completed_sections, is_complete, submitted, created, updated`

func scanResponse(s scanner) (models.AssessmentResponse, error) {
	var (
		r                  models.AssessmentResponse
		answers, completed string
		submitted          sql.NullInt64
		created, updated   int64
	)
	if err := s.Scan(&r.Seq, &r.ID, &r.AssessmentID, &r.CandidateID, &answers, &completed, &r.IsComplete, &submitted, &created, &updated); err != nil {
		return r, err
	}
	if err := decodeJSON(answers, &r.Responses); err != nil {
		return r, err
	}
	if err := decodeJSON(completed, &r.CompletedSections); err != nil {
		return r, err
	}
	if r.Responses == nil {
		r.Responses = map[string]any{}
	}
	r.CompletedSections = orEmpty(r.CompletedSections)
	if submitted.Valid {
		t := fromMillis(submitted.Int64)
		r.SubmittedAt = &t
	}
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(updated)
	return r, nil
}

func putResponse(ctx context.Context, q querier, r models.AssessmentResponse) error {
	if r.Responses == nil {
		r.Responses = map[string]any{}
	}
	answers, err := encodeJSON(r.Responses)
	if err != nil {
		return err
	}
	completed, err := encodeJSON(orEmpty(r.CompletedSections))
	if err != nil {
		return err
	}
	var submitted any
	if r.SubmittedAt != nil {
		submitted = millis(*r.SubmittedAt)
	}
	return upsert(ctx, q, "assessment_responses",
		[]string{"id", "assessment_id", "candidate_id", "responses", "completed_sections", "is_complete", "submitted", "created", "updated"},
		[]any{r.ID, r.AssessmentID, r.CandidateID, answers, completed, r.IsComplete, submitted, millis(r.CreatedAt), millis(r.UpdatedAt)},
		r.Seq)
}

// stampSubmitted keeps submittedAt at the store's millisecond precision and
// fills it in when a response completes without one.
func stampSubmitted(r *models.AssessmentResponse) {
	switch {
	case r.SubmittedAt != nil:
		t := r.SubmittedAt.UTC().Truncate(time.Millisecond)
		r.SubmittedAt = &t
	case r.IsComplete:
		t := r.UpdatedAt
		r.SubmittedAt = &t
	}
}

func findResponse(ctx context.Context, q querier, assessmentID, candidateID string) (*models.AssessmentResponse, error) {
	return one(ctx, q, scanResponse, `SELECT `+responseCols+` FROM assessment_responses WHERE assessment_id = ? AND candidate_id = ? ORDER BY seq LIMIT 1`, assessmentID, candidateID)
}

// CreateResponse stores the response of a candidate to an assessment. There
// is at most one per pair; a second one is a Conflict.
func (r *SQLiteRepo) CreateResponse(ctx context.Context, in *models.AssessmentResponse) (*models.AssessmentResponse, error) {
	if in == nil {
		return nil, fmt.Errorf("response is nil")
	}

	resp := in.Clone()
	resp.ID = newID()
	resp.Seq = 0
	resp.Responses = models.MergeAnswers(nil, resp.Responses)
	resp.CompletedSections = models.NormalizeTags(resp.CompletedSections)
	resp.CreatedAt = now()
	resp.UpdatedAt = resp.CreatedAt
	stampSubmitted(&resp)
	if err := r.check(resp); err != nil {
		return nil, err
	}

	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := findResponse(ctx, tx, resp.AssessmentID, resp.CandidateID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.Conflict("candidate %s already has response %s", resp.CandidateID, existing.ID)
		}
		if err := putResponse(ctx, tx, resp); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT seq FROM assessment_responses WHERE id = ?`, resp.ID).Scan(&resp.Seq)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *SQLiteRepo) GetResponse(ctx context.Context, id string) (*models.AssessmentResponse, error) {
	return one(ctx, r.q(), scanResponse, `SELECT `+responseCols+` FROM assessment_responses WHERE id = ?`, id)
}

// FindResponse looks up the response of a candidate to an assessment.
func (r *SQLiteRepo) FindResponse(ctx context.Context, assessmentID, candidateID string) (*models.AssessmentResponse, error) {
	return findResponse(ctx, r.q(), assessmentID, candidateID)
}

func (r *SQLiteRepo) ListResponses(ctx context.Context) ([]models.AssessmentResponse, error) {
	return list(ctx, r.q(), scanResponse, `SELECT `+responseCols+` FROM assessment_responses ORDER BY seq`)
}

// UpdateResponse merges answers into the stored response. A submitted
// response can no longer change.
func (r *SQLiteRepo) UpdateResponse(ctx context.Context, id string, p models.ResponsePatch) (*models.AssessmentResponse, error) {
	var out *models.AssessmentResponse
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		cur, err := one(ctx, tx, scanResponse, `SELECT `+responseCols+` FROM assessment_responses WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return errs.NotFound("response", id)
		}
		if cur.IsComplete {
			return errs.Conflict("response %s was already submitted", id)
		}

		resp := cur.Clone()
		p.Apply(&resp)
		resp.UpdatedAt = now()
		stampSubmitted(&resp)
		if err := putResponse(ctx, tx, resp); err != nil {
			return err
		}
		out = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepo) DeleteResponse(ctx context.Context, id string) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM assessment_responses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete response %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("response", id)
	}
	return nil
}

func (r *SQLiteRepo) PutResponse(ctx context.Context, resp models.AssessmentResponse) error {
	return putResponse(ctx, r.q(), resp)
}
