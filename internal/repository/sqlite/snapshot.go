package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/talentflow/pkg/models"
)

func captureCandidate(ctx context.Context, q querier, c models.Candidate) (models.CandidateGraph, error) {
	g := models.CandidateGraph{Candidate: c}
	var err error
	if g.Notes, err = list(ctx, q, scanNote, `SELECT `+noteCols+` FROM candidate_notes WHERE candidate_id = ? ORDER BY seq`, c.ID); err != nil {
		return g, err
	}
	if g.Events, err = list(ctx, q, scanEvent, `SELECT `+eventCols+` FROM timeline_events WHERE candidate_id = ? ORDER BY seq`, c.ID); err != nil {
		return g, err
	}
	if g.Responses, err = list(ctx, q, scanResponse, `SELECT `+responseCols+` FROM assessment_responses WHERE candidate_id = ? ORDER BY seq`, c.ID); err != nil {
		return g, err
	}
	return g, nil
}

// CaptureCandidateGraph reads a candidate with everything DeleteCandidate
// would remove. Returns (nil, nil) when the candidate does not exist.
func (r *SQLiteRepo) CaptureCandidateGraph(ctx context.Context, id string) (*models.CandidateGraph, error) {
	var out *models.CandidateGraph
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		c, err := one(ctx, tx, scanCandidate, `SELECT `+candidateCols+` FROM candidates WHERE id = ?`, id)
		if err != nil || c == nil {
			return err
		}
		g, err := captureCandidate(ctx, tx, *c)
		if err != nil {
			return err
		}
		out = &g
		return nil
	})
	return out, err
}

// CaptureJobGraph reads a job with everything DeleteJob would remove, plus
// the current order of every job.
func (r *SQLiteRepo) CaptureJobGraph(ctx context.Context, id string) (*models.JobGraph, error) {
	var out *models.JobGraph
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		j, err := one(ctx, tx, scanJob, `SELECT `+jobCols+` FROM jobs WHERE id = ?`, id)
		if err != nil || j == nil {
			return err
		}
		g := models.JobGraph{Job: *j, Candidates: []models.CandidateGraph{}, Responses: []models.AssessmentResponse{}}

		cands, err := list(ctx, tx, scanCandidate, `SELECT `+candidateCols+` FROM candidates WHERE job_id = ? ORDER BY seq`, id)
		if err != nil {
			return err
		}
		owned := map[string]bool{}
		for _, c := range cands {
			cg, err := captureCandidate(ctx, tx, c)
			if err != nil {
				return err
			}
			for _, resp := range cg.Responses {
				owned[resp.ID] = true
			}
			g.Candidates = append(g.Candidates, cg)
		}

		if g.Assessment, err = one(ctx, tx, scanAssessment, `SELECT `+assessmentCols+` FROM assessments WHERE job_id = ? ORDER BY seq LIMIT 1`, id); err != nil {
			return err
		}
		if g.Assessment != nil {
			resps, err := list(ctx, tx, scanResponse, `SELECT `+responseCols+` FROM assessment_responses WHERE assessment_id = ? ORDER BY seq`, g.Assessment.ID)
			if err != nil {
				return err
			}
			for _, resp := range resps {
				if !owned[resp.ID] {
					g.Responses = append(g.Responses, resp)
				}
			}
		}

		if g.Orders, err = jobOrders(ctx, tx); err != nil {
			return err
		}
		out = &g
		return nil
	})
	return out, err
}

func restoreCandidate(ctx context.Context, q querier, g models.CandidateGraph) error {
	if err := putCandidate(ctx, q, g.Candidate); err != nil {
		return err
	}
	for _, n := range g.Notes {
		if err := putNote(ctx, q, n); err != nil {
			return err
		}
	}
	for _, e := range g.Events {
		if err := putEvent(ctx, q, e); err != nil {
			return err
		}
	}
	for _, resp := range g.Responses {
		if err := putResponse(ctx, q, resp); err != nil {
			return err
		}
	}
	return nil
}

// RestoreCandidateGraph writes a captured candidate graph back in one
// transaction.
func (r *SQLiteRepo) RestoreCandidateGraph(ctx context.Context, g models.CandidateGraph) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		return restoreCandidate(ctx, tx, g)
	})
}

// RestoreJobGraph writes a captured job graph back and restores the ordering
// that was in place at capture time.
func (r *SQLiteRepo) RestoreJobGraph(ctx context.Context, g models.JobGraph) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if err := putJob(ctx, tx, g.Job); err != nil {
			return err
		}
		for _, cg := range g.Candidates {
			if err := restoreCandidate(ctx, tx, cg); err != nil {
				return err
			}
		}
		if g.Assessment != nil {
			if err := putAssessment(ctx, tx, *g.Assessment); err != nil {
				return err
			}
		}
		for _, resp := range g.Responses {
			if err := putResponse(ctx, tx, resp); err != nil {
				return err
			}
		}
		return restoreOrders(ctx, tx, g.Orders)
	})
}

// Export reads every table in insertion order.
func (r *SQLiteRepo) Export(ctx context.Context) (*models.Snapshot, error) {
	var s models.Snapshot
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if s.Jobs, err = list(ctx, tx, scanJob, `SELECT `+jobCols+` FROM jobs ORDER BY seq`); err != nil {
			return fmt.Errorf("export jobs: %w", err)
		}
		if s.Candidates, err = list(ctx, tx, scanCandidate, `SELECT `+candidateCols+` FROM candidates ORDER BY seq`); err != nil {
			return fmt.Errorf("export candidates: %w", err)
		}
		if s.Notes, err = list(ctx, tx, scanNote, `SELECT `+noteCols+` FROM candidate_notes ORDER BY seq`); err != nil {
			return fmt.Errorf("export notes: %w", err)
		}
		if s.Events, err = list(ctx, tx, scanEvent, `SELECT `+eventCols+` FROM timeline_events ORDER BY seq`); err != nil {
			return fmt.Errorf("export timeline: %w", err)
		}
		if s.Assessments, err = list(ctx, tx, scanAssessment, `SELECT `+assessmentCols+` FROM assessments ORDER BY seq`); err != nil {
			return fmt.Errorf("export assessments: %w", err)
		}
		if s.Responses, err = list(ctx, tx, scanResponse, `SELECT `+responseCols+` FROM assessment_responses ORDER BY seq`); err != nil {
			return fmt.Errorf("export responses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}
