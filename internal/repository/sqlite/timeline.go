package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/talentflow/pkg/models"
)

const eventCols = `seq, id, candidate_id, type, description, metadata, created_by, created`

func scanEvent(s scanner) (models.TimelineEvent, error) {
	var (
		e         models.TimelineEvent
		metadata  sql.NullString
		createdBy sql.NullString
		created   int64
	)
	if err := s.Scan(&e.Seq, &e.ID, &e.CandidateID, &e.Type, &e.Description, &metadata, &createdBy, &created); err != nil {
		return e, err
	}
	if metadata.Valid {
		if err := decodeJSON(metadata.String, &e.Metadata); err != nil {
			return e, err
		}
	}
	e.CreatedBy = createdBy.String
	e.CreatedAt = fromMillis(created)
	return e, nil
}

func putEvent(ctx context.Context, q querier, e models.TimelineEvent) error {
	return upsert(ctx, q, "timeline_events",
		[]string{"id", "candidate_id", "type", "description", "metadata", "created_by", "created"},
		[]any{e.ID, e.CandidateID, string(e.Type), e.Description, nullJSON(e.Metadata), nullString(e.CreatedBy), millis(e.CreatedAt)},
		e.Seq)
}

// AppendEvent adds an event to a candidate's timeline. Events are never
// updated afterwards.
func (r *SQLiteRepo) AppendEvent(ctx context.Context, in *models.TimelineEvent) (*models.TimelineEvent, error) {
	if in == nil {
		return nil, fmt.Errorf("event is nil")
	}

	e := *in
	e.ID = newID()
	e.Seq = 0
	if e.Type == "" {
		e.Type = models.EventOther
	}
	e.CreatedAt = now()
	if err := r.check(e); err != nil {
		return nil, err
	}

	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if err := candidateExists(ctx, tx, e.CandidateID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO timeline_events (id, candidate_id, type, description, metadata, created_by, created) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.CandidateID, string(e.Type), e.Description, nullJSON(e.Metadata), nullString(e.CreatedBy), millis(e.CreatedAt)); err != nil {
			return mapWriteErr(err, "timeline event")
		}
		return tx.QueryRowContext(ctx, `SELECT seq FROM timeline_events WHERE id = ?`, e.ID).Scan(&e.Seq)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEvents returns a candidate's timeline oldest first.
func (r *SQLiteRepo) ListEvents(ctx context.Context, candidateID string) ([]models.TimelineEvent, error) {
	return list(ctx, r.q(), scanEvent, `SELECT `+eventCols+` FROM timeline_events WHERE candidate_id = ? ORDER BY seq`, candidateID)
}

// PutEvent copies an event verbatim (sync and restore only).
func (r *SQLiteRepo) PutEvent(ctx context.Context, e models.TimelineEvent) error {
	return putEvent(ctx, r.q(), e)
}

func nullJSON(m map[string]any) any {
	if m == nil {
		return nil
	}
	s, err := encodeJSON(m)
	if err != nil {
		return nil
	}
	return s
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
