package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/pkg/models"
)

const noteCols = `seq, id, candidate_id, content, author_id, author_name, mentions, created`

func scanNote(s scanner) (models.CandidateNote, error) {
	var (
		n        models.CandidateNote
		mentions string
		created  int64
	)
	if err := s.Scan(&n.Seq, &n.ID, &n.CandidateID, &n.Content, &n.AuthorID, &n.AuthorName, &mentions, &created); err != nil {
		return n, err
	}
	if err := decodeJSON(mentions, &n.Mentions); err != nil {
		return n, err
	}
	n.Mentions = orEmpty(n.Mentions)
	n.CreatedAt = fromMillis(created)
	return n, nil
}

func putNote(ctx context.Context, q querier, n models.CandidateNote) error {
	mentions, err := encodeJSON(orEmpty(n.Mentions))
	if err != nil {
		return err
	}
	return upsert(ctx, q, "candidate_notes",
		[]string{"id", "candidate_id", "content", "author_id", "author_name", "mentions", "created"},
		[]any{n.ID, n.CandidateID, n.Content, n.AuthorID, n.AuthorName, mentions, millis(n.CreatedAt)},
		n.Seq)
}

func candidateExists(ctx context.Context, q querier, id string) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM candidates WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("check candidate: %w", err)
	}
	if n == 0 {
		return errs.NotFound("candidate", id)
	}
	return nil
}

// CreateNote attaches a note to a candidate. Mentions are extracted from the
// content.
func (r *SQLiteRepo) CreateNote(ctx context.Context, in *models.CandidateNote) (*models.CandidateNote, error) {
	if in == nil {
		return nil, fmt.Errorf("note is nil")
	}

	n := *in
	n.ID = newID()
	n.Seq = 0
	n.Mentions = models.ExtractMentions(n.Content)
	n.CreatedAt = now()
	if err := r.check(n); err != nil {
		return nil, err
	}

	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if err := candidateExists(ctx, tx, n.CandidateID); err != nil {
			return err
		}
		if err := putNote(ctx, tx, n); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT seq FROM candidate_notes WHERE id = ?`, n.ID).Scan(&n.Seq)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotes returns a candidate's notes oldest first.
func (r *SQLiteRepo) ListNotes(ctx context.Context, candidateID string) ([]models.CandidateNote, error) {
	return list(ctx, r.q(), scanNote, `SELECT `+noteCols+` FROM candidate_notes WHERE candidate_id = ? ORDER BY seq`, candidateID)
}

func (r *SQLiteRepo) DeleteNote(ctx context.Context, id string) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM candidate_notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("note", id)
	}
	return nil
}

func (r *SQLiteRepo) PutNote(ctx context.Context, n models.CandidateNote) error {
	return putNote(ctx, r.q(), n)
}
