package workspace

import (
	"context"

	"github.com/samber/mo"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/optimistic"
	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/pkg/models"
)

func (w *Workspace) ListCandidates(ctx context.Context, q query.CandidateQuery) (query.Page[models.Candidate], error) {
	items, err := w.store.ListCandidates(ctx)
	if err != nil {
		return query.Page[models.Candidate]{}, err
	}
	return query.Candidates(items, q)
}

func (w *Workspace) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := w.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errs.NotFound("candidate", id)
	}
	return c, nil
}

func (w *Workspace) adoptCandidate(ctx context.Context, opt, auth *models.Candidate) error {
	c := *auth
	c.Seq = opt.Seq
	if c.ID != opt.ID {
		if err := ignoreNotFound(w.store.DeleteCandidate(ctx, opt.ID)); err != nil {
			return err
		}
	}
	return w.store.PutCandidate(ctx, c)
}

func (w *Workspace) CreateCandidate(ctx context.Context, in models.Candidate) (*models.Candidate, error) {
	if in.Stage == "" {
		in.Stage = models.StageApplied
	}
	var localID string
	return optimistic.Execute(ctx, w.coord, optimistic.Mutation[*models.Candidate]{
		Name:   "candidates.create",
		Entity: in.Email,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			return func(ctx context.Context) error {
				if localID == "" {
					return nil
				}
				return ignoreNotFound(w.store.DeleteCandidate(ctx, localID))
			}, nil
		},
		Apply: func(ctx context.Context) (*models.Candidate, error) {
			c, err := w.store.CreateCandidate(ctx, &in)
			if err != nil {
				return nil, err
			}
			localID = c.ID
			return c, nil
		},
		Commit: func(ctx context.Context, opt *models.Candidate) (*models.Candidate, error) {
			return w.remote.CreateCandidate(ctx, *opt)
		},
		Reconcile: w.adoptCandidate,
	})
}

func (w *Workspace) UpdateCandidate(ctx context.Context, id string, p models.CandidatePatch) (*models.Candidate, error) {
	return optimistic.Execute(ctx, w.coord, optimistic.Mutation[*models.Candidate]{
		Name:   "candidates.update",
		Entity: id,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			before, err := w.GetCandidate(ctx, id)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context) error { return w.store.PutCandidate(ctx, *before) }, nil
		},
		Apply: func(ctx context.Context) (*models.Candidate, error) {
			return w.store.UpdateCandidate(ctx, id, p)
		},
		Commit: func(ctx context.Context, _ *models.Candidate) (*models.Candidate, error) {
			return w.remote.UpdateCandidate(ctx, id, p)
		},
		Reconcile: w.adoptCandidate,
	})
}

// MoveCandidate changes a candidate's pipeline stage.
func (w *Workspace) MoveCandidate(ctx context.Context, id string, stage models.Stage) (*models.Candidate, error) {
	if !stage.Valid() {
		return nil, errs.Validation("unknown stage", map[string]string{"stage": string(stage)})
	}
	return w.UpdateCandidate(ctx, id, models.CandidatePatch{Stage: mo.Some(stage)})
}

// DeleteCandidate removes a candidate with notes, timeline and responses.
func (w *Workspace) DeleteCandidate(ctx context.Context, id string) error {
	_, err := optimistic.Execute(ctx, w.coord, optimistic.Mutation[struct{}]{
		Name:   "candidates.delete",
		Entity: id,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			g, err := w.store.CaptureCandidateGraph(ctx, id)
			if err != nil {
				return nil, err
			}
			if g == nil {
				return nil, errs.NotFound("candidate", id)
			}
			return func(ctx context.Context) error { return w.store.RestoreCandidateGraph(ctx, *g) }, nil
		},
		Apply: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, w.store.DeleteCandidate(ctx, id)
		},
		Commit: func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, w.remote.DeleteCandidate(ctx, id)
		},
	})
	return err
}

// AddNote attaches a note to a candidate. Mentions are extracted from the
// content by the store.
func (w *Workspace) AddNote(ctx context.Context, candidateID string, n models.CandidateNote) (*models.CandidateNote, error) {
	n.CandidateID = candidateID
	var localID string
	return optimistic.Execute(ctx, w.coord, optimistic.Mutation[*models.CandidateNote]{
		Name:   "candidates.note",
		Entity: candidateID,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			return func(ctx context.Context) error {
				if localID == "" {
					return nil
				}
				return ignoreNotFound(w.store.DeleteNote(ctx, localID))
			}, nil
		},
		Apply: func(ctx context.Context) (*models.CandidateNote, error) {
			out, err := w.store.CreateNote(ctx, &n)
			if err != nil {
				return nil, err
			}
			localID = out.ID
			return out, nil
		},
		Commit: func(ctx context.Context, opt *models.CandidateNote) (*models.CandidateNote, error) {
			return w.remote.AddNote(ctx, candidateID, *opt)
		},
		Reconcile: func(ctx context.Context, opt, auth *models.CandidateNote) error {
			note := *auth
			note.Seq = opt.Seq
			if note.ID != opt.ID {
				if err := ignoreNotFound(w.store.DeleteNote(ctx, opt.ID)); err != nil {
					return err
				}
			}
			return w.store.PutNote(ctx, note)
		},
	})
}

// Notes lists a candidate's notes from the service, caching them locally.
// The local copy is served while the service is unreachable.
func (w *Workspace) Notes(ctx context.Context, candidateID string) ([]models.CandidateNote, error) {
	notes, err := w.remote.Notes(ctx, candidateID)
	if err != nil {
		if w.fallback("candidates.notes", err) {
			return w.store.ListNotes(ctx, candidateID)
		}
		return nil, err
	}
	for _, n := range notes {
		n.Seq = 0
		if err := w.store.PutNote(ctx, n); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

// Timeline reads a candidate's timeline. Events are derived by the service,
// so the remote copy is authoritative and cached locally.
func (w *Workspace) Timeline(ctx context.Context, candidateID string) ([]models.TimelineEvent, error) {
	events, err := w.remote.Timeline(ctx, candidateID)
	if err != nil {
		if w.fallback("candidates.timeline", err) {
			return w.store.ListEvents(ctx, candidateID)
		}
		return nil, err
	}
	for _, e := range events {
		e.Seq = 0
		if err := w.store.PutEvent(ctx, e); err != nil {
			return nil, err
		}
	}
	return events, nil
}
