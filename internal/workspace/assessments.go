package workspace

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/optimistic"
	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/pkg/models"
)

func (w *Workspace) ListAssessments(ctx context.Context, q query.AssessmentQuery) (query.Page[models.Assessment], error) {
	items, err := w.store.ListAssessments(ctx)
	if err != nil {
		return query.Page[models.Assessment]{}, err
	}
	return query.Assessments(items, q)
}

// Assessment returns an assessment from the local store, fetching and
// caching it from the service when it is not there.
func (w *Workspace) Assessment(ctx context.Context, id string) (*models.Assessment, error) {
	a, err := w.store.GetAssessment(ctx, id)
	if err != nil || a != nil {
		return a, err
	}
	a, err = w.remote.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	cached := *a
	cached.Seq = 0
	if err := w.store.PutAssessment(ctx, cached); err != nil {
		return nil, err
	}
	return a, nil
}

func (w *Workspace) adoptAssessment(ctx context.Context, opt, auth *models.Assessment) error {
	a := auth.Clone()
	a.Seq = opt.Seq
	if a.ID != opt.ID {
		if err := ignoreNotFound(w.store.DeleteAssessment(ctx, opt.ID)); err != nil {
			return err
		}
	}
	return w.store.PutAssessment(ctx, a)
}

// SaveAssessment creates the assessment of a.JobID, or replaces the title
// and sections of the one it already has.
func (w *Workspace) SaveAssessment(ctx context.Context, a models.Assessment) (*models.Assessment, error) {
	existing, err := w.store.GetAssessmentByJob(ctx, a.JobID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return w.createAssessment(ctx, a)
	}
	id := existing.ID
	return optimistic.Execute(ctx, w.coord, optimistic.Mutation[*models.Assessment]{
		Name:   "assessments.update",
		Entity: id,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			before := existing.Clone()
			return func(ctx context.Context) error { return w.store.PutAssessment(ctx, before) }, nil
		},
		Apply: func(ctx context.Context) (*models.Assessment, error) {
			return w.store.UpdateAssessment(ctx, id, a)
		},
		Commit: func(ctx context.Context, opt *models.Assessment) (*models.Assessment, error) {
			return w.remote.UpdateAssessment(ctx, id, *opt)
		},
		Reconcile: w.adoptAssessment,
	})
}

func (w *Workspace) createAssessment(ctx context.Context, a models.Assessment) (*models.Assessment, error) {
	var localID string
	return optimistic.Execute(ctx, w.coord, optimistic.Mutation[*models.Assessment]{
		Name:   "assessments.create",
		Entity: a.JobID,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			return func(ctx context.Context) error {
				if localID == "" {
					return nil
				}
				return ignoreNotFound(w.store.DeleteAssessment(ctx, localID))
			}, nil
		},
		Apply: func(ctx context.Context) (*models.Assessment, error) {
			out, err := w.store.CreateAssessment(ctx, &a)
			if err != nil {
				return nil, err
			}
			localID = out.ID
			return out, nil
		},
		Commit: func(ctx context.Context, opt *models.Assessment) (*models.Assessment, error) {
			return w.remote.CreateAssessment(ctx, *opt)
		},
		Reconcile: w.adoptAssessment,
	})
}

// DuplicateAssessment copies an assessment onto another job. Sections and
// questions get fresh ids and conditional references follow them.
func (w *Workspace) DuplicateAssessment(ctx context.Context, id, jobID string) (*models.Assessment, error) {
	src, err := w.Assessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := w.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return w.createAssessment(ctx, src.Duplicate(jobID, uuid.NewString))
}

// DeleteAssessment removes an assessment and every response to it.
func (w *Workspace) DeleteAssessment(ctx context.Context, id string) error {
	_, err := optimistic.Execute(ctx, w.coord, optimistic.Mutation[struct{}]{
		Name:   "assessments.delete",
		Entity: id,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			a, err := w.store.GetAssessment(ctx, id)
			if err != nil {
				return nil, err
			}
			if a == nil {
				return nil, errs.NotFound("assessment", id)
			}
			all, err := w.store.ListResponses(ctx)
			if err != nil {
				return nil, err
			}
			var owned []models.AssessmentResponse
			for _, r := range all {
				if r.AssessmentID == id {
					owned = append(owned, r)
				}
			}
			return func(ctx context.Context) error {
				if err := w.store.PutAssessment(ctx, *a); err != nil {
					return err
				}
				for _, r := range owned {
					if err := w.store.PutResponse(ctx, r); err != nil {
						return err
					}
				}
				return nil
			}, nil
		},
		Apply: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, w.store.DeleteAssessment(ctx, id)
		},
		Commit: func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, w.remote.DeleteAssessment(ctx, id)
		},
	})
	return err
}

// Response returns the working response of a candidate to an assessment,
// or (nil, nil) when none exists. The service copy wins and is cached; the
// local copy is served while the service is unreachable.
func (w *Workspace) Response(ctx context.Context, assessmentID, candidateID string) (*models.AssessmentResponse, error) {
	local, err := w.store.FindResponse(ctx, assessmentID, candidateID)
	if err != nil {
		return nil, err
	}
	r, err := w.remote.FindResponse(ctx, assessmentID, candidateID)
	if err != nil {
		if w.fallback("responses.find", err) {
			return local, nil
		}
		return nil, err
	}
	if r == nil {
		return local, nil
	}
	if local != nil {
		if err := w.adoptResponse(ctx, local, r); err != nil {
			return nil, err
		}
	} else {
		cached := r.Clone()
		cached.Seq = 0
		if err := w.store.PutResponse(ctx, cached); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (w *Workspace) adoptResponse(ctx context.Context, opt, auth *models.AssessmentResponse) error {
	r := auth.Clone()
	r.Seq = opt.Seq
	if r.ID != opt.ID {
		if err := ignoreNotFound(w.store.DeleteResponse(ctx, opt.ID)); err != nil {
			return err
		}
	}
	return w.store.PutResponse(ctx, r)
}

// SaveResponse merges answers into the candidate's working response,
// creating it on first save, and marks it complete when complete is set.
// Only the given answers travel to the service, which merges them the same
// way. A submitted response is a Conflict.
func (w *Workspace) SaveResponse(ctx context.Context, assessmentID, candidateID string, answers map[string]any, completedSections []string, complete bool) (*models.AssessmentResponse, error) {
	var (
		before  *models.AssessmentResponse
		localID string
	)
	return optimistic.Execute(ctx, w.coord, optimistic.Mutation[*models.AssessmentResponse]{
		Name:   "responses.save",
		Entity: assessmentID + "/" + candidateID,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			var err error
			if before, err = w.store.FindResponse(ctx, assessmentID, candidateID); err != nil {
				return nil, err
			}
			if before != nil && before.IsComplete {
				return nil, errs.Conflict("response %s was already submitted", before.ID)
			}
			return func(ctx context.Context) error {
				if before != nil {
					return w.store.PutResponse(ctx, *before)
				}
				if localID == "" {
					return nil
				}
				return ignoreNotFound(w.store.DeleteResponse(ctx, localID))
			}, nil
		},
		Apply: func(ctx context.Context) (*models.AssessmentResponse, error) {
			if before == nil {
				out, err := w.store.CreateResponse(ctx, &models.AssessmentResponse{
					AssessmentID:      assessmentID,
					CandidateID:       candidateID,
					Responses:         answers,
					CompletedSections: completedSections,
					IsComplete:        complete,
				})
				if err != nil {
					return nil, err
				}
				localID = out.ID
				return out, nil
			}
			p := models.ResponsePatch{Responses: mo.Some(answers), IsComplete: mo.Some(complete)}
			if completedSections != nil {
				p.CompletedSections = mo.Some(completedSections)
			}
			return w.store.UpdateResponse(ctx, before.ID, p)
		},
		Commit: func(ctx context.Context, opt *models.AssessmentResponse) (*models.AssessmentResponse, error) {
			return w.remote.SaveResponse(ctx, models.AssessmentResponse{
				AssessmentID:      assessmentID,
				CandidateID:       candidateID,
				Responses:         answers,
				CompletedSections: opt.CompletedSections,
				IsComplete:        opt.IsComplete,
				SubmittedAt:       opt.SubmittedAt,
			})
		},
		Reconcile: w.adoptResponse,
	})
}
