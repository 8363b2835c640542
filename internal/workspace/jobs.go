package workspace

import (
	"context"

	"github.com/samber/mo"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/optimistic"
	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/pkg/models"
)

// ListJobs queries the local store.
func (w *Workspace) ListJobs(ctx context.Context, q query.JobQuery) (query.Page[models.Job], error) {
	items, err := w.store.ListJobs(ctx)
	if err != nil {
		return query.Page[models.Job]{}, err
	}
	return query.Jobs(items, q)
}

func (w *Workspace) GetJob(ctx context.Context, id string) (*models.Job, error) {
	j, err := w.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, errs.NotFound("job", id)
	}
	return j, nil
}

// adoptJob replaces the optimistic row with the authoritative one, keeping
// the local position.
func (w *Workspace) adoptJob(ctx context.Context, opt, auth *models.Job) error {
	j := *auth
	j.Seq = opt.Seq
	j.Order = opt.Order
	if j.ID != opt.ID {
		if err := ignoreNotFound(w.store.DeleteJob(ctx, opt.ID)); err != nil {
			return err
		}
	}
	return w.store.PutJob(ctx, j)
}

// CreateJob adds the job locally at the end of the ordering, then creates it
// remotely. The local row takes the remote id once the service answers.
func (w *Workspace) CreateJob(ctx context.Context, in models.Job) (*models.Job, error) {
	if in.Status == "" {
		in.Status = models.JobActive
	}
	var localID string
	return optimistic.Execute(ctx, w.coord, optimistic.Mutation[*models.Job]{
		Name:   "jobs.create",
		Entity: in.Title,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			orders, err := w.store.JobOrders(ctx)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context) error {
				if localID != "" {
					if err := ignoreNotFound(w.store.DeleteJob(ctx, localID)); err != nil {
						return err
					}
				}
				return w.store.RestoreOrders(ctx, orders)
			}, nil
		},
		Apply: func(ctx context.Context) (*models.Job, error) {
			j, err := w.store.CreateJob(ctx, &in)
			if err != nil {
				return nil, err
			}
			localID = j.ID
			return j, nil
		},
		Commit: func(ctx context.Context, opt *models.Job) (*models.Job, error) {
			return w.remote.CreateJob(ctx, *opt)
		},
		Reconcile: w.adoptJob,
	})
}

// UpdateJob patches a job locally and remotely.
func (w *Workspace) UpdateJob(ctx context.Context, id string, p models.JobPatch) (*models.Job, error) {
	return optimistic.Execute(ctx, w.coord, optimistic.Mutation[*models.Job]{
		Name:   "jobs.update",
		Entity: id,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			before, err := w.GetJob(ctx, id)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context) error { return w.store.PutJob(ctx, *before) }, nil
		},
		Apply: func(ctx context.Context) (*models.Job, error) {
			return w.store.UpdateJob(ctx, id, p)
		},
		Commit: func(ctx context.Context, _ *models.Job) (*models.Job, error) {
			return w.remote.UpdateJob(ctx, id, p)
		},
		Reconcile: w.adoptJob,
	})
}

// ArchiveJob sets a job's status to archived, or back to active.
func (w *Workspace) ArchiveJob(ctx context.Context, id string, archived bool) (*models.Job, error) {
	status := models.JobActive
	if archived {
		status = models.JobArchived
	}
	return w.UpdateJob(ctx, id, models.JobPatch{Status: mo.Some(status)})
}

// ReorderJob moves a job from one position to another. After the service
// accepts the move the whole job list is refetched, since other jobs shift.
func (w *Workspace) ReorderJob(ctx context.Context, id string, from, to int) error {
	_, err := optimistic.Execute(ctx, w.coord, optimistic.Mutation[struct{}]{
		Name:   "jobs.reorder",
		Entity: id,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			orders, err := w.store.JobOrders(ctx)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context) error { return w.store.RestoreOrders(ctx, orders) }, nil
		},
		Apply: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, w.store.ReorderJob(ctx, id, from, to)
		},
		Commit: func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, w.remote.ReorderJob(ctx, id, from, to)
		},
		Refetch: w.SyncJobs,
	})
	return err
}

// DeleteJob removes a job with its candidates, notes, timeline, assessment
// and responses. A failed remote delete restores the whole graph.
func (w *Workspace) DeleteJob(ctx context.Context, id string) error {
	_, err := optimistic.Execute(ctx, w.coord, optimistic.Mutation[struct{}]{
		Name:   "jobs.delete",
		Entity: id,
		Snapshot: func(ctx context.Context) (optimistic.Restore, error) {
			g, err := w.store.CaptureJobGraph(ctx, id)
			if err != nil {
				return nil, err
			}
			if g == nil {
				return nil, errs.NotFound("job", id)
			}
			return func(ctx context.Context) error { return w.store.RestoreJobGraph(ctx, *g) }, nil
		},
		Apply: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, w.store.DeleteJob(ctx, id)
		},
		Commit: func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, w.remote.DeleteJob(ctx, id)
		},
	})
	return err
}
