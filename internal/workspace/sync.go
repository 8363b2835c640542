package workspace

import (
	"context"
	"fmt"
	"log/slog"
)

// SyncJobs replaces the local jobs with the service's, orders included.
// Local jobs unknown to the service are deleted with their dependents.
func (w *Workspace) SyncJobs(ctx context.Context) error {
	remote, err := w.remote.AllJobs(ctx)
	if err != nil {
		return fmt.Errorf("fetch jobs: %w", err)
	}
	local, err := w.store.ListJobs(ctx)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(remote))
	for _, j := range remote {
		keep[j.ID] = true
	}
	for _, j := range local {
		if !keep[j.ID] {
			if err := ignoreNotFound(w.store.DeleteJob(ctx, j.ID)); err != nil {
				return err
			}
		}
	}
	for _, j := range remote {
		j.Seq = 0
		if err := w.store.PutJob(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

// Sync pulls jobs, candidates, assessments and responses from the service
// into the local store.
func (w *Workspace) Sync(ctx context.Context) error {
	if err := w.SyncJobs(ctx); err != nil {
		return err
	}

	cands, err := w.remote.AllCandidates(ctx)
	if err != nil {
		return fmt.Errorf("fetch candidates: %w", err)
	}
	localCands, err := w.store.ListCandidates(ctx)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(cands))
	for _, c := range cands {
		keep[c.ID] = true
	}
	for _, c := range localCands {
		if !keep[c.ID] {
			if err := ignoreNotFound(w.store.DeleteCandidate(ctx, c.ID)); err != nil {
				return err
			}
		}
	}
	for _, c := range cands {
		c.Seq = 0
		if err := w.store.PutCandidate(ctx, c); err != nil {
			return err
		}
	}

	assessments, err := w.remote.AllAssessments(ctx)
	if err != nil {
		return fmt.Errorf("fetch assessments: %w", err)
	}
	for _, a := range assessments {
		a.Seq = 0
		if err := w.store.PutAssessment(ctx, a); err != nil {
			return err
		}
	}

	responses, err := w.remote.AllResponses(ctx)
	if err != nil {
		return fmt.Errorf("fetch responses: %w", err)
	}
	for _, r := range responses {
		r.Seq = 0
		if err := w.store.PutResponse(ctx, r); err != nil {
			return err
		}
	}

	w.logger.Info("workspace synced",
		slog.Int("candidates", len(cands)),
		slog.Int("assessments", len(assessments)),
		slog.Int("responses", len(responses)))
	return nil
}
