package api

import (
	"context"
	"log/slog"

	"github.com/garnizeh/talentflow/internal/jobs"
)

const timelinePriority = 10

// emit queues a timeline event. Failing to queue never fails the request.
func emit(ctx context.Context, q jobs.Enqueuer, p jobs.TimelinePayload) {
	if q == nil {
		return
	}
	if _, err := q.Enqueue(ctx, jobs.TypeTimelineAppend, p, timelinePriority, 0); err != nil {
		logger.Warn("queue timeline event",
			slog.String("candidate", p.CandidateID),
			slog.String("type", string(p.Type)),
			slog.Any("err", err))
	}
}
