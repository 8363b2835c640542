package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/pkg/models"
	"github.com/garnizeh/talentflow/pkg/repository"
)

// TypeTimelineAppend derives a timeline event from a change made through the
// REST service.
const TypeTimelineAppend = "timeline.append"

// TimelinePayload is the payload of a timeline.append job.
type TimelinePayload struct {
	CandidateID string           `json:"candidateId"`
	Type        models.EventType `json:"type"`
	Description string           `json:"description"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	CreatedBy   string           `json:"createdBy,omitempty"`
}

// TimelineHandler appends the event described by the payload. A candidate
// deleted before the job runs is not an error worth retrying.
func TimelineHandler(repo repository.TimelineRepo) Handler {
	return func(ctx context.Context, j *Job) error {
		var p TimelinePayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return fmt.Errorf("%w: decode timeline payload: %v", ErrPermanent, err)
		}
		_, err := repo.AppendEvent(ctx, &models.TimelineEvent{
			CandidateID: p.CandidateID,
			Type:        p.Type,
			Description: p.Description,
			Metadata:    p.Metadata,
			CreatedBy:   p.CreatedBy,
		})
		if errs.IsKind(err, errs.KindNotFound) {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		if err != nil {
			return fmt.Errorf("append timeline event for %s: %w", p.CandidateID, err)
		}
		return nil
	}
}

// Handlers returns the handler table of the server's worker pool.
func Handlers(timeline repository.TimelineRepo) map[string]Handler {
	return map[string]Handler{
		TypeTimelineAppend: TimelineHandler(timeline),
	}
}
