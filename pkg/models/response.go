package models

import (
	"slices"
	"time"
)

type AssessmentResponse struct {
	ID                string         `json:"id" db:"id"`
	AssessmentID      string         `json:"assessmentId" db:"assessment_id" validate:"required"`
	CandidateID       string         `json:"candidateId" db:"candidate_id" validate:"required"`
	Responses         map[string]any `json:"responses" db:"responses"`
	CompletedSections []string       `json:"completedSections" db:"completed_sections"`
	IsComplete        bool           `json:"isComplete" db:"is_complete"`
	SubmittedAt       *time.Time     `json:"submittedAt,omitempty" db:"submitted"`
	CreatedAt         time.Time      `json:"createdAt" db:"created"`
	UpdatedAt         time.Time      `json:"updatedAt" db:"updated"`
	Seq               int64          `json:"-" db:"seq"`
}

// MergeAnswers returns a new map holding base overlaid with updates. A nil
// update value removes the answer.
func MergeAnswers(base, updates map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(updates))
	for k, v := range base {
		out[k] = CloneValue(v)
	}
	for k, v := range updates {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = CloneValue(v)
	}
	return out
}

// Clone deep-copies the response.
func (r AssessmentResponse) Clone() AssessmentResponse {
	out := r
	out.Responses = MergeAnswers(r.Responses, nil)
	out.CompletedSections = slices.Clone(r.CompletedSections)
	if r.SubmittedAt != nil {
		t := *r.SubmittedAt
		out.SubmittedAt = &t
	}
	return out
}
