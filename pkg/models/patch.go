package models

import (
	"encoding/json"
	"time"

	"github.com/samber/mo"
)

// Patches carry only the fields a caller wants to change. On the wire a
// missing key means "unchanged".

type JobPatch struct {
	Title        mo.Option[string]
	Slug         mo.Option[string]
	Status       mo.Option[JobStatus]
	Tags         mo.Option[[]string]
	Description  mo.Option[string]
	Requirements mo.Option[[]string]
}

type jobPatchWire struct {
	Title        *string    `json:"title,omitempty"`
	Slug         *string    `json:"slug,omitempty"`
	Status       *JobStatus `json:"status,omitempty"`
	Tags         *[]string  `json:"tags,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Requirements *[]string  `json:"requirements,omitempty"`
}

func (p JobPatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(jobPatchWire{
		Title:        p.Title.ToPointer(),
		Slug:         p.Slug.ToPointer(),
		Status:       p.Status.ToPointer(),
		Tags:         p.Tags.ToPointer(),
		Description:  p.Description.ToPointer(),
		Requirements: p.Requirements.ToPointer(),
	})
}

func (p *JobPatch) UnmarshalJSON(b []byte) error {
	var w jobPatchWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = JobPatch{
		Title:        mo.PointerToOption(w.Title),
		Slug:         mo.PointerToOption(w.Slug),
		Status:       mo.PointerToOption(w.Status),
		Tags:         mo.PointerToOption(w.Tags),
		Description:  mo.PointerToOption(w.Description),
		Requirements: mo.PointerToOption(w.Requirements),
	}
	return nil
}

// Apply merges the present fields into j. Slug derivation is the store's job.
func (p JobPatch) Apply(j *Job) {
	if v, ok := p.Title.Get(); ok {
		j.Title = v
	}
	if v, ok := p.Slug.Get(); ok {
		j.Slug = v
	}
	if v, ok := p.Status.Get(); ok {
		j.Status = v
	}
	if v, ok := p.Tags.Get(); ok {
		j.Tags = NormalizeTags(v)
	}
	if v, ok := p.Description.Get(); ok {
		j.Description = v
	}
	if v, ok := p.Requirements.Get(); ok {
		j.Requirements = append([]string{}, v...)
	}
}

type CandidatePatch struct {
	Name  mo.Option[string]
	Email mo.Option[string]
	Stage mo.Option[Stage]
	JobID mo.Option[string]
}

type candidatePatchWire struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Stage *Stage  `json:"stage,omitempty"`
	JobID *string `json:"jobId,omitempty"`
}

func (p CandidatePatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(candidatePatchWire{
		Name:  p.Name.ToPointer(),
		Email: p.Email.ToPointer(),
		Stage: p.Stage.ToPointer(),
		JobID: p.JobID.ToPointer(),
	})
}

func (p *CandidatePatch) UnmarshalJSON(b []byte) error {
	var w candidatePatchWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = CandidatePatch{
		Name:  mo.PointerToOption(w.Name),
		Email: mo.PointerToOption(w.Email),
		Stage: mo.PointerToOption(w.Stage),
		JobID: mo.PointerToOption(w.JobID),
	}
	return nil
}

func (p CandidatePatch) Apply(c *Candidate) {
	if v, ok := p.Name.Get(); ok {
		c.Name = v
	}
	if v, ok := p.Email.Get(); ok {
		c.Email = v
	}
	if v, ok := p.Stage.Get(); ok {
		c.Stage = v
	}
	if v, ok := p.JobID.Get(); ok {
		c.JobID = v
	}
}

// ResponsePatch updates a working response. Responses are merged into the
// stored answers, never replacing the whole map.
type ResponsePatch struct {
	Responses         mo.Option[map[string]any]
	CompletedSections mo.Option[[]string]
	IsComplete        mo.Option[bool]
	SubmittedAt       mo.Option[time.Time]
}

type responsePatchWire struct {
	Responses         map[string]any `json:"responses,omitempty"`
	CompletedSections *[]string      `json:"completedSections,omitempty"`
	IsComplete        *bool          `json:"isComplete,omitempty"`
	SubmittedAt       *time.Time     `json:"submittedAt,omitempty"`
}

func (p ResponsePatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(responsePatchWire{
		Responses:         p.Responses.OrElse(nil),
		CompletedSections: p.CompletedSections.ToPointer(),
		IsComplete:        p.IsComplete.ToPointer(),
		SubmittedAt:       p.SubmittedAt.ToPointer(),
	})
}

func (p *ResponsePatch) UnmarshalJSON(b []byte) error {
	var w responsePatchWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = ResponsePatch{
		CompletedSections: mo.PointerToOption(w.CompletedSections),
		IsComplete:        mo.PointerToOption(w.IsComplete),
		SubmittedAt:       mo.PointerToOption(w.SubmittedAt),
	}
	if w.Responses != nil {
		p.Responses = mo.Some(w.Responses)
	}
	return nil
}

func (p ResponsePatch) Apply(r *AssessmentResponse) {
	if v, ok := p.Responses.Get(); ok {
		r.Responses = MergeAnswers(r.Responses, v)
	}
	if v, ok := p.CompletedSections.Get(); ok {
		r.CompletedSections = NormalizeTags(v)
	}
	if v, ok := p.IsComplete.Get(); ok {
		r.IsComplete = v
	}
	if v, ok := p.SubmittedAt.Get(); ok {
		t := v.UTC()
		r.SubmittedAt = &t
	}
}
