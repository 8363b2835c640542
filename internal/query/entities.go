package query

import (
	"cmp"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/samber/mo"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/pkg/models"
)

type JobQuery struct {
	Params
	Status models.JobStatus
	// Tags keeps jobs carrying every listed tag.
	Tags []string
}

var jobSorts = Comparators[models.Job]{
	"order":     func(a, b models.Job) int { return cmp.Compare(a.Order, b.Order) },
	"title":     func(a, b models.Job) int { return compareFold(a.Title, b.Title) },
	"createdAt": func(a, b models.Job) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updatedAt": func(a, b models.Job) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

// Jobs searches title, slug and tags. Default sort is order ascending.
func Jobs(items []models.Job, q JobQuery) (Page[models.Job], error) {
	match := func(j models.Job) bool {
		if q.Status != "" && j.Status != q.Status {
			return false
		}
		for _, want := range q.Tags {
			if !slices.ContainsFunc(j.Tags, func(t string) bool { return compareFold(t, want) == 0 }) {
				return false
			}
		}
		if q.Search == "" {
			return true
		}
		if containsFold(j.Title, q.Search) || containsFold(j.Slug, q.Search) {
			return true
		}
		return slices.ContainsFunc(j.Tags, func(t string) bool { return containsFold(t, q.Search) })
	}
	return Run(items, q.Params, match, jobSorts, Sort{By: "order", Order: Asc})
}

type CandidateQuery struct {
	Params
	Stage models.Stage
	JobID string
}

var candidateSorts = Comparators[models.Candidate]{
	"name":      func(a, b models.Candidate) int { return compareFold(a.Name, b.Name) },
	"appliedAt": func(a, b models.Candidate) int { return a.AppliedAt.Compare(b.AppliedAt) },
	"updatedAt": func(a, b models.Candidate) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	"stage":     func(a, b models.Candidate) int { return cmp.Compare(a.Stage.Rank(), b.Stage.Rank()) },
}

// Candidates searches name and email. Default sort is newest application
// first.
func Candidates(items []models.Candidate, q CandidateQuery) (Page[models.Candidate], error) {
	match := func(c models.Candidate) bool {
		if q.Stage != "" && c.Stage != q.Stage {
			return false
		}
		if q.JobID != "" && c.JobID != q.JobID {
			return false
		}
		return q.Search == "" || containsFold(c.Name, q.Search) || containsFold(c.Email, q.Search)
	}
	return Run(items, q.Params, match, candidateSorts, Sort{By: "appliedAt", Order: Desc})
}

type AssessmentQuery struct {
	Params
	JobID string
}

var assessmentSorts = Comparators[models.Assessment]{
	"title":     func(a, b models.Assessment) int { return compareFold(a.Title, b.Title) },
	"createdAt": func(a, b models.Assessment) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updatedAt": func(a, b models.Assessment) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

func Assessments(items []models.Assessment, q AssessmentQuery) (Page[models.Assessment], error) {
	match := func(a models.Assessment) bool {
		if q.JobID != "" && a.JobID != q.JobID {
			return false
		}
		return q.Search == "" || containsFold(a.Title, q.Search)
	}
	return Run(items, q.Params, match, assessmentSorts, Sort{By: "createdAt", Order: Asc})
}

type ResponseQuery struct {
	Params
	AssessmentID string
	CandidateID  string
	IsComplete   mo.Option[bool]
}

func submitted(r models.AssessmentResponse) time.Time {
	if r.SubmittedAt == nil {
		return time.Time{}
	}
	return *r.SubmittedAt
}

var responseSorts = Comparators[models.AssessmentResponse]{
	"submittedAt": func(a, b models.AssessmentResponse) int { return submitted(a).Compare(submitted(b)) },
	"updatedAt":   func(a, b models.AssessmentResponse) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	"createdAt":   func(a, b models.AssessmentResponse) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func Responses(items []models.AssessmentResponse, q ResponseQuery) (Page[models.AssessmentResponse], error) {
	match := func(r models.AssessmentResponse) bool {
		if q.AssessmentID != "" && r.AssessmentID != q.AssessmentID {
			return false
		}
		if q.CandidateID != "" && r.CandidateID != q.CandidateID {
			return false
		}
		if done, ok := q.IsComplete.Get(); ok && r.IsComplete != done {
			return false
		}
		return true
	}
	return Run(items, q.Params, match, responseSorts, Sort{By: "updatedAt", Order: Desc})
}

// The *FromValues helpers decode collection queries from a query string;
// Values encodes them back.

func JobQueryFromValues(v url.Values) (JobQuery, error) {
	p, err := FromValues(v)
	q := JobQuery{Params: p, Status: models.JobStatus(v.Get("status")), Tags: v["tags"]}
	if q.Status != "" && q.Status != models.JobActive && q.Status != models.JobArchived {
		return q, errs.Validation("invalid query parameter", map[string]string{"status": "must be active or archived"})
	}
	return q, err
}

func (q JobQuery) Values() url.Values {
	v := q.Params.Values()
	setNonEmpty(v, "status", string(q.Status))
	for _, t := range q.Tags {
		v.Add("tags", t)
	}
	return v
}

func CandidateQueryFromValues(v url.Values) (CandidateQuery, error) {
	p, err := FromValues(v)
	q := CandidateQuery{Params: p, Stage: models.Stage(v.Get("stage")), JobID: v.Get("jobId")}
	if q.Stage != "" && !q.Stage.Valid() {
		return q, errs.Validation("invalid query parameter", map[string]string{"stage": "unknown stage"})
	}
	return q, err
}

func (q CandidateQuery) Values() url.Values {
	v := q.Params.Values()
	setNonEmpty(v, "stage", string(q.Stage))
	setNonEmpty(v, "jobId", q.JobID)
	return v
}

func AssessmentQueryFromValues(v url.Values) (AssessmentQuery, error) {
	p, err := FromValues(v)
	return AssessmentQuery{Params: p, JobID: v.Get("jobId")}, err
}

func (q AssessmentQuery) Values() url.Values {
	v := q.Params.Values()
	setNonEmpty(v, "jobId", q.JobID)
	return v
}

func ResponseQueryFromValues(v url.Values) (ResponseQuery, error) {
	p, err := FromValues(v)
	q := ResponseQuery{Params: p, AssessmentID: v.Get("assessmentId"), CandidateID: v.Get("candidateId")}
	if s := v.Get("isComplete"); s != "" {
		b, perr := strconv.ParseBool(s)
		if perr != nil {
			return q, errs.Validation("invalid query parameter", map[string]string{"isComplete": "must be a boolean"})
		}
		q.IsComplete = mo.Some(b)
	}
	return q, err
}

func (q ResponseQuery) Values() url.Values {
	v := q.Params.Values()
	setNonEmpty(v, "assessmentId", q.AssessmentID)
	setNonEmpty(v, "candidateId", q.CandidateID)
	if b, ok := q.IsComplete.Get(); ok {
		v.Set("isComplete", strconv.FormatBool(b))
	}
	return v
}
