package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/pkg/models"
)

// Jobs

func (c *Client) ListJobs(ctx context.Context, q query.JobQuery) (query.Page[models.Job], error) {
	return list[models.Job](ctx, c, "/jobs", q.Values())
}

func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	j, _, err := get[models.Job](ctx, c, "/jobs/"+id, nil)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *Client) CreateJob(ctx context.Context, j models.Job) (*models.Job, error) {
	out, err := send[models.Job](ctx, c, http.MethodPost, "/jobs", j)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateJob(ctx context.Context, id string, p models.JobPatch) (*models.Job, error) {
	out, err := send[models.Job](ctx, c, http.MethodPut, "/jobs/"+id, p)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteJob(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/jobs/"+id, nil, nil, nil)
	return err
}

// ReorderRequest is the body of POST /jobs/{id}/reorder.
type ReorderRequest struct {
	FromOrder int `json:"fromOrder"`
	ToOrder   int `json:"toOrder"`
}

func (c *Client) ReorderJob(ctx context.Context, id string, from, to int) error {
	_, err := c.call(ctx, http.MethodPost, "/jobs/"+id+"/reorder", nil, ReorderRequest{FromOrder: from, ToOrder: to}, nil)
	return err
}

// AllJobs pages through every job in order.
func (c *Client) AllJobs(ctx context.Context) ([]models.Job, error) {
	return all(func(page int) (query.Page[models.Job], error) {
		return c.ListJobs(ctx, query.JobQuery{Params: query.Params{Page: page, Limit: query.MaxLimit, SortBy: "order"}})
	})
}

// Candidates

func (c *Client) ListCandidates(ctx context.Context, q query.CandidateQuery) (query.Page[models.Candidate], error) {
	return list[models.Candidate](ctx, c, "/candidates", q.Values())
}

func (c *Client) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	v, _, err := get[models.Candidate](ctx, c, "/candidates/"+id, nil)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) CreateCandidate(ctx context.Context, in models.Candidate) (*models.Candidate, error) {
	out, err := send[models.Candidate](ctx, c, http.MethodPost, "/candidates", in)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCandidate(ctx context.Context, id string, p models.CandidatePatch) (*models.Candidate, error) {
	out, err := send[models.Candidate](ctx, c, http.MethodPut, "/candidates/"+id, p)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCandidate(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/candidates/"+id, nil, nil, nil)
	return err
}

func (c *Client) Timeline(ctx context.Context, candidateID string) ([]models.TimelineEvent, error) {
	v, _, err := get[[]models.TimelineEvent](ctx, c, "/candidates/"+candidateID+"/timeline", nil)
	if v == nil && err == nil {
		v = []models.TimelineEvent{}
	}
	return v, err
}

func (c *Client) Notes(ctx context.Context, candidateID string) ([]models.CandidateNote, error) {
	v, _, err := get[[]models.CandidateNote](ctx, c, "/candidates/"+candidateID+"/notes", nil)
	if v == nil && err == nil {
		v = []models.CandidateNote{}
	}
	return v, err
}

func (c *Client) AddNote(ctx context.Context, candidateID string, n models.CandidateNote) (*models.CandidateNote, error) {
	out, err := send[models.CandidateNote](ctx, c, http.MethodPost, "/candidates/"+candidateID+"/notes", n)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AllCandidates pages through every candidate, oldest application first.
func (c *Client) AllCandidates(ctx context.Context) ([]models.Candidate, error) {
	return all(func(page int) (query.Page[models.Candidate], error) {
		return c.ListCandidates(ctx, query.CandidateQuery{Params: query.Params{Page: page, Limit: query.MaxLimit, SortBy: "appliedAt", SortOrder: query.Asc}})
	})
}

// Assessments

func (c *Client) ListAssessments(ctx context.Context, q query.AssessmentQuery) (query.Page[models.Assessment], error) {
	return list[models.Assessment](ctx, c, "/assessments", q.Values())
}

func (c *Client) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	v, _, err := get[models.Assessment](ctx, c, "/assessments/"+id, nil)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// AssessmentForJob returns the assessment of a job, or (nil, nil) when the
// job has none.
func (c *Client) AssessmentForJob(ctx context.Context, jobID string) (*models.Assessment, error) {
	page, err := c.ListAssessments(ctx, query.AssessmentQuery{JobID: jobID, Params: query.Params{Limit: 1}})
	if err != nil || len(page.Data) == 0 {
		return nil, err
	}
	return &page.Data[0], nil
}

func (c *Client) CreateAssessment(ctx context.Context, a models.Assessment) (*models.Assessment, error) {
	out, err := send[models.Assessment](ctx, c, http.MethodPost, "/assessments", a)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAssessment(ctx context.Context, id string, a models.Assessment) (*models.Assessment, error) {
	out, err := send[models.Assessment](ctx, c, http.MethodPut, "/assessments/"+id, a)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAssessment(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/assessments/"+id, nil, nil, nil)
	return err
}

func (c *Client) AllAssessments(ctx context.Context) ([]models.Assessment, error) {
	return all(func(page int) (query.Page[models.Assessment], error) {
		return c.ListAssessments(ctx, query.AssessmentQuery{Params: query.Params{Page: page, Limit: query.MaxLimit}})
	})
}

// Assessment responses

func (c *Client) ListResponses(ctx context.Context, q query.ResponseQuery) (query.Page[models.AssessmentResponse], error) {
	return list[models.AssessmentResponse](ctx, c, "/assessment-responses", q.Values())
}

// FindResponse returns the response of a candidate to an assessment, or
// (nil, nil) when there is none.
func (c *Client) FindResponse(ctx context.Context, assessmentID, candidateID string) (*models.AssessmentResponse, error) {
	page, err := c.ListResponses(ctx, query.ResponseQuery{AssessmentID: assessmentID, CandidateID: candidateID, Params: query.Params{Limit: 1}})
	if err != nil || len(page.Data) == 0 {
		return nil, err
	}
	return &page.Data[0], nil
}

// SaveResponse posts a response. The service merges it into an existing
// response of the same (assessment, candidate) pair and answers Conflict
// when that one is already complete.
func (c *Client) SaveResponse(ctx context.Context, r models.AssessmentResponse) (*models.AssessmentResponse, error) {
	out, err := send[models.AssessmentResponse](ctx, c, http.MethodPost, "/assessment-responses", r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateResponse(ctx context.Context, id string, p models.ResponsePatch) (*models.AssessmentResponse, error) {
	out, err := send[models.AssessmentResponse](ctx, c, http.MethodPut, "/assessment-responses/"+id, p)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AllResponses(ctx context.Context) ([]models.AssessmentResponse, error) {
	return all(func(page int) (query.Page[models.AssessmentResponse], error) {
		return c.ListResponses(ctx, query.ResponseQuery{Params: query.Params{Page: page, Limit: query.MaxLimit, SortBy: "createdAt", SortOrder: query.Asc}})
	})
}

func (c *Client) DeleteResponse(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/assessment-responses/"+id, nil, nil, nil)
	return err
}

// Health checks GET /health (outside /api).
func (c *Client) Health(ctx context.Context) error {
	u := c.base.ResolveReference(&url.URL{Path: "/health"})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return errs.Normalize(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.New(errs.KindFromStatus(resp.StatusCode), "health returned status %d", resp.StatusCode)
	}
	return nil
}

func all[T any](fetch func(page int) (query.Page[T], error)) ([]T, error) {
	out := []T{}
	for page := 1; ; page++ {
		p, err := fetch(page)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Data...)
		if page >= p.Pagination.TotalPages {
			return out, nil
		}
	}
}
