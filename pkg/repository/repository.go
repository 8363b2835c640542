package repository

import (
	"context"

	"github.com/garnizeh/talentflow/pkg/models"
)

// Repository interfaces for the recruiting entities. These are the public
// contracts consumers should depend on; the concrete SQLite implementation
// lives under internal/.
//
// Getters return (nil, nil) when the row does not exist. Updates and deletes
// return an errs.NotFound error instead.

type JobRepo interface {
	CreateJob(ctx context.Context, j *models.Job) (*models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetJobBySlug(ctx context.Context, slug string) (*models.Job, error)
	ListJobs(ctx context.Context) ([]models.Job, error)
	UpdateJob(ctx context.Context, id string, p models.JobPatch) (*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
	PutJob(ctx context.Context, j models.Job) error
}

// OrderRepo keeps Job.Order a dense permutation of [0, N-1].
type OrderRepo interface {
	ReorderJob(ctx context.Context, id string, fromOrder, toOrder int) error
	JobOrders(ctx context.Context) (map[string]int, error)
	RestoreOrders(ctx context.Context, orders map[string]int) error
}

type CandidateRepo interface {
	CreateCandidate(ctx context.Context, c *models.Candidate) (*models.Candidate, error)
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, p models.CandidatePatch) (*models.Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error
	PutCandidate(ctx context.Context, c models.Candidate) error
}

type NoteRepo interface {
	CreateNote(ctx context.Context, n *models.CandidateNote) (*models.CandidateNote, error)
	ListNotes(ctx context.Context, candidateID string) ([]models.CandidateNote, error)
	DeleteNote(ctx context.Context, id string) error
	PutNote(ctx context.Context, n models.CandidateNote) error
}

// TimelineRepo is append-only.
type TimelineRepo interface {
	AppendEvent(ctx context.Context, e *models.TimelineEvent) (*models.TimelineEvent, error)
	ListEvents(ctx context.Context, candidateID string) ([]models.TimelineEvent, error)
	PutEvent(ctx context.Context, e models.TimelineEvent) error
}

type AssessmentRepo interface {
	CreateAssessment(ctx context.Context, a *models.Assessment) (*models.Assessment, error)
	GetAssessment(ctx context.Context, id string) (*models.Assessment, error)
	GetAssessmentByJob(ctx context.Context, jobID string) (*models.Assessment, error)
	ListAssessments(ctx context.Context) ([]models.Assessment, error)
	UpdateAssessment(ctx context.Context, id string, a models.Assessment) (*models.Assessment, error)
	DeleteAssessment(ctx context.Context, id string) error
	PutAssessment(ctx context.Context, a models.Assessment) error
}

type ResponseRepo interface {
	CreateResponse(ctx context.Context, r *models.AssessmentResponse) (*models.AssessmentResponse, error)
	GetResponse(ctx context.Context, id string) (*models.AssessmentResponse, error)
	FindResponse(ctx context.Context, assessmentID, candidateID string) (*models.AssessmentResponse, error)
	ListResponses(ctx context.Context) ([]models.AssessmentResponse, error)
	UpdateResponse(ctx context.Context, id string, p models.ResponsePatch) (*models.AssessmentResponse, error)
	DeleteResponse(ctx context.Context, id string) error
	PutResponse(ctx context.Context, r models.AssessmentResponse) error
}

// GraphRepo captures an entity with its dependents so a cascade delete can be
// undone exactly.
type GraphRepo interface {
	CaptureJobGraph(ctx context.Context, id string) (*models.JobGraph, error)
	CaptureCandidateGraph(ctx context.Context, id string) (*models.CandidateGraph, error)
	RestoreJobGraph(ctx context.Context, g models.JobGraph) error
	RestoreCandidateGraph(ctx context.Context, g models.CandidateGraph) error
	Export(ctx context.Context) (*models.Snapshot, error)
}

type SchemaRepo interface {
	GetRequestSchema(ctx context.Context, collection string) (string, error)
	PutRequestSchema(ctx context.Context, collection, schemaJSON string) error
	// ListRequestSchemas returns every stored schema keyed by collection.
	ListRequestSchemas(ctx context.Context) (map[string]string, error)
}

// Store is everything the entity store offers.
type Store interface {
	JobRepo
	OrderRepo
	CandidateRepo
	NoteRepo
	TimelineRepo
	AssessmentRepo
	ResponseRepo
	GraphRepo
}
