package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/internal/schema"
	"github.com/garnizeh/talentflow/pkg/models"
	"github.com/garnizeh/talentflow/pkg/repository"
)

type AssessmentsHandler struct {
	assessments repository.AssessmentRepo
	schemas     *schema.Loader
}

func NewAssessmentsHandler(ar repository.AssessmentRepo, schemas *schema.Loader) *AssessmentsHandler {
	return &AssessmentsHandler{assessments: ar, schemas: schemas}
}

func (h *AssessmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := query.AssessmentQueryFromValues(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.assessments.ListAssessments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := query.Assessments(items, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, page)
}

func (h *AssessmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a, err := h.assessments.GetAssessment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a == nil {
		notFound(w, r, "assessment", id)
		return
	}
	writeData(w, a, http.StatusOK)
}

func (h *AssessmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.Assessment
	if err := readBody(r, h.schemas, "assessments", &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.assessments.CreateAssessment(r.Context(), &in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, a, http.StatusCreated)
}

// Update replaces the title and sections of an assessment.
func (h *AssessmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.Assessment
	if err := readBody(r, nil, "", &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.assessments.UpdateAssessment(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, a, http.StatusOK)
}

func (h *AssessmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.assessments.DeleteAssessment(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]string{"deleted": id}, http.StatusOK)
}

type duplicateRequest struct {
	JobID string `json:"jobId"`
}

// Duplicate copies an assessment onto another job with fresh section and
// question ids.
func (h *AssessmentsHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req duplicateRequest
	if err := readBody(r, nil, "", &req); err != nil {
		writeError(w, r, err)
		return
	}
	src, err := h.assessments.GetAssessment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if src == nil {
		notFound(w, r, "assessment", id)
		return
	}
	dup := src.Duplicate(req.JobID, uuid.NewString)
	a, err := h.assessments.CreateAssessment(r.Context(), &dup)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, a, http.StatusCreated)
}
