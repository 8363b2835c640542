package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/internal/schema"
	"github.com/garnizeh/talentflow/pkg/models"
	"github.com/garnizeh/talentflow/pkg/repository"
)

type JobsHandler struct {
	jobs    repository.JobRepo
	orders  repository.OrderRepo
	schemas *schema.Loader
}

func NewJobsHandler(jr repository.JobRepo, or repository.OrderRepo, schemas *schema.Loader) *JobsHandler {
	return &JobsHandler{jobs: jr, orders: or, schemas: schemas}
}

func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := query.JobQueryFromValues(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := query.Jobs(items, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, page)
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	j, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if j == nil {
		notFound(w, r, "job", id)
		return
	}
	writeData(w, j, http.StatusOK)
}

func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.Job
	if err := readBody(r, h.schemas, "jobs", &in); err != nil {
		writeError(w, r, err)
		return
	}
	j, err := h.jobs.CreateJob(r.Context(), &in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, j, http.StatusCreated)
}

func (h *JobsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p models.JobPatch
	if err := readBody(r, nil, "", &p); err != nil {
		writeError(w, r, err)
		return
	}
	j, err := h.jobs.UpdateJob(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, j, http.StatusOK)
}

func (h *JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.jobs.DeleteJob(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]string{"deleted": id}, http.StatusOK)
}

type reorderRequest struct {
	FromOrder int `json:"fromOrder"`
	ToOrder   int `json:"toOrder"`
}

// Reorder moves a job and answers with the resulting order of every job.
func (h *JobsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := readBody(r, nil, "", &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.orders.ReorderJob(r.Context(), mux.Vars(r)["id"], req.FromOrder, req.ToOrder); err != nil {
		writeError(w, r, err)
		return
	}
	orders, err := h.orders.JobOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, orders, http.StatusOK)
}
