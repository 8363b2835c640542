package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/samber/mo"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/jobs"
	"github.com/garnizeh/talentflow/internal/logic"
	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/internal/schema"
	"github.com/garnizeh/talentflow/pkg/models"
	"github.com/garnizeh/talentflow/pkg/repository"
)

// ResponsesHandler serves assessment responses. A submission is checked
// against the assessment's rules before it is stored as complete.
type ResponsesHandler struct {
	responses   repository.ResponseRepo
	assessments repository.AssessmentRepo
	schemas     *schema.Loader
	queue       jobs.Enqueuer
}

func NewResponsesHandler(rr repository.ResponseRepo, ar repository.AssessmentRepo, schemas *schema.Loader, queue jobs.Enqueuer) *ResponsesHandler {
	return &ResponsesHandler{responses: rr, assessments: ar, schemas: schemas, queue: queue}
}

func (h *ResponsesHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := query.ResponseQueryFromValues(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.responses.ListResponses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := query.Responses(items, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, page)
}

func (h *ResponsesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	resp, err := h.responses.GetResponse(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if resp == nil {
		notFound(w, r, "response", id)
		return
	}
	writeData(w, resp, http.StatusOK)
}

// checkSubmission validates the merged answers of a response about to be
// marked complete.
func (h *ResponsesHandler) checkSubmission(r *http.Request, assessmentID string, answers map[string]any) error {
	a, err := h.assessments.GetAssessment(r.Context(), assessmentID)
	if err != nil {
		return err
	}
	if a == nil {
		return errs.NotFound("assessment", assessmentID)
	}
	if failed := logic.ValidateAssessment(*a, answers); len(failed) > 0 {
		return errs.Validation("response has invalid answers", logic.Fields(failed))
	}
	return nil
}

// Save creates the response of a (assessment, candidate) pair or merges into
// the existing one. A complete response is never modified.
func (h *ResponsesHandler) Save(w http.ResponseWriter, r *http.Request) {
	var in models.AssessmentResponse
	if err := readBody(r, h.schemas, "assessment-responses", &in); err != nil {
		writeError(w, r, err)
		return
	}
	existing, err := h.responses.FindResponse(r.Context(), in.AssessmentID, in.CandidateID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing != nil && existing.IsComplete {
		writeError(w, r, errs.Conflict("response %s was already submitted", existing.ID))
		return
	}
	if in.IsComplete {
		var base map[string]any
		if existing != nil {
			base = existing.Responses
		}
		if err := h.checkSubmission(r, in.AssessmentID, models.MergeAnswers(base, in.Responses)); err != nil {
			writeError(w, r, err)
			return
		}
	}

	var (
		out    *models.AssessmentResponse
		status = http.StatusCreated
	)
	if existing == nil {
		out, err = h.responses.CreateResponse(r.Context(), &in)
	} else {
		p := models.ResponsePatch{
			Responses:   mo.Some(in.Responses),
			IsComplete:  mo.Some(in.IsComplete),
			SubmittedAt: mo.PointerToOption(in.SubmittedAt),
		}
		if in.CompletedSections != nil {
			p.CompletedSections = mo.Some(in.CompletedSections)
		}
		status = http.StatusOK
		out, err = h.responses.UpdateResponse(r.Context(), existing.ID, p)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.completed(r, out)
	writeData(w, out, status)
}

func (h *ResponsesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var p models.ResponsePatch
	if err := readBody(r, nil, "", &p); err != nil {
		writeError(w, r, err)
		return
	}
	if p.IsComplete.OrElse(false) {
		cur, err := h.responses.GetResponse(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if cur == nil {
			notFound(w, r, "response", id)
			return
		}
		if !cur.IsComplete {
			if err := h.checkSubmission(r, cur.AssessmentID, models.MergeAnswers(cur.Responses, p.Responses.OrElse(nil))); err != nil {
				writeError(w, r, err)
				return
			}
		}
	}
	out, err := h.responses.UpdateResponse(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.completed(r, out)
	writeData(w, out, http.StatusOK)
}

func (h *ResponsesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.responses.DeleteResponse(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]string{"deleted": id}, http.StatusOK)
}

func (h *ResponsesHandler) completed(r *http.Request, resp *models.AssessmentResponse) {
	if !resp.IsComplete {
		return
	}
	emit(r.Context(), h.queue, jobs.TimelinePayload{
		CandidateID: resp.CandidateID,
		Type:        models.EventAssessmentCompleted,
		Description: "Assessment submitted",
		Metadata:    map[string]any{"assessmentId": resp.AssessmentID, "responseId": resp.ID},
	})
}
