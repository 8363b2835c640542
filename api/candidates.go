package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/talentflow/internal/jobs"
	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/internal/schema"
	"github.com/garnizeh/talentflow/pkg/models"
	"github.com/garnizeh/talentflow/pkg/repository"
)

// CandidatesHandler serves candidates with their notes and timeline. Every
// change worth a timeline entry queues a timeline.append job.
type CandidatesHandler struct {
	candidates repository.CandidateRepo
	notes      repository.NoteRepo
	timeline   repository.TimelineRepo
	jobs       repository.JobRepo
	schemas    *schema.Loader
	queue      jobs.Enqueuer
}

func NewCandidatesHandler(store repository.Store, schemas *schema.Loader, queue jobs.Enqueuer) *CandidatesHandler {
	return &CandidatesHandler{
		candidates: store,
		notes:      store,
		timeline:   store,
		jobs:       store,
		schemas:    schemas,
		queue:      queue,
	}
}

func (h *CandidatesHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := query.CandidateQueryFromValues(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.candidates.ListCandidates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := query.Candidates(items, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, page)
}

func (h *CandidatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := h.candidates.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c == nil {
		notFound(w, r, "candidate", id)
		return
	}
	writeData(w, c, http.StatusOK)
}

func (h *CandidatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.Candidate
	if err := readBody(r, h.schemas, "candidates", &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.candidates.CreateCandidate(r.Context(), &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	desc := "Applied"
	if j, err := h.jobs.GetJob(r.Context(), c.JobID); err == nil && j != nil {
		desc = fmt.Sprintf("Applied to %s", j.Title)
	}
	emit(r.Context(), h.queue, jobs.TimelinePayload{
		CandidateID: c.ID,
		Type:        models.EventOther,
		Description: desc,
		Metadata:    map[string]any{"jobId": c.JobID, "stage": string(c.Stage)},
	})
	writeData(w, c, http.StatusCreated)
}

func (h *CandidatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var p models.CandidatePatch
	if err := readBody(r, nil, "", &p); err != nil {
		writeError(w, r, err)
		return
	}
	before, err := h.candidates.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if before == nil {
		notFound(w, r, "candidate", id)
		return
	}
	c, err := h.candidates.UpdateCandidate(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c.Stage != before.Stage {
		emit(r.Context(), h.queue, jobs.TimelinePayload{
			CandidateID: c.ID,
			Type:        models.EventStageChange,
			Description: fmt.Sprintf("Moved from %s to %s", before.Stage, c.Stage),
			Metadata:    map[string]any{"from": string(before.Stage), "to": string(c.Stage)},
		})
	}
	writeData(w, c, http.StatusOK)
}

func (h *CandidatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.candidates.DeleteCandidate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]string{"deleted": id}, http.StatusOK)
}

// exists answers 404 and returns false when the candidate is unknown.
func (h *CandidatesHandler) exists(w http.ResponseWriter, r *http.Request, id string) bool {
	c, err := h.candidates.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return false
	}
	if c == nil {
		notFound(w, r, "candidate", id)
		return false
	}
	return true
}

func (h *CandidatesHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.exists(w, r, id) {
		return
	}
	events, err := h.timeline.ListEvents(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, events, http.StatusOK)
}

func (h *CandidatesHandler) Notes(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.exists(w, r, id) {
		return
	}
	notes, err := h.notes.ListNotes(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, notes, http.StatusOK)
}

func (h *CandidatesHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var in models.CandidateNote
	if err := readBody(r, h.schemas, "notes", &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.CandidateID = mux.Vars(r)["id"]
	n, err := h.notes.CreateNote(r.Context(), &in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	emit(r.Context(), h.queue, jobs.TimelinePayload{
		CandidateID: n.CandidateID,
		Type:        models.EventNoteAdded,
		Description: "Note added",
		Metadata:    map[string]any{"noteId": n.ID, "mentions": n.Mentions},
		CreatedBy:   n.AuthorName,
	})
	writeData(w, n, http.StatusCreated)
}
