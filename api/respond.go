package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/internal/schema"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type okEnvelope struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data"`
	Pagination *query.Pagination `json:"pagination,omitempty"`
}

type errEnvelope struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Retryable bool              `json:"retryable"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeData(w http.ResponseWriter, data any, status int) {
	writeJSON(w, okEnvelope{Success: true, Data: data}, status)
}

func writePage[T any](w http.ResponseWriter, p query.Page[T]) {
	writeJSON(w, okEnvelope{Success: true, Data: p.Data, Pagination: &p.Pagination}, http.StatusOK)
}

// writeError answers with the error envelope of err's kind.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *errs.Error
	if !errors.As(errs.Normalize(err), &e) {
		e = errs.Wrap(errs.KindServer, err, "request aborted")
	}
	status := e.Kind.HTTPStatus()
	if status >= 500 {
		logger.Error("request failed", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("err", err))
	}
	writeJSON(w, errEnvelope{Error: e.Message, Code: e.Code, Retryable: e.Retryable, Fields: e.Fields}, status)
}

func notFound(w http.ResponseWriter, r *http.Request, entity, id string) {
	writeError(w, r, errs.NotFound(entity, id))
}

// readBody reads the request body, validates it against the collection's
// schema (when a loader is set) and decodes it into v.
func readBody(r *http.Request, schemas *schema.Loader, collection string, v any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errs.Wrap(errs.KindValidation, err, "read body")
	}
	if schemas != nil && collection != "" {
		if err := schemas.Validate(r.Context(), collection, b); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errs.Validation(fmt.Sprintf("invalid request body: %v", err), nil)
	}
	return nil
}
