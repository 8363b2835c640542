package api

import (
	"context"
	"fmt"

	"github.com/gorilla/mux"

	"github.com/garnizeh/talentflow/internal/config"
	"github.com/garnizeh/talentflow/internal/db"
	"github.com/garnizeh/talentflow/internal/jobs"
	"github.com/garnizeh/talentflow/internal/repository/sqlite"
	"github.com/garnizeh/talentflow/internal/schema"
)

// SetupRoutes wires the REST service over d. queue may be nil, in which
// case no timeline events are derived; metrics may be nil, in which case a
// fresh registry is used.
func SetupRoutes(ctx context.Context, cfg *config.Config, version, buildTime string, d *db.DB, queue jobs.Enqueuer, metrics *Metrics) (*mux.Router, error) {
	r := mux.NewRouter()
	if metrics == nil {
		metrics = NewMetrics()
	}

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(d, logger)
	schemas, err := schema.NewLoader(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("load request schemas: %w", err)
	}

	// Create handlers
	systemHandler := &SystemHandler{DB: d.GetConn()}
	jobsHandler := NewJobsHandler(repo, repo, schemas)
	candidatesHandler := NewCandidatesHandler(repo, schemas, queue)
	assessmentsHandler := NewAssessmentsHandler(repo, schemas)
	responsesHandler := NewResponsesHandler(repo, repo, schemas, queue)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Simulated remote API
	api := r.PathPrefix("/api").Subrouter()
	api.Use(NewChaos(cfg.Network, metrics).Middleware)

	api.HandleFunc("/jobs", jobsHandler.List).Methods("GET")
	api.HandleFunc("/jobs", jobsHandler.Create).Methods("POST")
	api.HandleFunc("/jobs/{id}", jobsHandler.Get).Methods("GET")
	api.HandleFunc("/jobs/{id}", jobsHandler.Update).Methods("PUT", "PATCH")
	api.HandleFunc("/jobs/{id}", jobsHandler.Delete).Methods("DELETE")
	api.HandleFunc("/jobs/{id}/reorder", jobsHandler.Reorder).Methods("POST")

	api.HandleFunc("/candidates", candidatesHandler.List).Methods("GET")
	api.HandleFunc("/candidates", candidatesHandler.Create).Methods("POST")
	api.HandleFunc("/candidates/{id}", candidatesHandler.Get).Methods("GET")
	api.HandleFunc("/candidates/{id}", candidatesHandler.Update).Methods("PUT", "PATCH")
	api.HandleFunc("/candidates/{id}", candidatesHandler.Delete).Methods("DELETE")
	api.HandleFunc("/candidates/{id}/timeline", candidatesHandler.Timeline).Methods("GET")
	api.HandleFunc("/candidates/{id}/notes", candidatesHandler.Notes).Methods("GET")
	api.HandleFunc("/candidates/{id}/notes", candidatesHandler.AddNote).Methods("POST")

	api.HandleFunc("/assessments", assessmentsHandler.List).Methods("GET")
	api.HandleFunc("/assessments", assessmentsHandler.Create).Methods("POST")
	api.HandleFunc("/assessments/{id}", assessmentsHandler.Get).Methods("GET")
	api.HandleFunc("/assessments/{id}", assessmentsHandler.Update).Methods("PUT")
	api.HandleFunc("/assessments/{id}", assessmentsHandler.Delete).Methods("DELETE")
	api.HandleFunc("/assessments/{id}/duplicate", assessmentsHandler.Duplicate).Methods("POST")

	api.HandleFunc("/assessment-responses", responsesHandler.List).Methods("GET")
	api.HandleFunc("/assessment-responses", responsesHandler.Save).Methods("POST")
	api.HandleFunc("/assessment-responses/{id}", responsesHandler.Get).Methods("GET")
	api.HandleFunc("/assessment-responses/{id}", responsesHandler.Update).Methods("PUT", "PATCH")
	api.HandleFunc("/assessment-responses/{id}", responsesHandler.Delete).Methods("DELETE")

	return r, nil
}
