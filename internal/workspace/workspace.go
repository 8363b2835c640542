// Package workspace is the explicit state container of a client: it owns the
// local entity store, the remote client and the optimistic coordinator, and
// runs every mutating command through the coordinator.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	dbfs "github.com/garnizeh/talentflow/db"
	"github.com/garnizeh/talentflow/internal/config"
	"github.com/garnizeh/talentflow/internal/db"
	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/optimistic"
	"github.com/garnizeh/talentflow/internal/remote"
	"github.com/garnizeh/talentflow/internal/repository/sqlite"
	"github.com/garnizeh/talentflow/pkg/models"
	"github.com/garnizeh/talentflow/pkg/repository"
)

// Remote is the part of the remote service a workspace commits to.
type Remote interface {
	CreateJob(ctx context.Context, j models.Job) (*models.Job, error)
	UpdateJob(ctx context.Context, id string, p models.JobPatch) (*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
	ReorderJob(ctx context.Context, id string, from, to int) error
	AllJobs(ctx context.Context) ([]models.Job, error)

	CreateCandidate(ctx context.Context, c models.Candidate) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, p models.CandidatePatch) (*models.Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error
	AllCandidates(ctx context.Context) ([]models.Candidate, error)
	AddNote(ctx context.Context, candidateID string, n models.CandidateNote) (*models.CandidateNote, error)
	Notes(ctx context.Context, candidateID string) ([]models.CandidateNote, error)
	Timeline(ctx context.Context, candidateID string) ([]models.TimelineEvent, error)

	GetAssessment(ctx context.Context, id string) (*models.Assessment, error)
	CreateAssessment(ctx context.Context, a models.Assessment) (*models.Assessment, error)
	UpdateAssessment(ctx context.Context, id string, a models.Assessment) (*models.Assessment, error)
	DeleteAssessment(ctx context.Context, id string) error
	AllAssessments(ctx context.Context) ([]models.Assessment, error)

	FindResponse(ctx context.Context, assessmentID, candidateID string) (*models.AssessmentResponse, error)
	SaveResponse(ctx context.Context, r models.AssessmentResponse) (*models.AssessmentResponse, error)
	AllResponses(ctx context.Context) ([]models.AssessmentResponse, error)
}

var _ Remote = (*remote.Client)(nil)

type Workspace struct {
	store  repository.Store
	remote Remote
	coord  *optimistic.Coordinator
	logger *slog.Logger

	closers []func() error
}

// New assembles a workspace from its parts. The caller keeps ownership of
// them; Close only closes the coordinator.
func New(store repository.Store, r Remote, coord *optimistic.Coordinator, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return &Workspace{store: store, remote: r, coord: coord, logger: logger}
}

// Open builds a workspace from configuration: it opens and migrates the
// local database and connects the remote client. Close releases all of it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, notifier optimistic.Notifier) (*Workspace, error) {
	d, err := db.New(ctx, cfg.Workspace.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open workspace db: %w", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("migrate workspace db: %w", err)
	}
	rc, err := remote.NewDefault(cfg.Remote)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	w := New(sqlite.New(d, logger), rc, optimistic.New(logger, notifier), logger)
	w.closers = []func() error{rc.Close, d.Close}
	return w, nil
}

// Store exposes the local store for reads.
func (w *Workspace) Store() repository.Store { return w.store }

func (w *Workspace) Coordinator() *optimistic.Coordinator { return w.coord }

// Close cancels in-flight commands and releases what Open acquired.
func (w *Workspace) Close() error {
	w.coord.Close()
	var first error
	for _, c := range w.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	w.closers = nil
	return first
}

// Export reads the whole local store.
func (w *Workspace) Export(ctx context.Context) (*models.Snapshot, error) {
	return w.store.Export(ctx)
}

// ignoreNotFound treats an already missing row as removed.
func ignoreNotFound(err error) error {
	if errs.IsKind(err, errs.KindNotFound) {
		return nil
	}
	return err
}

// fallback reports whether a read may be served from the local copy after
// the remote failed.
func (w *Workspace) fallback(op string, err error) bool {
	if !errs.IsRetryable(err) {
		return false
	}
	w.logger.Warn("remote unavailable, serving local copy", slog.String("op", op), slog.Any("err", err))
	return true
}
