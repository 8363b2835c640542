// Package session edits one candidate's response to one assessment. Answers
// merge into an in-memory working copy; a ticker flushes them to the
// workspace while they are dirty, and Submit seals the response.
package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/logic"
	"github.com/garnizeh/talentflow/pkg/models"
)

// Backend is what a session needs from the workspace.
type Backend interface {
	Assessment(ctx context.Context, id string) (*models.Assessment, error)
	Response(ctx context.Context, assessmentID, candidateID string) (*models.AssessmentResponse, error)
	SaveResponse(ctx context.Context, assessmentID, candidateID string, answers map[string]any, completedSections []string, complete bool) (*models.AssessmentResponse, error)
}

type Options struct {
	// AutosaveInterval between flushes of dirty answers; 0 disables the
	// ticker and leaves flushing to the caller.
	AutosaveInterval time.Duration
	Logger           *slog.Logger
}

type Session struct {
	backend     Backend
	assessment  models.Assessment
	candidateID string
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	// flushMu serializes writes to the backend.
	flushMu sync.Mutex

	mu       sync.Mutex
	answers  map[string]any
	pending  map[string]any
	saved    *models.AssessmentResponse
	complete bool
}

// Open loads the assessment and the candidate's latest response and starts
// the autosave ticker.
func Open(ctx context.Context, b Backend, assessmentID, candidateID string, opts Options) (*Session, error) {
	a, err := b.Assessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errs.NotFound("assessment", assessmentID)
	}
	resp, err := b.Response(ctx, assessmentID, candidateID)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	s := &Session{
		backend:     b,
		assessment:  a.Clone(),
		candidateID: candidateID,
		logger:      logger.With(slog.String("assessment", assessmentID), slog.String("candidate", candidateID)),
		answers:     map[string]any{},
		pending:     map[string]any{},
	}
	if resp != nil {
		r := resp.Clone()
		s.saved = &r
		s.answers = models.MergeAnswers(nil, r.Responses)
		s.complete = r.IsComplete
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if opts.AutosaveInterval > 0 && !s.complete {
		s.wg.Add(1)
		go s.autosave(opts.AutosaveInterval)
	}
	return s, nil
}

func (s *Session) autosave(every time.Duration) {
	defer s.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			if err := s.Flush(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("autosave failed", slog.Any("err", err))
			}
		}
	}
}

// Close stops the autosave ticker and cancels a flush in progress. Unsaved
// answers stay unsaved; call Flush first to keep them.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

// UpdateResponse records the answer to a question. A nil value clears it.
// Once the response is submitted updates are ignored.
func (s *Session) UpdateResponse(questionID string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return
	}
	update := map[string]any{questionID: value}
	s.answers = models.MergeAnswers(s.answers, update)
	s.pending[questionID] = models.CloneValue(value)
}

// Dirty reports whether answers are waiting to be flushed.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// Answers returns a copy of the working answers.
func (s *Session) Answers() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.MergeAnswers(nil, s.answers)
}

// Saved returns the last response the backend accepted, nil before the
// first save.
func (s *Session) Saved() *models.AssessmentResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		return nil
	}
	r := s.saved.Clone()
	return &r
}

// Evaluate returns the visibility, requirement and validity of every question
// under the working answers.
func (s *Session) Evaluate() []logic.State {
	return logic.Evaluate(s.assessment, s.Answers())
}

func (s *Session) Progress() logic.Progress {
	return logic.ComputeProgress(s.assessment, s.Answers())
}

// take hands the pending answers to a writer; giveBack returns them after a
// failed write without overwriting answers given since.
func (s *Session) take() (map[string]any, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delta := s.pending
	s.pending = map[string]any{}
	return delta, logic.CompletedSections(s.assessment, s.answers)
}

func (s *Session) giveBack(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		if _, newer := s.pending[k]; !newer {
			s.pending[k] = v
		}
	}
}

// bound ties ctx to the session so Close cancels the write.
func (s *Session) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Flush writes pending answers. It is a no-op when nothing changed.
func (s *Session) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	if s.Completed() || !s.Dirty() {
		return nil
	}

	ctx, done := s.bound(ctx)
	defer done()

	delta, sections := s.take()
	resp, err := s.backend.SaveResponse(ctx, s.assessment.ID, s.candidateID, delta, sections, false)
	if err != nil {
		s.giveBack(delta)
		return err
	}
	s.mu.Lock()
	s.saved = resp
	s.mu.Unlock()
	s.logger.Debug("answers saved", slog.Int("answers", len(delta)))
	return nil
}

// Submit validates the working answers and saves the response as complete.
// Submitting twice is a Conflict.
func (s *Session) Submit(ctx context.Context) (*models.AssessmentResponse, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	if s.Completed() {
		return nil, errs.Conflict("response was already submitted")
	}
	if failed := logic.ValidateAssessment(s.assessment, s.Answers()); len(failed) > 0 {
		return nil, errs.Validation("response has invalid answers", logic.Fields(failed))
	}

	ctx, done := s.bound(ctx)
	defer done()

	delta, sections := s.take()
	resp, err := s.backend.SaveResponse(ctx, s.assessment.ID, s.candidateID, delta, sections, true)
	if err != nil {
		s.giveBack(delta)
		return nil, err
	}

	s.mu.Lock()
	s.saved = resp
	s.complete = true
	s.mu.Unlock()
	s.logger.Info("response submitted", slog.String("response", resp.ID))
	out := resp.Clone()
	return &out, nil
}
