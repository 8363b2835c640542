package session_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/garnizeh/talentflow/api/apitest"
	"github.com/garnizeh/talentflow/internal/config"
	"github.com/garnizeh/talentflow/internal/db/dbtest"
	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/logic"
	"github.com/garnizeh/talentflow/internal/optimistic"
	"github.com/garnizeh/talentflow/internal/remote"
	"github.com/garnizeh/talentflow/internal/repository/sqlite"
	"github.com/garnizeh/talentflow/internal/session"
	"github.com/garnizeh/talentflow/internal/workspace"
	"github.com/garnizeh/talentflow/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// flaky fails SaveResponse while down is set.
type flaky struct {
	workspace.Remote
	down  atomic.Bool
	saves atomic.Int32
}

func (f *flaky) SaveResponse(ctx context.Context, r models.AssessmentResponse) (*models.AssessmentResponse, error) {
	f.saves.Add(1)
	if f.down.Load() {
		return nil, errs.New(errs.KindNetwork, "simulated failure")
	}
	return f.Remote.SaveResponse(ctx, r)
}

type fixture struct {
	ws         *workspace.Workspace
	client     *remote.Client
	remote     *flaky
	assessment string
	candidate  string
}

func ptr[T any](v T) *T { return &v }

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	srv := apitest.New(t, config.NetworkConfig{}, nil)
	client, err := remote.New(srv.RemoteConfig(), srv.Client())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	fl := &flaky{Remote: client}
	ws := workspace.New(sqlite.New(dbtest.New(t), nil), fl, optimistic.New(nil, nil), nil)
	t.Cleanup(func() { _ = ws.Close() })

	j, err := ws.CreateJob(ctx, models.Job{Title: "Go Engineer"})
	require.NoError(t, err)
	c, err := ws.CreateCandidate(ctx, models.Candidate{Name: "Eva", Email: "eva@example.com", JobID: j.ID})
	require.NoError(t, err)
	a, err := ws.SaveAssessment(ctx, models.Assessment{JobID: j.ID, Title: "Screen", Sections: []models.AssessmentSection{{
		ID: "s1",
		Questions: []models.Question{
			{ID: "name", Type: models.ShortText, Required: true, Validation: models.TextRules{MinLength: ptr(2)}},
			{ID: "years", Type: models.Numeric, Order: 1, Validation: models.NumericRules{Min: ptr(0.0)}},
			{ID: "extra", Type: models.LongText, Order: 2},
		},
	}}})
	require.NoError(t, err)
	return fixture{ws: ws, client: client, remote: fl, assessment: a.ID, candidate: c.ID}
}

func (f fixture) remoteAnswers(t *testing.T) map[string]any {
	t.Helper()
	r, err := f.client.FindResponse(context.Background(), f.assessment, f.candidate)
	require.NoError(t, err)
	if r == nil {
		return nil
	}
	return r.Responses
}

func TestUpdates_PersistAndSubmitSeals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, err := session.Open(ctx, f.ws, f.assessment, f.candidate, session.Options{})
	require.NoError(t, err)
	defer s.Close()

	s.UpdateResponse("name", "Eva")
	require.NoError(t, s.Flush(ctx))
	s.UpdateResponse("years", 4)
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, map[string]any{"name": "Eva", "years": float64(4)}, f.remoteAnswers(t))

	// nothing dirty, nothing sent
	saves := f.remote.saves.Load()
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, saves, f.remote.saves.Load())

	resp, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, resp.IsComplete)
	assert.NotNil(t, resp.SubmittedAt)

	s.UpdateResponse("extra", "late")
	assert.False(t, s.Dirty())
	assert.NotContains(t, s.Answers(), "extra")
	require.NoError(t, s.Flush(ctx))
	assert.NotContains(t, f.remoteAnswers(t), "extra")

	_, err = s.Submit(ctx)
	assert.True(t, errs.IsKind(err, errs.KindConflict), "got %v", err)
}

func TestSubmit_ValidatesAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, err := session.Open(ctx, f.ws, f.assessment, f.candidate, session.Options{})
	require.NoError(t, err)
	defer s.Close()

	s.UpdateResponse("years", -1)
	_, err = s.Submit(ctx)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "name")
	assert.Contains(t, e.Fields, "years")
	assert.False(t, s.Completed())
	assert.True(t, s.Dirty())

	assert.Equal(t, logic.Progress{Answered: 1, Total: 3}, s.Progress())
}

func TestAutosave_FlushesDirtyAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, err := session.Open(ctx, f.ws, f.assessment, f.candidate, session.Options{AutosaveInterval: 20 * time.Millisecond})
	require.NoError(t, err)
	defer s.Close()

	s.UpdateResponse("name", "Eva")
	require.Eventually(t, func() bool { return !s.Dirty() }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, map[string]any{"name": "Eva"}, f.remoteAnswers(t))
	require.NotNil(t, s.Saved())
}

func TestFlush_FailureKeepsAnswersPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, err := session.Open(ctx, f.ws, f.assessment, f.candidate, session.Options{})
	require.NoError(t, err)
	defer s.Close()

	f.remote.down.Store(true)
	s.UpdateResponse("name", "Eva")
	err = s.Flush(ctx)
	assert.True(t, errs.IsRetryable(err), "got %v", err)
	assert.True(t, s.Dirty())
	assert.Nil(t, f.remoteAnswers(t))

	s.UpdateResponse("years", 3)
	f.remote.down.Store(false)
	require.NoError(t, s.Flush(ctx))
	assert.False(t, s.Dirty())
	assert.Equal(t, map[string]any{"name": "Eva", "years": float64(3)}, f.remoteAnswers(t))
}

func TestOpen_ResumesSubmittedResponse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first, err := session.Open(ctx, f.ws, f.assessment, f.candidate, session.Options{})
	require.NoError(t, err)
	first.UpdateResponse("name", "Eva")
	_, err = first.Submit(ctx)
	require.NoError(t, err)
	first.Close()

	again, err := session.Open(ctx, f.ws, f.assessment, f.candidate, session.Options{AutosaveInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	defer again.Close()
	assert.True(t, again.Completed())
	assert.Equal(t, map[string]any{"name": "Eva"}, again.Answers())
	again.UpdateResponse("name", "Other")
	assert.Equal(t, "Eva", again.Answers()["name"])

	_, err = session.Open(ctx, f.ws, "missing", f.candidate, session.Options{})
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	f := newFixture(t)
	s, err := session.Open(context.Background(), f.ws, f.assessment, f.candidate, session.Options{AutosaveInterval: time.Millisecond})
	require.NoError(t, err)
	s.Close()
	s.Close()
}
