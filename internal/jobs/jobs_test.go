package jobs_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/garnizeh/talentflow/internal/db/dbtest"
	"github.com/garnizeh/talentflow/internal/jobs"
	"github.com/garnizeh/talentflow/internal/repository/sqlite"
	"github.com/garnizeh/talentflow/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newPool(t *testing.T, handlers map[string]jobs.Handler) (*jobs.WorkerPool, *jobs.Repository) {
	t.Helper()
	d := dbtest.New(t)
	repo := jobs.NewRepository(d)
	pool := jobs.NewWorkerPool(repo, handlers, slog.Default(), 1)
	pool.PollInterval = 10 * time.Millisecond
	pool.Backoff = func(int) time.Duration { return 0 }
	return pool, repo
}

func TestEnqueueAndProcess(t *testing.T) {
	ctx := context.Background()
	handled := make(chan string, 1)
	pool, repo := newPool(t, map[string]jobs.Handler{
		"test": func(ctx context.Context, j *jobs.Job) error {
			handled <- string(j.Payload)
			return nil
		},
	})
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "test", map[string]string{"foo": "bar"}, 10, 3)
	require.NoError(t, err)

	select {
	case p := <-handled:
		assert.JSONEq(t, `{"foo":"bar"}`, p)
	case <-time.After(3 * time.Second):
		t.Fatalf("handler was not called")
	}

	require.Eventually(t, func() bool {
		j, err := repo.Get(ctx, id)
		return err == nil && j != nil && j.Status == jobs.StatusDone
	}, 3*time.Second, 10*time.Millisecond)
}

func TestRetryThenDeadLetter(t *testing.T) {
	ctx := context.Background()
	var calls int32
	pool, repo := newPool(t, map[string]jobs.Handler{
		"flaky": func(context.Context, *jobs.Job) error {
			atomic.AddInt32(&calls, 1)
			return errors.New("still broken")
		},
	})
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "flaky", nil, 1, 3)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		dl, err := repo.DeadLetters(ctx)
		return err == nil && len(dl) == 1
	}, 3*time.Second, 10*time.Millisecond)

	dl, err := repo.DeadLetters(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, dl[0].JobID)
	assert.Equal(t, 3, dl[0].Attempts)
	assert.Equal(t, "still broken", dl[0].LastError)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	j, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, j, "dead-lettered jobs leave the queue")
}

func TestPermanentFailureSkipsRetries(t *testing.T) {
	ctx := context.Background()
	var calls int32
	pool, repo := newPool(t, map[string]jobs.Handler{
		"bad": func(context.Context, *jobs.Job) error {
			atomic.AddInt32(&calls, 1)
			return jobs.ErrPermanent
		},
	})
	pool.Start(ctx)
	defer pool.Stop()

	_, err := pool.Enqueue(ctx, "bad", nil, 1, 5)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		dl, _ := repo.DeadLetters(ctx)
		return len(dl) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestUnknownTypeIsDeadLettered(t *testing.T) {
	ctx := context.Background()
	pool, repo := newPool(t, map[string]jobs.Handler{})
	pool.Start(ctx)
	defer pool.Stop()

	_, err := pool.Enqueue(ctx, "nobody.handles.this", map[string]int{"n": 1}, 1, 3)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		dl, _ := repo.DeadLetters(ctx)
		return len(dl) == 1 && dl[0].LastError == "no handler"
	}, 3*time.Second, 10*time.Millisecond)
}

func TestTimelineHandler(t *testing.T) {
	ctx := context.Background()
	d := dbtest.New(t)
	store := sqlite.New(d, nil)
	job, err := store.CreateJob(ctx, &models.Job{Title: "Go Engineer"})
	require.NoError(t, err)
	cand, err := store.CreateCandidate(ctx, &models.Candidate{Name: "Ana", Email: "ana@example.com", JobID: job.ID})
	require.NoError(t, err)

	repo := jobs.NewRepository(d)
	pool := jobs.NewWorkerPool(repo, jobs.Handlers(store), nil, 1)
	pool.PollInterval = 10 * time.Millisecond
	pool.Start(ctx)
	defer pool.Stop()

	_, err = pool.Enqueue(ctx, jobs.TypeTimelineAppend, jobs.TimelinePayload{
		CandidateID: cand.ID,
		Type:        models.EventStageChange,
		Description: "Moved from applied to screen",
		Metadata:    map[string]any{"from": "applied", "to": "screen"},
	}, 50, 3)
	require.NoError(t, err)
	_, err = pool.Enqueue(ctx, jobs.TypeTimelineAppend, jobs.TimelinePayload{CandidateID: "gone", Type: models.EventOther}, 50, 3)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		evs, err := store.ListEvents(ctx, cand.ID)
		return err == nil && len(evs) == 1
	}, 3*time.Second, 10*time.Millisecond)
	evs, err := store.ListEvents(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStageChange, evs[0].Type)
	assert.Equal(t, "screen", evs[0].Metadata["to"])

	require.Eventually(t, func() bool {
		dl, _ := repo.DeadLetters(ctx)
		return len(dl) == 1
	}, 3*time.Second, 10*time.Millisecond, "events for missing candidates are dropped without retries")
}

func TestBackoffDuration(t *testing.T) {
	assert.Equal(t, time.Second, jobs.BackoffDuration(0))
	assert.Equal(t, 2*time.Second, jobs.BackoffDuration(1))
	assert.Equal(t, 8*time.Second, jobs.BackoffDuration(3))
	assert.Equal(t, 5*time.Minute, jobs.BackoffDuration(9))
	assert.Equal(t, 5*time.Minute, jobs.BackoffDuration(64))
}

func TestStop_Idempotent(t *testing.T) {
	pool, _ := newPool(t, nil)
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	_, repo := newPool(t, nil)
	for range 2 {
		_, err := repo.Enqueue(ctx, &jobs.Job{Type: "x"})
		require.NoError(t, err)
	}
	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{jobs.StatusQueued: 2}, counts)
}
