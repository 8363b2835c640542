package optimistic_test

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/optimistic"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// store is a tiny local state the mutations operate on.
type store struct {
	mu   sync.Mutex
	data map[string]string
}

func newStore() *store { return &store{data: map[string]string{"a": "1"}} }

func (s *store) snapshot(context.Context) (optimistic.Restore, error) {
	s.mu.Lock()
	saved := maps.Clone(s.data)
	s.mu.Unlock()
	return func(context.Context) error {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return nil
	}, nil
}

func (s *store) put(k, v string) {
	s.mu.Lock()
	s.data[k] = v
	s.mu.Unlock()
}

func (s *store) get() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.data)
}

type recorder struct {
	mu    sync.Mutex
	calls []error
}

func (r *recorder) Notify(_ string, err error) {
	r.mu.Lock()
	r.calls = append(r.calls, err)
	r.mu.Unlock()
}

func createMutation(s *store, commit func(ctx context.Context, v string) (string, error)) optimistic.Mutation[string] {
	return optimistic.Mutation[string]{
		Name:     "items.create",
		Entity:   "b",
		Snapshot: s.snapshot,
		Apply: func(context.Context) (string, error) {
			s.put("b", "tmp")
			return "tmp", nil
		},
		Commit: commit,
		Reconcile: func(_ context.Context, _, auth string) error {
			s.put("b", auth)
			return nil
		},
	}
}

func TestExecute_CommitReconciles(t *testing.T) {
	s := newStore()
	rec := &recorder{}
	c := optimistic.New(nil, rec)
	defer c.Close()

	refetched := false
	m := createMutation(s, func(_ context.Context, v string) (string, error) {
		assert.Equal(t, "tmp", v)
		assert.Equal(t, "tmp", s.get()["b"], "optimistic value is visible before commit")
		return "server", nil
	})
	m.Refetch = func(context.Context) error { refetched = true; return nil }

	got, err := optimistic.Execute(context.Background(), c, m)
	require.NoError(t, err)
	assert.Equal(t, "server", got)
	assert.Equal(t, map[string]string{"a": "1", "b": "server"}, s.get())
	assert.True(t, refetched)
	assert.Empty(t, rec.calls)
	assert.Empty(t, c.Inflight())
}

func TestExecute_CommitFailureRollsBack(t *testing.T) {
	s := newStore()
	rec := &recorder{}
	c := optimistic.New(nil, rec)
	defer c.Close()

	before := s.get()
	reconciled := false
	m := createMutation(s, func(context.Context, string) (string, error) {
		return "", errors.New("boom")
	})
	m.Reconcile = func(context.Context, string, string) error { reconciled = true; return nil }

	_, err := optimistic.Execute(context.Background(), c, m)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindServer), "unclassified failures normalize to server errors")
	assert.True(t, errs.IsRetryable(err))
	assert.Equal(t, before, s.get())
	assert.False(t, reconciled)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, err, rec.calls[0])
}

func TestExecute_KeepsClassifiedErrors(t *testing.T) {
	s := newStore()
	c := optimistic.New(nil, nil)
	defer c.Close()

	_, err := optimistic.Execute(context.Background(), c, createMutation(s, func(context.Context, string) (string, error) {
		return "", errs.Conflict("slug taken")
	}))
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Equal(t, map[string]string{"a": "1"}, s.get())
}

func TestExecute_ApplyFailureRestores(t *testing.T) {
	s := newStore()
	rec := &recorder{}
	c := optimistic.New(nil, rec)
	defer c.Close()

	committed := false
	m := createMutation(s, func(context.Context, string) (string, error) { committed = true; return "x", nil })
	m.Apply = func(context.Context) (string, error) {
		s.put("b", "half")
		return "", errs.Validation("bad input", map[string]string{"title": "required"})
	}

	_, err := optimistic.Execute(context.Background(), c, m)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.False(t, committed)
	assert.Equal(t, map[string]string{"a": "1"}, s.get())
	assert.Empty(t, rec.calls, "local failures are returned, not notified")
}

func TestExecute_SnapshotFailure(t *testing.T) {
	c := optimistic.New(nil, nil)
	defer c.Close()

	applied := false
	_, err := optimistic.Execute(context.Background(), c, optimistic.Mutation[int]{
		Name:     "x",
		Snapshot: func(context.Context) (optimistic.Restore, error) { return nil, errors.New("disk") },
		Apply:    func(context.Context) (int, error) { applied = true; return 0, nil },
		Commit:   func(context.Context, int) (int, error) { return 0, nil },
	})
	assert.ErrorContains(t, err, "snapshot")
	assert.False(t, applied)
}

func TestClose_CancelsInflightAndRollsBack(t *testing.T) {
	s := newStore()
	rec := &recorder{}
	c := optimistic.New(nil, rec)

	started := make(chan struct{})
	m := createMutation(s, func(ctx context.Context, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	done := make(chan error, 1)
	go func() {
		_, err := optimistic.Execute(context.Background(), c, m)
		done <- err
	}()

	<-started
	inflight := c.Inflight()
	require.Len(t, inflight, 1)
	assert.Equal(t, optimistic.Optimistic, inflight[0].Phase)
	assert.Equal(t, "items.create", inflight[0].Name)
	assert.Equal(t, "b", inflight[0].Entity)

	c.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("command did not stop after Close")
	}
	assert.Equal(t, map[string]string{"a": "1"}, s.get())
	assert.Empty(t, rec.calls, "cancellation is not reported")

	_, err := optimistic.Execute(context.Background(), c, m)
	assert.ErrorIs(t, err, optimistic.ErrClosed)
}

func TestExecute_CancelAfterCommitSkipsReconcile(t *testing.T) {
	s := newStore()
	c := optimistic.New(nil, nil)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	reconciled := false
	m := createMutation(s, func(context.Context, string) (string, error) {
		cancel()
		return "server", nil
	})
	m.Reconcile = func(context.Context, string, string) error { reconciled = true; return nil }

	got, err := optimistic.Execute(ctx, c, m)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "server", got)
	assert.False(t, reconciled)
}

func TestExecute_IndependentCommands(t *testing.T) {
	s := newStore()
	c := optimistic.New(nil, nil)
	defer c.Close()

	var wg sync.WaitGroup
	for _, k := range []string{"x", "y", "z"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := optimistic.Execute(context.Background(), c, optimistic.Mutation[string]{
				Name:     "items.set",
				Entity:   k,
				Snapshot: s.snapshot,
				Apply:    func(context.Context) (string, error) { s.put(k, "tmp"); return "tmp", nil },
				Commit:   func(context.Context, string) (string, error) { return k + "!", nil },
				Reconcile: func(_ context.Context, _, auth string) error {
					s.put(k, auth)
					return nil
				},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got := s.get()
	assert.Equal(t, "x!", got["x"])
	assert.Equal(t, "y!", got["y"])
	assert.Equal(t, "z!", got["z"])
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", optimistic.Idle.String())
	assert.Equal(t, "optimistic", optimistic.Optimistic.String())
	assert.Equal(t, "committed", optimistic.Committed.String())
	assert.Equal(t, "rolled_back", optimistic.RolledBack.String())
}
