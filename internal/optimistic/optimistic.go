// Package optimistic runs mutating commands in four phases: snapshot the
// local state, apply an optimistic value, commit remotely, then reconcile
// with the authoritative value or roll back to the snapshot.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/garnizeh/talentflow/internal/errs"
)

// Phase is the state of one in-flight command.
type Phase uint8

const (
	Idle Phase = iota
	Optimistic
	Committed
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Optimistic:
		return "optimistic"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	}
	return "idle"
}

// ErrClosed is returned by Execute once the coordinator is closed.
var ErrClosed = errors.New("optimistic: coordinator closed")

// Restore puts the local state back to what a Snapshot captured.
type Restore func(ctx context.Context) error

// Mutation describes one command. Snapshot, Apply and Commit are required;
// Reconcile and Refetch are optional.
type Mutation[T any] struct {
	// Name identifies the command in logs and in Inflight, e.g. "jobs.create".
	Name string
	// Entity is the id (or key) of the entity the command touches.
	Entity string

	Snapshot  func(ctx context.Context) (Restore, error)
	Apply     func(ctx context.Context) (T, error)
	Commit    func(ctx context.Context, optimistic T) (T, error)
	Reconcile func(ctx context.Context, optimistic, authoritative T) error
	Refetch   func(ctx context.Context) error
}

// Notifier receives every remote failure exactly once, after rollback.
type Notifier interface {
	Notify(command string, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(command string, err error)

func (f NotifierFunc) Notify(command string, err error) { f(command, err) }

// Command is a snapshot of an in-flight command.
type Command struct {
	ID      uint64
	Name    string
	Entity  string
	Phase   Phase
	Started time.Time
}

type Coordinator struct {
	logger   *slog.Logger
	notifier Notifier

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	next     uint64
	inflight map[uint64]*Command
	closed   bool
}

// New creates a coordinator. A nil logger discards logs and a nil notifier
// drops notifications.
func New(logger *slog.Logger, notifier Notifier) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		logger:   logger,
		notifier: notifier,
		ctx:      ctx,
		cancel:   cancel,
		inflight: map[uint64]*Command{},
	}
}

// Close cancels every in-flight command. Commands still committing roll
// back; commands that already committed skip reconciliation. Close is
// idempotent.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

// Inflight lists the commands currently running, oldest first.
func (c *Coordinator) Inflight() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Command, 0, len(c.inflight))
	for _, cmd := range c.inflight {
		out = append(out, *cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Coordinator) begin(name, entity string) (*Command, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	c.next++
	cmd := &Command{ID: c.next, Name: name, Entity: entity, Phase: Idle, Started: time.Now()}
	c.inflight[cmd.ID] = cmd
	return cmd, nil
}

func (c *Coordinator) set(cmd *Command, p Phase) {
	c.mu.Lock()
	cmd.Phase = p
	c.mu.Unlock()
}

func (c *Coordinator) end(cmd *Command) {
	c.mu.Lock()
	delete(c.inflight, cmd.ID)
	c.mu.Unlock()
}

func (c *Coordinator) notify(name string, err error) {
	if c.notifier == nil || errors.Is(err, context.Canceled) {
		return
	}
	c.notifier.Notify(name, err)
}

// Execute runs m through the coordinator. On success it returns the
// authoritative value. When Commit fails the local state is restored, the
// error is normalized, handed to the Notifier and returned.
func Execute[T any](ctx context.Context, c *Coordinator, m Mutation[T]) (T, error) {
	var zero T
	cmd, err := c.begin(m.Name, m.Entity)
	if err != nil {
		return zero, err
	}
	defer c.end(cmd)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	log := c.logger.With(slog.String("command", m.Name), slog.String("entity", m.Entity), slog.Uint64("id", cmd.ID))

	restore, err := m.Snapshot(ctx)
	if err != nil {
		return zero, fmt.Errorf("%s: snapshot: %w", m.Name, err)
	}

	optimistic, err := m.Apply(ctx)
	if err != nil {
		if rerr := rollback(ctx, restore); rerr != nil {
			log.Error("rollback after apply failure", slog.Any("err", rerr))
		}
		c.set(cmd, RolledBack)
		return zero, fmt.Errorf("%s: apply: %w", m.Name, err)
	}
	c.set(cmd, Optimistic)

	authoritative, err := m.Commit(ctx, optimistic)
	if err != nil {
		err = errs.Normalize(err)
		if rerr := rollback(ctx, restore); rerr != nil {
			log.Error("rollback failed", slog.Any("err", rerr), slog.Any("cause", err))
			err = errors.Join(err, rerr)
		}
		c.set(cmd, RolledBack)
		log.Warn("rolled back", slog.Any("err", err))
		c.notify(m.Name, err)
		return zero, err
	}
	c.set(cmd, Committed)

	// The caller (or Close) left after the remote accepted the change; local
	// state is no longer ours to touch.
	if ctx.Err() != nil {
		log.Info("committed, reconciliation skipped")
		return authoritative, ctx.Err()
	}

	if m.Reconcile != nil {
		if err := m.Reconcile(ctx, optimistic, authoritative); err != nil {
			return authoritative, fmt.Errorf("%s: reconcile: %w", m.Name, err)
		}
	}
	if m.Refetch != nil {
		if err := m.Refetch(ctx); err != nil {
			log.Warn("refetch failed", slog.Any("err", err))
			return authoritative, fmt.Errorf("%s: refetch: %w", m.Name, errs.Normalize(err))
		}
	}
	log.Debug("committed")
	return authoritative, nil
}

// rollback restores with a context that outlives cancellation of the
// command.
func rollback(ctx context.Context, restore Restore) error {
	if restore == nil {
		return nil
	}
	return restore(context.WithoutCancel(ctx))
}
