// Package recovery wraps repository mutations in checkpoints that put the
// branch, head commit and uncommitted work back when the mutation fails.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"gitmove.dev/gitmove/internal/errors"
	"gitmove.dev/gitmove/internal/git"
)

// DefaultRestoreTimeout bounds a restore, which runs even after the caller's
// context is cancelled.
const DefaultRestoreTimeout = 2 * time.Minute

// Checkpoint is the recorded repository position of one protected operation
type Checkpoint struct {
	ID        string
	Operation string
	// Branch is empty when HEAD was detached.
	Branch       string
	Head         string
	StashCreated bool
	StashID      string
	CreatedAt    time.Time

	mgr      *Manager
	mu       gosync.Mutex
	restored bool
	released bool
}

// OwnsStash reports whether the checkpoint still has to pop its stash
func (cp *Checkpoint) OwnsStash() bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.StashCreated && !cp.released
}

// ReleaseStash pops the checkpoint's stash now and gives up ownership, so a
// later restore will not pop it again. It is a no-op without a stash.
func (cp *Checkpoint) ReleaseStash(ctx context.Context) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if !cp.StashCreated || cp.released {
		return nil
	}
	if err := cp.mgr.backend.StashPop(ctx, cp.StashID); err != nil {
		return fmt.Errorf("failed to restore stashed changes: %w", err)
	}
	cp.released = true
	return nil
}

// Restore puts the repository back at the checkpoint. Calling it again after a
// successful restore does nothing.
func (cp *Checkpoint) Restore(ctx context.Context) error {
	return cp.restore(ctx, nil)
}

func (cp *Checkpoint) restore(parent context.Context, original error) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.restored {
		return nil
	}

	m := cp.mgr
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), m.restoreTimeout)
	defer cancel()

	m.logger.Debug("restoring checkpoint", "operation", cp.Operation, "branch", cp.Branch, "head", cp.Head)

	fail := func(cause error) error {
		stash := ""
		if cp.StashCreated && !cp.released {
			stash = cp.StashID
		}
		return errors.NewRecoveryFailedError(cp.Operation, cp.Branch, cp.Head, stash, cause, original)
	}

	// nothing may be in progress when we move HEAD; errors mean there was none
	_ = m.backend.AbortMerge(ctx)
	_ = m.backend.AbortRebase(ctx)

	ref := cp.Branch
	if ref == "" {
		ref = cp.Head
	}
	if err := m.backend.Checkout(ctx, ref); err != nil {
		// changes left behind by the failed block stop the checkout
		head, herr := m.backend.Head(ctx)
		if herr != nil {
			return fail(fmt.Errorf("failed to checkout %s: %w", ref, err))
		}
		if rerr := m.backend.ResetHard(ctx, head); rerr != nil {
			return fail(fmt.Errorf("failed to clean work tree: %w", rerr))
		}
		if err := m.backend.Checkout(ctx, ref); err != nil {
			return fail(fmt.Errorf("failed to checkout %s: %w", ref, err))
		}
	}
	if err := m.backend.ResetHard(ctx, cp.Head); err != nil {
		return fail(fmt.Errorf("failed to reset to %s: %w", cp.Head, err))
	}

	if cp.StashCreated && !cp.released {
		exists, err := m.backend.StashExists(ctx, cp.StashID)
		if err != nil {
			return fail(fmt.Errorf("failed to look up stash: %w", err))
		}
		if exists {
			if err := m.backend.StashPop(ctx, cp.StashID); err != nil {
				return fail(fmt.Errorf("failed to restore stashed changes: %w", err))
			}
		}
		cp.released = true
	}

	cp.restored = true
	m.logger.Info("restored repository", "operation", cp.Operation, "branch", cp.Branch, "head", cp.Head)
	return nil
}

// Manager hands out checkpoints, at most one live per operation name
type Manager struct {
	backend        git.Backend
	logger         *slog.Logger
	clock          func() time.Time
	restoreTimeout time.Duration

	mu   gosync.Mutex
	live map[string]*Checkpoint
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the time source for CreatedAt
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithRestoreTimeout bounds each restore
func WithRestoreTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.restoreTimeout = d
		}
	}
}

// NewManager creates a Manager
func NewManager(backend git.Backend, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		backend:        backend,
		logger:         logger,
		clock:          time.Now,
		restoreTimeout: DefaultRestoreTimeout,
		live:           map[string]*Checkpoint{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Active reports whether a checkpoint named name is live
func (m *Manager) Active(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[name]
	return ok
}

// SafeOperation runs fn under a checkpoint named name.
//
// On entry the current branch and head are recorded and a dirty work tree is
// stashed. When fn succeeds the checkpoint is dropped without popping the
// stash; fn owns it and may pop it with ReleaseStash. When fn fails, panics
// or its context is cancelled, the repository is restored before the error
// is returned or the panic re-raised. A failed restore returns a
// RecoveryFailedError wrapping both errors.
func (m *Manager) SafeOperation(ctx context.Context, name string, fn func(ctx context.Context, cp *Checkpoint) error) (err error) {
	cp, err := m.open(ctx, name)
	if err != nil {
		return err
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if rerr := cp.restore(ctx, fmt.Errorf("panic: %v", r)); rerr != nil {
			m.logger.Error("restore after panic failed", "operation", name, "error", rerr)
		}
		m.close(cp)
		panic(r)
	}()

	ferr := fn(ctx, cp)
	if ferr == nil && ctx.Err() != nil {
		ferr = ctx.Err()
	}
	if ferr == nil {
		m.close(cp)
		m.logger.Debug("discarded checkpoint", "operation", name, "id", cp.ID)
		return nil
	}

	m.logger.Debug("protected operation failed", "operation", name, "error", ferr)
	rerr := cp.restore(ctx, ferr)
	m.close(cp)
	if rerr != nil {
		return rerr
	}
	return ferr
}

func (m *Manager) open(ctx context.Context, name string) (*Checkpoint, error) {
	m.mu.Lock()
	if _, ok := m.live[name]; ok {
		m.mu.Unlock()
		return nil, errors.NewCheckpointConflictError(name)
	}
	// reserve the name while the repository is inspected
	m.live[name] = nil
	m.mu.Unlock()

	cp, err := m.record(ctx, name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		delete(m.live, name)
		return nil, err
	}
	m.live[name] = cp
	return cp, nil
}

func (m *Manager) record(ctx context.Context, name string) (*Checkpoint, error) {
	cp := &Checkpoint{
		ID:        uuid.NewString(),
		Operation: name,
		CreatedAt: m.clock(),
		mgr:       m,
	}

	branch, err := m.backend.CurrentBranch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to record current branch: %w", err)
	}
	head, err := m.backend.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to record head: %w", err)
	}
	cp.Branch, cp.Head = branch, head

	dirty, err := m.backend.IsDirty(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check work tree: %w", err)
	}
	if dirty {
		id, err := m.backend.StashPush(ctx, fmt.Sprintf("gitmove checkpoint %s %s", name, cp.ID))
		if err != nil {
			return nil, fmt.Errorf("failed to stash local changes: %w", err)
		}
		cp.StashCreated = id != ""
		cp.StashID = id
	}

	m.logger.Debug("opened checkpoint",
		"operation", name, "id", cp.ID, "branch", branch, "head", head, "stash", cp.StashID)
	return cp, nil
}

func (m *Manager) close(cp *Checkpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live[cp.Operation] == cp {
		delete(m.live, cp.Operation)
	}
}
