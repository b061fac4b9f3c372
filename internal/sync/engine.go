// Package sync synchronizes a branch with its target: it measures divergence,
// picks a strategy, pre-checks conflicts and applies the integration under a
// recovery checkpoint.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gitmove.dev/gitmove/internal/config"
	"gitmove.dev/gitmove/internal/conflict"
	"gitmove.dev/gitmove/internal/divergence"
	"gitmove.dev/gitmove/internal/errors"
	"gitmove.dev/gitmove/internal/git"
	"gitmove.dev/gitmove/internal/recovery"
	"gitmove.dev/gitmove/internal/strategy"
)

// Engine is the entry point for status, advice, conflict checks and syncs
type Engine struct {
	backend  git.Backend
	settings config.Settings
	logger   *slog.Logger
	clock    func() time.Time
	retry    RetryPolicy
	reporter Reporter

	analyzer *divergence.Analyzer
	detector *conflict.Detector
	recovery *recovery.Manager
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the time source used for branch age
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRetryPolicy overrides the fetch retry policy derived from settings
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) {
		e.retry = p
	}
}

// NewEngine creates an Engine
func NewEngine(backend git.Backend, settings config.Settings, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		backend:  backend,
		settings: settings,
		logger:   logger,
		clock:    time.Now,
		retry:    RetryPolicyFrom(settings.Network),
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.analyzer = divergence.NewAnalyzer(backend, logger)
	e.detector = conflict.NewDetector(backend, e.analyzer, logger)
	e.recovery = recovery.NewManager(backend, logger,
		recovery.WithClock(e.clock),
		recovery.WithRestoreTimeout(settings.Network.CommandTimeout))
	return e
}

// Settings returns the effective settings
func (e *Engine) Settings() config.Settings {
	return e.settings
}

// Recovery exposes the checkpoint manager for other mutating callers
func (e *Engine) Recovery() *recovery.Manager {
	return e.recovery
}

func (e *Engine) targetOrDefault(target string) string {
	if target == "" {
		return e.settings.General.MainBranch
	}
	return target
}

// bounded runs fn under conflict_detection.timeout. A deadline that expires
// there, rather than one set by the caller, becomes a TransientGitError.
func (e *Engine) bounded(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	d := e.settings.ConflictDetection.Timeout
	if d <= 0 {
		return fn(ctx)
	}
	bctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(bctx)
	if err != nil && ctx.Err() == nil && bctx.Err() == context.DeadlineExceeded {
		return errors.NewTransientGitError(op, fmt.Errorf("timed out after %s: %w", d, err))
	}
	return err
}

// CheckSyncStatus compares branch with target, the main branch when empty
func (e *Engine) CheckSyncStatus(ctx context.Context, branch, target string) (divergence.SyncStatus, error) {
	target = e.targetOrDefault(target)
	var status divergence.SyncStatus
	err := e.bounded(ctx, "status "+branch, func(ctx context.Context) error {
		var err error
		status, err = e.analyzer.Status(ctx, branch, target)
		return err
	})
	return status, err
}

// Recommend advises a strategy for integrating target into branch
func (e *Engine) Recommend(ctx context.Context, branch, target string) (strategy.Decision, error) {
	target = e.targetOrDefault(target)
	var div divergence.Divergence
	err := e.bounded(ctx, "advise "+branch, func(ctx context.Context) error {
		local, remote, err := e.resolvePair(ctx, branch, target)
		if err != nil {
			return err
		}
		div, err = e.analyzer.Compute(ctx, local, remote)
		return err
	})
	if err != nil {
		return strategy.Decision{}, err
	}
	return strategy.Recommend(branch, target, div, e.settings.Advice, e.clock()), nil
}

// DetectConflicts simulates integrating target into branch with s. It never
// changes the repository.
func (e *Engine) DetectConflicts(ctx context.Context, branch, target string, s strategy.Strategy) (*conflict.Report, error) {
	target = e.targetOrDefault(target)
	var report *conflict.Report
	err := e.bounded(ctx, "simulate "+branch, func(ctx context.Context) error {
		local, remote, err := e.resolvePair(ctx, branch, target)
		if err != nil {
			return err
		}
		report, err = e.detector.Simulate(ctx, local, remote, s)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (e *Engine) resolvePair(ctx context.Context, branch, target string) (git.BranchRef, git.BranchRef, error) {
	local, err := e.backend.ResolveRef(ctx, branch)
	if err != nil {
		return git.BranchRef{}, git.BranchRef{}, err
	}
	remote, err := e.backend.ResolveRef(ctx, target)
	if err != nil {
		return git.BranchRef{}, git.BranchRef{}, err
	}
	return local, remote, nil
}

// validate checks that both names exist and that branch is a local branch
func (e *Engine) validate(ctx context.Context, branch, target string) error {
	for _, name := range []string{branch, target} {
		ok, err := e.backend.BranchExists(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewRefNotFoundError(name, nil)
		}
	}
	ref, err := e.backend.ResolveRef(ctx, branch)
	if err != nil {
		return err
	}
	if ref.Remote {
		return fmt.Errorf("cannot sync %s: it is a remote-tracking branch", branch)
	}
	return nil
}

// plan is the analysed, not yet applied part of a sync
type plan struct {
	local    git.BranchRef
	target   git.BranchRef
	div      divergence.Divergence
	strategy strategy.Strategy
}

// Sync integrates target (the main branch when empty) into branch. forced
// bypasses the advisor but not the conflict pre-check.
//
// Predicted conflicts and up-to-date branches are results, not errors. An
// apply-time conflict is returned both in the result and as a
// MergeConflictError or RebaseConflictError after the repository has been
// restored; other apply failures are returned as a SyncError.
func (e *Engine) Sync(ctx context.Context, branch, target string, forced *strategy.Strategy) (*Result, error) {
	target = e.targetOrDefault(target)
	r := newRun(branch, target, e.logger)
	r.to(StateCheckingStatus)

	if err := e.validate(ctx, branch, target); err != nil {
		return r.fail(err)
	}
	if err := e.refreshTarget(ctx, target); err != nil {
		return r.fail(err)
	}

	p, err := e.analyze(ctx, r, forced)
	if err != nil {
		return r.fail(err)
	}
	if p == nil {
		return r.result, nil
	}
	return e.apply(ctx, r, p)
}

// refreshTarget fetches the remote the target comes from, if any
func (e *Engine) refreshTarget(ctx context.Context, target string) error {
	if !e.settings.Network.FetchEnabled {
		return nil
	}
	ref, err := e.backend.ResolveRef(ctx, target)
	if err != nil {
		return err
	}
	remote, err := e.backend.RemoteFor(ctx, ref)
	if err != nil {
		return err
	}
	if remote == "" {
		return nil
	}
	return e.fetchRemotes(ctx, []string{remote})
}

// analyze runs the read-only steps under conflict_detection.timeout. It
// returns a nil plan when the run ended in a terminal state without needing
// to apply anything.
func (e *Engine) analyze(ctx context.Context, r *run, forced *strategy.Strategy) (*plan, error) {
	var p *plan
	err := e.bounded(ctx, "analyze "+r.result.Branch, func(ctx context.Context) error {
		var err error
		p, err = e.prepare(ctx, r, forced)
		return err
	})
	return p, err
}

func (e *Engine) prepare(ctx context.Context, r *run, forced *strategy.Strategy) (*plan, error) {
	branch, target := r.result.Branch, r.result.Target
	local, remote, err := e.resolvePair(ctx, branch, target)
	if err != nil {
		return nil, err
	}

	var div divergence.Divergence
	if branch != target {
		if div, err = e.analyzer.Compute(ctx, local, remote); err != nil {
			return nil, err
		}
	}
	r.result.SyncStatus = divergence.StatusOf(branch, target, div)
	if r.result.SyncStatus.IsSynced {
		r.to(StateUpToDate)
		r.finish(StatusUpToDate, r.result.SyncStatus.Summary)
		return nil, nil
	}

	var decision strategy.Decision
	if forced != nil {
		decision = strategy.Forced(*forced)
	} else {
		decision = strategy.Recommend(branch, target, div, e.settings.Advice, e.clock())
	}
	r.result.Decision = &decision
	r.result.Strategy = decision.Strategy
	r.to(StateStrategySelected)

	r.to(StatePreCheckingConflict)
	report, err := e.detector.SimulateFrom(ctx, local, remote, decision.Strategy, div)
	if err != nil {
		return nil, err
	}
	r.result.Conflicts = report
	if report.HasConflicts() {
		if e.settings.ConflictDetection.PreCheckEnabled {
			r.to(StateConflictsDetected)
			r.finish(StatusConflictDetected, fmt.Sprintf("%s %s into %s would conflict on %d path(s); nothing was changed",
				decision.Strategy.Verb(), target, branch, len(report.ConflictingPaths())))
			return nil, nil
		}
		e.logger.Debug("ignoring predicted conflicts, pre-check disabled", "branch", branch)
	}

	r.to(StateReady)
	return &plan{local: local, target: remote, div: div, strategy: decision.Strategy}, nil
}

// apply performs the integration under the repository lock and a checkpoint
func (e *Engine) apply(ctx context.Context, r *run, p *plan) (*Result, error) {
	r.to(StateApplying)
	branch, target := r.result.Branch, r.result.Target

	lock, err := e.backend.Lock(ctx, e.settings.Network.LockTimeout)
	if err != nil {
		return r.fail(fmt.Errorf("failed to lock repository: %w", err))
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			e.logger.Warn(fmt.Sprintf("warning: failed to release repository lock: %v", uerr))
		}
	}()

	// The outer checkpoint holds the caller's position and stashed work, the
	// inner one the synced branch's tip. A failure unwinds both.
	var commit string
	err = e.recovery.SafeOperation(ctx, "sync/"+branch, func(ctx context.Context, outer *recovery.Checkpoint) error {
		if err := e.backend.Checkout(ctx, branch); err != nil {
			return err
		}
		return e.recovery.SafeOperation(ctx, "apply/"+branch, func(ctx context.Context, _ *recovery.Checkpoint) error {
			var err error
			switch p.strategy {
			case strategy.Rebase:
				commit, err = e.backend.Rebase(ctx, branch, p.target.Name)
			default:
				opts := git.MergeOptions{NoFastForward: true}
				if p.div.Ahead == 0 {
					opts = git.MergeOptions{FastForwardOnly: true}
				}
				commit, err = e.backend.Merge(ctx, branch, p.target.Name, opts)
			}
			if err != nil {
				return err
			}

			back := outer.Branch
			if back == "" {
				back = outer.Head
			}
			if back != branch {
				if err := e.backend.Checkout(ctx, back); err != nil {
					return err
				}
			}
			return outer.ReleaseStash(ctx)
		})
	})

	switch {
	case err == nil:
		r.to(StateSuccess)
		r.result.Commit = commit
		r.finish(StatusSynchronized, describeApplied(p.strategy, branch, target, commit))
		return r.result, nil

	case errors.Is(err, errors.ErrMergeConflict) || errors.Is(err, errors.ErrRebaseConflict):
		r.to(StateConflictDuringApply)
		r.to(StateRecovering)
		if errors.Is(err, errors.ErrRecoveryFailed) {
			return r.fail(errors.NewSyncError(branch, target, p.strategy.String(), false, err))
		}
		r.to(StateFailed)
		r.result.Err = err
		r.finish(StatusConflictOccurred, fmt.Sprintf("%v (repository restored to its previous state)", err))
		return r.result, err

	default:
		r.to(StateRecovering)
		restored := !errors.Is(err, errors.ErrRecoveryFailed)
		return r.fail(errors.NewSyncError(branch, target, p.strategy.String(), restored, err))
	}
}

func describeApplied(s strategy.Strategy, branch, target, commit string) string {
	if s == strategy.Rebase {
		return fmt.Sprintf("rebased %s onto %s, now at %s", branch, target, shortID(commit))
	}
	return fmt.Sprintf("merged %s into %s, now at %s", target, branch, shortID(commit))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
