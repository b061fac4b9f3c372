package sync

import (
	"log/slog"

	"gitmove.dev/gitmove/internal/conflict"
	"gitmove.dev/gitmove/internal/divergence"
	"gitmove.dev/gitmove/internal/strategy"
)

// State is a step of the sync state machine
type State string

// Sync states. UP_TO_DATE, CONFLICTS_DETECTED, SUCCESS and FAILED are terminal.
const (
	StateIdle                = State("IDLE")
	StateCheckingStatus      = State("CHECKING_STATUS")
	StateUpToDate            = State("UP_TO_DATE")
	StateStrategySelected    = State("STRATEGY_SELECTED")
	StatePreCheckingConflict = State("PRE_CHECKING_CONFLICTS")
	StateConflictsDetected   = State("CONFLICTS_DETECTED")
	StateReady               = State("READY")
	StateApplying            = State("APPLYING")
	StateSuccess             = State("SUCCESS")
	StateConflictDuringApply = State("CONFLICT_DURING_APPLY")
	StateRecovering          = State("RECOVERING")
	StateFailed              = State("FAILED")
)

// Status is the outcome reported to the caller
type Status string

const (
	// StatusUpToDate means nothing had to be done
	StatusUpToDate Status = "up-to-date"
	// StatusConflictDetected means the pre-check predicted conflicts and nothing was changed
	StatusConflictDetected Status = "conflict_detected"
	// StatusSynchronized means the integration was applied
	StatusSynchronized Status = "synchronized"
	// StatusConflictOccurred means the real integration stopped on conflicts and was rolled back
	StatusConflictOccurred Status = "conflict_occurred"
	// StatusFailed means the sync failed for another reason
	StatusFailed Status = "failed"
)

// Result describes one sync
type Result struct {
	Status     Status
	Branch     string
	Target     string
	Strategy   strategy.Strategy
	Decision   *strategy.Decision
	SyncStatus divergence.SyncStatus
	Conflicts  *conflict.Report
	// Commit is the branch tip after a successful sync.
	Commit string
	Detail string
	// Err is the error returned alongside the result, if any.
	Err    error
	States []State
}

// run records state transitions of one sync
type run struct {
	result *Result
	logger *slog.Logger
}

func newRun(branch, target string, logger *slog.Logger) *run {
	return &run{
		result: &Result{Branch: branch, Target: target, States: []State{StateIdle}},
		logger: logger,
	}
}

func (r *run) state() State {
	return r.result.States[len(r.result.States)-1]
}

func (r *run) to(next State) {
	r.logger.Debug("state transition",
		"branch", r.result.Branch, "target", r.result.Target,
		"from", string(r.state()), "to", string(next))
	r.result.States = append(r.result.States, next)
}

func (r *run) finish(status Status, detail string) *Result {
	r.result.Status = status
	r.result.Detail = detail
	return r.result
}

func (r *run) fail(err error) (*Result, error) {
	r.to(StateFailed)
	r.result.Status = StatusFailed
	r.result.Err = err
	r.result.Detail = err.Error()
	return r.result, err
}
