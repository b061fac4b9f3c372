// Package errors provides sentinel errors and custom error types for gitmove.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrRefNotFound indicates that a branch or revision does not resolve
	ErrRefNotFound = errors.New("reference not found")

	// ErrNoCommonAncestor indicates that two histories share no commit
	ErrNoCommonAncestor = errors.New("no common ancestor")

	// ErrDivergence indicates that the commit graph could not be walked
	ErrDivergence = errors.New("divergence computation failed")

	// ErrConflictDetected indicates that a simulated integration would conflict
	ErrConflictDetected = errors.New("conflicts detected")

	// ErrMergeConflict indicates that a merge stopped on conflicts
	ErrMergeConflict = errors.New("merge conflict")

	// ErrRebaseConflict indicates that a rebase operation encountered a conflict
	ErrRebaseConflict = errors.New("rebase conflict")

	// ErrCheckpointConflict indicates that a checkpoint with the same name is already live
	ErrCheckpointConflict = errors.New("checkpoint already active")

	// ErrRecoveryFailed indicates that the repository could not be restored
	ErrRecoveryFailed = errors.New("recovery failed")

	// ErrTransient indicates a failure that may succeed when retried
	ErrTransient = errors.New("transient git failure")

	// ErrSyncFailed indicates that a synchronization did not complete
	ErrSyncFailed = errors.New("sync failed")

	// ErrNotOnBranch indicates that HEAD is not on a branch
	ErrNotOnBranch = errors.New("not on a branch")
)

// RefNotFoundError represents an error when a ref does not resolve
type RefNotFoundError struct {
	Ref string
	Err error
}

func (e *RefNotFoundError) Error() string {
	return fmt.Sprintf("reference %s does not exist", e.Ref)
}

// Is returns true if the target error is ErrRefNotFound
func (e *RefNotFoundError) Is(target error) bool {
	return target == ErrRefNotFound
}

func (e *RefNotFoundError) Unwrap() error {
	return e.Err
}

// NewRefNotFoundError creates a new RefNotFoundError
func NewRefNotFoundError(ref string, err error) *RefNotFoundError {
	return &RefNotFoundError{Ref: ref, Err: err}
}

// NoCommonAncestorError is returned when two branches have disjoint histories
type NoCommonAncestorError struct {
	Branch string
	Target string
}

func (e *NoCommonAncestorError) Error() string {
	return fmt.Sprintf("%s and %s have no common ancestor", e.Branch, e.Target)
}

// Is returns true if the target error is ErrNoCommonAncestor
func (e *NoCommonAncestorError) Is(target error) bool {
	return target == ErrNoCommonAncestor
}

// NewNoCommonAncestorError creates a new NoCommonAncestorError
func NewNoCommonAncestorError(branch, target string) *NoCommonAncestorError {
	return &NoCommonAncestorError{Branch: branch, Target: target}
}

// DivergenceComputationError wraps a backend failure that happened mid-walk
type DivergenceComputationError struct {
	Branch string
	Target string
	Commit string
	Err    error
}

func (e *DivergenceComputationError) Error() string {
	msg := fmt.Sprintf("failed to compute divergence between %s and %s", e.Branch, e.Target)
	if e.Commit != "" {
		msg += fmt.Sprintf(" at commit %s", e.Commit)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is returns true if the target error is ErrDivergence
func (e *DivergenceComputationError) Is(target error) bool {
	return target == ErrDivergence
}

func (e *DivergenceComputationError) Unwrap() error {
	return e.Err
}

// NewDivergenceComputationError creates a new DivergenceComputationError
func NewDivergenceComputationError(branch, target, commit string, err error) *DivergenceComputationError {
	return &DivergenceComputationError{Branch: branch, Target: target, Commit: commit, Err: err}
}

// ConflictSummary is implemented by conflict reports so errors can carry them
// without importing the detector.
type ConflictSummary interface {
	ConflictingPaths() []string
}

// ConflictDetectedError carries a report whose verdict is would-conflict.
// Sync reports pre-check conflicts as a result; this error is for callers that
// want to treat them as failures.
type ConflictDetectedError struct {
	Branch string
	Target string
	Report ConflictSummary
}

func (e *ConflictDetectedError) Error() string {
	msg := fmt.Sprintf("integrating %s into %s would conflict", e.Target, e.Branch)
	if e.Report != nil {
		if paths := e.Report.ConflictingPaths(); len(paths) > 0 {
			msg += ": " + strings.Join(paths, ", ")
		}
	}
	return msg
}

// Is returns true if the target error is ErrConflictDetected
func (e *ConflictDetectedError) Is(target error) bool {
	return target == ErrConflictDetected
}

// NewConflictDetectedError creates a new ConflictDetectedError
func NewConflictDetectedError(branch, target string, report ConflictSummary) *ConflictDetectedError {
	return &ConflictDetectedError{Branch: branch, Target: target, Report: report}
}

// MergeConflictError represents a merge that stopped on conflicting paths
type MergeConflictError struct {
	BranchName string
	Target     string
	Paths      []string
}

func (e *MergeConflictError) Error() string {
	msg := fmt.Sprintf("merge conflict on branch %s while merging %s", e.BranchName, e.Target)
	if len(e.Paths) > 0 {
		msg += ": " + strings.Join(e.Paths, ", ")
	}
	return msg
}

// Is returns true if the target error is ErrMergeConflict
func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// NewMergeConflictError creates a new MergeConflictError
func NewMergeConflictError(branchName, target string, paths []string) *MergeConflictError {
	return &MergeConflictError{BranchName: branchName, Target: target, Paths: paths}
}

// RebaseConflictError represents an error when a rebase encounters a conflict
type RebaseConflictError struct {
	BranchName string
	Onto       string
	Commit     string
	Paths      []string
}

func (e *RebaseConflictError) Error() string {
	msg := fmt.Sprintf("rebase conflict on branch %s onto %s", e.BranchName, e.Onto)
	if e.Commit != "" {
		msg += fmt.Sprintf(" while applying %s", shortID(e.Commit))
	}
	if len(e.Paths) > 0 {
		msg += ": " + strings.Join(e.Paths, ", ")
	}
	return msg
}

// Is returns true if the target error is ErrRebaseConflict
func (e *RebaseConflictError) Is(target error) bool {
	return target == ErrRebaseConflict
}

// NewRebaseConflictError creates a new RebaseConflictError
func NewRebaseConflictError(branchName, onto, commit string, paths []string) *RebaseConflictError {
	return &RebaseConflictError{
		BranchName: branchName,
		Onto:       onto,
		Commit:     commit,
		Paths:      paths,
	}
}

// CheckpointConflictError is returned when a checkpoint name is already live
type CheckpointConflictError struct {
	Operation string
}

func (e *CheckpointConflictError) Error() string {
	return fmt.Sprintf("a checkpoint for operation %q is already active", e.Operation)
}

// Is returns true if the target error is ErrCheckpointConflict
func (e *CheckpointConflictError) Is(target error) bool {
	return target == ErrCheckpointConflict
}

// NewCheckpointConflictError creates a new CheckpointConflictError
func NewCheckpointConflictError(operation string) *CheckpointConflictError {
	return &CheckpointConflictError{Operation: operation}
}

// RecoveryFailedError reports a restore that could not complete. The message
// lists the commands that put the repository back by hand.
type RecoveryFailedError struct {
	Operation string
	Branch    string
	Head      string
	StashID   string
	Cause     error
	Original  error
}

func (e *RecoveryFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to restore repository after %s", e.Operation)
	if e.Original != nil {
		fmt.Fprintf(&b, " (original error: %v)", e.Original)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	b.WriteString("\nthe repository needs manual intervention:")
	for _, cmd := range e.ManualSteps() {
		b.WriteString("\n  " + cmd)
	}
	return b.String()
}

// ManualSteps returns the git commands that restore the recorded state.
func (e *RecoveryFailedError) ManualSteps() []string {
	steps := []string{"git merge --abort || git rebase --abort"}
	if e.Branch != "" {
		steps = append(steps, "git checkout -f "+e.Branch)
	} else {
		steps = append(steps, "git checkout -f --detach "+e.Head)
	}
	steps = append(steps, "git reset --hard "+e.Head)
	if e.StashID != "" {
		steps = append(steps, "git stash apply "+e.StashID)
	}
	return steps
}

// Is returns true if the target error is ErrRecoveryFailed
func (e *RecoveryFailedError) Is(target error) bool {
	return target == ErrRecoveryFailed
}

func (e *RecoveryFailedError) Unwrap() []error {
	var errs []error
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Original != nil {
		errs = append(errs, e.Original)
	}
	return errs
}

// NewRecoveryFailedError creates a new RecoveryFailedError
func NewRecoveryFailedError(operation, branch, head, stashID string, cause, original error) *RecoveryFailedError {
	return &RecoveryFailedError{
		Operation: operation,
		Branch:    branch,
		Head:      head,
		StashID:   stashID,
		Cause:     cause,
		Original:  original,
	}
}

// TransientGitError marks a failure worth retrying: network errors, timeouts
// and a busy repository lock.
type TransientGitError struct {
	Op  string
	Err error
}

func (e *TransientGitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed temporarily", e.Op)
	}
	return fmt.Sprintf("%s failed temporarily: %v", e.Op, e.Err)
}

// Is returns true if the target error is ErrTransient
func (e *TransientGitError) Is(target error) bool {
	return target == ErrTransient
}

func (e *TransientGitError) Unwrap() error {
	return e.Err
}

// NewTransientGitError creates a new TransientGitError
func NewTransientGitError(op string, err error) *TransientGitError {
	return &TransientGitError{Op: op, Err: err}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// SyncError is the failure of a sync that was not a conflict. Restored tells
// whether the repository is back in its pre-sync state.
type SyncError struct {
	Branch   string
	Target   string
	Strategy string
	Restored bool
	Err      error
}

func (e *SyncError) Error() string {
	state := "repository restored to its previous state"
	if !e.Restored {
		state = "repository needs manual intervention"
	}
	msg := fmt.Sprintf("failed to %s %s into %s", strings.ToLower(e.Strategy), e.Target, e.Branch)
	if e.Strategy == "" {
		msg = fmt.Sprintf("failed to sync %s with %s", e.Branch, e.Target)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + " (" + state + ")"
}

// Is returns true if the target error is ErrSyncFailed
func (e *SyncError) Is(target error) bool {
	return target == ErrSyncFailed
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError
func NewSyncError(branch, target, strategy string, restored bool, err error) *SyncError {
	return &SyncError{
		Branch:   branch,
		Target:   target,
		Strategy: strategy,
		Restored: restored,
		Err:      err,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
