// Package gitfake provides a deterministic in-memory git.Backend.
//
// Histories are built with the helpers in builder.go. Merge and rebase work at
// path granularity: a path changed on one side only takes that side's
// content, and content conflicts are scripted with ConflictOnNextApply.
// Failures of individual operations are scripted with FailNext and
// FailFetch.
package gitfake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gitmoveerrors "gitmove.dev/gitmove/internal/errors"
	"gitmove.dev/gitmove/internal/git"
)

type commit struct {
	id      string
	parents []string
	when    time.Time
	message string
	seq     int
	// tree maps path to blob id
	tree map[string]string
}

type stashEntry struct {
	id       string
	message  string
	worktree map[string]string
}

type pendingUpdate struct {
	branch string
	commit string
}

// Fake is an in-memory repository implementing git.Backend.
type Fake struct {
	mu sync.Mutex

	commits  map[string]*commit
	blobs    map[string][]byte
	branches map[string]string
	remote   map[string]string
	upstream map[string]string

	current string
	head    string
	// worktree holds uncommitted content by path
	worktree map[string]string
	stash    []stashEntry

	inProgress  string
	rebaseOrig  [2]string
	conflictOn  []string
	failures    map[string][]error
	fetchErrors []error
	fetches     map[string][]pendingUpdate
	parentFail  map[string]error

	clock  time.Time
	seq    int
	ops    []string
	gitDir string
	lock   chan struct{}
}

var _ git.Backend = (*Fake)(nil)

// Epoch is the time of the first commit created by a new Fake.
var Epoch = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// New returns an empty repository with main checked out and no commits.
func New() *Fake {
	return &Fake{
		commits:    map[string]*commit{},
		blobs:      map[string][]byte{},
		branches:   map[string]string{},
		remote:     map[string]string{},
		upstream:   map[string]string{},
		worktree:   map[string]string{},
		failures:   map[string][]error{},
		fetches:    map[string][]pendingUpdate{},
		parentFail: map[string]error{},
		current:    "main",
		clock:      Epoch,
		gitDir:     "/fake/.git",
		lock:       make(chan struct{}, 1),
	}
}

// ResolveRef resolves local branches, remote-tracking branches and commit ids
func (f *Fake) ResolveRef(ctx context.Context, name string) (git.BranchRef, error) {
	if err := ctx.Err(); err != nil {
		return git.BranchRef{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolve(name)
}

func (f *Fake) resolve(name string) (git.BranchRef, error) {
	if id, ok := f.branches[name]; ok {
		return git.BranchRef{Name: name, Commit: id}, nil
	}
	if id, ok := f.remote[name]; ok {
		return git.BranchRef{Name: name, Commit: id, Remote: true}, nil
	}
	if id, ok := f.remote["origin/"+name]; ok {
		return git.BranchRef{Name: "origin/" + name, Commit: id, Remote: true}, nil
	}
	if _, ok := f.commits[name]; ok {
		return git.BranchRef{Name: name, Commit: name}, nil
	}
	return git.BranchRef{}, gitmoveerrors.NewRefNotFoundError(name, nil)
}

// BranchExists reports whether name is a local or remote-tracking branch
func (f *Fake) BranchExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	_, local := f.branches[name]
	_, remote := f.remote[name]
	_, origin := f.remote["origin/"+name]
	return local || remote || origin, nil
}

// LocalBranches returns the local branch names, sorted
func (f *Fake) LocalBranches(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.branches))
	for name := range f.branches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Parents returns the parents of a commit
func (f *Fake) Parents(ctx context.Context, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.parentFail[id]; ok {
		return nil, err
	}
	c, ok := f.commits[id]
	if !ok {
		return nil, fmt.Errorf("commit %s not found", id)
	}
	return append([]string(nil), c.parents...), nil
}

// MergeBase returns the common ancestors of a and b that are not ancestors
// of another common ancestor, sorted.
func (f *Fake) MergeBase(ctx context.Context, a, b string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	fromA, err := f.walk(a)
	if err != nil {
		return nil, err
	}
	fromB, err := f.walk(b)
	if err != nil {
		return nil, err
	}

	below := map[string]bool{}
	for id := range fromA {
		if !fromB[id] {
			continue
		}
		for _, p := range f.commits[id].parents {
			for anc := range f.reachable(p) {
				below[anc] = true
			}
		}
	}
	var bases []string
	for id := range fromA {
		if fromB[id] && !below[id] {
			bases = append(bases, id)
		}
	}
	sort.Strings(bases)
	return bases, nil
}

// CommitsBetween lists commits reachable from head but not from base, oldest first
func (f *Fake) CommitsBetween(ctx context.Context, base, head string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.walk(base); err != nil {
		return nil, err
	}
	if _, err := f.walk(head); err != nil {
		return nil, err
	}
	return f.localOnly(head, base), nil
}

// walk is reachable with the failures scripted by FailParents applied
func (f *Fake) walk(id string) (map[string]bool, error) {
	if _, ok := f.commits[id]; !ok {
		return nil, fmt.Errorf("commit %s not found", id)
	}
	seen := f.reachable(id)
	for cur := range seen {
		if err, ok := f.parentFail[cur]; ok {
			return nil, fmt.Errorf("commit %s: %w", cur, err)
		}
	}
	return seen, nil
}

// CommitTime returns the commit's timestamp
func (f *Fake) CommitTime(ctx context.Context, id string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.commits[id]
	if !ok {
		return time.Time{}, fmt.Errorf("commit %s not found", id)
	}
	return c.when, nil
}

// ChangedFiles diffs two commit trees. Renames are detected when a deleted
// and an added path carry the same blob.
func (f *Fake) ChangedFiles(ctx context.Context, from, to string) ([]git.FileChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.commits[from]
	if !ok {
		return nil, fmt.Errorf("commit %s not found", from)
	}
	b, ok := f.commits[to]
	if !ok {
		return nil, fmt.Errorf("commit %s not found", to)
	}
	return diffTrees(a.tree, b.tree), nil
}

func diffTrees(a, b map[string]string) []git.FileChange {
	var added, deleted []string
	var changes []git.FileChange
	for path, blob := range a {
		nb, ok := b[path]
		switch {
		case !ok:
			deleted = append(deleted, path)
		case nb != blob:
			changes = append(changes, git.FileChange{Kind: git.ChangeModified, From: path, To: path, FromBlob: blob, ToBlob: nb})
		}
	}
	for path := range b {
		if _, ok := a[path]; !ok {
			added = append(added, path)
		}
	}
	sort.Strings(added)
	sort.Strings(deleted)

	used := map[string]bool{}
	for _, d := range deleted {
		renamed := false
		for _, ad := range added {
			if !used[ad] && b[ad] == a[d] {
				used[ad] = true
				renamed = true
				changes = append(changes, git.FileChange{Kind: git.ChangeRenamed, From: d, To: ad, FromBlob: a[d], ToBlob: b[ad]})
				break
			}
		}
		if !renamed {
			changes = append(changes, git.FileChange{Kind: git.ChangeDeleted, From: d, FromBlob: a[d]})
		}
	}
	for _, ad := range added {
		if !used[ad] {
			changes = append(changes, git.FileChange{Kind: git.ChangeAdded, To: ad, ToBlob: b[ad]})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].BasePath() < changes[j].BasePath() })
	return changes
}

// ReadBlob returns blob content
func (f *Fake) ReadBlob(ctx context.Context, blob string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.blobs[blob]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", blob)
	}
	return append([]byte(nil), data...), nil
}

// CurrentBranch returns the checked out branch or "" when detached
func (f *Fake) CurrentBranch(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

// Head returns the checked out commit
func (f *Fake) Head(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headLocked(), nil
}

func (f *Fake) headLocked() string {
	if f.current != "" {
		return f.branches[f.current]
	}
	return f.head
}

// IsDirty reports uncommitted work tree content or an operation in progress
func (f *Fake) IsDirty(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.worktree) > 0 || f.inProgress != "", nil
}

// Fetch applies updates queued with QueueFetch unless a scripted error is pending
func (f *Fake) Fetch(ctx context.Context, remote string) error {
	if err := ctx.Err(); err != nil {
		return gitmoveerrors.NewTransientGitError("fetch "+remote, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, "fetch "+remote)
	if len(f.fetchErrors) > 0 {
		err := f.fetchErrors[0]
		f.fetchErrors = f.fetchErrors[1:]
		return err
	}
	for _, u := range f.fetches[remote] {
		f.remote[remote+"/"+u.branch] = u.commit
	}
	delete(f.fetches, remote)
	return nil
}

// RemoteFor returns the remote of a remote-tracking ref or a branch's upstream
func (f *Fake) RemoteFor(_ context.Context, ref git.BranchRef) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ref.Remote {
		if i := strings.Index(ref.Name, "/"); i > 0 {
			return ref.Name[:i], nil
		}
		return "", nil
	}
	return f.upstream[ref.Name], nil
}

// Checkout switches to a branch, or detaches at a commit
func (f *Fake) Checkout(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, "checkout "+ref)
	if err := f.scripted("checkout"); err != nil {
		return err
	}
	if f.inProgress != "" {
		return fmt.Errorf("cannot checkout %s: %s in progress", ref, f.inProgress)
	}
	if ref == f.current {
		return nil
	}
	if len(f.worktree) > 0 {
		return fmt.Errorf("cannot checkout %s: local changes would be overwritten", ref)
	}
	if _, ok := f.branches[ref]; ok {
		f.current = ref
		return nil
	}
	if _, ok := f.commits[ref]; ok {
		f.current = ""
		f.head = ref
		return nil
	}
	return fmt.Errorf("pathspec %s did not match any branch", ref)
}

// Merge merges target into the checked out branch
func (f *Fake) Merge(_ context.Context, branch, target string, opts git.MergeOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, "merge "+target)
	if err := f.scripted("merge"); err != nil {
		return "", err
	}
	ref, err := f.resolve(target)
	if err != nil {
		return "", err
	}
	head := f.headLocked()
	if len(f.conflictOn) > 0 {
		paths := f.conflictOn
		f.conflictOn = nil
		f.inProgress = "merge"
		return "", gitmoveerrors.NewMergeConflictError(branch, target, paths)
	}

	if f.reachable(head)[ref.Commit] {
		return head, nil
	}
	if f.reachable(ref.Commit)[head] && !opts.NoFastForward {
		f.moveHead(ref.Commit)
		return ref.Commit, nil
	}
	if opts.FastForwardOnly {
		return "", fmt.Errorf("not possible to fast-forward %s to %s", branch, target)
	}

	base := f.mergeBase(head, ref.Commit)
	tree := mergeTrees(f.treeOf(base), f.commits[head].tree, f.commits[ref.Commit].tree)
	msg := opts.Message
	if msg == "" {
		msg = fmt.Sprintf("Merge branch '%s' into %s", target, branch)
	}
	id := f.newCommit([]string{head, ref.Commit}, msg, tree)
	f.moveHead(id)
	return id, nil
}

// Rebase replays the checked out branch's own commits onto onto
func (f *Fake) Rebase(_ context.Context, branch, onto string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, "rebase "+onto)
	if err := f.scripted("rebase"); err != nil {
		return "", err
	}
	ref, err := f.resolve(onto)
	if err != nil {
		return "", err
	}
	head := f.headLocked()
	if len(f.conflictOn) > 0 {
		paths := f.conflictOn
		f.conflictOn = nil
		f.inProgress = "rebase"
		f.rebaseOrig = [2]string{f.current, head}
		local := f.localOnly(head, ref.Commit)
		stopped := ""
		if len(local) > 0 {
			stopped = local[0]
		}
		// git detaches HEAD at the new base while a rebase is stopped
		f.current = ""
		f.head = ref.Commit
		return "", gitmoveerrors.NewRebaseConflictError(branch, onto, stopped, paths)
	}

	if f.reachable(head)[ref.Commit] {
		return head, nil
	}
	tip := ref.Commit
	for _, id := range f.localOnly(head, ref.Commit) {
		c := f.commits[id]
		var parentTree map[string]string
		if len(c.parents) > 0 {
			parentTree = f.commits[c.parents[0]].tree
		}
		// the replayed commit's own changes win over the new base
		tree := mergeTrees(parentTree, c.tree, f.commits[tip].tree)
		tip = f.newCommitAt([]string{tip}, c.message, tree, c.when)
	}
	f.moveHead(tip)
	return tip, nil
}

// AbortMerge clears a stopped merge
func (f *Fake) AbortMerge(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, "merge --abort")
	if f.inProgress == "merge" {
		f.inProgress = ""
	}
	return nil
}

// AbortRebase clears a stopped rebase and returns to the original branch
func (f *Fake) AbortRebase(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, "rebase --abort")
	if f.inProgress == "rebase" {
		f.inProgress = ""
		f.current = f.rebaseOrig[0]
		f.head = f.rebaseOrig[1]
	}
	return nil
}

// ResetHard moves the checked out branch to id and discards work tree changes
func (f *Fake) ResetHard(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, "reset --hard "+short(id))
	if err := f.scripted("reset"); err != nil {
		return err
	}
	if _, ok := f.commits[id]; !ok {
		if ref, err := f.resolve(id); err == nil {
			id = ref.Commit
		} else {
			return fmt.Errorf("unknown revision %s", id)
		}
	}
	f.moveHead(id)
	f.worktree = map[string]string{}
	if f.inProgress == "merge" {
		f.inProgress = ""
	}
	return nil
}

// StashPush moves work tree changes onto the stash
func (f *Fake) StashPush(_ context.Context, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, "stash push")
	if err := f.scripted("stash-push"); err != nil {
		return "", err
	}
	if len(f.worktree) == 0 {
		return "", nil
	}
	f.seq++
	id := hashOf("stash", fmt.Sprintf("%d %s", f.seq, message))
	f.stash = append([]stashEntry{{id: id, message: message, worktree: f.worktree}}, f.stash...)
	f.worktree = map[string]string{}
	return id, nil
}

// StashPop restores and drops the stash entry id
func (f *Fake) StashPop(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, "stash pop")
	if err := f.scripted("stash-pop"); err != nil {
		return err
	}
	for i, e := range f.stash {
		if e.id == id {
			for path, content := range e.worktree {
				f.worktree[path] = content
			}
			f.stash = append(f.stash[:i], f.stash[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("stash %s not found", id)
}

// StashExists reports whether id is still stashed
func (f *Fake) StashExists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.stash {
		if e.id == id {
			return true, nil
		}
	}
	return false, nil
}

// GitDir returns a fixed pseudo path
func (f *Fake) GitDir() string {
	return f.gitDir
}

type fakeLock struct {
	once sync.Once
	ch   chan struct{}
}

func (l *fakeLock) Unlock() error {
	l.once.Do(func() { <-l.ch })
	return nil
}

// Lock takes the in-memory repository lock
func (f *Fake) Lock(ctx context.Context, timeout time.Duration) (git.Lock, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f.lock <- struct{}{}:
		return &fakeLock{ch: f.lock}, nil
	case <-ctx.Done():
		return nil, gitmoveerrors.NewTransientGitError("acquire repository lock", ctx.Err())
	case <-timer.C:
		return nil, gitmoveerrors.NewTransientGitError("acquire repository lock", fmt.Errorf("lock held for more than %s", timeout))
	}
}

func (f *Fake) scripted(op string) error {
	errs := f.failures[op]
	if len(errs) == 0 {
		return nil
	}
	f.failures[op] = errs[1:]
	return errs[0]
}

func (f *Fake) moveHead(id string) {
	if f.current != "" {
		f.branches[f.current] = id
		return
	}
	f.head = id
}

func (f *Fake) treeOf(id string) map[string]string {
	if c, ok := f.commits[id]; ok {
		return c.tree
	}
	return nil
}

func (f *Fake) reachable(id string) map[string]bool {
	seen := map[string]bool{}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == "" || seen[cur] {
			continue
		}
		seen[cur] = true
		if c, ok := f.commits[cur]; ok {
			queue = append(queue, c.parents...)
		}
	}
	return seen
}

// mergeBase returns the newest commit reachable from both tips
func (f *Fake) mergeBase(a, b string) string {
	fromB := f.reachable(b)
	best := ""
	for id := range f.reachable(a) {
		if !fromB[id] {
			continue
		}
		if best == "" || f.newer(id, best) {
			best = id
		}
	}
	return best
}

// localOnly lists commits reachable from head but not from base, oldest first
func (f *Fake) localOnly(head, base string) []string {
	exclude := f.reachable(base)
	var ids []string
	for id := range f.reachable(head) {
		if !exclude[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return f.newer(ids[j], ids[i]) })
	return ids
}

func (f *Fake) newer(a, b string) bool {
	ca, cb := f.commits[a], f.commits[b]
	if !ca.when.Equal(cb.when) {
		return ca.when.After(cb.when)
	}
	return seqOf(ca) > seqOf(cb)
}

// mergeTrees takes each path from whichever side changed it relative to base,
// preferring ours when both did.
func mergeTrees(base, ours, theirs map[string]string) map[string]string {
	out := map[string]string{}
	paths := map[string]bool{}
	for p := range base {
		paths[p] = true
	}
	for p := range ours {
		paths[p] = true
	}
	for p := range theirs {
		paths[p] = true
	}
	for p := range paths {
		b, o, t := base[p], ours[p], theirs[p]
		v := o
		if o == b {
			v = t
		}
		if v != "" {
			out[p] = v
		}
	}
	return out
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
