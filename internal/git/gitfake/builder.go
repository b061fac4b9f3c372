package gitfake

import (
	"fmt"
	"maps"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// hashOf returns a git-style object id so fake ids look like real ones
func hashOf(kind, payload string) string {
	return plumbing.ComputeHash(plumbing.CommitObject, []byte(kind+"\x00"+payload)).String()
}

func seqOf(c *commit) int {
	return c.seq
}

// newCommit must be called with mu held; it advances the clock by a minute.
func (f *Fake) newCommit(parents []string, message string, tree map[string]string) string {
	when := f.clock
	f.clock = f.clock.Add(time.Minute)
	return f.newCommitAt(parents, message, tree, when)
}

func (f *Fake) newCommitAt(parents []string, message string, tree map[string]string, when time.Time) string {
	f.seq++
	id := hashOf("commit", fmt.Sprintf("%d %v %s", f.seq, parents, message))
	f.commits[id] = &commit{
		id:      id,
		parents: parents,
		when:    when,
		message: message,
		seq:     f.seq,
		tree:    tree,
	}
	return id
}

func (f *Fake) storeBlob(content string) string {
	id := plumbing.ComputeHash(plumbing.BlobObject, []byte(content)).String()
	f.blobs[id] = []byte(content)
	return id
}

// tipTree returns a copy of the branch tip's tree, empty for a new branch
func (f *Fake) tipTree(branch string) ([]string, map[string]string) {
	id, ok := f.branches[branch]
	if !ok {
		return nil, map[string]string{}
	}
	return []string{id}, maps.Clone(f.commits[id].tree)
}

// Commit writes files on top of branch and returns the new commit id. A
// branch that does not exist yet starts a new root commit.
func (f *Fake) Commit(branch, message string, files map[string]string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commitLocked(branch, message, files, nil)
}

// CommitAt is Commit with an explicit timestamp
func (f *Fake) CommitAt(branch, message string, when time.Time, files map[string]string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commitLocked(branch, message, files, &when)
}

func (f *Fake) commitLocked(branch, message string, files map[string]string, when *time.Time) string {
	parents, tree := f.tipTree(branch)
	for path, content := range files {
		tree[path] = f.storeBlob(content)
	}
	var id string
	if when != nil {
		id = f.newCommitAt(parents, message, tree, *when)
	} else {
		id = f.newCommit(parents, message, tree)
	}
	f.branches[branch] = id
	return id
}

// Delete removes paths on branch in a new commit
func (f *Fake) Delete(branch, message string, paths ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	parents, tree := f.tipTree(branch)
	for _, p := range paths {
		delete(tree, p)
	}
	id := f.newCommit(parents, message, tree)
	f.branches[branch] = id
	return id
}

// Rename moves a path on branch in a new commit, keeping its content
func (f *Fake) Rename(branch, message, from, to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	parents, tree := f.tipTree(branch)
	tree[to] = tree[from]
	delete(tree, from)
	id := f.newCommit(parents, message, tree)
	f.branches[branch] = id
	return id
}

// MergeCommit records a merge of other into branch without conflict handling
func (f *Fake) MergeCommit(branch, other, message string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ours, theirs := f.branches[branch], f.branches[other]
	base := f.mergeBase(ours, theirs)
	tree := mergeTrees(f.treeOf(base), f.commits[ours].tree, f.commits[theirs].tree)
	id := f.newCommit([]string{ours, theirs}, message, tree)
	f.branches[branch] = id
	return id
}

// Branch creates or moves name to from, a branch name or commit id
func (f *Fake) Branch(name, from string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := from
	if tip, ok := f.branches[from]; ok {
		id = tip
	}
	f.branches[name] = id
	return id
}

// SetRemoteBranch sets a remote-tracking ref such as origin/main
func (f *Fake) SetRemoteBranch(name, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tip, ok := f.branches[id]; ok {
		id = tip
	}
	f.remote[name] = id
}

// SetUpstream records the remote a local branch tracks
func (f *Fake) SetUpstream(branch, remote string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upstream[branch] = remote
}

// QueueFetch makes the next successful fetch of remote move remote/branch to id
func (f *Fake) QueueFetch(remote, branch, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[remote] = append(f.fetches[remote], pendingUpdate{branch: branch, commit: id})
}

// SetCurrentBranch checks out branch without any checks
func (f *Fake) SetCurrentBranch(branch string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = branch
}

// Detach detaches HEAD at id
func (f *Fake) Detach(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = ""
	f.head = id
}

// WriteWorktree leaves an uncommitted change in the work tree
func (f *Fake) WriteWorktree(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.worktree[path] = content
}

// SetClock sets the timestamp of the next commit
func (f *Fake) SetClock(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = t
}

// FailNext makes the next calls of op fail with errs, one per call. Ops are
// checkout, merge, rebase, reset, stash-push and stash-pop.
func (f *Fake) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// FailFetch makes the next fetches fail with errs, one per call
func (f *Fake) FailFetch(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErrors = append(f.fetchErrors, errs...)
}

// FailParents makes Parents(id) fail with err, along with any MergeBase or
// CommitsBetween whose walk reaches id
func (f *Fake) FailParents(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parentFail[id] = err
}

// ConflictOnNextApply makes the next Merge or Rebase stop on paths
func (f *Fake) ConflictOnNextApply(paths ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflictOn = paths
}

// Tip returns the commit a local branch points at
func (f *Fake) Tip(branch string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branches[branch]
}

// RemoteTip returns the commit a remote-tracking ref points at
func (f *Fake) RemoteTip(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote[name]
}

// Worktree returns a copy of the uncommitted work tree content
func (f *Fake) Worktree() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.worktree)
}

// StashLen returns the number of stash entries
func (f *Fake) StashLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stash)
}

// InProgress returns "merge", "rebase" or ""
func (f *Fake) InProgress() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inProgress
}

// Ops returns the mutating operations performed so far, in order
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// FileAt returns the content of path in commit id
func (f *Fake) FileAt(id, path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.commits[id]
	if !ok {
		return "", false
	}
	blob, ok := c.tree[path]
	if !ok {
		return "", false
	}
	return string(f.blobs[blob]), true
}

// ParentsOf returns a commit's parents without a context
func (f *Fake) ParentsOf(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.commits[id]; ok {
		return append([]string(nil), c.parents...)
	}
	return nil
}
