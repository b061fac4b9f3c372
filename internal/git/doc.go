// Package git provides low-level Git operations behind the Backend interface.
//
// Reads (ref resolution, commit parents and dates, tree diffs, blobs) go
// through go-git and never touch the index or work tree. Mutations (checkout,
// merge, rebase, reset, stash, fetch) shell out to the git CLI with a
// per-call timeout.
//
// This package should be the only place where direct git commands are executed.
package git
