package git

import (
	"context"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ChangedFiles diffs the trees of two commits with rename detection. It reads
// the object database only and never touches the index or work tree.
func (b *realBackend) ChangedFiles(ctx context.Context, from, to string) ([]FileChange, error) {
	// Synchronize go-git operations to prevent concurrent packfile access
	goGitMu.Lock()
	defer goGitMu.Unlock()

	fromTree, err := b.treeOf(from)
	if err != nil {
		return nil, err
	}
	toTree, err := b.treeOf(to)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..%s: %w", from, to, err)
	}

	result := make([]FileChange, 0, len(changes))
	for _, c := range changes {
		if c.From.TreeEntry.Mode == filemode.Submodule || c.To.TreeEntry.Mode == filemode.Submodule {
			continue
		}
		result = append(result, toFileChange(c))
	}
	return result, nil
}

func toFileChange(c *object.Change) FileChange {
	fc := FileChange{From: c.From.Name, To: c.To.Name}
	if c.From.Name != "" {
		fc.FromBlob = c.From.TreeEntry.Hash.String()
	}
	if c.To.Name != "" {
		fc.ToBlob = c.To.TreeEntry.Hash.String()
	}

	switch {
	case c.From.Name == "":
		fc.Kind = ChangeAdded
	case c.To.Name == "":
		fc.Kind = ChangeDeleted
	case c.From.Name != c.To.Name:
		fc.Kind = ChangeRenamed
	default:
		fc.Kind = ChangeModified
	}
	return fc
}

// treeOf must be called with goGitMu held
func (b *realBackend) treeOf(commit string) (*object.Tree, error) {
	c, err := b.repo.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", commit, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree of %s: %w", commit, err)
	}
	return tree, nil
}

// ReadBlob returns the content of a blob object
func (b *realBackend) ReadBlob(ctx context.Context, blob string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	goGitMu.Lock()
	defer goGitMu.Unlock()

	obj, err := b.repo.BlobObject(plumbing.NewHash(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", blob, err)
	}
	r, err := obj.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", blob, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}
