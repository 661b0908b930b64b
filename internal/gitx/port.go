// Package gitx provides the branch lifecycle port: the contract the workflow
// engine holds over an external version-control system, plus its
// implementations. All failures from this port are modeled as values the
// engine maps to warnings; workflow correctness never depends on the
// external tool's availability.
package gitx

import (
	"context"
	"errors"
)

// Sentinel errors for branch lifecycle failure modes. Check with errors.Is().
var (
	// ErrNotARepository indicates the working directory is not inside a git
	// repository.
	ErrNotARepository = errors.New("not a git repository")

	// ErrBranchExists indicates the branch to create already exists.
	ErrBranchExists = errors.New("branch already exists")

	// ErrBranchNotFound indicates the branch to delete or merge does not exist.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrMergeConflict indicates a merge stopped on conflicts.
	ErrMergeConflict = errors.New("merge conflict")
)

// BranchLifecycle is the capability interface over feature-branch
// operations. Every call takes a context; callers supply a timeout and the
// operation must be cancellable. A context error is treated exactly like any
// other failure mode.
type BranchLifecycle interface {
	// IsRepository reports whether the adapter is operating inside a git
	// repository.
	IsRepository(ctx context.Context) bool

	// HasUncommittedChanges reports whether the working tree is dirty. Used
	// only to emit a non-blocking warning.
	HasUncommittedChanges(ctx context.Context) (bool, error)

	// CreateAndCheckout creates the named branch and checks it out.
	CreateAndCheckout(ctx context.Context, name string) error

	// Merge merges the named branch into the current branch. noFastForward
	// forces a merge commit.
	Merge(ctx context.Context, name string, noFastForward bool) error

	// Delete removes the named branch.
	Delete(ctx context.Context, name string) error
}
