package gitx

import "context"

// noopAdapter implements BranchLifecycle for environments without a
// repository. Every branch operation reports ErrNotARepository; the engine
// degrades these to warnings and carries on.
type noopAdapter struct{}

// NewNoopAdapter returns a BranchLifecycle that performs no git operations.
func NewNoopAdapter() BranchLifecycle {
	return noopAdapter{}
}

func (noopAdapter) IsRepository(context.Context) bool { return false }

func (noopAdapter) HasUncommittedChanges(context.Context) (bool, error) {
	return false, ErrNotARepository
}

func (noopAdapter) CreateAndCheckout(context.Context, string) error {
	return ErrNotARepository
}

func (noopAdapter) Merge(context.Context, string, bool) error {
	return ErrNotARepository
}

func (noopAdapter) Delete(context.Context, string) error {
	return ErrNotARepository
}
