package core

import (
	"github.com/sdd-tools/specflow/internal/wferrors"
	"github.com/sdd-tools/specflow/pkg/models"
)

// StrictSequencer decides whether a task may start given the ordering of its
// sibling tasks. The check always runs against the full current ordering,
// injected tasks included, and is evaluated fresh on every start call: the
// graph may have been mutated by injection since the caller last observed it.
type StrictSequencer struct {
	// Strict enables in-order enforcement. When false every start is
	// allowed regardless of predecessor state.
	Strict bool
}

// NewStrictSequencer returns a sequencer with the given strictness.
func NewStrictSequencer(strict bool) *StrictSequencer {
	return &StrictSequencer{Strict: strict}
}

// MayStart returns nil if the task at the given index may start. In strict
// mode without an override, every task at a lower index must be completed or
// approved; the first incomplete predecessor is reported. An override always
// allows the start (the caller records the justification on the task).
func (s *StrictSequencer) MayStart(spec *models.Specification, index int, overrideRequested bool) error {
	if !s.Strict || overrideRequested {
		return nil
	}
	for _, t := range OrderedTasks(spec) {
		if t.StepIndex >= index {
			break
		}
		if !t.Status.IsDone() {
			return &wferrors.OutOfSequenceError{
				SpecID:        spec.ID,
				Index:         index,
				BlockingIndex: t.StepIndex,
				BlockingState: t.Status,
			}
		}
	}
	return nil
}
