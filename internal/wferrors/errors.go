// Package wferrors provides sentinel errors and custom error types for the
// workflow engine's error taxonomy. Use errors.Is() and errors.As() to check
// for specific classes.
//
// Sequence, validation, and approval errors are always produced before any
// mutation and returned synchronously. Persistence errors are the only class
// that can leave in-memory and durable state diverging and are logged
// distinctly. Git failures are not errors at all: they are modeled as
// warning values attached to a successful result.
package wferrors

import (
	"errors"
	"fmt"

	"github.com/sdd-tools/specflow/pkg/models"
)

// Sentinel errors for the taxonomy classes.
var (
	// ErrOutOfSequence indicates a start was attempted in strict mode while
	// a predecessor task is incomplete.
	ErrOutOfSequence = errors.New("out of sequence")

	// ErrDuplicateID indicates a proposal's id collides with an existing task.
	ErrDuplicateID = errors.New("duplicate task id")

	// ErrInvalidParent indicates a proposal references a nonexistent parent index.
	ErrInvalidParent = errors.New("invalid parent index")

	// ErrCycleDetected indicates accepting a proposal or link would create a
	// cycle in the parent/child specification graph.
	ErrCycleDetected = errors.New("specification cycle detected")

	// ErrMalformedProposal indicates a proposal is missing required fields.
	ErrMalformedProposal = errors.New("malformed proposal")

	// ErrInsufficientApproval indicates a promotion to approved was attempted
	// without a qualifying approval record.
	ErrInsufficientApproval = errors.New("insufficient approval level")

	// ErrInvalidTransition indicates a status transition not present in the
	// closed transition table.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrSpecNotFound indicates the specification id is not registered.
	ErrSpecNotFound = errors.New("specification not found")

	// ErrTaskNotFound indicates no task exists at the requested step index.
	ErrTaskNotFound = errors.New("task not found")

	// ErrPersistence indicates the durable save failed after an in-memory
	// mutation. The engine rolls back to the last durably saved snapshot.
	ErrPersistence = errors.New("persistence failure")
)

// OutOfSequenceError reports which incomplete predecessor blocked a start.
type OutOfSequenceError struct {
	SpecID        string
	Index         int
	BlockingIndex int
	BlockingState models.TaskStatus
}

func (e *OutOfSequenceError) Error() string {
	return fmt.Sprintf("task %s[%d] may not start: task %d is %s",
		e.SpecID, e.Index, e.BlockingIndex, e.BlockingState)
}

// Is returns true if the target error is ErrOutOfSequence.
func (e *OutOfSequenceError) Is(target error) bool {
	return target == ErrOutOfSequence
}

// InsufficientApprovalError reports the gap between required and recorded
// approval levels.
type InsufficientApprovalError struct {
	Required models.ApprovalLevel
	Best     models.ApprovalLevel // empty if no approvals recorded
}

func (e *InsufficientApprovalError) Error() string {
	if e.Best == "" {
		return fmt.Sprintf("promotion requires %s approval, none recorded", e.Required)
	}
	return fmt.Sprintf("promotion requires %s approval, best recorded is %s", e.Required, e.Best)
}

// Is returns true if the target error is ErrInsufficientApproval.
func (e *InsufficientApprovalError) Is(target error) bool {
	return target == ErrInsufficientApproval
}

// InvalidTransitionError reports a transition absent from the closed tables.
type InvalidTransitionError struct {
	Kind string // "task" or "specification"
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s", e.Kind, e.From, e.To)
}

// Is returns true if the target error is ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// PersistenceError wraps the underlying save failure. It is the most severe
// failure mode: the caller must assume the mutation did not take.
type PersistenceError struct {
	SpecID string
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting %s after %s: %v", e.SpecID, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is returns true if the target error is ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// RejectionError wraps a proposal rejection taxonomy code so callers can use
// errors.Is against the validation sentinels.
type RejectionError struct {
	Reason  models.RejectionReason
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Is maps each rejection reason to its validation sentinel.
func (e *RejectionError) Is(target error) bool {
	switch e.Reason {
	case models.RejectDuplicateID:
		return target == ErrDuplicateID
	case models.RejectInvalidParent:
		return target == ErrInvalidParent
	case models.RejectCycleDetected:
		return target == ErrCycleDetected
	case models.RejectMalformedProposal:
		return target == ErrMalformedProposal
	}
	return false
}
