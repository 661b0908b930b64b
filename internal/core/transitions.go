// Package core contains the workflow engine: the task graph and its
// structural invariants, the task and specification state machines, the
// strict sequencer, the approval gate, and the runtime injection controller.
package core

import (
	"github.com/sdd-tools/specflow/internal/wferrors"
	"github.com/sdd-tools/specflow/pkg/models"
)

// taskTransitions is the closed transition table for task statuses. A
// transition is legal iff it appears here; there are no scattered
// conditionals deciding legality elsewhere.
//
// Rejection is modeled as completed -> pending (the rejected task returns to
// the queue immediately, keeping its approval audit trail). Blocking is legal
// from any non-terminal state; unblocking always lands on pending.
var taskTransitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskPending:    {models.TaskInProgress, models.TaskBlocked},
	models.TaskInProgress: {models.TaskCompleted, models.TaskBlocked},
	models.TaskCompleted:  {models.TaskApproved, models.TaskPending, models.TaskBlocked},
	models.TaskBlocked:    {models.TaskPending},
	models.TaskApproved:   {},
}

// specTransitions is the closed transition table for specification workflow
// statuses. on_hold is handled separately: it is reachable from any
// non-terminal state and resumes to the interrupted state.
var specTransitions = map[models.WorkflowStatus][]models.WorkflowStatus{
	models.SpecCreated:                {models.SpecInProgress},
	models.SpecInProgress:             {models.SpecReadyForReview},
	models.SpecReadyForReview:         {models.SpecUnderReview},
	models.SpecUnderReview:            {models.SpecReadyForImplementation, models.SpecChangesRequested},
	models.SpecChangesRequested:       {models.SpecInProgress},
	models.SpecReadyForImplementation: {models.SpecImplementing},
	models.SpecImplementing:           {models.SpecTesting},
	models.SpecTesting:                {models.SpecCompleted},
	models.SpecCompleted:              {},
}

// CheckTaskTransition returns nil if from -> to is present in the task
// transition table.
func CheckTaskTransition(from, to models.TaskStatus) error {
	for _, allowed := range taskTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &wferrors.InvalidTransitionError{Kind: "task", From: string(from), To: string(to)}
}

// CheckSpecTransition returns nil if from -> to is present in the
// specification transition table. Hold and resume do not go through this
// check; see Engine.HoldSpec and Engine.ResumeSpec.
func CheckSpecTransition(from, to models.WorkflowStatus) error {
	for _, allowed := range specTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &wferrors.InvalidTransitionError{Kind: "specification", From: string(from), To: string(to)}
}
