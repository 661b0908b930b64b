package core

import (
	"fmt"

	"github.com/sdd-tools/specflow/internal/wferrors"
	"github.com/sdd-tools/specflow/pkg/models"
)

// ApprovalGate evaluates whether a task may reach its terminal state given
// the approvals recorded on it.
type ApprovalGate struct {
	// Required is the minimum approval level for promotion to approved.
	Required models.ApprovalLevel
}

// NewApprovalGate returns a gate requiring the given level.
func NewApprovalGate(required models.ApprovalLevel) *ApprovalGate {
	return &ApprovalGate{Required: required}
}

// ValidateLevel returns an error if the level is not one of the fixed
// allowed levels. A task can only hold approval records at allowed levels.
func (g *ApprovalGate) ValidateLevel(level models.ApprovalLevel) error {
	if !level.Valid() {
		return fmt.Errorf("approval level %q is not one of self, peer, ai_assisted, admin", level)
	}
	return nil
}

// RequiredLevelSatisfied returns nil if the task holds at least one approval
// at or above the required level. Promotion to approved is guarded by this.
func (g *ApprovalGate) RequiredLevelSatisfied(task *models.Task) error {
	best := task.BestApproval()
	if best == nil {
		return &wferrors.InsufficientApprovalError{Required: g.Required}
	}
	if !best.Level.AtLeast(g.Required) {
		return &wferrors.InsufficientApprovalError{Required: g.Required, Best: best.Level}
	}
	return nil
}
