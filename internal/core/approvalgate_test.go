package core

import (
	"errors"
	"testing"

	"github.com/sdd-tools/specflow/internal/wferrors"
	"github.com/sdd-tools/specflow/pkg/models"
)

func TestValidateLevel(t *testing.T) {
	gate := NewApprovalGate(models.ApprovalPeer)
	for _, level := range []models.ApprovalLevel{
		models.ApprovalSelf, models.ApprovalPeer, models.ApprovalAIAssisted, models.ApprovalAdmin,
	} {
		if err := gate.ValidateLevel(level); err != nil {
			t.Errorf("ValidateLevel(%s) = %v, want nil", level, err)
		}
	}
	if err := gate.ValidateLevel("manager"); err == nil {
		t.Error("ValidateLevel accepted an unknown level")
	}
}

func TestRequiredLevelSatisfied(t *testing.T) {
	gate := NewApprovalGate(models.ApprovalPeer)

	noApprovals := &models.Task{Status: models.TaskCompleted}
	err := gate.RequiredLevelSatisfied(noApprovals)
	if !errors.Is(err, wferrors.ErrInsufficientApproval) {
		t.Fatalf("no approvals: %v, want ErrInsufficientApproval", err)
	}

	selfOnly := &models.Task{Approvals: []models.ApprovalRecord{{Level: models.ApprovalSelf}}}
	err = gate.RequiredLevelSatisfied(selfOnly)
	var iae *wferrors.InsufficientApprovalError
	if !errors.As(err, &iae) {
		t.Fatalf("self approval against peer gate: %v, want InsufficientApprovalError", err)
	}
	if iae.Best != models.ApprovalSelf || iae.Required != models.ApprovalPeer {
		t.Errorf("error = %+v, want best self, required peer", iae)
	}

	// The highest recorded approval counts, not the latest.
	mixed := &models.Task{Approvals: []models.ApprovalRecord{
		{Level: models.ApprovalAdmin},
		{Level: models.ApprovalSelf},
	}}
	if err := gate.RequiredLevelSatisfied(mixed); err != nil {
		t.Errorf("admin approval against peer gate: %v, want nil", err)
	}

	exact := &models.Task{Approvals: []models.ApprovalRecord{{Level: models.ApprovalPeer}}}
	if err := gate.RequiredLevelSatisfied(exact); err != nil {
		t.Errorf("peer approval against peer gate: %v, want nil", err)
	}
}

func TestApprovalLevelOrdering(t *testing.T) {
	ordered := []models.ApprovalLevel{
		models.ApprovalSelf, models.ApprovalPeer, models.ApprovalAIAssisted, models.ApprovalAdmin,
	}
	for i, lower := range ordered {
		for j, higher := range ordered {
			got := higher.AtLeast(lower)
			if want := j >= i; got != want {
				t.Errorf("%s.AtLeast(%s) = %v, want %v", higher, lower, got, want)
			}
		}
	}
	if models.ApprovalLevel("bogus").Valid() {
		t.Error("bogus level reported valid")
	}
}
