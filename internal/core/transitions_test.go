package core

import (
	"errors"
	"testing"

	"github.com/sdd-tools/specflow/internal/wferrors"
	"github.com/sdd-tools/specflow/pkg/models"
)

func TestCheckTaskTransition_LegalPaths(t *testing.T) {
	legal := []struct {
		from, to models.TaskStatus
	}{
		{models.TaskPending, models.TaskInProgress},
		{models.TaskPending, models.TaskBlocked},
		{models.TaskInProgress, models.TaskCompleted},
		{models.TaskInProgress, models.TaskBlocked},
		{models.TaskCompleted, models.TaskApproved},
		{models.TaskCompleted, models.TaskPending},
		{models.TaskCompleted, models.TaskBlocked},
		{models.TaskBlocked, models.TaskPending},
	}
	for _, tc := range legal {
		if err := CheckTaskTransition(tc.from, tc.to); err != nil {
			t.Errorf("CheckTaskTransition(%s, %s) = %v, want nil", tc.from, tc.to, err)
		}
	}
}

func TestCheckTaskTransition_IllegalPaths(t *testing.T) {
	illegal := []struct {
		from, to models.TaskStatus
	}{
		{models.TaskPending, models.TaskCompleted},
		{models.TaskPending, models.TaskApproved},
		{models.TaskInProgress, models.TaskApproved},
		{models.TaskInProgress, models.TaskPending},
		{models.TaskBlocked, models.TaskInProgress},
		{models.TaskBlocked, models.TaskCompleted},
		{models.TaskApproved, models.TaskPending},
		{models.TaskApproved, models.TaskInProgress},
		{models.TaskApproved, models.TaskBlocked},
		{models.TaskApproved, models.TaskCompleted},
	}
	for _, tc := range illegal {
		err := CheckTaskTransition(tc.from, tc.to)
		if err == nil {
			t.Errorf("CheckTaskTransition(%s, %s) = nil, want error", tc.from, tc.to)
			continue
		}
		if !errors.Is(err, wferrors.ErrInvalidTransition) {
			t.Errorf("CheckTaskTransition(%s, %s) = %v, want ErrInvalidTransition", tc.from, tc.to, err)
		}
	}
}

func TestCheckTaskTransition_ApprovedIsTerminal(t *testing.T) {
	for _, to := range []models.TaskStatus{
		models.TaskPending, models.TaskInProgress, models.TaskCompleted, models.TaskBlocked,
	} {
		if err := CheckTaskTransition(models.TaskApproved, to); err == nil {
			t.Errorf("approved -> %s should be illegal", to)
		}
	}
}

func TestCheckSpecTransition_ReviewCycle(t *testing.T) {
	path := []models.WorkflowStatus{
		models.SpecCreated,
		models.SpecInProgress,
		models.SpecReadyForReview,
		models.SpecUnderReview,
		models.SpecChangesRequested,
		models.SpecInProgress,
		models.SpecReadyForReview,
		models.SpecUnderReview,
		models.SpecReadyForImplementation,
		models.SpecImplementing,
		models.SpecTesting,
		models.SpecCompleted,
	}
	for i := 0; i < len(path)-1; i++ {
		if err := CheckSpecTransition(path[i], path[i+1]); err != nil {
			t.Fatalf("step %d: %s -> %s: %v", i, path[i], path[i+1], err)
		}
	}
}

func TestCheckSpecTransition_Illegal(t *testing.T) {
	illegal := []struct {
		from, to models.WorkflowStatus
	}{
		{models.SpecCreated, models.SpecCompleted},
		{models.SpecCreated, models.SpecImplementing},
		{models.SpecInProgress, models.SpecUnderReview},
		{models.SpecReadyForReview, models.SpecReadyForImplementation},
		{models.SpecCompleted, models.SpecInProgress},
		{models.SpecCompleted, models.SpecTesting},
		{models.SpecTesting, models.SpecImplementing},
	}
	for _, tc := range illegal {
		err := CheckSpecTransition(tc.from, tc.to)
		if err == nil {
			t.Errorf("CheckSpecTransition(%s, %s) = nil, want error", tc.from, tc.to)
			continue
		}
		var ite *wferrors.InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Errorf("CheckSpecTransition(%s, %s) = %T, want InvalidTransitionError", tc.from, tc.to, err)
		}
	}
}
