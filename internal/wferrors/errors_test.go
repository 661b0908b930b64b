package wferrors

import (
	"errors"
	"testing"

	"github.com/sdd-tools/specflow/pkg/models"
)

func TestRejectionErrorMapsToSentinels(t *testing.T) {
	cases := []struct {
		reason   models.RejectionReason
		sentinel error
	}{
		{models.RejectDuplicateID, ErrDuplicateID},
		{models.RejectInvalidParent, ErrInvalidParent},
		{models.RejectCycleDetected, ErrCycleDetected},
		{models.RejectMalformedProposal, ErrMalformedProposal},
	}
	for _, tc := range cases {
		err := &RejectionError{Reason: tc.reason, Message: "because"}
		if !errors.Is(err, tc.sentinel) {
			t.Errorf("RejectionError(%s) does not match %v", tc.reason, tc.sentinel)
		}
		for _, other := range cases {
			if other.sentinel != tc.sentinel && errors.Is(err, other.sentinel) {
				t.Errorf("RejectionError(%s) matches unrelated sentinel %v", tc.reason, other.sentinel)
			}
		}
	}
	if errors.Is(&RejectionError{Reason: "unknown"}, ErrDuplicateID) {
		t.Error("unknown reason must not match any sentinel")
	}
}

func TestTypedErrorsMatchTheirSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&OutOfSequenceError{SpecID: "auth", Index: 2, BlockingIndex: 1, BlockingState: models.TaskPending}, ErrOutOfSequence},
		{&InsufficientApprovalError{Required: models.ApprovalPeer, Best: models.ApprovalSelf}, ErrInsufficientApproval},
		{&InvalidTransitionError{Kind: "task", From: "approved", To: "pending"}, ErrInvalidTransition},
		{&PersistenceError{SpecID: "auth", Op: "start", Err: errors.New("disk full")}, ErrPersistence},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Errorf("%T does not match its sentinel", tc.err)
		}
	}
}
