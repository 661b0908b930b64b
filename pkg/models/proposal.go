package models

import "time"

// TaskProposal is an externally produced candidate task, either from an AI
// assistant or a manual operator command. Proposals are validated by the
// injection controller before any graph mutation.
type TaskProposal struct {
	ID                 string           `yaml:"id" json:"id"`
	Title              string           `yaml:"title" json:"title"`
	Details            string           `yaml:"details" json:"details"`
	AcceptanceCriteria string           `yaml:"acceptance_criteria" json:"acceptance_criteria"`
	Files              []string         `yaml:"files" json:"files"`
	// ParentIndex optionally names the step index of an existing task this
	// proposal elaborates on. Nil means no parent.
	ParentIndex *int             `yaml:"parent_index,omitempty" json:"parent_index,omitempty"`
	// SubSpecID optionally links the proposed task to an existing
	// specification. The referenced specification must exist with no parent
	// or the owning specification as its parent; acceptance sets both sides
	// of the link. The edge is cycle-checked before commit.
	SubSpecID string           `yaml:"sub_spec_id,omitempty" json:"sub_spec_id,omitempty"`
	Source    ProvenanceSource `yaml:"source" json:"source"`
	Actor     string           `yaml:"actor,omitempty" json:"actor,omitempty"`
	Reason    string           `yaml:"reason,omitempty" json:"reason,omitempty"`
	Trigger   string           `yaml:"trigger,omitempty" json:"trigger,omitempty"`
}

// RejectionReason is the closed set of codes a proposal can be rejected with.
type RejectionReason string

const (
	RejectDuplicateID       RejectionReason = "duplicate_id"
	RejectInvalidParent     RejectionReason = "invalid_parent"
	RejectCycleDetected     RejectionReason = "cycle_detected"
	RejectMalformedProposal RejectionReason = "malformed_proposal"
)

// RejectionRecord is the audit entry appended when a proposal is rejected.
// The task graph is provably unchanged when one of these is produced.
type RejectionRecord struct {
	Reason   RejectionReason `yaml:"reason" json:"reason"`
	Message  string          `yaml:"message" json:"message"`
	Time     time.Time       `yaml:"time" json:"time"`
	Proposal TaskProposal    `yaml:"proposal" json:"proposal"`
}
