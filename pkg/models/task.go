package models

import "time"

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskApproved   TaskStatus = "approved"
	TaskBlocked    TaskStatus = "blocked"
)

// IsTerminal reports whether the status is a terminal state. Only approved
// tasks are terminal; every other state can still move.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskApproved
}

// IsDone reports whether the task counts as finished for sequencing and
// specification-completion purposes.
func (s TaskStatus) IsDone() bool {
	return s == TaskCompleted || s == TaskApproved
}

// ApprovalLevel is one of the fixed, ordered sign-off levels a task can
// receive. Levels are ordered: self < peer < ai_assisted < admin.
type ApprovalLevel string

const (
	ApprovalSelf       ApprovalLevel = "self"
	ApprovalPeer       ApprovalLevel = "peer"
	ApprovalAIAssisted ApprovalLevel = "ai_assisted"
	ApprovalAdmin      ApprovalLevel = "admin"
)

// approvalRanks maps each allowed level to its position in the ordering.
var approvalRanks = map[ApprovalLevel]int{
	ApprovalSelf:       0,
	ApprovalPeer:       1,
	ApprovalAIAssisted: 2,
	ApprovalAdmin:      3,
}

// Rank returns the position of the level in the fixed ordering, or -1 if the
// level is not one of the allowed values.
func (l ApprovalLevel) Rank() int {
	if r, ok := approvalRanks[l]; ok {
		return r
	}
	return -1
}

// Valid reports whether the level is one of the fixed allowed levels.
func (l ApprovalLevel) Valid() bool {
	return l.Rank() >= 0
}

// AtLeast reports whether the level satisfies the given required level.
func (l ApprovalLevel) AtLeast(required ApprovalLevel) bool {
	return l.Rank() >= required.Rank()
}

// ApprovalRecord is an immutable audit entry representing a sign-off on a
// task at a given level. Records are append-only; rejection never removes
// them.
type ApprovalRecord struct {
	Level                 ApprovalLevel `yaml:"level" json:"level"`
	Approver              string        `yaml:"approver" json:"approver"`
	Time                  time.Time     `yaml:"time" json:"time"`
	Comment               string        `yaml:"comment,omitempty" json:"comment,omitempty"`
	OverrideJustification string        `yaml:"override_justification,omitempty" json:"override_justification,omitempty"`
}

// ProvenanceSource identifies who originated an injected task.
type ProvenanceSource string

const (
	SourceOperator ProvenanceSource = "operator"
	SourceAI       ProvenanceSource = "ai"
)

// InjectionProvenance records where an injected task came from.
type InjectionProvenance struct {
	Time    time.Time        `yaml:"time" json:"time"`
	Source  ProvenanceSource `yaml:"source" json:"source"`
	Actor   string           `yaml:"actor" json:"actor"`
	Reason  string           `yaml:"reason,omitempty" json:"reason,omitempty"`
	Trigger string           `yaml:"trigger,omitempty" json:"trigger,omitempty"`
}

// Task is a single unit of implementation work within a specification,
// addressed by (SpecID, StepIndex). Tasks are never deleted; rejection
// returns them to pending.
type Task struct {
	ID                 string               `yaml:"id" json:"id"`
	SpecID             string               `yaml:"spec_id" json:"spec_id"`
	StepIndex          int                  `yaml:"step_index" json:"step_index"`
	Title              string               `yaml:"title" json:"title"`
	Details            string               `yaml:"details,omitempty" json:"details,omitempty"`
	AcceptanceCriteria string               `yaml:"acceptance_criteria,omitempty" json:"acceptance_criteria,omitempty"`
	Files              []string             `yaml:"files,omitempty" json:"files,omitempty"`
	Status             TaskStatus           `yaml:"status" json:"status"`
	Approvals          []ApprovalRecord     `yaml:"approvals,omitempty" json:"approvals,omitempty"`
	SubSpecID          string               `yaml:"sub_spec_id,omitempty" json:"sub_spec_id,omitempty"`
	Branch             string               `yaml:"branch,omitempty" json:"branch,omitempty"`
	Injected           bool                 `yaml:"injected,omitempty" json:"injected,omitempty"`
	Provenance         *InjectionProvenance `yaml:"provenance,omitempty" json:"provenance,omitempty"`
	BlockReason        string               `yaml:"block_reason,omitempty" json:"block_reason,omitempty"`
	OverrideReason     string               `yaml:"override_reason,omitempty" json:"override_reason,omitempty"`
	RejectionReason    string               `yaml:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	Notes              string               `yaml:"notes,omitempty" json:"notes,omitempty"`
	Created            time.Time            `yaml:"created" json:"created"`
	Updated            time.Time            `yaml:"updated" json:"updated"`
}

// BestApproval returns the highest-ranked approval recorded on the task, or
// nil if the task has no approvals.
func (t *Task) BestApproval() *ApprovalRecord {
	var best *ApprovalRecord
	for i := range t.Approvals {
		r := &t.Approvals[i]
		if best == nil || r.Level.Rank() > best.Level.Rank() {
			best = r
		}
	}
	return best
}
