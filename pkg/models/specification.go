package models

import "time"

// WorkflowStatus represents the lifecycle state of a specification.
type WorkflowStatus string

const (
	SpecCreated                WorkflowStatus = "created"
	SpecInProgress             WorkflowStatus = "in_progress"
	SpecReadyForReview         WorkflowStatus = "ready_for_review"
	SpecUnderReview            WorkflowStatus = "under_review"
	SpecReadyForImplementation WorkflowStatus = "ready_for_implementation"
	SpecChangesRequested       WorkflowStatus = "changes_requested"
	SpecImplementing           WorkflowStatus = "implementing"
	SpecTesting                WorkflowStatus = "testing"
	SpecCompleted              WorkflowStatus = "completed"
	SpecOnHold                 WorkflowStatus = "on_hold"
)

// IsTerminal reports whether the workflow status is terminal.
func (s WorkflowStatus) IsTerminal() bool {
	return s == SpecCompleted
}

// Specification is the root unit of work containing an ordered list of
// tasks. The engine never deletes a specification, only mutates its status
// and task list. Parent and child links are weak references by ID, resolved
// through a directory lookup.
type Specification struct {
	ID           string         `yaml:"id" json:"id"`
	Title        string         `yaml:"title,omitempty" json:"title,omitempty"`
	Status       WorkflowStatus `yaml:"status" json:"status"`
	// HeldStatus remembers the status interrupted by on_hold so resume can
	// return there. Empty unless Status is on_hold.
	HeldStatus   WorkflowStatus `yaml:"held_status,omitempty" json:"held_status,omitempty"`
	ParentSpecID string         `yaml:"parent_spec_id,omitempty" json:"parent_spec_id,omitempty"`
	ChildSpecIDs []string       `yaml:"child_spec_ids,omitempty" json:"child_spec_ids,omitempty"`
	Tasks        []Task         `yaml:"tasks" json:"tasks"`
	// OriginalTaskCount is n, the number of tasks present at creation.
	// Original tasks occupy indices {0..n-1}; injected tasks are appended
	// after n and never renumber existing tasks.
	OriginalTaskCount int       `yaml:"original_task_count" json:"original_task_count"`
	Created           time.Time `yaml:"created" json:"created"`
	Updated           time.Time `yaml:"updated" json:"updated"`
}

// Task returns the task at the given step index, or nil if no such task
// exists.
func (s *Specification) Task(index int) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].StepIndex == index {
			return &s.Tasks[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the specification. Callers use it to take a
// snapshot before a mutation so a failed durable save can roll back.
func (s *Specification) Clone() *Specification {
	out := *s
	out.ChildSpecIDs = append([]string(nil), s.ChildSpecIDs...)
	out.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		ct := t
		ct.Files = append([]string(nil), t.Files...)
		ct.Approvals = append([]ApprovalRecord(nil), t.Approvals...)
		if t.Provenance != nil {
			p := *t.Provenance
			ct.Provenance = &p
		}
		out.Tasks[i] = ct
	}
	return &out
}
