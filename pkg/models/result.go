package models

import "time"

// WarningCode identifies a non-fatal condition attached to an otherwise
// successful operation. All branch lifecycle failure modes map here; they
// never roll back a task transition.
type WarningCode string

const (
	WarnNotARepository      WarningCode = "not_a_repository"
	WarnDirtyWorkingTree    WarningCode = "dirty_working_tree"
	WarnBranchAlreadyExists WarningCode = "branch_already_exists"
	WarnBranchNotFound      WarningCode = "branch_not_found"
	WarnMergeConflict       WarningCode = "merge_conflict"
	WarnGitTimeout          WarningCode = "git_timeout"
	WarnGitUnavailable      WarningCode = "git_unavailable"
)

// Warning is a surfaced, non-fatal condition.
type Warning struct {
	Code    WarningCode `yaml:"code" json:"code"`
	Message string      `yaml:"message" json:"message"`
}

// Result is returned by every mutating engine operation.
type Result struct {
	SpecID        string         `yaml:"spec_id" json:"spec_id"`
	TaskIndex     int            `yaml:"task_index" json:"task_index"`
	TaskStatus    TaskStatus     `yaml:"task_status,omitempty" json:"task_status,omitempty"`
	SpecStatus    WorkflowStatus `yaml:"spec_status,omitempty" json:"spec_status,omitempty"`
	Branch        string         `yaml:"branch,omitempty" json:"branch,omitempty"`
	Merged        bool           `yaml:"merged,omitempty" json:"merged,omitempty"`
	BranchDeleted bool           `yaml:"branch_deleted,omitempty" json:"branch_deleted,omitempty"`
	Warnings      []Warning      `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// TaskSnapshot is a read-only view of a single task for status reporting.
type TaskSnapshot struct {
	StepIndex int              `yaml:"step_index" json:"step_index"`
	ID        string           `yaml:"id" json:"id"`
	Title     string           `yaml:"title" json:"title"`
	Status    TaskStatus       `yaml:"status" json:"status"`
	Branch    string           `yaml:"branch,omitempty" json:"branch,omitempty"`
	Injected  bool             `yaml:"injected,omitempty" json:"injected,omitempty"`
	Approvals []ApprovalRecord `yaml:"approvals,omitempty" json:"approvals,omitempty"`
	SubSpecID string           `yaml:"sub_spec_id,omitempty" json:"sub_spec_id,omitempty"`
}

// StatusSnapshot is a consistent read-only view of a specification and its
// tasks, taken under the specification's read lock.
type StatusSnapshot struct {
	SpecID        string         `yaml:"spec_id" json:"spec_id"`
	Title         string         `yaml:"title,omitempty" json:"title,omitempty"`
	Status        WorkflowStatus `yaml:"status" json:"status"`
	HeldStatus    WorkflowStatus `yaml:"held_status,omitempty" json:"held_status,omitempty"`
	ParentSpecID  string         `yaml:"parent_spec_id,omitempty" json:"parent_spec_id,omitempty"`
	ChildSpecIDs  []string       `yaml:"child_spec_ids,omitempty" json:"child_spec_ids,omitempty"`
	Tasks         []TaskSnapshot `yaml:"tasks" json:"tasks"`
	TotalTasks    int            `yaml:"total_tasks" json:"total_tasks"`
	DoneTasks     int            `yaml:"done_tasks" json:"done_tasks"`
	InjectedTasks int            `yaml:"injected_tasks" json:"injected_tasks"`
	Taken         time.Time      `yaml:"taken" json:"taken"`
}
