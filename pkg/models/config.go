package models

import "time"

// MergePolicy controls how a merge conflict during completion is surfaced.
// Either way the task's completed status stands; the policies differ only in
// the severity of the surfaced warning.
type MergePolicy string

const (
	MergePolicyWarn  MergePolicy = "warn"
	MergePolicyBlock MergePolicy = "block"
)

// EngineConfig holds the engine-level settings read from .specflow.yaml.
type EngineConfig struct {
	// StrictSequencing requires in-order completion of sibling tasks before
	// a later one may start. Defaults to true.
	StrictSequencing bool `yaml:"strict_sequencing"`
	// BranchPattern formats feature branch names with {spec}, {index}, and
	// {slug} placeholders.
	BranchPattern string `yaml:"branch_pattern"`
	// RequiredApprovalLevel is the minimum approval level a task needs
	// before it can be promoted to approved.
	RequiredApprovalLevel ApprovalLevel `yaml:"required_approval_level"`
	// KeepBranches skips branch deletion after a successful merge.
	KeepBranches bool `yaml:"keep_branches"`
	MergePolicy  MergePolicy `yaml:"merge_policy"`
	// GitTimeout bounds each external version-control call.
	GitTimeout time.Duration `yaml:"git_timeout"`
	// DefaultActor is recorded on approvals and overrides when the caller
	// does not name one.
	DefaultActor string `yaml:"default_actor"`
}
