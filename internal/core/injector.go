package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/sdd-tools/specflow/pkg/models"
)

// InjectionController validates externally proposed tasks and commits them
// into a specification's task list. Validation is two-phase: every check
// runs before any mutation, so a rejected proposal leaves the graph
// byte-for-byte unchanged and an accepted one is committed whole.
type InjectionController struct {
	dir SpecDirectory
}

// NewInjectionController creates an injection controller resolving
// cross-specification links through the given directory.
func NewInjectionController(dir SpecDirectory) *InjectionController {
	return &InjectionController{dir: dir}
}

// InjectionOutcome is the per-proposal result of an injection: exactly one
// of Task and Rejection is set.
type InjectionOutcome struct {
	Task      *models.Task
	Rejection *models.RejectionRecord
}

// Inject validates a single proposal against the specification and, if it
// passes, appends it with the next available index, injected=true, and
// provenance metadata. On rejection the returned record carries the reason
// and the original proposal, and the graph is unchanged.
func (c *InjectionController) Inject(spec *models.Specification, proposal models.TaskProposal) InjectionOutcome {
	outcomes := c.InjectBatch(spec, []models.TaskProposal{proposal})
	return outcomes[0]
}

// InjectBatch processes proposals independently: one proposal's rejection
// does not block the others. Successful proposals are committed as a single
// graph update with contiguous increasing indices. Later proposals in the
// batch are validated against earlier accepted ones, so an intra-batch
// duplicate id is rejected rather than committed twice.
func (c *InjectionController) InjectBatch(spec *models.Specification, proposals []models.TaskProposal) []InjectionOutcome {
	now := time.Now().UTC()
	outcomes := make([]InjectionOutcome, len(proposals))

	existingIDs := forestTaskIDs(c.dir, spec)
	stagedIDs := make(map[string]bool)
	var accepted []models.Task

	nextIndex := NextIndex(spec)
	for i, p := range proposals {
		if rej := c.validate(spec, p, existingIDs, stagedIDs, now); rej != nil {
			outcomes[i] = InjectionOutcome{Rejection: rej}
			continue
		}

		task := models.Task{
			ID:                 p.ID,
			SpecID:             spec.ID,
			StepIndex:          nextIndex,
			Title:              p.Title,
			Details:            p.Details,
			AcceptanceCriteria: p.AcceptanceCriteria,
			Files:              append([]string(nil), p.Files...),
			Status:             models.TaskPending,
			SubSpecID:          p.SubSpecID,
			Injected:           true,
			Provenance: &models.InjectionProvenance{
				Time:    now,
				Source:  p.Source,
				Actor:   p.Actor,
				Reason:  p.Reason,
				Trigger: p.Trigger,
			},
			Created: now,
			Updated: now,
		}
		nextIndex++
		stagedIDs[p.ID] = true
		accepted = append(accepted, task)
		outcomes[i] = InjectionOutcome{}
	}

	// Commit phase: the accepted subset is appended in one update. No task
	// is ever partially written.
	base := len(spec.Tasks)
	spec.Tasks = append(spec.Tasks, accepted...)
	j := 0
	for i := range outcomes {
		if outcomes[i].Rejection == nil {
			outcomes[i].Task = &spec.Tasks[base+j]
			j++
		}
	}
	return outcomes
}

// validate runs the pre-commit checks in order: identifier, parent index,
// sub-spec reference (existence, parent empty or already the owner, cycle),
// required fields.
func (c *InjectionController) validate(spec *models.Specification, p models.TaskProposal, existing, staged map[string]bool, now time.Time) *models.RejectionRecord {
	reject := func(reason models.RejectionReason, format string, args ...any) *models.RejectionRecord {
		return &models.RejectionRecord{
			Reason:   reason,
			Message:  fmt.Sprintf(format, args...),
			Time:     now,
			Proposal: p,
		}
	}

	if p.ID == "" || strings.ContainsAny(p.ID, " \t\n") {
		return reject(models.RejectDuplicateID, "proposal id %q is not a well-formed identifier", p.ID)
	}
	if existing[p.ID] || staged[p.ID] {
		return reject(models.RejectDuplicateID, "task id %q already exists in the specification forest", p.ID)
	}

	if p.ParentIndex != nil && spec.Task(*p.ParentIndex) == nil {
		return reject(models.RejectInvalidParent, "parent index %d does not exist in spec %s", *p.ParentIndex, spec.ID)
	}

	if p.SubSpecID != "" {
		child, ok := c.dir.Lookup(p.SubSpecID)
		if !ok {
			return reject(models.RejectMalformedProposal, "sub spec %q does not name an existing specification", p.SubSpecID)
		}
		if child.ParentSpecID != "" && child.ParentSpecID != spec.ID {
			return reject(models.RejectCycleDetected, "spec %s already has parent %s", p.SubSpecID, child.ParentSpecID)
		}
		if WouldCreateCycle(c.dir, spec.ID, p.SubSpecID) {
			return reject(models.RejectCycleDetected, "linking spec %s under %s would create a cycle", p.SubSpecID, spec.ID)
		}
	}

	var missing []string
	if strings.TrimSpace(p.Details) == "" {
		missing = append(missing, "details")
	}
	if strings.TrimSpace(p.AcceptanceCriteria) == "" {
		missing = append(missing, "acceptance_criteria")
	}
	if len(p.Files) == 0 {
		missing = append(missing, "files")
	}
	if len(missing) > 0 {
		return reject(models.RejectMalformedProposal, "missing required fields: %s", strings.Join(missing, ", "))
	}

	return nil
}
