package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sdd-tools/specflow/internal/gitx"
	"github.com/sdd-tools/specflow/internal/wferrors"
	"github.com/sdd-tools/specflow/pkg/models"
)

// SpecStore is the persistence port. The durable save must complete (or
// fail loudly) before a mutating operation returns success; the engine never
// reports success while a durability write is pending.
type SpecStore interface {
	Save(spec *models.Specification) error
	Load(specID string) (*models.Specification, error)
}

// EventRecorder receives audit events: task transitions, overrides,
// injection rejections, git warnings, persistence failures. A nil recorder
// disables auditing.
type EventRecorder interface {
	Record(eventType, level, message string, data map[string]any)
}

// Engine is the workflow state machine. It orchestrates specification-level
// and task-level transitions, invoking the sequencer, the approval gate, the
// injection controller, and the branch lifecycle port, and reports every new
// state to the persistence port before returning success.
//
// Locking: each specification has its own RWMutex, so different
// specifications mutate concurrently. Operations that need a consistent view
// of the whole parent/child forest (injection, expansion, creation with a
// parent) additionally hold graphMu exclusively; all other mutators hold
// graphMu shared. Lock order is always specification lock(s) in id order,
// then graphMu.
type Engine struct {
	cfg    *models.EngineConfig
	store  SpecStore
	git    gitx.BranchLifecycle
	events EventRecorder

	sequencer *StrictSequencer
	gate      *ApprovalGate
	injector  *InjectionController

	regMu   sync.RWMutex
	entries map[string]*specEntry

	graphMu sync.RWMutex
}

// specEntry is the lock-guarded per-specification aggregate in the arena.
type specEntry struct {
	mu   sync.RWMutex
	spec *models.Specification
}

// NewEngine wires a workflow engine. git may be a no-op adapter; events may
// be nil.
func NewEngine(cfg *models.EngineConfig, store SpecStore, git gitx.BranchLifecycle, events EventRecorder) *Engine {
	if cfg == nil {
		cfg = DefaultEngineConfig()
	}
	e := &Engine{
		cfg:       cfg,
		store:     store,
		git:       git,
		events:    events,
		sequencer: NewStrictSequencer(cfg.StrictSequencing),
		gate:      NewApprovalGate(cfg.RequiredApprovalLevel),
		entries:   make(map[string]*specEntry),
	}
	e.injector = NewInjectionController(e)
	return e
}

// Lookup implements SpecDirectory over the arena. Callers must hold graphMu
// (shared or exclusive) for a consistent cross-specification view.
func (e *Engine) Lookup(specID string) (*models.Specification, bool) {
	e.regMu.RLock()
	entry, ok := e.entries[specID]
	e.regMu.RUnlock()
	if !ok {
		return nil, false
	}
	return entry.spec, true
}

// getEntry returns the arena entry for a specification, loading it from the
// store on first access.
func (e *Engine) getEntry(specID string) (*specEntry, error) {
	e.regMu.RLock()
	entry, ok := e.entries[specID]
	e.regMu.RUnlock()
	if ok {
		return entry, nil
	}

	spec, err := e.store.Load(specID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", wferrors.ErrSpecNotFound, specID, err)
	}
	if err := ValidateIndexes(spec); err != nil {
		return nil, fmt.Errorf("loading %s: %w", specID, err)
	}

	e.regMu.Lock()
	defer e.regMu.Unlock()
	if existing, ok := e.entries[specID]; ok {
		return existing, nil
	}
	entry = &specEntry{spec: spec}
	e.entries[specID] = entry
	return entry, nil
}

// record emits an audit event if a recorder is configured.
func (e *Engine) record(eventType, level, message string, data map[string]any) {
	if e.events != nil {
		e.events.Record(eventType, level, message, data)
	}
}

// save persists the specification. On failure the in-memory state is rolled
// back to the pre-mutation snapshot and a PersistenceError is returned:
// the caller must assume the mutation did not take.
func (e *Engine) save(entry *specEntry, snapshot *models.Specification, op string) error {
	entry.spec.Updated = time.Now().UTC()
	if err := e.store.Save(entry.spec); err != nil {
		entry.spec = snapshot
		perr := &wferrors.PersistenceError{SpecID: snapshot.ID, Op: op, Err: err}
		e.record("persistence.error", "ERROR", perr.Error(), map[string]any{
			"spec_id": snapshot.ID, "op": op,
		})
		return perr
	}
	return nil
}

// CreateSpec registers a new specification from a validated task-list
// document. Task indices are assigned densely from zero in document order.
// A parent link is cycle-checked before the specification is committed.
func (e *Engine) CreateSpec(doc models.SpecDocument) (*models.Specification, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("creating specification: id must not be empty")
	}
	now := time.Now().UTC()

	spec := &models.Specification{
		ID:                doc.ID,
		Title:             doc.Title,
		Status:            models.SpecCreated,
		ParentSpecID:      doc.ParentSpecID,
		OriginalTaskCount: len(doc.Tasks),
		Created:           now,
		Updated:           now,
	}
	seen := make(map[string]bool, len(doc.Tasks))
	for i, seed := range doc.Tasks {
		if seed.ID == "" {
			return nil, fmt.Errorf("creating specification %s: task %d has no id", doc.ID, i)
		}
		if seen[seed.ID] {
			return nil, fmt.Errorf("creating specification %s: %w: %s", doc.ID, wferrors.ErrDuplicateID, seed.ID)
		}
		seen[seed.ID] = true
		spec.Tasks = append(spec.Tasks, models.Task{
			ID:                 seed.ID,
			SpecID:             doc.ID,
			StepIndex:          i,
			Title:              seed.Title,
			Details:            seed.Details,
			AcceptanceCriteria: seed.AcceptanceCriteria,
			Files:              append([]string(nil), seed.Files...),
			Status:             models.TaskPending,
			Created:            now,
			Updated:            now,
		})
	}

	// Resolve and lock the parent before the graph lock: specification locks
	// always come first, or a concurrent mutation on the parent (holding its
	// lock, waiting on graphMu) would deadlock against this creation.
	var parent *specEntry
	if doc.ParentSpecID != "" {
		var err error
		parent, err = e.getEntry(doc.ParentSpecID)
		if err != nil {
			return nil, fmt.Errorf("creating specification %s: parent: %w", doc.ID, err)
		}
		parent.mu.Lock()
		defer parent.mu.Unlock()
	}

	e.graphMu.Lock()
	defer e.graphMu.Unlock()

	e.regMu.Lock()
	if _, exists := e.entries[doc.ID]; exists {
		e.regMu.Unlock()
		return nil, fmt.Errorf("creating specification: %w: %s", wferrors.ErrDuplicateID, doc.ID)
	}
	e.regMu.Unlock()
	if existing, err := e.store.Load(doc.ID); err == nil && existing != nil {
		return nil, fmt.Errorf("creating specification: %w: %s", wferrors.ErrDuplicateID, doc.ID)
	}
	if parent != nil && WouldCreateCycle(e, doc.ParentSpecID, doc.ID) {
		return nil, fmt.Errorf("creating specification %s: %w", doc.ID, wferrors.ErrCycleDetected)
	}

	if err := e.store.Save(spec); err != nil {
		return nil, &wferrors.PersistenceError{SpecID: doc.ID, Op: "create", Err: err}
	}

	e.regMu.Lock()
	e.entries[doc.ID] = &specEntry{spec: spec}
	e.regMu.Unlock()

	if parent != nil {
		parentSnap := parent.spec.Clone()
		parent.spec.ChildSpecIDs = append(parent.spec.ChildSpecIDs, doc.ID)
		if err := e.save(parent, parentSnap, "link child"); err != nil {
			return nil, err
		}
	}

	e.record("spec.created", "INFO", fmt.Sprintf("specification %s created with %d tasks", doc.ID, len(doc.Tasks)),
		map[string]any{"spec_id": doc.ID, "tasks": len(doc.Tasks)})
	return spec.Clone(), nil
}

// StartTask transitions a pending task to in progress. In strict mode the
// sequencer requires every earlier task to be completed or approved unless
// overrideReason is non-empty, in which case the attempt is allowed and the
// justification is recorded on the task for audit. A feature branch named
// from the task id and title slug is requested from the branch port;
// branch-creation failure degrades to a warning and the task still starts.
func (e *Engine) StartTask(ctx context.Context, specID string, index int, overrideReason string) (*models.Result, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	spec := entry.spec
	task := spec.Task(index)
	if task == nil {
		return nil, fmt.Errorf("%w: %s[%d]", wferrors.ErrTaskNotFound, specID, index)
	}
	if err := CheckTaskTransition(task.Status, models.TaskInProgress); err != nil {
		return nil, err
	}
	// Sequencing is evaluated fresh against the full current ordering,
	// injected tasks included.
	if err := e.sequencer.MayStart(spec, index, overrideReason != ""); err != nil {
		return nil, err
	}

	snapshot := spec.Clone()
	now := time.Now().UTC()
	task.Status = models.TaskInProgress
	task.Updated = now
	if overrideReason != "" {
		task.OverrideReason = overrideReason
	}
	if spec.Status == models.SpecCreated {
		spec.Status = models.SpecInProgress
	}

	result := &models.Result{SpecID: specID, TaskIndex: index}
	branch := FormatBranchName(e.cfg.BranchPattern, specID, index, task.Title)
	warnings := e.createBranch(ctx, branch)
	if !hasBlockingBranchWarning(warnings) {
		task.Branch = branch
		result.Branch = branch
	}
	result.Warnings = warnings

	if err := e.save(entry, snapshot, "start"); err != nil {
		return nil, err
	}

	result.TaskStatus = task.Status
	result.SpecStatus = spec.Status
	data := map[string]any{"spec_id": specID, "index": index, "branch": task.Branch}
	if overrideReason != "" {
		data["override"] = overrideReason
		e.record("task.override", "WARN", fmt.Sprintf("task %s[%d] started out of sequence: %s", specID, index, overrideReason), data)
	}
	e.record("task.started", "INFO", fmt.Sprintf("task %s[%d] started", specID, index), data)
	return result, nil
}

// createBranch requests a feature branch, mapping every failure mode to a
// non-fatal warning. A dirty working tree is itself only a warning.
func (e *Engine) createBranch(ctx context.Context, name string) []models.Warning {
	var warnings []models.Warning

	gctx, cancel := context.WithTimeout(ctx, e.cfg.GitTimeout)
	defer cancel()

	if !e.git.IsRepository(gctx) {
		return e.warn(warnings, models.WarnNotARepository, "not inside a git repository; branch not created")
	}
	if dirty, err := e.git.HasUncommittedChanges(gctx); err == nil && dirty {
		warnings = e.warn(warnings, models.WarnDirtyWorkingTree, "working tree has uncommitted changes")
	}
	if err := e.git.CreateAndCheckout(gctx, name); err != nil {
		return e.warnFromGitError(warnings, err, fmt.Sprintf("creating branch %s", name))
	}
	return warnings
}

// warn appends and audits a git warning.
func (e *Engine) warn(warnings []models.Warning, code models.WarningCode, message string) []models.Warning {
	e.record("git.warning", "WARN", message, map[string]any{"code": string(code)})
	return append(warnings, models.Warning{Code: code, Message: message})
}

// warnFromGitError maps a branch port error onto a warning code.
func (e *Engine) warnFromGitError(warnings []models.Warning, err error, op string) []models.Warning {
	code := models.WarnGitUnavailable
	switch {
	case errors.Is(err, gitx.ErrNotARepository):
		code = models.WarnNotARepository
	case errors.Is(err, gitx.ErrBranchExists):
		code = models.WarnBranchAlreadyExists
	case errors.Is(err, gitx.ErrBranchNotFound):
		code = models.WarnBranchNotFound
	case errors.Is(err, gitx.ErrMergeConflict):
		code = models.WarnMergeConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		code = models.WarnGitTimeout
	}
	return e.warn(warnings, code, fmt.Sprintf("%s: %v", op, err))
}

// hasBlockingBranchWarning reports whether branch creation itself failed
// (as opposed to advisory warnings like a dirty tree), meaning no branch
// name should be recorded on the task.
func hasBlockingBranchWarning(warnings []models.Warning) bool {
	for _, w := range warnings {
		switch w.Code {
		case models.WarnDirtyWorkingTree:
			// advisory only
		default:
			return true
		}
	}
	return false
}

// CompleteTask transitions an in-progress task to completed. If merge is
// requested and the task has a branch, the branch is merged (no
// fast-forward) and, on success, deleted unless the caller or configuration
// asks to keep it. Merge failure never reverts the completed status; it is
// surfaced as a warning whose severity follows the configured merge policy.
func (e *Engine) CompleteTask(ctx context.Context, specID string, index int, notes string, merge, keepBranch bool) (*models.Result, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	spec := entry.spec
	task := spec.Task(index)
	if task == nil {
		return nil, fmt.Errorf("%w: %s[%d]", wferrors.ErrTaskNotFound, specID, index)
	}
	if err := CheckTaskTransition(task.Status, models.TaskCompleted); err != nil {
		return nil, err
	}

	snapshot := spec.Clone()
	now := time.Now().UTC()
	task.Status = models.TaskCompleted
	if notes != "" {
		task.Notes = notes
	}
	task.Updated = now

	result := &models.Result{SpecID: specID, TaskIndex: index, Branch: task.Branch}
	if merge && task.Branch != "" {
		result.Merged, result.BranchDeleted, result.Warnings = e.mergeBranch(ctx, task.Branch, keepBranch)
	}

	if err := e.save(entry, snapshot, "complete"); err != nil {
		return nil, err
	}

	result.TaskStatus = task.Status
	result.SpecStatus = spec.Status
	e.record("task.completed", "INFO", fmt.Sprintf("task %s[%d] completed", specID, index),
		map[string]any{"spec_id": specID, "index": index, "merged": result.Merged})
	return result, nil
}

// mergeBranch merges and optionally deletes a task branch, mapping every
// failure to a warning. Under the block merge policy a conflict is surfaced
// at error level, but the completion still stands; the branch is left in
// place for manual resolution either way.
func (e *Engine) mergeBranch(ctx context.Context, branch string, keepBranch bool) (merged, deleted bool, warnings []models.Warning) {
	gctx, cancel := context.WithTimeout(ctx, e.cfg.GitTimeout)
	defer cancel()

	if err := e.git.Merge(gctx, branch, true); err != nil {
		if errors.Is(err, gitx.ErrMergeConflict) && e.cfg.MergePolicy == models.MergePolicyBlock {
			e.record("git.warning", "ERROR", fmt.Sprintf("merge of %s conflicted; resolve before closing out", branch),
				map[string]any{"code": string(models.WarnMergeConflict), "branch": branch})
			return false, false, append(warnings, models.Warning{
				Code:    models.WarnMergeConflict,
				Message: fmt.Sprintf("merge of %s conflicted; resolve before closing out", branch),
			})
		}
		return false, false, e.warnFromGitError(warnings, err, fmt.Sprintf("merging branch %s", branch))
	}
	merged = true

	if keepBranch || e.cfg.KeepBranches {
		return merged, false, warnings
	}
	if err := e.git.Delete(gctx, branch); err != nil {
		return merged, false, e.warnFromGitError(warnings, err, fmt.Sprintf("deleting branch %s", branch))
	}
	return merged, true, warnings
}

// ApproveTask appends an approval record to a completed task. The record is
// immutable once created. Approval does not itself promote the task; see
// PromoteTask.
func (e *Engine) ApproveTask(specID string, index int, level models.ApprovalLevel, approver, comment string) (*models.Result, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	spec := entry.spec
	task := spec.Task(index)
	if task == nil {
		return nil, fmt.Errorf("%w: %s[%d]", wferrors.ErrTaskNotFound, specID, index)
	}
	if task.Status != models.TaskCompleted {
		return nil, &wferrors.InvalidTransitionError{Kind: "task", From: string(task.Status), To: "approval"}
	}
	if err := e.gate.ValidateLevel(level); err != nil {
		return nil, err
	}
	if approver == "" {
		approver = e.cfg.DefaultActor
	}

	snapshot := spec.Clone()
	now := time.Now().UTC()
	task.Approvals = append(task.Approvals, models.ApprovalRecord{
		Level:    level,
		Approver: approver,
		Time:     now,
		Comment:  comment,
	})
	task.Updated = now

	if err := e.save(entry, snapshot, "approve"); err != nil {
		return nil, err
	}

	e.record("task.approval_recorded", "INFO",
		fmt.Sprintf("task %s[%d] approved at %s by %s", specID, index, level, approver),
		map[string]any{"spec_id": specID, "index": index, "level": string(level), "approver": approver})
	return &models.Result{SpecID: specID, TaskIndex: index, TaskStatus: task.Status, SpecStatus: spec.Status}, nil
}

// PromoteTask promotes a completed task to approved, its terminal state.
// The approval gate requires a recorded approval at or above the configured
// level.
func (e *Engine) PromoteTask(specID string, index int) (*models.Result, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	spec := entry.spec
	task := spec.Task(index)
	if task == nil {
		return nil, fmt.Errorf("%w: %s[%d]", wferrors.ErrTaskNotFound, specID, index)
	}
	if err := CheckTaskTransition(task.Status, models.TaskApproved); err != nil {
		return nil, err
	}
	if err := e.gate.RequiredLevelSatisfied(task); err != nil {
		return nil, err
	}

	snapshot := spec.Clone()
	task.Status = models.TaskApproved
	task.Updated = time.Now().UTC()

	if err := e.save(entry, snapshot, "promote"); err != nil {
		return nil, err
	}

	e.record("task.promoted", "INFO", fmt.Sprintf("task %s[%d] promoted to approved", specID, index),
		map[string]any{"spec_id": specID, "index": index})
	return &models.Result{SpecID: specID, TaskIndex: index, TaskStatus: task.Status, SpecStatus: spec.Status}, nil
}

// RejectTask returns a completed task to pending, recording the reason.
// Prior approval records are preserved for the audit trail.
func (e *Engine) RejectTask(specID string, index int, reason string) (*models.Result, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	spec := entry.spec
	task := spec.Task(index)
	if task == nil {
		return nil, fmt.Errorf("%w: %s[%d]", wferrors.ErrTaskNotFound, specID, index)
	}
	if task.Status != models.TaskCompleted {
		return nil, &wferrors.InvalidTransitionError{Kind: "task", From: string(task.Status), To: "rejection"}
	}

	snapshot := spec.Clone()
	task.Status = models.TaskPending
	task.RejectionReason = reason
	task.Updated = time.Now().UTC()

	if err := e.save(entry, snapshot, "reject"); err != nil {
		return nil, err
	}

	e.record("task.rejected", "INFO", fmt.Sprintf("task %s[%d] rejected: %s", specID, index, reason),
		map[string]any{"spec_id": specID, "index": index, "reason": reason})
	return &models.Result{SpecID: specID, TaskIndex: index, TaskStatus: task.Status, SpecStatus: spec.Status}, nil
}

// BlockTask flags a non-terminal task as blocked with a required reason.
// Blocking has no branch side effects.
func (e *Engine) BlockTask(specID string, index int, reason string) (*models.Result, error) {
	if reason == "" {
		return nil, fmt.Errorf("blocking %s[%d]: a reason is required", specID, index)
	}
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	spec := entry.spec
	task := spec.Task(index)
	if task == nil {
		return nil, fmt.Errorf("%w: %s[%d]", wferrors.ErrTaskNotFound, specID, index)
	}
	if err := CheckTaskTransition(task.Status, models.TaskBlocked); err != nil {
		return nil, err
	}

	snapshot := spec.Clone()
	task.Status = models.TaskBlocked
	task.BlockReason = reason
	task.Updated = time.Now().UTC()

	if err := e.save(entry, snapshot, "block"); err != nil {
		return nil, err
	}

	e.record("task.blocked", "WARN", fmt.Sprintf("task %s[%d] blocked: %s", specID, index, reason),
		map[string]any{"spec_id": specID, "index": index, "reason": reason})
	return &models.Result{SpecID: specID, TaskIndex: index, TaskStatus: task.Status, SpecStatus: spec.Status}, nil
}

// UnblockTask returns a blocked task to pending and clears the block reason.
func (e *Engine) UnblockTask(specID string, index int) (*models.Result, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	spec := entry.spec
	task := spec.Task(index)
	if task == nil {
		return nil, fmt.Errorf("%w: %s[%d]", wferrors.ErrTaskNotFound, specID, index)
	}
	if task.Status != models.TaskBlocked {
		return nil, &wferrors.InvalidTransitionError{Kind: "task", From: string(task.Status), To: string(models.TaskPending)}
	}

	snapshot := spec.Clone()
	task.Status = models.TaskPending
	task.BlockReason = ""
	task.Updated = time.Now().UTC()

	if err := e.save(entry, snapshot, "unblock"); err != nil {
		return nil, err
	}

	e.record("task.unblocked", "INFO", fmt.Sprintf("task %s[%d] unblocked", specID, index),
		map[string]any{"spec_id": specID, "index": index})
	return &models.Result{SpecID: specID, TaskIndex: index, TaskStatus: task.Status, SpecStatus: spec.Status}, nil
}

// InjectTask validates and commits a single externally proposed task. On
// rejection a RejectionRecord is returned inside the outcome and appended to
// the audit log; the graph is unchanged.
func (e *Engine) InjectTask(specID string, proposal models.TaskProposal) (InjectionOutcome, error) {
	outcomes, err := e.InjectTasks(specID, []models.TaskProposal{proposal})
	if err != nil {
		return InjectionOutcome{}, err
	}
	return outcomes[0], nil
}

// InjectTasks processes a batch of proposals. Proposals are validated
// independently; the accepted subset is committed atomically and persisted
// in a single save. If the save fails the whole batch is rolled back, so a
// crash-retry replays cleanly: already committed proposal ids are rejected
// as duplicates rather than appended twice. An accepted proposal carrying a
// sub-spec reference links both sides: the referenced specification's parent
// is set to the owning specification and the owner's child list gains it.
func (e *Engine) InjectTasks(specID string, proposals []models.TaskProposal) ([]InjectionOutcome, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}

	// Resolve referenced sub-specifications into the arena before locking so
	// validation can see them and their locks can be taken in id order with
	// the owner's. A reference that fails to load stays unresolved and is
	// rejected during validation.
	children := make(map[string]*specEntry)
	for _, p := range proposals {
		if p.SubSpecID == "" || p.SubSpecID == specID {
			continue
		}
		if _, ok := children[p.SubSpecID]; ok {
			continue
		}
		if child, cerr := e.getEntry(p.SubSpecID); cerr == nil {
			children[p.SubSpecID] = child
		}
	}

	ids := make([]string, 0, len(children)+1)
	ids = append(ids, specID)
	for id := range children {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		en := entry
		if id != specID {
			en = children[id]
		}
		en.mu.Lock()
		defer en.mu.Unlock()
	}

	// Injection validates against the whole forest; hold the graph lock
	// exclusively for a consistent snapshot.
	e.graphMu.Lock()
	defer e.graphMu.Unlock()

	spec := entry.spec
	snapshot := spec.Clone()
	outcomes := e.injector.InjectBatch(spec, proposals)

	accepted := 0
	childSnaps := make(map[string]*models.Specification)
	for _, o := range outcomes {
		if o.Rejection != nil {
			e.record("injection.rejected", "WARN",
				fmt.Sprintf("proposal %q rejected: %s", o.Rejection.Proposal.ID, o.Rejection.Message),
				map[string]any{"spec_id": specID, "reason": string(o.Rejection.Reason), "proposal_id": o.Rejection.Proposal.ID})
			continue
		}
		accepted++
		if o.Task.SubSpecID != "" {
			child := children[o.Task.SubSpecID]
			if _, ok := childSnaps[o.Task.SubSpecID]; !ok {
				childSnaps[o.Task.SubSpecID] = child.spec.Clone()
			}
			child.spec.ParentSpecID = specID
			if !containsString(spec.ChildSpecIDs, o.Task.SubSpecID) {
				spec.ChildSpecIDs = append(spec.ChildSpecIDs, o.Task.SubSpecID)
			}
		}
	}

	if accepted > 0 {
		// Linked children carry the parent reference and save first; the
		// owner's task list goes last, so a failed save never leaves a
		// durable sub_spec_id without its parent side. A child saved before
		// a later failure keeps its durable link; replaying the batch
		// completes the owner side.
		var linked []string
		for _, id := range ids {
			if _, ok := childSnaps[id]; ok {
				linked = append(linked, id)
			}
		}
		for i, id := range linked {
			if err := e.save(children[id], childSnaps[id], "inject"); err != nil {
				for _, rest := range linked[i+1:] {
					children[rest].spec = childSnaps[rest]
				}
				entry.spec = snapshot
				return nil, err
			}
		}
		if err := e.save(entry, snapshot, "inject"); err != nil {
			return nil, err
		}
	}

	// Detach outcomes from the live graph before the locks release.
	for i := range outcomes {
		if outcomes[i].Task != nil {
			t := *outcomes[i].Task
			t.Files = append([]string(nil), outcomes[i].Task.Files...)
			outcomes[i].Task = &t
			e.record("task.injected", "INFO",
				fmt.Sprintf("task %q injected into %s at index %d", t.ID, specID, t.StepIndex),
				map[string]any{"spec_id": specID, "index": t.StepIndex, "source": string(t.Provenance.Source)})
		}
	}
	return outcomes, nil
}

// ExpandTask links a task to an existing child specification, setting the
// task's sub-spec reference and the child's parent reference. The new edge
// is cycle-checked before commit; the child's parent must end up equal to
// the owning specification.
func (e *Engine) ExpandTask(specID string, index int, childSpecID string) error {
	if specID == childSpecID {
		return fmt.Errorf("expanding %s[%d]: %w", specID, index, wferrors.ErrCycleDetected)
	}
	entry, err := e.getEntry(specID)
	if err != nil {
		return err
	}
	child, err := e.getEntry(childSpecID)
	if err != nil {
		return err
	}

	// Fixed lock order: specification locks in id order, then the graph lock.
	first, second := entry, child
	if childSpecID < specID {
		first, second = child, entry
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()
	e.graphMu.Lock()
	defer e.graphMu.Unlock()

	task := entry.spec.Task(index)
	if task == nil {
		return fmt.Errorf("%w: %s[%d]", wferrors.ErrTaskNotFound, specID, index)
	}
	if task.SubSpecID != "" {
		return fmt.Errorf("expanding %s[%d]: already linked to %s", specID, index, task.SubSpecID)
	}
	if child.spec.ParentSpecID != "" && child.spec.ParentSpecID != specID {
		return fmt.Errorf("expanding %s[%d]: spec %s already has parent %s", specID, index, childSpecID, child.spec.ParentSpecID)
	}
	if WouldCreateCycle(e, specID, childSpecID) {
		return fmt.Errorf("expanding %s[%d]: %w", specID, index, wferrors.ErrCycleDetected)
	}

	parentSnap := entry.spec.Clone()
	childSnap := child.spec.Clone()
	now := time.Now().UTC()

	task.SubSpecID = childSpecID
	task.Updated = now
	if !containsString(entry.spec.ChildSpecIDs, childSpecID) {
		entry.spec.ChildSpecIDs = append(entry.spec.ChildSpecIDs, childSpecID)
	}
	child.spec.ParentSpecID = specID

	// The child carries the parent reference and saves first; the owner's
	// sub_spec_id goes last, so a failed save never leaves a durable task
	// link without its parent side. If only the child save lands, re-running
	// the expansion completes the owner side.
	if err := e.save(child, childSnap, "expand"); err != nil {
		entry.spec = parentSnap
		return err
	}
	if err := e.save(entry, parentSnap, "expand"); err != nil {
		return err
	}

	e.record("task.expanded", "INFO", fmt.Sprintf("task %s[%d] expanded into spec %s", specID, index, childSpecID),
		map[string]any{"spec_id": specID, "index": index, "child_spec_id": childSpecID})
	return nil
}

// TransitionSpec moves a specification to the given workflow status per the
// closed transition table. Entering completed requires every task to be
// completed or approved. Guards here are purely status-derived aggregates;
// no branch side effects happen at specification level.
func (e *Engine) TransitionSpec(specID string, to models.WorkflowStatus) (*models.Result, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	spec := entry.spec
	if err := CheckSpecTransition(spec.Status, to); err != nil {
		return nil, err
	}
	if to == models.SpecCompleted {
		for i := range spec.Tasks {
			if !spec.Tasks[i].Status.IsDone() {
				return nil, fmt.Errorf("completing spec %s: task %d is %s",
					specID, spec.Tasks[i].StepIndex, spec.Tasks[i].Status)
			}
		}
	}

	snapshot := spec.Clone()
	spec.Status = to

	if err := e.save(entry, snapshot, "transition"); err != nil {
		return nil, err
	}

	e.record("spec.transitioned", "INFO", fmt.Sprintf("spec %s moved to %s", specID, to),
		map[string]any{"spec_id": specID, "status": string(to)})
	return &models.Result{SpecID: specID, SpecStatus: spec.Status}, nil
}

// HoldSpec puts a non-terminal specification on hold, remembering the
// interrupted status.
func (e *Engine) HoldSpec(specID string) (*models.Result, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	spec := entry.spec
	if spec.Status.IsTerminal() || spec.Status == models.SpecOnHold {
		return nil, &wferrors.InvalidTransitionError{Kind: "specification", From: string(spec.Status), To: string(models.SpecOnHold)}
	}

	snapshot := spec.Clone()
	spec.HeldStatus = spec.Status
	spec.Status = models.SpecOnHold

	if err := e.save(entry, snapshot, "hold"); err != nil {
		return nil, err
	}

	e.record("spec.held", "INFO", fmt.Sprintf("spec %s put on hold (was %s)", specID, spec.HeldStatus),
		map[string]any{"spec_id": specID, "held_status": string(spec.HeldStatus)})
	return &models.Result{SpecID: specID, SpecStatus: spec.Status}, nil
}

// ResumeSpec resumes a held specification at the status it interrupted.
func (e *Engine) ResumeSpec(specID string) (*models.Result, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	spec := entry.spec
	if spec.Status != models.SpecOnHold {
		return nil, &wferrors.InvalidTransitionError{Kind: "specification", From: string(spec.Status), To: string(spec.HeldStatus)}
	}

	snapshot := spec.Clone()
	spec.Status = spec.HeldStatus
	spec.HeldStatus = ""

	if err := e.save(entry, snapshot, "resume"); err != nil {
		return nil, err
	}

	e.record("spec.resumed", "INFO", fmt.Sprintf("spec %s resumed at %s", specID, spec.Status),
		map[string]any{"spec_id": specID, "status": string(spec.Status)})
	return &models.Result{SpecID: specID, SpecStatus: spec.Status}, nil
}

// GetWorkflowStatus returns a consistent read-only snapshot of a
// specification and its tasks. Reads proceed concurrently with other reads
// but never interleave with a mutation on the same specification.
func (e *Engine) GetWorkflowStatus(specID string) (*models.StatusSnapshot, error) {
	entry, err := e.getEntry(specID)
	if err != nil {
		return nil, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()

	spec := entry.spec
	snap := &models.StatusSnapshot{
		SpecID:       spec.ID,
		Title:        spec.Title,
		Status:       spec.Status,
		HeldStatus:   spec.HeldStatus,
		ParentSpecID: spec.ParentSpecID,
		ChildSpecIDs: append([]string(nil), spec.ChildSpecIDs...),
		TotalTasks:   len(spec.Tasks),
		Taken:        time.Now().UTC(),
	}
	tasks := OrderedTasks(spec)
	snap.Tasks = make([]models.TaskSnapshot, 0, len(tasks))
	for _, t := range tasks {
		if t.Status.IsDone() {
			snap.DoneTasks++
		}
		if t.Injected {
			snap.InjectedTasks++
		}
		snap.Tasks = append(snap.Tasks, models.TaskSnapshot{
			StepIndex: t.StepIndex,
			ID:        t.ID,
			Title:     t.Title,
			Status:    t.Status,
			Branch:    t.Branch,
			Injected:  t.Injected,
			Approvals: append([]models.ApprovalRecord(nil), t.Approvals...),
			SubSpecID: t.SubSpecID,
		})
	}
	return snap, nil
}

// SpecIDs returns the ids of all specifications currently in the arena,
// sorted.
func (e *Engine) SpecIDs() []string {
	e.regMu.RLock()
	defer e.regMu.RUnlock()
	ids := make([]string, 0, len(e.entries))
	for id := range e.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
