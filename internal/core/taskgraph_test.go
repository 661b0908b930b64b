package core

import (
	"strings"
	"testing"

	"github.com/sdd-tools/specflow/pkg/models"
)

// mapDirectory implements SpecDirectory over a map for tests.
type mapDirectory map[string]*models.Specification

func (d mapDirectory) Lookup(specID string) (*models.Specification, bool) {
	spec, ok := d[specID]
	return spec, ok
}

func TestNextIndex(t *testing.T) {
	spec := specWithStatuses(models.TaskPending, models.TaskPending, models.TaskPending)
	if got := NextIndex(spec); got != 3 {
		t.Errorf("NextIndex = %d, want 3", got)
	}
	if got := NextIndex(&models.Specification{ID: "empty"}); got != 0 {
		t.Errorf("NextIndex(empty) = %d, want 0", got)
	}
}

func TestValidateIndexes(t *testing.T) {
	spec := specWithStatuses(models.TaskPending, models.TaskPending)
	if err := ValidateIndexes(spec); err != nil {
		t.Fatalf("valid spec: %v", err)
	}

	dup := specWithStatuses(models.TaskPending, models.TaskPending)
	dup.Tasks[1].StepIndex = 0
	if err := ValidateIndexes(dup); err == nil {
		t.Error("duplicate index accepted")
	}

	gap := specWithStatuses(models.TaskPending, models.TaskPending)
	gap.Tasks[1].StepIndex = 5
	if err := ValidateIndexes(gap); err == nil {
		t.Error("index gap accepted")
	}

	misplaced := specWithStatuses(models.TaskPending, models.TaskPending)
	misplaced.Tasks[1].Injected = true
	if err := ValidateIndexes(misplaced); err == nil {
		t.Error("injected task inside the original range accepted")
	}

	appended := specWithStatuses(models.TaskPending, models.TaskPending)
	appended.Tasks = append(appended.Tasks, models.Task{ID: "x", StepIndex: 2, Injected: true})
	if err := ValidateIndexes(appended); err != nil {
		t.Errorf("injected task after original range rejected: %v", err)
	}
}

func TestAppendTask_AssignsNextIndexAndSpecID(t *testing.T) {
	spec := specWithStatuses(models.TaskPending)
	stored := AppendTask(spec, models.Task{ID: "new", Status: models.TaskPending})
	if stored.StepIndex != 1 {
		t.Errorf("StepIndex = %d, want 1", stored.StepIndex)
	}
	if stored.SpecID != spec.ID {
		t.Errorf("SpecID = %q, want %q", stored.SpecID, spec.ID)
	}
}

func TestForestTaskIDs_CoversAncestorsAndDescendants(t *testing.T) {
	root := &models.Specification{ID: "root", ChildSpecIDs: []string{"mid"},
		Tasks: []models.Task{{ID: "r0", StepIndex: 0}}}
	mid := &models.Specification{ID: "mid", ParentSpecID: "root", ChildSpecIDs: []string{"leaf"},
		Tasks: []models.Task{{ID: "m0", StepIndex: 0}}}
	leaf := &models.Specification{ID: "leaf", ParentSpecID: "mid",
		Tasks: []models.Task{{ID: "l0", StepIndex: 0}}}
	dir := mapDirectory{"root": root, "mid": mid, "leaf": leaf}

	ids := forestTaskIDs(dir, mid)
	for _, want := range []string{"r0", "m0", "l0"} {
		if !ids[want] {
			t.Errorf("forestTaskIDs missing %q", want)
		}
	}
}

func TestWouldCreateCycle(t *testing.T) {
	root := &models.Specification{ID: "root", ChildSpecIDs: []string{"mid"}}
	mid := &models.Specification{ID: "mid", ParentSpecID: "root"}
	dir := mapDirectory{"root": root, "mid": mid}

	if !WouldCreateCycle(dir, "a", "a") {
		t.Error("self link must be a cycle")
	}
	if !WouldCreateCycle(dir, "mid", "root") {
		t.Error("linking an ancestor under a descendant must be a cycle")
	}
	if WouldCreateCycle(dir, "mid", "fresh") {
		t.Error("linking an unrelated spec must not be a cycle")
	}
}

func TestFingerprint_SensitiveToGraphChanges(t *testing.T) {
	spec := specWithStatuses(models.TaskPending, models.TaskPending)
	before := Fingerprint(spec)

	if Fingerprint(spec) != before {
		t.Fatal("fingerprint must be stable without mutation")
	}

	spec.Tasks[0].Status = models.TaskInProgress
	if Fingerprint(spec) == before {
		t.Error("status change must alter the fingerprint")
	}
	spec.Tasks[0].Status = models.TaskPending
	if Fingerprint(spec) != before {
		t.Error("reverting the change must restore the fingerprint")
	}

	AppendTask(spec, models.Task{ID: "extra"})
	if Fingerprint(spec) == before {
		t.Error("appending a task must alter the fingerprint")
	}
}

func TestFingerprint_IgnoresStorageOrder(t *testing.T) {
	spec := specWithStatuses(models.TaskPending, models.TaskCompleted)
	before := Fingerprint(spec)
	spec.Tasks[0], spec.Tasks[1] = spec.Tasks[1], spec.Tasks[0]
	if Fingerprint(spec) != before {
		t.Error("fingerprint must not depend on slice order")
	}
}

func TestOrderedTasks_SortsByStepIndex(t *testing.T) {
	spec := &models.Specification{ID: "s", Tasks: []models.Task{
		{ID: "b", StepIndex: 1},
		{ID: "a", StepIndex: 0},
		{ID: "c", StepIndex: 2},
	}}
	var got []string
	for _, task := range OrderedTasks(spec) {
		got = append(got, task.ID)
	}
	if strings.Join(got, "") != "abc" {
		t.Errorf("OrderedTasks = %v, want [a b c]", got)
	}
}
