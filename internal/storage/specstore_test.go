package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sdd-tools/specflow/pkg/models"
)

func sampleSpec(id string) *models.Specification {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &models.Specification{
		ID:                id,
		Title:             "Sample",
		Status:            models.SpecInProgress,
		OriginalTaskCount: 2,
		Created:           now,
		Updated:           now,
		Tasks: []models.Task{
			{
				ID: "t-0", SpecID: id, StepIndex: 0, Title: "First",
				Status: models.TaskApproved,
				Approvals: []models.ApprovalRecord{
					{Level: models.ApprovalPeer, Approver: "bob", Time: now},
				},
				Branch: "feature/" + id + "-0_first",
			},
			{
				ID: "t-1", SpecID: id, StepIndex: 1, Title: "Second",
				Status: models.TaskPending,
			},
		},
	}
}

func TestSpecStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewSpecStore(t.TempDir())
	want := sampleSpec("auth")
	want.Tasks = append(want.Tasks, models.Task{
		ID: "t-inj", SpecID: "auth", StepIndex: 2, Status: models.TaskPending,
		Injected: true,
		Provenance: &models.InjectionProvenance{
			Time: want.Created, Source: models.SourceAI, Actor: "assistant",
		},
	})

	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load("auth")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.ID != want.ID || got.Status != want.Status || got.OriginalTaskCount != want.OriginalTaskCount {
		t.Errorf("spec header = %+v", got)
	}
	if len(got.Tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(got.Tasks))
	}
	if got.Tasks[0].Status != models.TaskApproved || len(got.Tasks[0].Approvals) != 1 {
		t.Errorf("task 0 = %+v, approvals lost", got.Tasks[0])
	}
	if got.Tasks[0].Approvals[0].Approver != "bob" {
		t.Errorf("approver = %q", got.Tasks[0].Approvals[0].Approver)
	}
	inj := got.Tasks[2]
	if !inj.Injected || inj.Provenance == nil || inj.Provenance.Source != models.SourceAI {
		t.Errorf("injected task provenance lost: %+v", inj)
	}
}

func TestSpecStore_SaveReplacesPrevious(t *testing.T) {
	store := NewSpecStore(t.TempDir())
	spec := sampleSpec("auth")
	if err := store.Save(spec); err != nil {
		t.Fatal(err)
	}
	spec.Status = models.SpecTesting
	if err := store.Save(spec); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load("auth")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.SpecTesting {
		t.Errorf("Status = %s, want testing", got.Status)
	}
}

func TestSpecStore_LoadMissing(t *testing.T) {
	store := NewSpecStore(t.TempDir())
	if _, err := store.Load("ghost"); err == nil {
		t.Error("Load of a missing spec succeeded")
	}
}

func TestSpecStore_RejectsEmptyID(t *testing.T) {
	store := NewSpecStore(t.TempDir())
	if err := store.Save(&models.Specification{}); err == nil {
		t.Error("Save of an id-less spec succeeded")
	}
}

func TestSpecStore_List(t *testing.T) {
	dir := t.TempDir()
	store := NewSpecStore(dir)

	ids, err := store.List()
	if err != nil || ids != nil {
		t.Fatalf("List on empty store = %v, %v", ids, err)
	}

	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := store.Save(sampleSpec(id)); err != nil {
			t.Fatal(err)
		}
	}
	// Stray files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "specs", "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	ids, err = store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(ids) != len(want) {
		t.Fatalf("List = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestSpecStore_SanitizesPathLikeIDs(t *testing.T) {
	dir := t.TempDir()
	store := NewSpecStore(dir)
	spec := sampleSpec("team/auth")
	if err := store.Save(spec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "specs", "team_auth.yaml")); err != nil {
		t.Errorf("sanitized document missing: %v", err)
	}
	got, err := store.Load("team/auth")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != "team/auth" {
		t.Errorf("ID = %q, want team/auth", got.ID)
	}
}
