package core

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/sdd-tools/specflow/pkg/models"
)

// Feature: specflow, Property: Index Density Under Injection
// After any sequence of injection batches with arbitrary (possibly
// colliding or malformed) proposals, the task indices remain dense, original
// tasks keep {0..n-1}, and accepted tasks equal the outcome count.
func TestProperty_IndexDensityUnderInjection(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		originals := rapid.IntRange(0, 5).Draw(rt, "originals")
		spec := &models.Specification{ID: "spec-p", OriginalTaskCount: originals}
		for i := 0; i < originals; i++ {
			spec.Tasks = append(spec.Tasks, models.Task{
				ID: fmt.Sprintf("orig-%d", i), SpecID: spec.ID, StepIndex: i,
				Status: models.TaskPending,
			})
		}
		ctl := NewInjectionController(mapDirectory{spec.ID: spec})

		batches := rapid.IntRange(1, 4).Draw(rt, "batches")
		totalAccepted := 0
		for b := 0; b < batches; b++ {
			size := rapid.IntRange(1, 5).Draw(rt, fmt.Sprintf("size%d", b))
			var proposals []models.TaskProposal
			for i := 0; i < size; i++ {
				p := validProposal(rapid.SampledFrom([]string{
					"orig-0", "p-a", "p-b", "p-c", "p-d", "bad id", "",
				}).Draw(rt, fmt.Sprintf("id%d_%d", b, i)))
				if rapid.Bool().Draw(rt, fmt.Sprintf("malform%d_%d", b, i)) {
					p.Details = ""
				}
				proposals = append(proposals, p)
			}
			for _, o := range ctl.InjectBatch(spec, proposals) {
				if o.Task != nil {
					totalAccepted++
				}
			}
		}

		if err := ValidateIndexes(spec); err != nil {
			t.Fatalf("index invariant broken: %v", err)
		}
		if len(spec.Tasks) != originals+totalAccepted {
			t.Fatalf("task count = %d, want %d originals + %d accepted",
				len(spec.Tasks), originals, totalAccepted)
		}
		for i := 0; i < originals; i++ {
			task := spec.Task(i)
			if task == nil || task.Injected {
				t.Fatalf("original slot %d disturbed: %+v", i, task)
			}
		}
	})
}
