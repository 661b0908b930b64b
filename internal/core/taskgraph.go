package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/sdd-tools/specflow/pkg/models"
)

// SpecDirectory resolves specification ids to specifications. The engine's
// arena implements it; tests substitute a map-backed lookup. Parent/child
// links are stored as ids and resolved through this interface, never as
// direct object references.
type SpecDirectory interface {
	Lookup(specID string) (*models.Specification, bool)
}

// NextIndex returns the step index the next appended task will receive:
// one past the highest index currently present.
func NextIndex(spec *models.Specification) int {
	next := 0
	for i := range spec.Tasks {
		if spec.Tasks[i].StepIndex >= next {
			next = spec.Tasks[i].StepIndex + 1
		}
	}
	return next
}

// ValidateIndexes checks the structural index invariant: original tasks
// occupy exactly {0..n-1} and injected tasks hold strictly increasing
// indices appended after n, with no gaps or duplicates anywhere.
func ValidateIndexes(spec *models.Specification) error {
	seen := make(map[int]bool, len(spec.Tasks))
	for i := range spec.Tasks {
		idx := spec.Tasks[i].StepIndex
		if seen[idx] {
			return fmt.Errorf("spec %s: duplicate step index %d", spec.ID, idx)
		}
		seen[idx] = true
	}
	for i := 0; i < len(spec.Tasks); i++ {
		if !seen[i] {
			return fmt.Errorf("spec %s: missing step index %d", spec.ID, i)
		}
	}
	if spec.OriginalTaskCount > len(spec.Tasks) {
		return fmt.Errorf("spec %s: original task count %d exceeds task count %d",
			spec.ID, spec.OriginalTaskCount, len(spec.Tasks))
	}
	for i := range spec.Tasks {
		t := &spec.Tasks[i]
		if t.Injected && t.StepIndex < spec.OriginalTaskCount {
			return fmt.Errorf("spec %s: injected task at original index %d", spec.ID, t.StepIndex)
		}
		if !t.Injected && t.StepIndex >= spec.OriginalTaskCount {
			return fmt.Errorf("spec %s: original task at injected index %d", spec.ID, t.StepIndex)
		}
	}
	return nil
}

// OrderedTasks returns the spec's tasks sorted by step index. The stored
// slice is kept in index order by AppendTask, but callers that must not
// depend on storage order use this.
func OrderedTasks(spec *models.Specification) []*models.Task {
	out := make([]*models.Task, 0, len(spec.Tasks))
	for i := range spec.Tasks {
		out = append(out, &spec.Tasks[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepIndex < out[j].StepIndex })
	return out
}

// AppendTask appends a task at the next available index and returns a
// pointer to the stored task.
func AppendTask(spec *models.Specification, task models.Task) *models.Task {
	task.SpecID = spec.ID
	task.StepIndex = NextIndex(spec)
	spec.Tasks = append(spec.Tasks, task)
	return &spec.Tasks[len(spec.Tasks)-1]
}

// forestTaskIDs collects every task id reachable from the given
// specification: the spec itself, its ancestors, and all descendants,
// resolved through the directory. Used for duplicate-id validation.
func forestTaskIDs(dir SpecDirectory, spec *models.Specification) map[string]bool {
	ids := make(map[string]bool)
	root := spec
	// Walk up to the root of the forest.
	visited := map[string]bool{root.ID: true}
	for root.ParentSpecID != "" {
		parent, ok := dir.Lookup(root.ParentSpecID)
		if !ok || visited[parent.ID] {
			break
		}
		visited[parent.ID] = true
		root = parent
	}
	// Walk down collecting ids.
	var walk func(s *models.Specification)
	seen := make(map[string]bool)
	walk = func(s *models.Specification) {
		if seen[s.ID] {
			return
		}
		seen[s.ID] = true
		for i := range s.Tasks {
			ids[s.Tasks[i].ID] = true
		}
		for _, childID := range s.ChildSpecIDs {
			if child, ok := dir.Lookup(childID); ok {
				walk(child)
			}
		}
	}
	walk(root)
	// The spec under mutation may not be reachable from the discovered root
	// if links are partially set up; include it directly.
	walk(spec)
	return ids
}

// WouldCreateCycle reports whether adding childID under parentID would
// create a cycle in the parent/child specification graph. The check walks
// the parent chain from parentID to the root looking for childID.
func WouldCreateCycle(dir SpecDirectory, parentID, childID string) bool {
	if parentID == childID {
		return true
	}
	visited := make(map[string]bool)
	cur := parentID
	for cur != "" && !visited[cur] {
		visited[cur] = true
		if cur == childID {
			return true
		}
		spec, ok := dir.Lookup(cur)
		if !ok {
			return false
		}
		cur = spec.ParentSpecID
	}
	return false
}

// Fingerprint returns a structural hash of the specification's task graph:
// task ids, indices, statuses, links, and counts. Two calls return the same
// value iff no observable graph mutation occurred between them.
func Fingerprint(spec *models.Specification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%s|", spec.ID, spec.Status, spec.OriginalTaskCount, spec.ParentSpecID)
	children := append([]string(nil), spec.ChildSpecIDs...)
	sort.Strings(children)
	b.WriteString(strings.Join(children, ","))
	for _, t := range OrderedTasks(spec) {
		fmt.Fprintf(&b, "|%d:%s:%s:%s:%v:%d", t.StepIndex, t.ID, t.Status, t.SubSpecID, t.Injected, len(t.Approvals))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
