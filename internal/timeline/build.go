// Package timeline reconstructs the Stage → Job → Task tree of a run from the
// flat record list the build service reports, and rolls status up across it.
package timeline

import (
	"slices"
	"time"

	"github.com/waabox/azdeck/internal/domain"
)

// TaskNode is a leaf of the run tree.
type TaskNode struct {
	Name         string
	State        domain.State
	Result       domain.Result
	Order        *int
	LogID        *int
	Duration     time.Duration
	ErrorCount   int
	WarningCount int
}

// JobNode groups the tasks of one job.
type JobNode struct {
	Name         string
	State        domain.State
	Result       domain.Result
	Order        *int
	LogID        *int
	Duration     time.Duration
	ErrorCount   int
	WarningCount int
	Tasks        []TaskNode
}

// StageNode groups the jobs of one stage.
type StageNode struct {
	Name     string
	State    domain.State
	Result   domain.Result
	Order    *int
	LogID    *int
	Duration time.Duration
	Jobs     []JobNode
}

// RunTimeline is the tree of one run, rebuilt from scratch on every fetch.
type RunTimeline struct {
	Stages []StageNode
}

// Empty reports whether the timeline has no stages.
func (t RunTimeline) Empty() bool {
	return len(t.Stages) == 0
}

// entry is a record with its position in the input, used to break order ties.
type entry struct {
	rec domain.TimelineRecord
	seq int
}

// index is the adjacency view of one fetch: parent id to ordered children.
type index struct {
	children map[string][]entry
	stages   []entry
}

// Build reconstructs the run tree from the full record set of one fetch.
// Records of types other than Stage, Job and Task are skipped through, however
// deeply nested. Records whose parent is missing are treated as roots, so only
// orphaned stages remain visible. Build never fails: no records, no stages.
func Build(records []domain.TimelineRecord) RunTimeline {
	idx := newIndex(records)

	stages := make([]StageNode, 0, len(idx.stages))
	for _, s := range idx.stages {
		jobs := idx.collect(s.rec.ID, domain.RecordJob)
		stage := StageNode{
			Name:     s.rec.Name,
			State:    s.rec.State,
			Result:   s.rec.Result,
			Order:    s.rec.Order,
			LogID:    s.rec.LogID,
			Duration: s.rec.Duration(),
			Jobs:     make([]JobNode, 0, len(jobs)),
		}
		for _, j := range jobs {
			tasks := idx.collect(j.rec.ID, domain.RecordTask)
			job := JobNode{
				Name:         j.rec.Name,
				State:        j.rec.State,
				Result:       j.rec.Result,
				Order:        j.rec.Order,
				LogID:        j.rec.LogID,
				Duration:     j.rec.Duration(),
				ErrorCount:   j.rec.ErrorCount,
				WarningCount: j.rec.WarningCount,
				Tasks:        make([]TaskNode, 0, len(tasks)),
			}
			for _, tk := range tasks {
				job.Tasks = append(job.Tasks, TaskNode{
					Name:         tk.rec.Name,
					State:        tk.rec.State,
					Result:       tk.rec.Result,
					Order:        tk.rec.Order,
					LogID:        tk.rec.LogID,
					Duration:     tk.rec.Duration(),
					ErrorCount:   tk.rec.ErrorCount,
					WarningCount: tk.rec.WarningCount,
				})
			}
			stage.Jobs = append(stage.Jobs, job)
		}
		stages = append(stages, stage)
	}
	return RunTimeline{Stages: stages}
}

func newIndex(records []domain.TimelineRecord) index {
	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		known[r.ID] = struct{}{}
	}

	idx := index{children: make(map[string][]entry)}
	for i, r := range records {
		e := entry{rec: r, seq: i}
		if r.Type == domain.RecordStage {
			idx.stages = append(idx.stages, e)
		}
		if _, ok := known[r.ParentID]; r.ParentID == "" || !ok {
			continue
		}
		idx.children[r.ParentID] = append(idx.children[r.ParentID], e)
	}

	sortEntries(idx.stages)
	for _, c := range idx.children {
		sortEntries(c)
	}
	return idx
}

// collect walks the descendants of root depth-first and returns every record of
// the target type. Only RecordOther records are descended into; stages, jobs and
// tasks other than the target end the walk along their branch.
func (idx index) collect(root string, target domain.RecordType) []entry {
	var found []entry
	visited := map[string]struct{}{root: {}}

	stack := []string{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, c := range idx.children[id] {
			if _, seen := visited[c.rec.ID]; seen {
				continue
			}
			visited[c.rec.ID] = struct{}{}
			switch c.rec.Type {
			case target:
				found = append(found, c)
			case domain.RecordOther:
				stack = append(stack, c.rec.ID)
			}
		}
	}

	sortEntries(found)
	return found
}

// sortEntries orders by Order ascending with missing orders last, and by input
// sequence for ties.
func sortEntries(es []entry) {
	slices.SortFunc(es, func(a, b entry) int {
		if c := compareOrder(a.rec.Order, b.rec.Order); c != 0 {
			return c
		}
		return a.seq - b.seq
	})
}

func compareOrder(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}
