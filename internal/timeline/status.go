package timeline

import (
	"fmt"

	"github.com/waabox/azdeck/internal/domain"
)

// severity ranks completed results for the worst-result rollup. Skipped ranks
// below Succeeded so that a run whose stages were all skipped reports Skipped.
var severity = map[domain.Result]int{
	domain.ResultNone:               -1,
	domain.ResultSkipped:            0,
	domain.ResultSucceeded:          1,
	domain.ResultPartiallySucceeded: 2,
	domain.ResultCanceled:           3,
	domain.ResultFailed:             4,
}

// Label returns the display label for a node. State wins over result unless the
// node is completed.
func Label(state domain.State, result domain.Result) string {
	switch state {
	case domain.StateCompleted:
		return resultLabel(result)
	case domain.StateInProgress:
		return "Running"
	case domain.StatePending:
		return "Pending"
	default:
		return "Unknown"
	}
}

func resultLabel(result domain.Result) string {
	switch result {
	case domain.ResultSucceeded:
		return "Succeeded"
	case domain.ResultPartiallySucceeded:
		return "Partially Succeeded"
	case domain.ResultFailed:
		return "Failed"
	case domain.ResultCanceled:
		return "Canceled"
	case domain.ResultSkipped:
		return "Skipped"
	default:
		return "Completed"
	}
}

// OverallLabel returns the run-level label: Running while any stage is in
// progress, Pending until every stage has completed, then the label of the
// worst stage result.
func OverallLabel(t RunTimeline) string {
	for _, s := range t.Stages {
		if s.State == domain.StateInProgress {
			return "Running"
		}
	}
	if !AllCompleted(t) {
		return "Pending"
	}
	return resultLabel(WorstResult(t))
}

// AllCompleted reports whether the timeline has stages and all of them completed.
func AllCompleted(t RunTimeline) bool {
	if t.Empty() {
		return false
	}
	for _, s := range t.Stages {
		if s.State != domain.StateCompleted {
			return false
		}
	}
	return true
}

// WorstResult returns the most severe stage result. ResultNone never wins, so a
// timeline without any stage result yields ResultNone.
func WorstResult(t RunTimeline) domain.Result {
	results := make([]domain.Result, len(t.Stages))
	for i, s := range t.Stages {
		results[i] = s.Result
	}
	return Worst(results...)
}

// Worst returns the most severe of the given results.
func Worst(results ...domain.Result) domain.Result {
	worst := domain.ResultNone
	for _, r := range results {
		if severity[r] > severity[worst] {
			worst = r
		}
	}
	return worst
}

// IsFailure reports whether a run result counts as failed for exit codes and
// on-fail hooks. Partial success and skips are not failures.
func IsFailure(r domain.Result) bool {
	return r == domain.ResultFailed || r == domain.ResultCanceled
}

// Progress is a completed/total count used for progress display.
type Progress struct {
	Completed int
	Total     int
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Completed, p.Total)
}

// JobProgress counts the completed jobs of a stage.
func JobProgress(s StageNode) Progress {
	p := Progress{Total: len(s.Jobs)}
	for _, j := range s.Jobs {
		if j.State == domain.StateCompleted {
			p.Completed++
		}
	}
	return p
}

// TaskProgress counts the completed tasks of a job.
func TaskProgress(j JobNode) Progress {
	p := Progress{Total: len(j.Tasks)}
	for _, tk := range j.Tasks {
		if tk.State == domain.StateCompleted {
			p.Completed++
		}
	}
	return p
}

// StageProgress counts the completed stages of a run.
func StageProgress(t RunTimeline) Progress {
	p := Progress{Total: len(t.Stages)}
	for _, s := range t.Stages {
		if s.State == domain.StateCompleted {
			p.Completed++
		}
	}
	return p
}
