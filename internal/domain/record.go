package domain

import (
	"strings"
	"time"
)

// RecordType classifies a timeline record. Only stages, jobs and tasks are
// shown in the run tree; every other type the service reports (phases,
// checkpoints, ...) is RecordOther and is walked through transparently.
type RecordType int

const (
	RecordOther RecordType = iota
	RecordStage
	RecordJob
	RecordTask
)

// ParseRecordType maps the service's open set of type strings onto RecordType.
func ParseRecordType(s string) RecordType {
	switch strings.ToLower(s) {
	case "stage":
		return RecordStage
	case "job":
		return RecordJob
	case "task":
		return RecordTask
	default:
		return RecordOther
	}
}

func (t RecordType) String() string {
	switch t {
	case RecordStage:
		return "Stage"
	case RecordJob:
		return "Job"
	case RecordTask:
		return "Task"
	default:
		return "Other"
	}
}

// State is the execution state of a run or timeline record.
type State int

const (
	StateUnknown State = iota
	StatePending
	StateInProgress
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateInProgress:
		return "InProgress"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Result is the outcome of a completed run or timeline record.
type Result int

const (
	ResultNone Result = iota
	ResultSucceeded
	ResultPartiallySucceeded
	ResultFailed
	ResultCanceled
	ResultSkipped
)

func (r Result) String() string {
	switch r {
	case ResultSucceeded:
		return "Succeeded"
	case ResultPartiallySucceeded:
		return "PartiallySucceeded"
	case ResultFailed:
		return "Failed"
	case ResultCanceled:
		return "Canceled"
	case ResultSkipped:
		return "Skipped"
	default:
		return "None"
	}
}

// TimelineRecord is one flat status entry of a run as reported by the service.
// ParentID is empty for records without a parent.
type TimelineRecord struct {
	ID           string
	ParentID     string
	Type         RecordType
	Name         string
	Order        *int
	State        State
	Result       Result
	LogID        *int
	StartTime    time.Time
	FinishTime   time.Time
	ErrorCount   int
	WarningCount int
}

// Duration returns the elapsed time of the record, or zero if it has not finished.
func (r TimelineRecord) Duration() time.Duration {
	if r.StartTime.IsZero() || r.FinishTime.IsZero() {
		return 0
	}
	return r.FinishTime.Sub(r.StartTime)
}
