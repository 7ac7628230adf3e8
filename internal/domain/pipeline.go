package domain

import "time"

// Definition is a pipeline definition that runs can be queued against.
type Definition struct {
	ID     int
	Name   string
	Folder string
}

// Run represents a single run (build) of a pipeline definition.
type Run struct {
	ID             int
	Number         string
	DefinitionID   int
	DefinitionName string
	State          State
	Result         Result
	SourceBranch   string
	SourceVersion  string
	RequestedFor   string
	QueuedAt       time.Time
	StartedAt      time.Time
	FinishedAt     time.Time
	WebURL         string
}

// Duration returns how long the run took, or how long it has been running.
func (r Run) Duration(now time.Time) time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	if r.FinishedAt.IsZero() {
		return now.Sub(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// QueueRequest carries everything needed to queue a new run.
// Ref is the full or short branch name; empty means the definition default.
type QueueRequest struct {
	DefinitionID int
	Ref          string
	Parameters   map[string]string
	Variables    map[string]string
}
