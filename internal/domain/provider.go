package domain

import "context"

// PipelineProvider is the port interface that the remote build service adapter implements.
// The domain does not know about HTTP or any specific API version.
type PipelineProvider interface {
	ListDefinitions(ctx context.Context, project Project) ([]Definition, error)
	ListRuns(ctx context.Context, project Project, definitionID int, top int) ([]Run, error)
	GetRun(ctx context.Context, project Project, runID int) (Run, error)
	GetTimeline(ctx context.Context, project Project, runID int) ([]TimelineRecord, error)
	GetLog(ctx context.Context, project Project, runID int, logID int) (string, error)
	QueueRun(ctx context.Context, project Project, req QueueRequest) (Run, error)
	CancelRun(ctx context.Context, project Project, runID int) error
}
