package render_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/render"
	"github.com/waabox/azdeck/internal/timeline"
)

func TestDuration(t *testing.T) {
	assert.Equal(t, "--", render.Duration(0))
	assert.Equal(t, "1m30s", render.Duration(90*time.Second+400*time.Millisecond))
}

func TestAge(t *testing.T) {
	assert.Equal(t, "--", render.Age(time.Time{}))
	assert.Contains(t, render.Age(time.Now().Add(-3*time.Minute)), "minutes ago")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "release…", render.Truncate("release/2024-q3", 8))
	assert.Equal(t, "main", render.Truncate("main", 8))
}

func TestTable_RendersEveryRow(t *testing.T) {
	out := render.Table([]string{"NAME"}, [][]string{{"alpha"}, {"bravo"}, {"charlie"}})

	assert.Contains(t, out, "NAME")
	for _, want := range []string{"alpha", "bravo", "charlie"} {
		assert.Contains(t, out, want)
	}
}

func TestTree(t *testing.T) {
	one := 1
	tl := timeline.RunTimeline{Stages: []timeline.StageNode{{
		Name: "Build", State: domain.StateCompleted, Result: domain.ResultFailed, Duration: 42 * time.Second,
		Jobs: []timeline.JobNode{{
			Name: "Linux", State: domain.StateCompleted, Result: domain.ResultFailed,
			Tasks: []timeline.TaskNode{{Name: "Test", State: domain.StateCompleted, Result: domain.ResultFailed, LogID: &one, ErrorCount: 2}},
		}},
	}}}

	var buf bytes.Buffer
	render.Tree(&buf, tl)

	out := buf.String()
	for _, want := range []string{"NAME", "PROGRESS", "Build", "Failed", "42s", "jobs 1/1", "Linux", "tasks 1/1", "Test", "2 errors"} {
		assert.Contains(t, out, want)
	}
}

func TestTree_LastStageIsRendered(t *testing.T) {
	tl := timeline.RunTimeline{Stages: []timeline.StageNode{
		{Name: "Build", State: domain.StateCompleted, Result: domain.ResultSucceeded},
		{Name: "Deploy", State: domain.StatePending},
	}}

	var buf bytes.Buffer
	render.Tree(&buf, tl)

	assert.Contains(t, buf.String(), "Build")
	assert.Contains(t, buf.String(), "Deploy")
}
