package tui_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/timeline"
	"github.com/waabox/azdeck/internal/tui"
)

// fakeProvider satisfies domain.PipelineProvider for TUI tests.
type fakeProvider struct {
	runs         []domain.Run
	records      []domain.TimelineRecord
	log          string
	cancelCalled int
	logRequested int
}

func (f *fakeProvider) ListDefinitions(context.Context, domain.Project) ([]domain.Definition, error) {
	return nil, nil
}
func (f *fakeProvider) ListRuns(context.Context, domain.Project, int, int) ([]domain.Run, error) {
	return f.runs, nil
}
func (f *fakeProvider) GetRun(context.Context, domain.Project, int) (domain.Run, error) {
	return domain.Run{}, nil
}
func (f *fakeProvider) GetTimeline(context.Context, domain.Project, int) ([]domain.TimelineRecord, error) {
	return f.records, nil
}
func (f *fakeProvider) GetLog(_ context.Context, _ domain.Project, _ int, logID int) (string, error) {
	f.logRequested = logID
	return f.log, nil
}
func (f *fakeProvider) QueueRun(context.Context, domain.Project, domain.QueueRequest) (domain.Run, error) {
	return domain.Run{}, nil
}
func (f *fakeProvider) CancelRun(_ context.Context, _ domain.Project, runID int) error {
	f.cancelCalled = runID
	return nil
}

var project = domain.Project{Org: "acme", Name: "platform"}

func intPtr(i int) *int { return &i }

func sampleRecords() []domain.TimelineRecord {
	return []domain.TimelineRecord{
		{ID: "s1", Type: domain.RecordStage, Name: "Build", Order: intPtr(1), State: domain.StateCompleted, Result: domain.ResultSucceeded, LogID: intPtr(1)},
		{ID: "s2", Type: domain.RecordStage, Name: "Deploy", Order: intPtr(2), State: domain.StateInProgress},
		{ID: "p1", ParentID: "s1", Type: domain.RecordOther, Name: "Phase"},
		{ID: "j1", ParentID: "p1", Type: domain.RecordJob, Name: "Linux", Order: intPtr(1), State: domain.StateCompleted, Result: domain.ResultSucceeded, LogID: intPtr(2)},
		{ID: "t1", ParentID: "j1", Type: domain.RecordTask, Name: "Checkout", Order: intPtr(1), State: domain.StateCompleted, Result: domain.ResultSucceeded, LogID: intPtr(3)},
		{ID: "t2", ParentID: "j1", Type: domain.RecordTask, Name: "Compile", Order: intPtr(2), State: domain.StateCompleted, Result: domain.ResultSucceeded},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m tea.Model, msg tea.Msg) (tui.AppModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(tui.AppModel), cmd
}

func newLoadedApp(t *testing.T, provider *fakeProvider) tui.AppModel {
	t.Helper()
	m := tui.NewAppModel(context.Background(), project, provider, tui.Options{})
	app, _ := update(t, m, tui.RunsLoadedMsg{Runs: provider.runs})
	return app
}

// openStages presses enter on the selected run and delivers its timeline.
func openStages(t *testing.T, app tui.AppModel) tui.AppModel {
	t.Helper()
	app, cmd := update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd, "expected a timeline load command")
	app, _ = update(t, app, cmd())
	return app
}

func TestApp_CancelKey_ShowsConfirmPrompt(t *testing.T) {
	provider := &fakeProvider{
		runs: []domain.Run{{ID: 1001, SourceBranch: "refs/heads/main", State: domain.StateInProgress}},
	}
	app := newLoadedApp(t, provider)

	app, _ = update(t, app, key("x"))
	assert.Contains(t, app.View(), "Cancel run #1001 on main")
}

func TestApp_CancelKey_IgnoredForCompletedRun(t *testing.T) {
	provider := &fakeProvider{
		runs: []domain.Run{{ID: 1001, State: domain.StateCompleted, Result: domain.ResultSucceeded}},
	}
	app := newLoadedApp(t, provider)

	app, _ = update(t, app, key("x"))
	assert.NotContains(t, app.View(), "Cancel run")
}

func TestApp_ConfirmCancel_DismissesPromptOnOtherKey(t *testing.T) {
	provider := &fakeProvider{
		runs: []domain.Run{{ID: 1001, State: domain.StateInProgress}},
	}
	app := newLoadedApp(t, provider)

	app, _ = update(t, app, key("x"))
	app, cmd := update(t, app, key("n"))

	assert.NotContains(t, app.View(), "Cancel run")
	assert.Nil(t, cmd)
}

func TestApp_ConfirmCancel_YKey_CallsProvider(t *testing.T) {
	provider := &fakeProvider{
		runs: []domain.Run{{ID: 1001, State: domain.StateInProgress}},
	}
	app := newLoadedApp(t, provider)

	app, _ = update(t, app, key("x"))
	_, cmd := update(t, app, key("y"))
	require.NotNil(t, cmd, "expected a cancel command")
	cmd()

	assert.Equal(t, 1001, provider.cancelCalled)
}

func TestApp_RefreshPreservesSelection(t *testing.T) {
	initial := []domain.Run{
		{ID: 1, Number: "20240101.1", State: domain.StateCompleted, Result: domain.ResultSucceeded},
		{ID: 2, Number: "20240101.2", State: domain.StateInProgress},
		{ID: 3, Number: "20240101.3", State: domain.StateCompleted, Result: domain.ResultFailed},
	}
	app := newLoadedApp(t, &fakeProvider{runs: initial})

	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyDown})

	// A newer run arrives on top and run 2 finishes.
	refreshed := []domain.Run{
		{ID: 4, Number: "20240101.4", State: domain.StateInProgress},
		{ID: 1, Number: "20240101.1", State: domain.StateCompleted, Result: domain.ResultSucceeded},
		{ID: 2, Number: "20240101.2", State: domain.StateCompleted, Result: domain.ResultSucceeded},
		{ID: 3, Number: "20240101.3", State: domain.StateCompleted, Result: domain.ResultFailed},
	}
	app, _ = update(t, app, tui.RunsLoadedMsg{Runs: refreshed})

	view := app.View()
	assert.Contains(t, view, "#20240101.2", "header follows run 2")
	assert.Contains(t, view, "> ✓ #2 ", "cursor stays on run 2")
}

func TestApp_DrillDown_StagesJobsTasks(t *testing.T) {
	provider := &fakeProvider{
		runs:    []domain.Run{{ID: 7, DefinitionName: "ci", State: domain.StateInProgress}},
		records: sampleRecords(),
	}
	app := openStages(t, newLoadedApp(t, provider))

	view := app.View()
	for _, want := range []string{"Stages of run #7", "Running", "stages 1/2", "Build", "Deploy", "jobs 1/1"} {
		assert.Contains(t, view, want)
	}

	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	view = app.View()
	assert.Contains(t, view, "Jobs of stage Build")
	assert.Contains(t, view, "Linux", "jobs are found through the phase record")

	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	view = app.View()
	assert.Contains(t, view, "Tasks of job Linux")
	assert.Contains(t, view, "Compile")

	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Contains(t, app.View(), " Runs")
}

func TestApp_StaleTimelineIsIgnored(t *testing.T) {
	provider := &fakeProvider{
		runs:    []domain.Run{{ID: 7, State: domain.StateInProgress}},
		records: sampleRecords(),
	}
	app := openStages(t, newLoadedApp(t, provider))

	app, _ = update(t, app, tui.TimelineLoadedMsg{RunID: 99, Timeline: timeline.RunTimeline{}})
	assert.Contains(t, app.View(), "Build", "the timeline of another run is ignored")
}

func TestApp_ErrorView(t *testing.T) {
	m := tui.NewAppModel(context.Background(), project, &fakeProvider{}, tui.Options{})
	app, _ := update(t, m, tui.RunsLoadedMsg{Err: domain.ErrUnauthorized})

	assert.Contains(t, app.View(), "personal access token")
}
