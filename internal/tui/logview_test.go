package tui_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/tui"
)

func TestApp_LogKey_LoadsLogOfSelectedStage(t *testing.T) {
	provider := &fakeProvider{
		runs:    []domain.Run{{ID: 7, State: domain.StateInProgress}},
		records: sampleRecords(),
		log:     "compiling...",
	}
	app := openStages(t, newLoadedApp(t, provider))

	app, cmd := update(t, app, key("l"))
	assert.Contains(t, app.View(), "Loading logs")
	require.NotNil(t, cmd, "expected a log load command")
	app, _ = update(t, app, cmd())

	assert.Equal(t, 1, provider.logRequested, "log 1 belongs to stage Build")
	view := app.View()
	assert.Contains(t, view, "[logs] Build")
	assert.Contains(t, view, "compiling...")
}

func TestApp_LogKey_NodeWithoutLog(t *testing.T) {
	provider := &fakeProvider{
		runs:    []domain.Run{{ID: 7, State: domain.StateInProgress}},
		records: sampleRecords(),
	}
	app := openStages(t, newLoadedApp(t, provider))

	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyDown})
	app, cmd := update(t, app, key("l"))

	assert.Nil(t, cmd, "a stage without a log loads nothing")
	assert.Contains(t, app.View(), "Deploy has no log yet")
}

func TestApp_LogsLoaded_RendersLogContent(t *testing.T) {
	m := tui.NewAppModel(context.Background(), project, &fakeProvider{}, tui.Options{})

	app, _ := update(t, m, tui.LogsLoadedMsg{Content: "line1\nline2\nline3", Title: "Compile"})
	view := app.View()

	assert.Contains(t, view, "line1")
	assert.Contains(t, view, "[logs]")
}

func TestApp_LogView_EscReturnsToNormalView(t *testing.T) {
	m := tui.NewAppModel(context.Background(), project, &fakeProvider{}, tui.Options{})

	app, _ := update(t, m, tui.LogsLoadedMsg{Content: "line1\nline2", Title: "Compile"})
	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})

	assert.NotContains(t, app.View(), "[logs]")
}

func TestApp_LogView_ScrollDown_MovesOffset(t *testing.T) {
	m := tui.NewAppModel(context.Background(), project, &fakeProvider{}, tui.Options{})

	logContent := "line1\nline2\nline3\nline4\nline5\nline6\nline7\nline8\nline9\nline10"
	app, _ := update(t, m, tui.LogsLoadedMsg{Content: logContent, Title: "Compile"})
	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyDown})

	view := app.View()
	assert.NotContains(t, view, "line1\n", "line1 scrolls out of view")
	assert.Contains(t, view, "line2")
}
