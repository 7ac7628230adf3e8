package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/render"
)

// RunListModel is an immutable Bubbletea-compatible model for the run list panel.
type RunListModel struct {
	runs   []domain.Run
	cursor int
}

// NewRunListModel creates a run list model with the given runs.
func NewRunListModel(runs []domain.Run) RunListModel {
	return RunListModel{runs: runs, cursor: 0}
}

// UpdateRuns replaces the runs while keeping the cursor on the same run ID.
// If the run is gone, the cursor is clamped to the new list.
func (m RunListModel) UpdateRuns(runs []domain.Run) RunListModel {
	selected := m.SelectedRun().ID
	m.runs = runs
	m.cursor = 0
	for i, r := range runs {
		if r.ID == selected {
			m.cursor = i
			return m
		}
	}
	return m
}

// MoveDown returns a new model with the cursor moved down by one.
func (m RunListModel) MoveDown() RunListModel {
	if m.cursor < len(m.runs)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m RunListModel) MoveUp() RunListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// SelectedIndex returns the current cursor position.
func (m RunListModel) SelectedIndex() int {
	return m.cursor
}

// SelectedRun returns the currently highlighted run.
// Returns zero-value Run if the list is empty.
func (m RunListModel) SelectedRun() domain.Run {
	if len(m.runs) == 0 {
		return domain.Run{}
	}
	return m.runs[m.cursor]
}

// Runs returns the full run slice.
func (m RunListModel) Runs() []domain.Run {
	return m.runs
}

// View renders the run list as a string.
func (m RunListModel) View() string {
	if len(m.runs) == 0 {
		return "No runs found."
	}
	var sb strings.Builder
	for i, r := range m.runs {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%s #%-8d %-22s %-20s %s\n",
			prefix,
			render.Icon(r.State, r.Result),
			r.ID,
			render.Truncate(r.DefinitionName, 22),
			render.Truncate(render.ShortBranch(r.SourceBranch), 20),
			render.Age(r.QueuedAt),
		))
	}
	return sb.String()
}

// anyActive reports whether any run in the list has not completed.
func anyActive(runs []domain.Run) bool {
	for _, r := range runs {
		if r.State != domain.StateCompleted {
			return true
		}
	}
	return false
}
