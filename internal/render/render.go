// Package render formats runs and timelines for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/timeline"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cellStyle    = lipgloss.NewStyle().PaddingRight(2)
	headerStyle  = cellStyle.Bold(true)
)

func styleFor(state domain.State, result domain.Result) lipgloss.Style {
	switch state {
	case domain.StateInProgress:
		return runningStyle
	case domain.StateCompleted:
		switch result {
		case domain.ResultSucceeded:
			return successStyle
		case domain.ResultPartiallySucceeded:
			return warningStyle
		case domain.ResultFailed, domain.ResultCanceled:
			return failureStyle
		}
	}
	return mutedStyle
}

// Icon returns a one-character status marker.
func Icon(state domain.State, result domain.Result) string {
	var icon string
	switch state {
	case domain.StateInProgress:
		icon = "●"
	case domain.StatePending:
		icon = "↷"
	case domain.StateCompleted:
		switch result {
		case domain.ResultSucceeded:
			icon = "✓"
		case domain.ResultPartiallySucceeded:
			icon = "!"
		case domain.ResultFailed:
			icon = "✗"
		case domain.ResultCanceled:
			icon = "○"
		case domain.ResultSkipped:
			icon = "-"
		default:
			icon = "✓"
		}
	default:
		icon = "?"
	}
	return styleFor(state, result).Render(icon)
}

// Label returns the coloured status label of a node or run.
func Label(state domain.State, result domain.Result) string {
	return styleFor(state, result).Render(timeline.Label(state, result))
}

// Overall returns the coloured overall label of a timeline.
func Overall(t timeline.RunTimeline) string {
	label := timeline.OverallLabel(t)
	switch label {
	case "Running":
		return runningStyle.Render(label)
	case "Pending":
		return mutedStyle.Render(label)
	}
	return styleFor(domain.StateCompleted, timeline.WorstResult(t)).Render(label)
}

// Age formats t relative to now, such as "3 minutes ago".
func Age(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	return humanize.Time(t)
}

// Duration formats d rounded to the second.
func Duration(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	return d.Round(time.Second).String()
}

// Truncate shortens s to max runes.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// ShortBranch strips the refs/heads/ prefix of a branch ref.
func ShortBranch(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

// Table renders rows as aligned, borderless columns under a header line.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.Render() + "\n"
}

var treeHeaders = []string{"NAME", "STATUS", "TIME", "PROGRESS"}

// Tree writes the stage, job and task hierarchy of a run.
func Tree(w io.Writer, t timeline.RunTimeline) {
	var rows [][]string
	for _, s := range t.Stages {
		rows = append(rows, []string{
			Icon(s.State, s.Result) + " " + s.Name,
			Label(s.State, s.Result),
			Duration(s.Duration),
			"jobs " + timeline.JobProgress(s).String(),
		})
		for _, j := range s.Jobs {
			rows = append(rows, []string{
				"    " + Icon(j.State, j.Result) + " " + j.Name,
				Label(j.State, j.Result),
				Duration(j.Duration),
				"tasks " + timeline.TaskProgress(j).String(),
			})
			for _, task := range j.Tasks {
				rows = append(rows, []string{
					"        " + Icon(task.State, task.Result) + " " + task.Name,
					Label(task.State, task.Result),
					Duration(task.Duration),
					issues(task.ErrorCount, task.WarningCount),
				})
			}
		}
	}
	fmt.Fprint(w, Table(treeHeaders, rows))
}

func issues(errors, warnings int) string {
	var parts []string
	if errors > 0 {
		parts = append(parts, failureStyle.Render(fmt.Sprintf("%d %s", errors, plural(errors, "error"))))
	}
	if warnings > 0 {
		parts = append(parts, warningStyle.Render(fmt.Sprintf("%d %s", warnings, plural(warnings, "warning"))))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
