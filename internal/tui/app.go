// Package tui is the interactive run browser: runs, then the stages, jobs and
// tasks of a run, then the log of any of them.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/monitor"
	"github.com/waabox/azdeck/internal/render"
	"github.com/waabox/azdeck/internal/timeline"
)

const idleInterval = 30 * time.Second

// RunsLoadedMsg is sent when runs have been fetched from the provider.
// It is exported so that tests can inject it directly into AppModel.Update.
type RunsLoadedMsg struct {
	Runs []domain.Run
	Err  error
}

// TimelineLoadedMsg is sent when the timeline of a run has been fetched.
type TimelineLoadedMsg struct {
	RunID    int
	Timeline timeline.RunTimeline
	Err      error
}

// tickMsg is sent by the auto-refresh ticker.
type tickMsg struct{}

// cancelResultMsg is sent when a cancel request completes.
type cancelResultMsg struct {
	err error
}

// LogsLoadedMsg is sent when a log has been fetched from the provider.
// It is exported so that tests can inject it directly into AppModel.Update.
type LogsLoadedMsg struct {
	Content string
	Title   string
	Err     error
}

// viewState indicates the current navigation level.
type viewState int

const (
	viewRuns viewState = iota
	viewStages
	viewJobs
	viewTasks
	viewLogs
)

// Options narrows what the browser shows.
type Options struct {
	// DefinitionID limits the list to one pipeline; 0 shows all of them.
	DefinitionID int
	Limit        int
}

// AppModel is the root Bubbletea model for azdeck.
type AppModel struct {
	ctx      context.Context
	project  domain.Project
	provider domain.PipelineProvider
	opts     Options
	// Navigation
	view viewState
	// Run level
	list        RunListModel
	selectedRun domain.Run
	tl          timeline.RunTimeline
	// Stage, job and task levels
	stages NodeListModel
	jobs   NodeListModel
	tasks  NodeListModel
	// General state
	loading       bool
	err           error
	notice        string
	width         int
	height        int
	confirmCancel bool
	refresh       monitor.Backoff
	// Log viewer state
	logLoading    bool
	logContent    string
	logOffset     int
	logTitle      string
	logReturnView viewState
}

// NewAppModel creates the root application model.
func NewAppModel(ctx context.Context, project domain.Project, provider domain.PipelineProvider, opts Options) AppModel {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	return AppModel{
		ctx:      ctx,
		project:  project,
		provider: provider,
		opts:     opts,
		list:     NewRunListModel(nil),
		stages:   NewNodeListModel(nil, "No stages yet."),
		jobs:     NewNodeListModel(nil, "No jobs in this stage."),
		tasks:    NewNodeListModel(nil, "No tasks in this job."),
		loading:  true,
	}
}

// Init triggers the initial run load.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.loadRuns(), tickEvery(m.refresh.Current()))
}

func (m AppModel) loadRuns() tea.Cmd {
	return func() tea.Msg {
		runs, err := m.provider.ListRuns(m.ctx, m.project, m.opts.DefinitionID, m.opts.Limit)
		return RunsLoadedMsg{Runs: runs, Err: err}
	}
}

func (m AppModel) loadTimeline(runID int) tea.Cmd {
	return func() tea.Msg {
		records, err := m.provider.GetTimeline(m.ctx, m.project, runID)
		return TimelineLoadedMsg{RunID: runID, Timeline: timeline.Build(records), Err: err}
	}
}

func (m AppModel) cancelRun(runID int) tea.Cmd {
	return func() tea.Msg {
		return cancelResultMsg{err: m.provider.CancelRun(m.ctx, m.project, runID)}
	}
}

func (m AppModel) loadLog(runID int, node Node) tea.Cmd {
	return func() tea.Msg {
		content, err := m.provider.GetLog(m.ctx, m.project, runID, *node.LogID)
		return LogsLoadedMsg{Content: content, Title: node.Name, Err: err}
	}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case RunsLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		if len(m.list.Runs()) == 0 {
			m.list = NewRunListModel(msg.Runs)
		} else {
			m.list = m.list.UpdateRuns(msg.Runs)
		}
		if m.view == viewRuns {
			m.selectedRun = m.list.SelectedRun()
			return m, nil
		}
		for _, r := range msg.Runs {
			if r.ID == m.selectedRun.ID {
				m.selectedRun = r
				break
			}
		}

	case TimelineLoadedMsg:
		if msg.RunID != m.selectedRun.ID {
			return m, nil
		}
		if msg.Err != nil {
			m.notice = fmt.Sprintf("timeline: %v", msg.Err)
			return m, nil
		}
		m.tl = msg.Timeline
		m.syncNodes()

	case tickMsg:
		// Poll with the growing interval while anything runs; otherwise slowly.
		interval := idleInterval
		if anyActive(m.list.Runs()) {
			interval = m.refresh.Current()
			m.refresh.Advance()
		} else {
			m.refresh = monitor.Backoff{}
		}
		cmds := []tea.Cmd{m.loadRuns(), tickEvery(interval)}
		if m.view != viewRuns && m.selectedRun.ID != 0 && m.selectedRun.State != domain.StateCompleted {
			cmds = append(cmds, m.loadTimeline(m.selectedRun.ID))
		}
		return m, tea.Batch(cmds...)

	case cancelResultMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("cancel failed: %v", msg.err)
			return m, nil
		}
		m.notice = fmt.Sprintf("Cancellation requested for run #%d", m.selectedRun.ID)
		m.refresh = monitor.Backoff{}
		return m, m.loadRuns()

	case LogsLoadedMsg:
		m.logLoading = false
		if msg.Err != nil {
			// Log errors are non-fatal: stay in the current view.
			m.notice = fmt.Sprintf("logs: %v", msg.Err)
			return m, nil
		}
		m.logReturnView = m.view
		m.view = viewLogs
		m.logContent = msg.Content
		m.logTitle = msg.Title
		m.logOffset = 0
		return m, nil

	case tea.KeyMsg:
		if m.confirmCancel {
			m.confirmCancel = false
			switch msg.String() {
			case "y":
				if m.selectedRun.ID == 0 {
					return m, nil
				}
				return m, m.cancelRun(m.selectedRun.ID)
			case "q", "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "ctrl+r":
			m.loading = m.view == viewRuns
			m.notice = ""
			cmds := []tea.Cmd{m.loadRuns()}
			if m.view != viewRuns && m.selectedRun.ID != 0 {
				cmds = append(cmds, m.loadTimeline(m.selectedRun.ID))
			}
			return m, tea.Batch(cmds...)
		}
		switch m.view {
		case viewRuns:
			return m.updateRuns(msg)
		case viewStages:
			return m.updateStages(msg)
		case viewJobs:
			return m.updateJobs(msg)
		case viewTasks:
			return m.updateTasks(msg)
		case viewLogs:
			return m.updateLogs(msg)
		}
	}
	return m, nil
}

// syncNodes rebuilds the stage, job and task panels from the current timeline,
// keeping each cursor where it was.
func (m *AppModel) syncNodes() {
	m.stages = m.stages.WithNodes(StageNodes(m.tl))
	stage, ok := m.selectedStage()
	if !ok {
		m.jobs = m.jobs.WithNodes(nil)
		m.tasks = m.tasks.WithNodes(nil)
		return
	}
	m.jobs = m.jobs.WithNodes(JobNodes(stage))
	job, ok := m.selectedJob(stage)
	if !ok {
		m.tasks = m.tasks.WithNodes(nil)
		return
	}
	m.tasks = m.tasks.WithNodes(TaskNodes(job))
}

func (m AppModel) selectedStage() (timeline.StageNode, bool) {
	if len(m.tl.Stages) == 0 {
		return timeline.StageNode{}, false
	}
	return m.tl.Stages[m.stages.Cursor()], true
}

func (m AppModel) selectedJob(stage timeline.StageNode) (timeline.JobNode, bool) {
	if len(stage.Jobs) == 0 {
		return timeline.JobNode{}, false
	}
	return stage.Jobs[m.jobs.Cursor()], true
}

func (m AppModel) updateRuns(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.list = m.list.MoveDown()
		m.selectedRun = m.list.SelectedRun()
	case "up":
		m.list = m.list.MoveUp()
		m.selectedRun = m.list.SelectedRun()
	case "enter":
		if len(m.list.Runs()) > 0 {
			m.selectedRun = m.list.SelectedRun()
			m.tl = timeline.RunTimeline{}
			m.stages = NewNodeListModel(nil, "No stages yet.")
			m.view = viewStages
			m.notice = ""
			return m, m.loadTimeline(m.selectedRun.ID)
		}
	case "x":
		m.selectedRun = m.list.SelectedRun()
		m.confirmCancel = m.selectedRun.ID != 0 && m.selectedRun.State != domain.StateCompleted
	}
	return m, nil
}

func (m AppModel) updateStages(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.stages = m.stages.MoveDown()
	case "up":
		m.stages = m.stages.MoveUp()
	case "enter":
		if stage, ok := m.selectedStage(); ok {
			m.jobs = NewNodeListModel(JobNodes(stage), "No jobs in this stage.")
			m.view = viewJobs
		}
	case "l":
		return m.openLog(m.stages)
	case "x":
		m.confirmCancel = m.selectedRun.State != domain.StateCompleted
	case "esc":
		m.view = viewRuns
		m.notice = ""
	}
	return m, nil
}

func (m AppModel) updateJobs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.jobs = m.jobs.MoveDown()
	case "up":
		m.jobs = m.jobs.MoveUp()
	case "enter":
		stage, _ := m.selectedStage()
		if job, ok := m.selectedJob(stage); ok {
			m.tasks = NewNodeListModel(TaskNodes(job), "No tasks in this job.")
			m.view = viewTasks
		}
	case "l":
		return m.openLog(m.jobs)
	case "esc":
		m.view = viewStages
	}
	return m, nil
}

func (m AppModel) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.tasks = m.tasks.MoveDown()
	case "up":
		m.tasks = m.tasks.MoveUp()
	case "l", "enter":
		return m.openLog(m.tasks)
	case "esc":
		m.view = viewJobs
	}
	return m, nil
}

func (m AppModel) openLog(list NodeListModel) (tea.Model, tea.Cmd) {
	if m.logLoading {
		return m, nil
	}
	node, ok := list.Selected()
	if !ok {
		return m, nil
	}
	if node.LogID == nil {
		m.notice = fmt.Sprintf("%s has no log yet", node.Name)
		return m, nil
	}
	m.logLoading = true
	return m, m.loadLog(m.selectedRun.ID, node)
}

func (m AppModel) updateLogs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	maxOffset := strings.Count(m.logContent, "\n")
	switch msg.String() {
	case "down":
		if m.logOffset < maxOffset {
			m.logOffset++
		}
	case "up":
		if m.logOffset > 0 {
			m.logOffset--
		}
	case "pgup":
		m.logOffset = max(m.logOffset-m.visibleLogLines(), 0)
	case "pgdown":
		m.logOffset = min(m.logOffset+m.visibleLogLines(), maxOffset)
	case "g":
		m.logOffset = 0
	case "G":
		m.logOffset = maxOffset
	case "esc":
		m.view = m.logReturnView
		m.logContent = ""
		m.logOffset = 0
	}
	return m, nil
}

const separator = "────────────────────────────────────────────────────────────\n"

// View renders the full TUI.
func (m AppModel) View() string {
	if m.logLoading {
		return "Loading logs...\n"
	}
	if m.view == viewLogs {
		return m.renderLogView()
	}
	if m.loading && !m.confirmCancel {
		return "Loading runs...\n"
	}
	if m.err != nil {
		if errors.Is(m.err, domain.ErrUnauthorized) {
			return fmt.Sprintf("Error: %v\n\nCheck your personal access token, then press 'ctrl+r' to retry or 'q' to quit.\n", m.err)
		}
		return fmt.Sprintf("Error: %v\n\nPress 'ctrl+r' to retry or 'q' to quit.\n", m.err)
	}

	header := fmt.Sprintf(" azdeck | %s/%s", m.project.Org, m.project.Name)
	if m.selectedRun.ID != 0 {
		header += fmt.Sprintf(" ▸ %s #%s ⎇ %s",
			m.selectedRun.DefinitionName, m.selectedRun.Number, render.ShortBranch(m.selectedRun.SourceBranch))
	}
	header += "\n"

	var title, body, footer string
	switch m.view {
	case viewRuns:
		title = " Runs\n"
		body = m.list.View()
		footer = " ↑/↓: navigate   enter: open   ctrl+r: refresh   x: cancel   q: quit\n"
	case viewStages:
		title = fmt.Sprintf(" Stages of run #%d  %s  stages %s\n",
			m.selectedRun.ID, render.Overall(m.tl), timeline.StageProgress(m.tl))
		body = m.stages.View()
		footer = " ↑/↓: navigate   enter: jobs   l: logs   esc: back   x: cancel   q: quit\n"
	case viewJobs:
		stage, _ := m.selectedStage()
		title = fmt.Sprintf(" Jobs of stage %s\n", stage.Name)
		body = m.jobs.View()
		footer = " ↑/↓: navigate   enter: tasks   l: logs   esc: back   q: quit\n"
	case viewTasks:
		stage, _ := m.selectedStage()
		job, _ := m.selectedJob(stage)
		title = fmt.Sprintf(" Tasks of job %s\n", job.Name)
		body = m.tasks.View()
		footer = " ↑/↓: navigate   l: logs   esc: back   q: quit\n"
	}
	if m.confirmCancel {
		footer = fmt.Sprintf(" Cancel run #%d on %s? [y/N] \n",
			m.selectedRun.ID, render.ShortBranch(m.selectedRun.SourceBranch))
	}

	status := ""
	if m.notice != "" {
		status = " " + m.notice + "\n" + separator
	}
	return header + separator + title + body + "\n" + separator + status + footer
}

// visibleLogLines returns the number of log lines visible in the current terminal height.
func (m AppModel) visibleLogLines() int {
	lines := m.height - 4 // account for header, separator, and footer
	if lines < 10 {
		return 10
	}
	return lines
}

// renderLogView renders the fullscreen log viewer.
func (m AppModel) renderLogView() string {
	header := fmt.Sprintf(" azdeck  %s/%s  run #%d  [logs] %s\n",
		m.project.Org, m.project.Name, m.selectedRun.ID, m.logTitle)
	footer := " ↑/↓: scroll   PgUp/PgDn: page   g/G: top/bottom   esc: back\n"

	lines := strings.Split(m.logContent, "\n")
	start := min(max(m.logOffset, 0), len(lines)-1)
	end := min(start+m.visibleLogLines(), len(lines))

	body := strings.Join(lines[start:end], "\n")
	return header + separator + body + "\n" + separator + footer
}

// Run starts the Bubbletea program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, project domain.Project, provider domain.PipelineProvider, opts Options) error {
	p := tea.NewProgram(NewAppModel(ctx, project, provider, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("browser: %w", err)
	}
	return nil
}
