package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/render"
	"github.com/waabox/azdeck/internal/timeline"
)

// Node is one row of a timeline level: a stage, a job or a task.
type Node struct {
	Name     string
	State    domain.State
	Result   domain.Result
	Duration time.Duration
	Detail   string
	LogID    *int
}

// StageNodes returns one row per stage, with its job progress.
func StageNodes(t timeline.RunTimeline) []Node {
	out := make([]Node, len(t.Stages))
	for i, s := range t.Stages {
		out[i] = Node{s.Name, s.State, s.Result, s.Duration, "jobs " + timeline.JobProgress(s).String(), s.LogID}
	}
	return out
}

// JobNodes returns one row per job of a stage, with its task progress.
func JobNodes(s timeline.StageNode) []Node {
	out := make([]Node, len(s.Jobs))
	for i, j := range s.Jobs {
		out[i] = Node{j.Name, j.State, j.Result, j.Duration, "tasks " + timeline.TaskProgress(j).String(), j.LogID}
	}
	return out
}

// TaskNodes returns one row per task of a job.
func TaskNodes(j timeline.JobNode) []Node {
	out := make([]Node, len(j.Tasks))
	for i, t := range j.Tasks {
		var detail string
		if t.ErrorCount > 0 {
			detail = fmt.Sprintf("%d errors", t.ErrorCount)
		}
		out[i] = Node{t.Name, t.State, t.Result, t.Duration, detail, t.LogID}
	}
	return out
}

// NodeListModel is an immutable model for the stage, job and task panels.
type NodeListModel struct {
	nodes  []Node
	cursor int
	empty  string
}

// NewNodeListModel creates a node list model. empty is shown when there are no nodes.
func NewNodeListModel(nodes []Node, empty string) NodeListModel {
	return NodeListModel{nodes: nodes, empty: empty}
}

// WithNodes replaces the nodes, keeping the cursor in range.
func (m NodeListModel) WithNodes(nodes []Node) NodeListModel {
	m.nodes = nodes
	if m.cursor >= len(nodes) {
		m.cursor = max(len(nodes)-1, 0)
	}
	return m
}

// MoveDown returns a new model with the cursor moved down by one.
func (m NodeListModel) MoveDown() NodeListModel {
	if m.cursor < len(m.nodes)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m NodeListModel) MoveUp() NodeListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// Cursor returns the current cursor position.
func (m NodeListModel) Cursor() int {
	return m.cursor
}

// Nodes returns the full node slice.
func (m NodeListModel) Nodes() []Node {
	return m.nodes
}

// Selected returns the highlighted node, if any.
func (m NodeListModel) Selected() (Node, bool) {
	if len(m.nodes) == 0 {
		return Node{}, false
	}
	return m.nodes[m.cursor], true
}

// View renders the node list as a string with cursor indicators.
func (m NodeListModel) View() string {
	if len(m.nodes) == 0 {
		return m.empty
	}
	var sb strings.Builder
	for i, n := range m.nodes {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%s %-30s %-20s %-8s %s\n",
			prefix,
			render.Icon(n.State, n.Result),
			render.Truncate(n.Name, 30),
			timeline.Label(n.State, n.Result),
			render.Duration(n.Duration),
			n.Detail,
		))
	}
	return sb.String()
}
