// Package hooks runs user-configured external programs at pipeline lifecycle
// points. Pre-queue hooks gate queuing a run through a JSON verdict on stdout;
// completion hooks are notifications whose output is ignored.
package hooks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/waabox/azdeck/internal/domain"
)

const defaultTimeoutSeconds = 60

// Point is a lifecycle point hooks can be attached to.
type Point string

const (
	PreQueue   Point = "pre-queue"
	OnComplete Point = "on-complete"
	OnSuccess  Point = "on-success"
	OnFail     Point = "on-fail"
)

// Gating reports whether hook output at this point can block the action.
func (p Point) Gating() bool {
	return p == PreQueue
}

// FailurePolicy controls what an execution failure of a hook does.
// It never applies to an explicit block decision.
type FailurePolicy int

const (
	PolicyWarn FailurePolicy = iota
	PolicyFail
	PolicyIgnore
)

// ParseFailurePolicy parses "warn", "fail" or "ignore", case-insensitively.
// The empty string is PolicyWarn.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return PolicyWarn, nil
	case "fail":
		return PolicyFail, nil
	case "ignore":
		return PolicyIgnore, nil
	default:
		return PolicyWarn, fmt.Errorf("unknown on_failure policy %q (want warn, fail or ignore)", s)
	}
}

func (p FailurePolicy) String() string {
	switch p {
	case PolicyFail:
		return "fail"
	case PolicyIgnore:
		return "ignore"
	default:
		return "warn"
	}
}

// UnmarshalText lets the policy be read straight from the config file.
func (p *FailurePolicy) UnmarshalText(text []byte) error {
	v, err := ParseFailurePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// HookConfig defines a single hook.
type HookConfig struct {
	Name           string        `toml:"name"`
	Command        string        `toml:"command,omitempty"`
	Args           []string      `toml:"args,omitempty"`
	Run            string        `toml:"run,omitempty"` // command line split into Command and Args
	TimeoutSeconds int           `toml:"timeout_seconds,omitempty"`
	OnFailure      FailurePolicy `toml:"on_failure"`
}

// Timeout returns the hook's wall-clock bound.
func (h HookConfig) Timeout() time.Duration {
	secs := h.TimeoutSeconds
	if secs <= 0 {
		secs = defaultTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// Normalize validates the hook and resolves Run into Command and Args.
func (h HookConfig) Normalize() (HookConfig, error) {
	if h.Name == "" {
		return h, fmt.Errorf("hook has no name")
	}
	if h.TimeoutSeconds < 0 {
		return h, fmt.Errorf("hook %q: timeout_seconds must be positive", h.Name)
	}
	if h.Run != "" {
		if h.Command != "" {
			return h, fmt.Errorf("hook %q: set either command or run, not both", h.Name)
		}
		argv, err := shellwords.Parse(h.Run)
		if err != nil {
			return h, fmt.Errorf("hook %q: parsing run: %w", h.Name, err)
		}
		if len(argv) == 0 {
			return h, fmt.Errorf("hook %q: run is empty", h.Name)
		}
		h.Command = argv[0]
		h.Args = append(argv[1:], h.Args...)
		h.Run = ""
	}
	if h.Command == "" {
		return h, fmt.Errorf("hook %q has no command", h.Name)
	}
	if h.TimeoutSeconds == 0 {
		h.TimeoutSeconds = defaultTimeoutSeconds
	}
	return h, nil
}

// Set holds the ordered hook lists of every lifecycle point.
type Set struct {
	PreQueue   []HookConfig `toml:"pre_queue,omitempty"`
	OnComplete []HookConfig `toml:"on_complete,omitempty"`
	OnSuccess  []HookConfig `toml:"on_success,omitempty"`
	OnFail     []HookConfig `toml:"on_fail,omitempty"`
}

// For returns the hooks configured for a point, in configured order.
func (s Set) For(p Point) []HookConfig {
	switch p {
	case PreQueue:
		return s.PreQueue
	case OnComplete:
		return s.OnComplete
	case OnSuccess:
		return s.OnSuccess
	case OnFail:
		return s.OnFail
	default:
		return nil
	}
}

// Normalize validates every hook of the set.
func (s Set) Normalize() (Set, error) {
	var err error
	lists := []*[]HookConfig{&s.PreQueue, &s.OnComplete, &s.OnSuccess, &s.OnFail}
	for _, list := range lists {
		out := make([]HookConfig, len(*list))
		for i, h := range *list {
			if out[i], err = h.Normalize(); err != nil {
				return Set{}, err
			}
		}
		*list = out
	}
	return s, nil
}

// HookContext is the JSON document every hook receives on stdin.
type HookContext struct {
	Org          string            `json:"org"`
	Project      string            `json:"project"`
	PipelineID   int               `json:"pipelineId"`
	PipelineName string            `json:"pipelineName"`
	Ref          *string           `json:"ref"`
	BuildID      *int              `json:"buildId"`
	Parameters   map[string]string `json:"parameters"`
	Variables    map[string]string `json:"variables"`
}

// NewContext builds the context for a lifecycle event of the given pipeline.
// An empty ref is serialized as null.
func NewContext(project domain.Project, def domain.Definition, ref string, params, vars map[string]string) HookContext {
	hctx := HookContext{
		Org:          project.Org,
		Project:      project.Name,
		PipelineID:   def.ID,
		PipelineName: def.Name,
		Parameters:   copyMap(params),
		Variables:    copyMap(vars),
	}
	if ref != "" {
		hctx.Ref = &ref
	}
	return hctx
}

// WithBuild returns a copy of the context that refers to the given run.
func (c HookContext) WithBuild(id int) HookContext {
	c.BuildID = &id
	return c
}

// JSON serializes the context. Parameters and variables are always objects.
func (c HookContext) JSON() ([]byte, error) {
	c.Parameters = copyMap(c.Parameters)
	c.Variables = copyMap(c.Variables)
	return json.Marshal(c)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HookResponse is the verdict a pre-queue hook prints on stdout.
type HookResponse struct {
	Approve bool
	Reason  string
}

// ParseResponse parses the full stdout of a pre-queue hook. The approve field
// is required.
func ParseResponse(stdout string) (HookResponse, error) {
	var raw struct {
		Approve *bool  `json:"approve"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(stdout), &raw); err != nil {
		return HookResponse{}, fmt.Errorf("invalid hook response: %w", err)
	}
	if raw.Approve == nil {
		return HookResponse{}, fmt.Errorf("invalid hook response: missing \"approve\"")
	}
	return HookResponse{Approve: *raw.Approve, Reason: raw.Reason}, nil
}
