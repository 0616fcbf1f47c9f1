package executor

import (
	"fmt"

	"github.com/mohammad-safakhou/webagent/tools"
)

// RoleKind is the closed set of roles a task can be bound to.
type RoleKind string

const (
	WebResearcher   RoleKind = "web_researcher"
	ContentAnalyzer RoleKind = "content_analyzer"
	ReportWriter    RoleKind = "report_writer"
)

func (k RoleKind) Valid() bool {
	switch k {
	case WebResearcher, ContentAnalyzer, ReportWriter:
		return true
	}
	return false
}

// Title is the human-readable role name used in prompts.
func (k RoleKind) Title() string {
	switch k {
	case WebResearcher:
		return "Web Researcher"
	case ContentAnalyzer:
		return "Content Analyzer"
	case ReportWriter:
		return "Report Writer"
	}
	return string(k)
}

// Role is an immutable capability bundle: persona plus the tools it may call.
type Role struct {
	kind      RoleKind
	goal      string
	backstory string
	tools     []tools.Tool
	byName    map[string]tools.Tool
}

func NewRole(kind RoleKind, goal, backstory string, ts ...tools.Tool) (*Role, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown role kind %q", kind)
	}
	r := &Role{
		kind:      kind,
		goal:      goal,
		backstory: backstory,
		tools:     make([]tools.Tool, 0, len(ts)),
		byName:    make(map[string]tools.Tool, len(ts)),
	}
	for _, t := range ts {
		if t == nil {
			return nil, fmt.Errorf("role %s: nil tool", kind)
		}
		name := t.Definition().Name
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("role %s: duplicate tool %q", kind, name)
		}
		r.byName[name] = t
		r.tools = append(r.tools, t)
	}
	return r, nil
}

func (r *Role) Kind() RoleKind { return r.kind }
func (r *Role) Goal() string { return r.goal }
func (r *Role) Backstory() string { return r.backstory }
func (r *Role) Tool(name string) (tools.Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns a copy of the role's tools in registration order.
func (r *Role) Tools() []tools.Tool {
	out := make([]tools.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}
