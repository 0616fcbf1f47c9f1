package tools

import (
	"fmt"
	"sort"
)

// Registry holds tools keyed by name. It is filled once at build time.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry registers every tool and rejects duplicate or empty names.
func NewRegistry(ts ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("register tool: nil tool")
	}
	name := t.Definition().Name
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("register tool: %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns tool definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Definition())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int { return len(r.tools) }
