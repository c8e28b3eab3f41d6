package tool

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry resolves tool names to Tool implementations. A Registry is safe
// for concurrent use: Register/Unregister take the write lock, every lookup
// takes the read lock, matching the teacher's registry discipline of never
// holding the lock across a tool's own Execute call.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. It rejects a nil tool, an empty name, a nil schema,
// and a duplicate name so misconfiguration fails at startup rather than at
// first invocation.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool: cannot register nil tool")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool: cannot register tool with empty name")
	}
	if t.Schema() == nil {
		return fmt.Errorf("tool: cannot register tool %q with nil schema", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool: %q is already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Unregister removes a tool by name. It is a no-op if the name is unknown.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name, or (nil, false).
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns every registered tool name in sorted order, for stable
// enumeration (diffable logs, deterministic test output).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declaration is the enumerable, LLM-facing shape of a registered tool:
// name, description, and argument schema, with nothing execution-specific.
type Declaration struct {
	Name        string
	Description string
	Kind        Kind
	Schema      *Schema
}

// ListDeclarations returns the tool-call surface (spec.md §6: "each tool is
// advertised as {name, description, parameters-schema}") for every
// registered tool, sorted by name.
func (r *Registry) ListDeclarations() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls := make([]Declaration, 0, len(r.tools))
	for _, t := range r.tools {
		decls = append(decls, Declaration{
			Name:        t.Name(),
			Description: t.Description(),
			Kind:        t.Kind(),
			Schema:      t.Schema(),
		})
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls
}

// ExpandToolPatterns resolves a list of exact names, "namespace.*" wildcard
// prefixes, and a bare "*" (meaning every registered tool) into the
// concrete set of registered tool names it denotes. Unknown exact names are
// silently dropped; callers that need to surface that should diff the
// result against their input.
func (r *Registry) ExpandToolPatterns(patterns []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, pattern := range patterns {
		switch {
		case pattern == "*":
			for name := range r.tools {
				add(name)
			}
		case hasNamespacePrefix(pattern):
			prefix := strings.TrimSuffix(pattern, "*")
			for name := range r.tools {
				if strings.HasPrefix(name, prefix) {
					add(name)
				}
			}
		default:
			if _, ok := r.tools[pattern]; ok {
				add(pattern)
			}
		}
	}

	sort.Strings(out)
	return out
}

func hasNamespacePrefix(pattern string) bool {
	return strings.HasSuffix(pattern, ".*") || (strings.HasSuffix(pattern, "*") && strings.Contains(pattern, "."))
}

// Filter returns a new Registry containing exactly the named tools. It
// errors if names is empty or if any name is not registered, so a
// misconfigured allowlist fails loudly instead of silently narrowing to
// nothing.
func (r *Registry) Filter(names []string) (*Registry, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("tool: Filter requires at least one tool name")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	filtered := NewRegistry()
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, fmt.Errorf("tool: Filter: unknown tool %q", name)
		}
		filtered.tools[name] = t
	}
	return filtered, nil
}

// SupportsStreaming reports whether the named tool implements StreamingTool.
func (r *Registry) SupportsStreaming(name string) bool {
	t, ok := r.Get(name)
	if !ok {
		return false
	}
	_, ok = t.(StreamingTool)
	return ok
}
