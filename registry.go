package tabletalk

import (
	"slices"
	"sync"
)

// Sanitize returns a protocol-safe rendering of a tool name: every rune
// outside [A-Za-z0-9_-] becomes '_'. It is pure and idempotent.
func Sanitize(name string) string {
	out := []byte(name)
	changed := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			out[i] = '_'
			changed = true
		}
	}
	if !changed {
		return name
	}
	return string(out)
}

// Registry holds the tool catalog fetched from the backend and the mapping
// from sanitized names back to backend-callable names. The mapping is the
// sole source of truth for name recovery and is rebuilt in full on every
// Register call, so a partial catalog refresh never leaves a stale mapping
// visible. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	tools    []Tool
	original map[string]string // sanitized -> original
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{original: make(map[string]string)}
}

// Register replaces the catalog and rebuilds the name mapping atomically.
// When two distinct original names sanitize to the same safe name, the later
// one wins; the returned collision count lets callers surface the gap.
func (r *Registry) Register(tools []Tool) (collisions int) {
	mapping := make(map[string]string, len(tools))
	sanitized := make([]Tool, len(tools))
	for i, t := range tools {
		safe := Sanitize(t.Name)
		if prev, ok := mapping[safe]; ok && prev != t.Name {
			collisions++
		}
		mapping[safe] = t.Name
		sanitized[i] = Tool{Name: safe, Description: t.Description, InputSchema: t.InputSchema}
	}
	slices.SortFunc(sanitized, func(a, b Tool) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = sanitized
	r.original = mapping
	return collisions
}

// Resolve returns the backend-callable name for a sanitized name. Unknown
// names are returned unchanged, treating them as already-original so an
// unregistered name still reaches the backend for its own error reporting.
func (r *Registry) Resolve(safeName string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if orig, ok := r.original[safeName]; ok {
		return orig
	}
	return safeName
}

// Tools returns the catalog with sanitized names, sorted by name for
// deterministic model requests.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
