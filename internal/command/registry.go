// Package command provides the runtime registry mapping command names
// to handlers. Built-ins are registered at startup; plugins merge and
// remove entries while the client runs.
package command

import (
	"sort"
	"strings"
	"sync"
)

// Handler executes one command. arg is everything after the command
// token, "" when absent.
type Handler func(arg string) error

// Registry maps lowercase command names to handlers. Registering an
// existing name overwrites it: last registered wins.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler under one or more names (aliases).
// Names are lowercased; nil handlers are ignored.
func (r *Registry) Register(h Handler, names ...string) {
	if h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.handlers[strings.ToLower(name)] = h
	}
}

// Unregister removes the given names. Names not present are skipped,
// which keeps removal tolerant of entries overwritten by a later
// registration.
func (r *Registry) Unregister(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		delete(r.handlers, strings.ToLower(name))
	}
}

// Lookup returns the handler for a name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[strings.ToLower(name)]
	return h, ok
}

// Has reports whether a name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered names.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
