// Package plugin manages runtime-loaded command plugins. A plugin is a
// Lua file that defines a global `commands` table mapping command names
// to functions of one string argument. Loading merges those commands
// into the registry; unloading removes them again.
package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/chatstorm/internal/command"
	"github.com/dshills/chatstorm/internal/prefs"
	"github.com/dshills/chatstorm/internal/script"
)

// Manager tracks loaded plugins and keeps the command registry and the
// persisted plugin list in sync with them.
type Manager struct {
	mu sync.Mutex

	loader   *Loader
	registry *command.Registry
	store    *prefs.Store
	log      *slog.Logger

	// Loaded plugins by normalized name.
	loaded map[string]*loadedPlugin
}

// loadedPlugin holds the live interpreter backing a plugin's handlers.
type loadedPlugin struct {
	state *script.State
	names []string
}

// NewManager creates a plugin manager.
func NewManager(loader *Loader, registry *command.Registry, store *prefs.Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		loader:   loader,
		registry: registry,
		store:    store,
		log:      log,
		loaded:   make(map[string]*loadedPlugin),
	}
}

// NormalizeName maps user input to a plugin identifier: lowercase with
// spaces removed.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "")
}

// Load resolves a plugin, merges its commands into the registry (names
// colliding with existing entries are overwritten, last loaded wins),
// and persists the updated plugin list.
func (m *Manager) Load(name string) error {
	name = NormalizeName(name)
	if name == "" {
		return ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.loaded[name]; ok {
		return fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}

	state, handlers, err := m.resolve(name)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(handlers))
	for cmdName, h := range handlers {
		m.registry.Register(h, cmdName)
		names = append(names, cmdName)
	}
	sort.Strings(names)

	m.loaded[name] = &loadedPlugin{state: state, names: names}
	m.persistList()

	m.log.Info("plugin loaded", "plugin", name, "commands", names)
	return nil
}

// Unload re-resolves a plugin to discover the commands it contributed,
// removes them from the registry and drops it from the loaded set. The
// backing interpreter is closed afterwards.
func (m *Manager) Unload(name string) error {
	name = NormalizeName(name)
	if name == "" {
		return ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	lp, ok := m.loaded[name]
	if !ok {
		return fmt.Errorf("plugin %q: %w", name, ErrNotLoaded)
	}

	// Re-resolve so a plugin file edited since load still unloads the
	// names its current version declares.
	state, handlers, err := m.resolve(name)
	if err != nil {
		return err
	}
	state.Close()

	for cmdName := range handlers {
		m.registry.Unregister(cmdName)
	}

	delete(m.loaded, name)
	lp.state.Close()
	m.persistList()

	m.log.Info("plugin unloaded", "plugin", name)
	return nil
}

// LoadDeclared loads every plugin named in the persisted plugin list.
// Failures are logged and skipped so one bad plugin doesn't block the
// rest.
func (m *Manager) LoadDeclared() {
	for _, name := range m.store.GetStrings(prefs.KeyPlugins) {
		if err := m.Load(name); err != nil {
			m.log.Warn("declared plugin failed to load", "plugin", name, "error", err)
		}
	}
}

// IsLoaded reports whether a plugin is currently loaded.
func (m *Manager) IsLoaded(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.loaded[NormalizeName(name)]
	return ok
}

// Loaded returns the names of all loaded plugins, sorted.
func (m *Manager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands returns the command names a loaded plugin contributed.
func (m *Manager) Commands(name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	lp, ok := m.loaded[NormalizeName(name)]
	if !ok {
		return nil
	}
	out := make([]string, len(lp.names))
	copy(out, lp.names)
	return out
}

// Close unloads interpreter state for all plugins without touching the
// registry or the persisted list.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, lp := range m.loaded {
		lp.state.Close()
	}
	m.loaded = make(map[string]*loadedPlugin)
}

// resolve locates a plugin file, executes it in a fresh interpreter and
// extracts its command handlers. On success the caller owns the state.
func (m *Manager) resolve(name string) (*script.State, map[string]command.Handler, error) {
	path, err := m.loader.Find(name)
	if err != nil {
		return nil, nil, err
	}

	state := script.NewState()
	if err := state.DoFile(path); err != nil {
		state.Close()
		return nil, nil, fmt.Errorf("plugin %q: %w", name, err)
	}

	tbl, ok := state.GlobalTable("commands")
	if !ok {
		state.Close()
		return nil, nil, fmt.Errorf("plugin %q: %w", name, ErrInvalidPlugin)
	}

	handlers := make(map[string]command.Handler)
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		fn, ok := v.(*lua.LFunction)
		if !ok {
			return
		}
		handlers[strings.ToLower(string(key))] = func(arg string) error {
			return state.CallFunction(fn, arg)
		}
	})

	if len(handlers) == 0 {
		state.Close()
		return nil, nil, fmt.Errorf("plugin %q: %w", name, ErrInvalidPlugin)
	}

	return state, handlers, nil
}

// persistList writes the loaded plugin names to the preference store.
// Must be called with the mutex held.
func (m *Manager) persistList() {
	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := m.store.Set(prefs.KeyPlugins, names); err != nil {
		m.log.Error("persisting plugin list failed", "error", err)
	}
}
