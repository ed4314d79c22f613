package plugin

import (
	"fmt"
	"os"
	"path/filepath"
)

// Loader resolves plugin names to Lua files on the filesystem.
type Loader struct {
	// Search paths, checked in order. First match wins.
	paths []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths replaces the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{paths: DefaultPluginPaths()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPluginPaths returns the default plugin search paths.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 2)

	// Project plugins: ./plugins
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, "plugins"))
	}

	// User plugins: ~/.config/chatstorm/plugins
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "chatstorm", "plugins"))
	}

	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// Find resolves a plugin name to its Lua entry point. Single-file
// plugins (name.lua) are checked before directory plugins (name/init.lua).
func (l *Loader) Find(name string) (string, error) {
	for _, basePath := range l.paths {
		luaPath := filepath.Join(basePath, name+".lua")
		if stat, err := os.Stat(luaPath); err == nil && !stat.IsDir() {
			return luaPath, nil
		}

		initPath := filepath.Join(basePath, name, "init.lua")
		if stat, err := os.Stat(initPath); err == nil && !stat.IsDir() {
			return initPath, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}
