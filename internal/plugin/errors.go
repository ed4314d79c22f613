package plugin

import "errors"

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrAlreadyLoaded is returned when attempting to load an already loaded plugin.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")

	// ErrNotLoaded is returned when attempting to unload a plugin that isn't loaded.
	ErrNotLoaded = errors.New("plugin is not loaded")

	// ErrInvalidPlugin is returned when a plugin file defines no usable commands.
	ErrInvalidPlugin = errors.New("invalid plugin")

	// ErrEmptyName is returned when no plugin name is given.
	ErrEmptyName = errors.New("no plugin name specified")
)
