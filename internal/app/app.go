// Package app wires the client together and runs the dispatch loop:
// a single consumer draining the event queue fed by the connection and
// the line queue fed by the interactive input producer.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/dshills/chatstorm/internal/command"
	"github.com/dshills/chatstorm/internal/plugin"
	"github.com/dshills/chatstorm/internal/prefs"
	"github.com/dshills/chatstorm/internal/protocol"
	"github.com/dshills/chatstorm/internal/queue"
	"github.com/dshills/chatstorm/internal/render"
)

// Defaults applied when the preference store has no value.
const (
	DefaultPrompt      = "{room}> "
	DefaultCommandChar = "%"
)

// Options configures the application.
type Options struct {
	// PrefsPath is the preference file location. Defaults to
	// prefs.DefaultPath.
	PrefsPath string

	// AllowEval enables the eval command. It evaluates arbitrary Lua
	// against the live session with full process privilege; off by
	// default for that reason.
	AllowEval bool

	// Debug additionally logs to stderr.
	Debug bool

	// LogLevel sets logging verbosity (debug, info, warn, error).
	LogLevel string

	// PluginPaths overrides the plugin search paths.
	PluginPaths []string

	// Input is the interactive input source. Defaults to os.Stdin.
	Input io.Reader

	// Output is where rendered lines go. Defaults to os.Stdout.
	Output io.Writer

	// Logger overrides the default file logger.
	Logger *slog.Logger
}

// Application owns the session state: room context, prompt template,
// command prefix and the busy flag. All state except the busy flag is
// touched only from the dispatch loop goroutine; the busy flag is the
// single cross-goroutine coordination point with the input producer.
type Application struct {
	opts Options
	log  *slog.Logger

	conn     protocol.Connection
	store    *prefs.Store
	watcher  *prefs.Watcher
	registry *command.Registry
	plugins  *plugin.Manager
	renderer *render.Renderer
	printer  *render.Printer
	eval     *Evaluator

	events *queue.Queue[protocol.Event]
	lines  *queue.Queue[string]

	in io.Reader

	// Session context, owned by the dispatch loop.
	room       string
	promptTpl  string
	cmdChar    string
	autojoined bool

	busy atomic.Bool
	done chan struct{}
}

// New creates the application. conn may be nil when only the configure
// flow will run.
func New(conn protocol.Connection, opts Options) (*Application, error) {
	if opts.PrefsPath == "" {
		opts.PrefsPath = prefs.DefaultPath
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	log := opts.Logger
	if log == nil {
		log = NewLogger(opts.LogLevel, opts.Debug)
	}

	store, err := prefs.Open(opts.PrefsPath)
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}

	// Edits to the preference file from another process take effect
	// without a restart. A failed watch is not fatal.
	watcher, err := store.Watch()
	if err != nil {
		log.Warn("preference watch unavailable", "error", err)
		watcher = nil
	}

	app := &Application{
		opts:     opts,
		log:      log,
		conn:     conn,
		store:    store,
		watcher:  watcher,
		registry: command.NewRegistry(),
		printer:  render.NewPrinter(opts.Output),
		events:   queue.New[protocol.Event](),
		lines:    queue.New[string](),
		in:       opts.Input,
		done:     make(chan struct{}),
	}

	selfID := func() string { return "" }
	if conn != nil {
		selfID = conn.UserID
	}
	app.renderer = render.New(store, selfID)

	app.promptTpl = store.GetString(prefs.KeyPrompt)
	if app.promptTpl == "" {
		app.promptTpl = DefaultPrompt
	}
	app.cmdChar = store.GetString(prefs.KeyCommandChar)
	if app.cmdChar == "" {
		app.cmdChar = DefaultCommandChar
	}

	app.registerBuiltins()

	loader := plugin.NewLoader()
	if len(opts.PluginPaths) > 0 {
		loader = plugin.NewLoader(plugin.WithPaths(opts.PluginPaths...))
	}
	log.Debug("plugin search paths", "paths", loader.Paths())

	app.plugins = plugin.NewManager(loader, app.registry, store, log)
	app.plugins.LoadDeclared()

	if opts.AllowEval {
		app.eval = NewEvaluator(app)
	}

	if conn != nil {
		conn.OnEvent(app.events.Push)
	}

	return app, nil
}

// Prefs returns the preference store.
func (app *Application) Prefs() *prefs.Store {
	return app.store
}

// Registry returns the command registry.
func (app *Application) Registry() *command.Registry {
	return app.registry
}

// Room returns the current room context ("" = global).
func (app *Application) Room() string {
	return app.room
}

// prompt renders the prompt template for the current room.
func (app *Application) prompt() string {
	return strings.ReplaceAll(app.promptTpl, "{room}", app.room)
}

// send delivers a chat line to the current room context.
func (app *Application) send(message string) error {
	return app.conn.Send(app.room + "|" + message)
}

// Stop ends the dispatch loop. The exit command bypasses this and
// terminates the process directly.
func (app *Application) Stop() {
	select {
	case <-app.done:
	default:
		close(app.done)
	}
}

// Close releases plugin interpreters, the eval state and the
// preference watcher.
func (app *Application) Close() {
	app.plugins.Close()
	if app.eval != nil {
		app.eval.Close()
	}
	if app.watcher != nil {
		app.watcher.Close()
	}
}
