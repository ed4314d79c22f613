package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dshills/chatstorm/internal/plugin"
	"github.com/dshills/chatstorm/internal/protocol"
)

// ErrEvalDisabled is returned by the eval command unless the client was
// started with -allow-eval.
var ErrEvalDisabled = errors.New("eval is disabled; start with -allow-eval to enable it")

// registerBuiltins installs the built-in commands. Plugins can shadow
// these names but unload never removes a built-in that wasn't shadowed.
func (app *Application) registerBuiltins() {
	app.registry.Register(app.cmdRoom, "room")
	app.registry.Register(app.cmdEval, "eval")
	app.registry.Register(app.cmdLoad, "load", "loadplugin")
	app.registry.Register(app.cmdUnload, "unload", "unloadplugin")
	app.registry.Register(app.cmdPlugins, "plugins")
	app.registry.Register(app.cmdConfigure, "configure")
	app.registry.Register(app.cmdExit, "exit", "bye")
}

// cmdRoom switches the session room context, joining the room first if
// the connection doesn't track it yet.
func (app *Application) cmdRoom(arg string) error {
	if app.conn != nil && app.conn.Room(protocol.ToID(arg)) == nil {
		app.conn.JoinRoom(arg)
	}
	app.room = protocol.ToID(arg)
	return nil
}

// cmdEval evaluates Lua against the live session and prints the result.
// Full process privilege; gated behind -allow-eval.
func (app *Application) cmdEval(arg string) error {
	if app.eval == nil {
		return ErrEvalDisabled
	}

	result, err := app.eval.Eval(arg)
	if err != nil {
		app.log.Warn("eval failed", "error", err)
		return err
	}
	app.printer.Line(result)
	return nil
}

func (app *Application) cmdLoad(arg string) error {
	if err := app.plugins.Load(arg); err != nil {
		return err
	}
	app.printer.Line(fmt.Sprintf("Plugin %s loaded!", plugin.NormalizeName(arg)))
	return nil
}

func (app *Application) cmdUnload(arg string) error {
	if err := app.plugins.Unload(arg); err != nil {
		return err
	}
	app.printer.Line(fmt.Sprintf("Plugin %s unloaded!", plugin.NormalizeName(arg)))
	return nil
}

// cmdPlugins lists the loaded plugins and the commands each one
// contributed.
func (app *Application) cmdPlugins(string) error {
	names := app.plugins.Loaded()
	if len(names) == 0 {
		app.printer.Line("No plugins loaded.")
		return nil
	}
	for _, name := range names {
		app.printer.Line(fmt.Sprintf("%s: %s", name, strings.Join(app.plugins.Commands(name), ", ")))
	}
	return nil
}

func (app *Application) cmdConfigure(arg string) error {
	return app.Configure(arg == "advanced")
}

// cmdExit terminates the process immediately. Queued work is dropped on
// purpose; there is nothing worth flushing in a chat session.
func (app *Application) cmdExit(string) error {
	os.Exit(0)
	return nil
}
