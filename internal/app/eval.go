package app

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/chatstorm/internal/script"
)

// Evaluator runs the eval command: Lua code against a `session` module
// bound to the live application. It shares one interpreter across
// invocations so state set by one eval is visible to the next.
type Evaluator struct {
	state *script.State
}

// NewEvaluator creates the eval interpreter and binds the session API.
func NewEvaluator(app *Application) *Evaluator {
	state := script.NewState()

	state.RegisterModule("session", map[string]lua.LGFunction{
		// session.room() -> current room context
		"room": func(L *lua.LState) int {
			L.Push(lua.LString(app.room))
			return 1
		},
		// session.send(message) sends to the current room
		"send": func(L *lua.LState) int {
			if app.conn == nil {
				L.RaiseError("not connected")
				return 0
			}
			if err := app.send(L.CheckString(1)); err != nil {
				L.RaiseError("send: %v", err)
			}
			return 0
		},
		// session.user() -> local user ID, "" before login
		"user": func(L *lua.LState) int {
			id := ""
			if app.conn != nil {
				id = app.conn.UserID()
			}
			L.Push(lua.LString(id))
			return 1
		},
		// session.pref(key) -> preference value as a string
		"pref": func(L *lua.LState) int {
			L.Push(lua.LString(app.store.GetString(L.CheckString(1))))
			return 1
		},
		// session.setpref(key, value) stores a string preference
		"setpref": func(L *lua.LState) int {
			if err := app.store.Set(L.CheckString(1), L.CheckString(2)); err != nil {
				L.RaiseError("setpref: %v", err)
			}
			return 0
		},
		// session.commands() -> sorted command names
		"commands": func(L *lua.LState) int {
			t := L.NewTable()
			for _, name := range app.registry.Names() {
				t.Append(lua.LString(name))
			}
			L.Push(t)
			return 1
		},
	})

	return &Evaluator{state: state}
}

// Eval evaluates code and returns a printable result.
func (e *Evaluator) Eval(code string) (string, error) {
	return e.state.Eval(code)
}

// Close releases the interpreter.
func (e *Evaluator) Close() {
	e.state.Close()
}
