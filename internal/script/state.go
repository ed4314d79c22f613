// Package script wraps gopher-lua for plugin command handlers and the
// eval command. Each plugin runs in its own State; eval uses one shared
// State wired to the session.
package script

import (
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// State is a Lua interpreter with only the safe standard libraries
// opened.
//
// gopher-lua's LState is not goroutine-safe; the mutex serializes all
// access from Go code. Handlers run on the dispatch loop goroutine, so
// contention is rare in practice.
type State struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

// NewState creates a Lua state with base, table, string and math
// libraries. io, os, debug and package stay closed: plugin code is
// trusted but has no business doing file or process work through Lua.
func NewState() *State {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	return &State{L: L}
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.withRecovery(func() error {
		return s.L.DoFile(path)
	})
}

// Eval evaluates an expression or chunk and returns the results as a
// printable string. Expressions are tried first ("return <code>") so
// that `eval 1+1` prints 2 the way an interactive interpreter would.
func (s *State) Eval(code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStateClosed
	}

	var results []lua.LValue
	err := s.withRecovery(func() error {
		top := s.L.GetTop()

		fn, err := s.L.LoadString("return " + code)
		if err != nil {
			// Not an expression; run it as a statement chunk.
			fn, err = s.L.LoadString(code)
			if err != nil {
				return err
			}
		}

		s.L.Push(fn)
		if err := s.L.PCall(0, lua.MultRet, nil); err != nil {
			return err
		}

		n := s.L.GetTop() - top
		for i := 0; i < n; i++ {
			results = append(results, s.L.Get(top+i+1))
		}
		s.L.SetTop(top)
		return nil
	})
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(results))
	for _, v := range results {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "\t"), nil
}

// CallFunction invokes a Lua function value with string arguments.
func (s *State) CallFunction(fn *lua.LFunction, args ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	return s.withRecovery(func() error {
		s.L.Push(fn)
		for _, arg := range args {
			s.L.Push(lua.LString(arg))
		}
		return s.L.PCall(len(args), 0, nil)
	})
}

// GlobalTable returns the global with the given name if it is a table.
func (s *State) GlobalTable(name string) (*lua.LTable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false
	}

	t, ok := s.L.GetGlobal(name).(*lua.LTable)
	return t, ok
}

// RegisterModule exposes Go functions to Lua as a named module table.
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	mod := s.L.SetFuncs(s.L.NewTable(), funcs)
	s.L.SetGlobal(name, mod)
}

// Close releases the interpreter. Further calls return ErrStateClosed.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}

// withRecovery turns a Lua panic into an error. Must be called with the
// mutex held.
func (s *State) withRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
