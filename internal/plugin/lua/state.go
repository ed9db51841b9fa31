// Package lua hosts chat plugins written in Lua. A script declares a
// global plugin table with its manifest fields and handler functions;
// the host turns that table into a regular plugin.
package lua

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// State wraps a sandboxed gopher-lua state.
//
// LState is not goroutine-safe; the mutex serializes every call into
// the interpreter, so one slow handler blocks the others of the same
// script but never those of other scripts.
type State struct {
	mu sync.Mutex

	L      *lua.LState
	closed bool
}

// NewState creates a sandboxed Lua state. Only the base, table, string
// and math libraries are open; io, os, debug, package loading and the
// load* functions are unavailable.
func NewState() *State {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}

	return &State{L: L}
}

// DoFile executes a script file.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.recovered(func() error { return s.L.DoFile(path) })
}

// DoString executes a script from a string.
func (s *State) DoString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.recovered(func() error { return s.L.DoString(code) })
}

// Global returns a global value, LNil when closed.
func (s *State) Global(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// CallHandler calls a Lua function with one table argument built from
// args, returning the first result converted to a Go value. All
// interpreter access happens under the state lock, including table
// construction, so handlers of one script never race.
func (s *State) CallHandler(fn *lua.LFunction, args map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	top := s.L.GetTop()
	s.L.Push(fn)
	s.L.Push(toLuaValue(s.L, args))

	err := s.recovered(func() error { return s.L.PCall(1, lua.MultRet, nil) })
	if err != nil {
		return nil, err
	}

	nret := s.L.GetTop() - top
	if nret <= 0 {
		return nil, nil
	}
	result := toGoValue(s.L.Get(top + 1))
	s.L.Pop(nret)
	return result, nil
}

// Close releases the interpreter. Safe to call twice.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

// recovered runs fn converting interpreter panics into errors.
// Must be called with s.mu held.
func (s *State) recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
