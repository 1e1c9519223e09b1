package sandbox

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// EnvConfig bounds the interpreter state backing each environment.
type EnvConfig struct {
	CallStackSize int // Lua call stack depth
	RegistrySize  int // VM registry (value stack) size
}

// DefaultEnvConfig returns the builder defaults.
func DefaultEnvConfig() EnvConfig {
	return EnvConfig{
		CallStackSize: 120,
		RegistrySize:  1024 * 4,
	}
}

// Environment is one restricted global scope backed by its own interpreter
// state. It is owned by a single run at a time and must never be shared
// across concurrent invocations.
type Environment struct {
	profile *Profile
	state   *lua.LState
	globals *lua.LTable
	broken  bool
	closed  bool
}

// Builder materializes restricted environments from profiles.
type Builder struct {
	cfg EnvConfig
}

// NewBuilder creates an environment builder.
func NewBuilder(cfg EnvConfig) *Builder {
	if cfg.CallStackSize <= 0 {
		cfg.CallStackSize = DefaultEnvConfig().CallStackSize
	}
	if cfg.RegistrySize <= 0 {
		cfg.RegistrySize = DefaultEnvConfig().RegistrySize
	}
	return &Builder{cfg: cfg}
}

// Materialize builds a fresh Environment containing exactly the bindings
// named by the profile plus the fixed core identifiers _G (a self-reference
// to the restricted scope) and _VERSION. The scope starts empty and is
// filled only from the profile closure; scripts resolve globals through it
// alone.
func (b *Builder) Materialize(p *Profile) (*Environment, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: b.cfg.CallStackSize,
		RegistrySize:  b.cfg.RegistrySize,
	})

	// The allowlisted libraries are opened only as a harvest source; the
	// state's globals are never visible to scripts.
	lua.OpenBase(L)
	lua.OpenString(L)
	lua.OpenTable(L)
	lua.OpenMath(L)
	lua.OpenOs(L)
	L.SetTop(0)

	version := L.GetGlobal("_VERSION")

	globals := L.NewTable()
	for _, c := range p.Capabilities() {
		v := c.Bind(L)
		if v == lua.LNil {
			L.Close()
			return nil, fmt.Errorf("capability %s.%s did not materialize", c.Namespace, c.Name)
		}
		if c.Namespace == NamespaceBase {
			globals.RawSetString(c.Name, v)
			continue
		}
		ns, ok := globals.RawGetString(c.Namespace).(*lua.LTable)
		if !ok {
			ns = L.NewTable()
			globals.RawSetString(c.Namespace, ns)
		}
		ns.RawSetString(c.Name, v)
	}

	globals.RawSetString("_G", globals)
	globals.RawSetString("_VERSION", version)

	clampStringMetatable(L, p)
	for _, name := range knockoutGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	return &Environment{profile: p, state: L, globals: globals}, nil
}

// clampStringMetatable replaces the shared string metatable so that method
// call syntax ("x"):upper() resolves only profiled string capabilities, and
// marks it protected against metatable walks.
func clampStringMetatable(L *lua.LState, p *Profile) {
	idx := L.NewTable()
	for _, c := range p.Capabilities() {
		if c.Namespace == "string" {
			idx.RawSetString(c.Name, c.Bind(L))
		}
	}
	mt := L.NewTable()
	mt.RawSetString("__index", idx)
	mt.RawSetString("__metatable", lua.LString("protected"))
	L.SetMetatable(lua.LString(""), mt)
}

// Profile returns the profile this environment was materialized from.
func (e *Environment) Profile() *Profile { return e.profile }

// Resolve looks up an identifier in the restricted scope. Nested lookups
// use dotted form ("string.format").
func (e *Environment) Resolve(identifier string) lua.LValue {
	cur := lua.LValue(e.globals)
	for {
		tbl, ok := cur.(*lua.LTable)
		if !ok {
			return lua.LNil
		}
		if i := strings.IndexByte(identifier, '.'); i >= 0 {
			cur = tbl.RawGetString(identifier[:i])
			identifier = identifier[i+1:]
			continue
		}
		return tbl.RawGetString(identifier)
	}
}

// Identifiers returns every top-level identifier resolvable in the scope.
func (e *Environment) Identifiers() []string {
	var names []string
	e.globals.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			names = append(names, string(s))
		}
	})
	return names
}

// Seed places plain host data into the restricted scope under the given
// identifier. Only data crosses the boundary; callable or host-backed
// values are rejected.
func (e *Environment) Seed(identifier string, value any) error {
	lv, err := goToLua(e.state, value)
	if err != nil {
		return fmt.Errorf("seed %s: %w", identifier, err)
	}
	e.globals.RawSetString(identifier, lv)
	return nil
}

// Export reads an identifier back out of the restricted scope as a plain
// Go value.
func (e *Environment) Export(identifier string) any {
	return luaToGo(e.Resolve(identifier))
}

// Broken reports whether a previous run interrupted the environment and
// left it unusable.
func (e *Environment) Broken() bool { return e.broken }

// Close releases the interpreter state. Idempotent.
func (e *Environment) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.state.Close()
}
