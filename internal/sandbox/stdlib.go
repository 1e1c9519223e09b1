package sandbox

import (
	lua "github.com/yuin/gopher-lua"
)

// stdlibTable is the static allowlist of Lua standard library members the
// registry exposes. io.*, os.execute/remove/rename/exit, the load family,
// coroutine.* and debug.* are deliberately absent. getmetatable and
// setmetatable are registered as boundary-aware wrappers, never raw.
var stdlibTable = map[string][]string{
	NamespaceBase: {
		"assert",
		"error",
		"ipairs",
		"next",
		"pairs",
		"select",
		"rawequal",
		"rawget",
		"rawset",
		"tonumber",
		"tostring",
		"type",
		"unpack",
	},
	"math": {
		"abs", "acos", "asin", "atan", "atan2", "ceil", "cos", "cosh",
		"deg", "exp", "floor", "fmod", "frexp", "huge", "ldexp", "log",
		"log10", "max", "min", "modf", "pi", "pow", "rad", "random",
		"randomseed", "sin", "sinh", "sqrt", "tan", "tanh",
	},
	"os": {
		"clock", "date", "difftime", "getenv", "time",
	},
	"string": {
		"byte", "char", "find", "format", "gmatch", "gsub", "len",
		"lower", "match", "rep", "reverse", "sub", "upper",
	},
	"table": {
		"concat", "insert", "maxn", "remove", "sort",
	},
}

// knockoutGlobals are base-library globals nilled out of every materialized
// state even though the function environment already hides them.
var knockoutGlobals = []string{
	"dofile", "loadfile", "load", "loadstring", "collectgarbage",
	"require", "print", "rawlen", "pcall", "xpcall", "getfenv",
	"setfenv", "getmetatable", "setmetatable", "module", "newproxy",
}

// RegisterStdlib populates a registry from the static allowlist.
func RegisterStdlib(r *Registry) error {
	for _, name := range stdlibTable[NamespaceBase] {
		if err := r.Register(NamespaceBase, name, bindGlobal(name)); err != nil {
			return err
		}
	}
	for _, ns := range []string{"math", "os", "string", "table"} {
		for _, name := range stdlibTable[ns] {
			if err := r.Register(ns, name, bindMember(ns, name)); err != nil {
				return err
			}
		}
	}

	// Reflection crosses the sandbox boundary unless wrapped.
	if err := r.Register(NamespaceBase, "getmetatable", bindFunc(safeGetMetatable)); err != nil {
		return err
	}
	if err := r.Register(NamespaceBase, "setmetatable", bindFunc(safeSetMetatable)); err != nil {
		return err
	}
	return nil
}

// NewStdlibRegistry builds and freezes a registry holding exactly the
// static allowlist.
func NewStdlibRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := RegisterStdlib(r); err != nil {
		return nil, err
	}
	r.Freeze()
	return r, nil
}

func bindGlobal(name string) Binding {
	return func(L *lua.LState) lua.LValue {
		return L.GetGlobal(name)
	}
}

func bindMember(lib, name string) Binding {
	return func(L *lua.LState) lua.LValue {
		return L.GetField(L.GetGlobal(lib), name)
	}
}

func bindFunc(fn lua.LGFunction) Binding {
	return func(L *lua.LState) lua.LValue {
		return L.NewFunction(fn)
	}
}

// safeGetMetatable refuses to expose metatables of non-table values, which
// blocks walking the shared string metatable back into host structures.
// Tables honor the __metatable guard field.
func safeGetMetatable(L *lua.LState) int {
	v := L.CheckAny(1)
	tbl, ok := v.(*lua.LTable)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	mt := L.GetMetatable(tbl)
	if mtTbl, ok := mt.(*lua.LTable); ok {
		if guard := mtTbl.RawGetString("__metatable"); guard != lua.LNil {
			L.Push(guard)
			return 1
		}
	}
	L.Push(mt)
	return 1
}

// safeSetMetatable only operates on plain tables and refuses to replace a
// protected metatable.
func safeSetMetatable(L *lua.LState) int {
	tbl := L.CheckTable(1)
	mt := L.Get(2)

	if cur, ok := L.GetMetatable(tbl).(*lua.LTable); ok {
		if cur.RawGetString("__metatable") != lua.LNil {
			L.RaiseError("cannot change a protected metatable")
		}
	}

	switch mt.(type) {
	case *lua.LTable, *lua.LNilType:
		L.SetMetatable(tbl, mt)
	default:
		L.RaiseError("nil or table expected")
	}
	L.Push(tbl)
	return 1
}
