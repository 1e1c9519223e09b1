package sandbox

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

const maxConvertDepth = 16

// luaToGo converts a script value into a plain Go value. Functions,
// userdata and other host-backed values convert to nil so no handle ever
// crosses the boundary. Nesting past maxConvertDepth is cut off.
func luaToGo(v lua.LValue) any {
	return convertValue(v, 0)
}

func convertValue(v lua.LValue, depth int) any {
	if depth > maxConvertDepth {
		return nil
	}
	switch v := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		return convertTable(v, depth+1)
	default:
		return nil
	}
}

// convertTable maps a pure sequence to a slice and anything else to a map.
// Mixed tables ({"name", priority = 30}) become maps with the array part
// under stringified indices.
func convertTable(t *lua.LTable, depth int) any {
	n := t.MaxN()
	pairs := 0
	t.ForEach(func(_, _ lua.LValue) { pairs++ })

	if n > 0 && pairs == n {
		arr := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			arr = append(arr, convertValue(t.RawGetInt(i), depth))
		}
		return arr
	}

	m := make(map[string]any, pairs)
	t.ForEach(func(k, v lua.LValue) {
		m[lua.LVAsString(k)] = convertValue(v, depth)
	})
	return m
}

// goToLua converts plain host data into a script value. Only data crosses
// the boundary; anything callable or host-backed is rejected.
func goToLua(L *lua.LState, v any) (lua.LValue, error) {
	return convertGoValue(L, v, 0)
}

func convertGoValue(L *lua.LState, v any, depth int) (lua.LValue, error) {
	if depth > maxConvertDepth {
		return nil, fmt.Errorf("value nesting exceeds %d levels", maxConvertDepth)
	}
	switch v := v.(type) {
	case nil:
		return lua.LNil, nil
	case bool:
		return lua.LBool(v), nil
	case int:
		return lua.LNumber(v), nil
	case int64:
		return lua.LNumber(v), nil
	case float64:
		return lua.LNumber(v), nil
	case string:
		return lua.LString(v), nil
	case []string:
		tbl := L.NewTable()
		for _, s := range v {
			tbl.Append(lua.LString(s))
		}
		return tbl, nil
	case []any:
		tbl := L.NewTable()
		for _, item := range v {
			lv, err := convertGoValue(L, item, depth+1)
			if err != nil {
				return nil, err
			}
			tbl.Append(lv)
		}
		return tbl, nil
	case map[string]any:
		tbl := L.NewTable()
		for key, item := range v {
			lv, err := convertGoValue(L, item, depth+1)
			if err != nil {
				return nil, err
			}
			tbl.RawSetString(key, lv)
		}
		return tbl, nil
	default:
		return nil, fmt.Errorf("unsupported seed value type %T", v)
	}
}
