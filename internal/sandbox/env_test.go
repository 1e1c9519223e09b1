package sandbox

import (
	"context"
	"sort"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func testProfile(t *testing.T, includes ...string) *Profile {
	t.Helper()
	r, err := NewStdlibRegistry()
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	p, err := r.BuildProfile(includes...)
	if err != nil {
		t.Fatalf("Failed to build profile: %v", err)
	}
	return p
}

func testEnv(t *testing.T, includes ...string) *Environment {
	t.Helper()
	env, err := NewBuilder(DefaultEnvConfig()).Materialize(testProfile(t, includes...))
	if err != nil {
		t.Fatalf("Failed to materialize environment: %v", err)
	}
	t.Cleanup(env.Close)
	return env
}

func TestMaterializeExactClosure(t *testing.T) {
	env := testEnv(t, "string", "os.clock")

	ids := env.Identifiers()
	sort.Strings(ids)

	want := []string{"_G", "_VERSION", "os", "string"}
	if len(ids) != len(want) {
		t.Fatalf("Identifiers() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Identifiers() = %v, want %v", ids, want)
		}
	}

	if env.Resolve("os.clock") == lua.LNil {
		t.Error("os.clock should resolve")
	}
	if env.Resolve("os.getenv") != lua.LNil {
		t.Error("os.getenv leaked into the environment")
	}
	if env.Resolve("string.format") == lua.LNil {
		t.Error("string.format should resolve")
	}
}

func TestMaterializeCoreIdentifiers(t *testing.T) {
	env := testEnv(t, "math.floor")

	if env.Resolve("_G") != lua.LValue(env.globals) {
		t.Error("_G should be a self-reference to the restricted scope")
	}
	v, ok := env.Resolve("_VERSION").(lua.LString)
	if !ok || v == "" {
		t.Errorf("_VERSION = %v, want non-empty string", v)
	}
}

func TestMaterializeExcludesEscapeHatches(t *testing.T) {
	env := testEnv(t, "base", "string", "table", "math", "os.clock", "os.getenv")

	for _, id := range []string{
		"io", "os.execute", "os.remove", "os.exit",
		"dofile", "loadfile", "load", "loadstring", "require",
		"collectgarbage", "coroutine", "debug", "package",
	} {
		if env.Resolve(id) != lua.LNil {
			t.Errorf("%s is reachable from the environment", id)
		}
	}
}

func TestMaterializedEnvironmentsAreIndependent(t *testing.T) {
	p := testProfile(t, "base", "table")
	b := NewBuilder(DefaultEnvConfig())

	env1, err := b.Materialize(p)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	defer env1.Close()
	env2, err := b.Materialize(p)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	defer env2.Close()

	if env1.state == env2.state {
		t.Fatal("environments share an interpreter state")
	}

	g := NewGuard(0)
	if _, err := g.Run(context.Background(), env1, `shared = "one"`, Limits{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	res, err := g.Run(context.Background(), env2, `return shared`, Limits{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Value != nil {
		t.Errorf("env2 observed env1's globals: %v", res.Value)
	}
}

func TestGetMetatableWrapped(t *testing.T) {
	env := testEnv(t, "base", "string")
	g := NewGuard(0)

	tests := []struct {
		name   string
		script string
		want   any
	}{
		{
			name:   "string metatable unreachable",
			script: `return getmetatable("") == nil`,
			want:   true,
		},
		{
			name:   "plain table metatable readable",
			script: `local t = setmetatable({}, {probe = 1}); return getmetatable(t).probe`,
			want:   float64(1),
		},
		{
			name:   "nil for metatable-less table",
			script: `return getmetatable({}) == nil`,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := g.Run(context.Background(), env, tt.script, Limits{})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Outcome != OutcomeValue {
				t.Fatalf("Outcome = %s, err = %v", res.Outcome, res.Err)
			}
			if res.Value != tt.want {
				t.Errorf("Value = %v (%T), want %v", res.Value, res.Value, tt.want)
			}
		})
	}
}

func TestSetMetatableRefusesProtected(t *testing.T) {
	env := testEnv(t, "base", "string")
	g := NewGuard(0)

	res, err := g.Run(context.Background(), env,
		`local t = setmetatable({}, {__metatable = "locked"})
		 setmetatable(t, {})`, Limits{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeScriptError {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeScriptError)
	}
}

func TestStringMethodSyntaxFollowsProfile(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		env := testEnv(t, "base", "string")
		res, err := NewGuard(0).Run(context.Background(), env, `return ("abc"):upper()`, Limits{})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Value != "ABC" {
			t.Errorf("Value = %v, want ABC", res.Value)
		}
	})

	t.Run("denied", func(t *testing.T) {
		env := testEnv(t, "base", "math")
		res, err := NewGuard(0).Run(context.Background(), env, `return ("abc"):upper()`, Limits{})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Outcome != OutcomeScriptError {
			t.Errorf("string method reachable without string in profile: %v", res.Value)
		}
	})
}
