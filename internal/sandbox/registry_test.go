package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func nopBinding(L *lua.LState) lua.LValue {
	return lua.LTrue
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("math", "floor", nopBinding))
	require.NoError(t, r.Register(NamespaceBase, "assert", nopBinding))

	bind, err := r.Lookup("math", "floor")
	require.NoError(t, err)
	assert.NotNil(t, bind)

	bind, err = r.Lookup(NamespaceBase, "assert")
	require.NoError(t, err)
	assert.NotNil(t, bind)
}

func TestRegistryDuplicateCapability(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("string", "format", nopBinding))

	err := r.Register("string", "format", nopBinding)
	require.Error(t, err)

	var dup *DuplicateCapabilityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "string", dup.Namespace)
	assert.Equal(t, "format", dup.Name)

	// Same name in a different namespace is fine.
	assert.NoError(t, r.Register("table", "format", nopBinding))
}

func TestRegistryUnknownCapability(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("os", "clock", nopBinding))

	_, err := r.Lookup("os", "execute")
	var unknown *UnknownCapabilityError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "os", unknown.Namespace)
	assert.Equal(t, "execute", unknown.Name)

	_, err = r.Lookup("io", "open")
	assert.ErrorAs(t, err, &unknown)
}

func TestRegistryFreezeRejectsRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("math", "floor", nopBinding))

	r.Freeze()
	assert.True(t, r.Frozen())

	err := r.Register("math", "ceil", nopBinding)
	assert.ErrorIs(t, err, ErrRegistryFrozen)

	// Existing entries are still readable.
	_, err = r.Lookup("math", "floor")
	assert.NoError(t, err)

	// Freeze is idempotent.
	r.Freeze()
	assert.True(t, r.Frozen())
}

func TestStdlibRegistryContents(t *testing.T) {
	r, err := NewStdlibRegistry()
	require.NoError(t, err)
	assert.True(t, r.Frozen())

	granted := []struct{ ns, name string }{
		{NamespaceBase, "assert"},
		{NamespaceBase, "pairs"},
		{NamespaceBase, "tostring"},
		{NamespaceBase, "getmetatable"},
		{"string", "format"},
		{"table", "sort"},
		{"math", "floor"},
		{"os", "clock"},
		{"os", "getenv"},
	}
	for _, c := range granted {
		_, err := r.Lookup(c.ns, c.name)
		assert.NoError(t, err, "%s.%s should be registered", c.ns, c.name)
	}

	denied := []struct{ ns, name string }{
		{"os", "execute"},
		{"os", "remove"},
		{"os", "exit"},
		{"io", "open"},
		{"io", "read"},
		{NamespaceBase, "dofile"},
		{NamespaceBase, "loadfile"},
		{NamespaceBase, "load"},
		{NamespaceBase, "require"},
		{NamespaceBase, "collectgarbage"},
		{"coroutine", "create"},
		{"debug", "getinfo"},
	}
	for _, c := range denied {
		_, err := r.Lookup(c.ns, c.name)
		assert.Error(t, err, "%s.%s must not be registered", c.ns, c.name)
	}
}
