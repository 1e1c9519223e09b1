package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProfileNamespaceInclude(t *testing.T) {
	r, err := NewStdlibRegistry()
	require.NoError(t, err)

	p, err := r.BuildProfile("string")
	require.NoError(t, err)

	assert.True(t, p.Grants("string", "format"))
	assert.True(t, p.Grants("string", "rep"))
	assert.False(t, p.Grants("table", "sort"))
	assert.False(t, p.Grants(NamespaceBase, "pairs"))
}

func TestBuildProfileLeafInclude(t *testing.T) {
	r, err := NewStdlibRegistry()
	require.NoError(t, err)

	p, err := r.BuildProfile("os.clock", "os.getenv")
	require.NoError(t, err)

	assert.True(t, p.Grants("os", "clock"))
	assert.True(t, p.Grants("os", "getenv"))
	assert.False(t, p.Grants("os", "date"))
	assert.False(t, p.Grants("os", "time"))
}

func TestBuildProfileBareBaseLeaf(t *testing.T) {
	r, err := NewStdlibRegistry()
	require.NoError(t, err)

	p, err := r.BuildProfile("pairs", "tostring")
	require.NoError(t, err)

	assert.True(t, p.Grants(NamespaceBase, "pairs"))
	assert.True(t, p.Grants(NamespaceBase, "tostring"))
	assert.False(t, p.Grants(NamespaceBase, "assert"))
}

func TestBuildProfileReportsAllMissing(t *testing.T) {
	r, err := NewStdlibRegistry()
	require.NoError(t, err)

	_, err = r.BuildProfile("string", "io", "os.execute", "coroutine", "math")
	require.Error(t, err)

	var invalid *InvalidProfileError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []string{"coroutine", "io", "os.execute"}, invalid.Missing)
}

func TestBuildProfileDeduplicates(t *testing.T) {
	r, err := NewStdlibRegistry()
	require.NoError(t, err)

	p, err := r.BuildProfile("os.clock", "os", "os.clock")
	require.NoError(t, err)

	count := 0
	for _, c := range p.Capabilities() {
		if c.Namespace == "os" && c.Name == "clock" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestBuildProfileSnapshotsRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("math", "floor", nopBinding))

	p, err := r.BuildProfile("math")
	require.NoError(t, err)

	// A member registered after the profile was built is not picked up.
	require.NoError(t, r.Register("math", "ceil", nopBinding))

	assert.True(t, p.Grants("math", "floor"))
	assert.False(t, p.Grants("math", "ceil"))
}

func TestProfileCapabilitiesIsACopy(t *testing.T) {
	r, err := NewStdlibRegistry()
	require.NoError(t, err)

	p, err := r.BuildProfile("os.clock")
	require.NoError(t, err)

	caps := p.Capabilities()
	require.Len(t, caps, 1)
	caps[0].Name = "execute"

	assert.True(t, p.Grants("os", "clock"))
	assert.False(t, p.Grants("os", "execute"))
}
