package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileDefs(t *testing.T) {
	doc := []byte(`
profiles:
  - name: mod-script
    include: [base, string, table, math, os.clock, os.getenv]
    retain: true
  - name: expression
    include: [math]
`)
	defs, err := ParseProfileDefs(doc)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "mod-script", defs[0].Name)
	assert.True(t, defs[0].Retain)
	assert.Contains(t, defs[0].Include, "os.clock")

	assert.Equal(t, "expression", defs[1].Name)
	assert.False(t, defs[1].Retain)
	assert.Equal(t, []string{"math"}, defs[1].Include)
}

func TestParseProfileDefsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "missing name",
			doc:  "profiles:\n  - include: [math]\n",
		},
		{
			name: "duplicate name",
			doc:  "profiles:\n  - name: a\n    include: [math]\n  - name: a\n    include: [string]\n",
		},
		{
			name: "empty include",
			doc:  "profiles:\n  - name: a\n    include: []\n",
		},
		{
			name: "not yaml",
			doc:  "profiles: [:::",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfileDefs([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadProfileDefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"profiles:\n  - name: tiny\n    include: [math.floor]\n"), 0o644))

	defs, err := LoadProfileDefs(path)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "tiny", defs[0].Name)

	_, err = LoadProfileDefs(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefaultProfileDefsResolve(t *testing.T) {
	r, err := NewStdlibRegistry()
	require.NoError(t, err)

	for _, def := range DefaultProfileDefs() {
		p, buildErr := r.BuildProfile(def.Include...)
		require.NoError(t, buildErr, "profile %s", def.Name)
		assert.NotEmpty(t, p.Capabilities())
	}
}
