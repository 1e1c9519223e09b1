package sandbox

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ProfileDef is one named profile entry from a profile definition file.
type ProfileDef struct {
	Name    string   `yaml:"name"`
	Include []string `yaml:"include"`
	Retain  bool     `yaml:"retain"`
}

type profileFile struct {
	Profiles []ProfileDef `yaml:"profiles"`
}

// ParseProfileDefs decodes a YAML profile definition document.
func ParseProfileDefs(data []byte) ([]ProfileDef, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profile definitions: %w", err)
	}

	seen := make(map[string]bool)
	for _, def := range f.Profiles {
		if def.Name == "" {
			return nil, fmt.Errorf("profile definition without a name")
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("duplicate profile definition %q", def.Name)
		}
		seen[def.Name] = true
		if len(def.Include) == 0 {
			return nil, fmt.Errorf("profile %q includes nothing", def.Name)
		}
	}
	return f.Profiles, nil
}

// LoadProfileDefs reads profile definitions from a YAML file.
func LoadProfileDefs(path string) ([]ProfileDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile definitions: %w", err)
	}
	return ParseProfileDefs(data)
}

// DefaultProfileDefs returns the built-in profile set. The mod-script
// profile is what untrusted modpack configuration runs under.
func DefaultProfileDefs() []ProfileDef {
	return []ProfileDef{
		{
			Name: "mod-script",
			Include: []string{
				"base", "string", "table", "math", "os.clock", "os.getenv",
			},
			Retain: true,
		},
	}
}
