package modpack

import (
	"fmt"
)

// DefaultPriority is where a mod sorts when its spec gives no hint.
const DefaultPriority = 50

// ModSpec describes how one mod should be managed. Config scripts produce
// these either as a bare mod name or as a table whose first item is the
// name ({"SkyUI", priority = 30, dependencies = {"SKSE"}}).
type ModSpec struct {
	Name         string
	Enabled      bool
	Dependencies []string
	After        []string
	Priority     int
	ShouldCheck  bool
}

func defaultSpec() ModSpec {
	return ModSpec{
		Enabled:     true,
		Priority:    DefaultPriority,
		ShouldCheck: true,
	}
}

// decodeSpec builds a ModSpec from a sandbox-exported value.
func decodeSpec(v any) (ModSpec, error) {
	spec := defaultSpec()

	switch v := v.(type) {
	case string:
		spec.Name = v
		return spec, nil
	case map[string]any:
		return decodeSpecTable(v)
	case []any:
		// A spec table with no named fields exports as a sequence.
		if len(v) == 0 {
			return spec, fmt.Errorf("a mod specification table must start with the mod's name")
		}
		name, ok := v[0].(string)
		if !ok || name == "" {
			return spec, fmt.Errorf("a mod specification table must start with the mod's name")
		}
		spec.Name = name
		return spec, nil
	default:
		return spec, fmt.Errorf("a mod specification must be a string or table, got %T", v)
	}
}

func decodeSpecTable(m map[string]any) (ModSpec, error) {
	spec := defaultSpec()

	name, ok := m["1"].(string)
	if !ok || name == "" {
		return spec, fmt.Errorf("a mod specification table must start with the mod's name")
	}
	spec.Name = name

	if v, ok := m["enabled"].(bool); ok {
		spec.Enabled = v
	}
	if v, ok := m["priority"].(float64); ok {
		spec.Priority = int(v)
	}
	if v, ok := m["check"].(bool); ok {
		spec.ShouldCheck = v
	}

	var err error
	if spec.Dependencies, err = decodeNameList(m["dependencies"]); err != nil {
		return spec, fmt.Errorf("mod %q: dependencies: %w", name, err)
	}
	if spec.After, err = decodeNameList(m["after"]); err != nil {
		return spec, fmt.Errorf("mod %q: after: %w", name, err)
	}
	return spec, nil
}

// decodeNameList accepts a single name or a list of names; nil is empty.
func decodeNameList(v any) ([]string, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a mod name, got %T", item)
			}
			names = append(names, s)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("expected a mod name or list of names, got %T", v)
	}
}

// decodeSpecList accepts one spec or a list of specs; nil means the script
// declared nothing.
func decodeSpecList(v any) ([]ModSpec, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string, map[string]any:
		spec, err := decodeSpec(v)
		if err != nil {
			return nil, err
		}
		return []ModSpec{spec}, nil
	case []any:
		specs := make([]ModSpec, 0, len(v))
		for _, item := range v {
			spec, err := decodeSpec(item)
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
		}
		return specs, nil
	default:
		return nil, fmt.Errorf("a config script must return mod specifications or nothing, got %T", v)
	}
}
