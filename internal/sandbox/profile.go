package sandbox

import (
	"sort"
	"strings"
)

// Profile is an immutable selection of capabilities resolved against the
// registry at build time. Namespace includes snapshot the members present
// when the profile is built; later registrations are not tracked.
type Profile struct {
	name   string
	caps   []Capability
	retain bool
}

// BuildProfile resolves include tokens against the registry. A token is
// either a namespace name ("string"), a qualified leaf ("os.clock"), or a
// bare base-namespace leaf ("pairs"). Every unresolved token is collected
// and reported in a single InvalidProfileError.
func (r *Registry) BuildProfile(includes ...string) (*Profile, error) {
	p := &Profile{}
	seen := make(map[string]bool)
	var missing []string

	add := func(c Capability) {
		key := c.Namespace + "." + c.Name
		if !seen[key] {
			seen[key] = true
			p.caps = append(p.caps, c)
		}
	}

	for _, token := range includes {
		switch {
		case strings.Contains(token, "."):
			parts := strings.SplitN(token, ".", 2)
			bind, err := r.Lookup(parts[0], parts[1])
			if err != nil {
				missing = append(missing, token)
				continue
			}
			add(Capability{Namespace: parts[0], Name: parts[1], Bind: bind})
		case len(r.caps[token]) > 0:
			for _, c := range r.members(token) {
				add(c)
			}
		default:
			bind, err := r.Lookup(NamespaceBase, token)
			if err != nil {
				missing = append(missing, token)
				continue
			}
			add(Capability{Namespace: NamespaceBase, Name: token, Bind: bind})
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &InvalidProfileError{Missing: missing}
	}
	return p, nil
}

// Name returns the profile's configured name, empty for anonymous profiles.
func (p *Profile) Name() string { return p.name }

// Retain reports whether environments built from this profile may be pooled
// and reused across runs.
func (p *Profile) Retain() bool { return p.retain }

// Capabilities returns a copy of the resolved capability set.
func (p *Profile) Capabilities() []Capability {
	out := make([]Capability, len(p.caps))
	copy(out, p.caps)
	return out
}

// Grants reports whether the profile includes the given capability.
func (p *Profile) Grants(namespace, name string) bool {
	for _, c := range p.caps {
		if c.Namespace == namespace && c.Name == name {
			return true
		}
	}
	return false
}
