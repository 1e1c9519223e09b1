package sandbox

import (
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// NamespaceBase holds the capabilities that materialize as top-level
// identifiers (assert, pairs, tostring, ...) rather than under a table.
const NamespaceBase = "base"

// Binding materializes one capability's value inside a given interpreter
// state. gopher-lua values are owned by the state that created them, so the
// registry stores factories instead of values.
type Binding func(L *lua.LState) lua.LValue

// Capability is one host-bound function or constant a script may reach.
type Capability struct {
	Namespace string
	Name      string
	Bind      Binding
}

// Registry is the process-wide capability table. It is populated once
// during startup, frozen, and read lock-free thereafter. Register fails
// after Freeze; Lookup must only be called concurrently once frozen.
type Registry struct {
	mu     sync.Mutex
	frozen bool
	caps   map[string]map[string]Binding
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]map[string]Binding)}
}

// Register adds a capability under a namespace. Use NamespaceBase for
// top-level identifiers.
func (r *Registry) Register(namespace, name string, bind Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}

	ns, ok := r.caps[namespace]
	if !ok {
		ns = make(map[string]Binding)
		r.caps[namespace] = ns
	}
	if _, exists := ns[name]; exists {
		return &DuplicateCapabilityError{Namespace: namespace, Name: name}
	}
	ns[name] = bind
	return nil
}

// Freeze makes the registry read-only. Idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether the registry has been frozen.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

// Lookup resolves one capability.
func (r *Registry) Lookup(namespace, name string) (Binding, error) {
	if ns, ok := r.caps[namespace]; ok {
		if bind, ok := ns[name]; ok {
			return bind, nil
		}
	}
	return nil, &UnknownCapabilityError{Namespace: namespace, Name: name}
}

// Namespaces returns the sorted namespace names currently registered.
func (r *Registry) Namespaces() []string {
	names := make([]string, 0, len(r.caps))
	for ns := range r.caps {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// members returns the capabilities of one namespace, sorted by name.
func (r *Registry) members(namespace string) []Capability {
	ns := r.caps[namespace]
	caps := make([]Capability, 0, len(ns))
	for name, bind := range ns {
		caps = append(caps, Capability{Namespace: namespace, Name: name, Bind: bind})
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].Name < caps[j].Name })
	return caps
}
