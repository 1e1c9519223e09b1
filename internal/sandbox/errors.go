package sandbox

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRegistryFrozen is returned by Register after Freeze.
	ErrRegistryFrozen = errors.New("capability registry is frozen")

	// ErrTimedOut is returned when a run exceeds its wall-clock deadline.
	ErrTimedOut = errors.New("execution deadline exceeded")

	// ErrAborted is returned when the host cancels an in-flight run.
	ErrAborted = errors.New("execution aborted by host")
)

// DuplicateCapabilityError is returned when a capability is registered
// twice under the same namespace.
type DuplicateCapabilityError struct {
	Namespace string
	Name      string
}

func (e *DuplicateCapabilityError) Error() string {
	return fmt.Sprintf("duplicate capability %q in namespace %q", e.Name, e.Namespace)
}

// UnknownCapabilityError is returned by Lookup for an unregistered capability.
type UnknownCapabilityError struct {
	Namespace string
	Name      string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("unknown capability %q in namespace %q", e.Name, e.Namespace)
}

// InvalidProfileError is returned by BuildProfile when one or more include
// tokens do not resolve against the registry. Missing carries every
// unresolved token so misconfiguration is diagnosed in one pass.
type InvalidProfileError struct {
	Missing []string
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid profile: unresolved capabilities: %s", strings.Join(e.Missing, ", "))
}

// UnknownProfileError is returned by the service for an unconfigured profile name.
type UnknownProfileError struct {
	Name string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("unknown sandbox profile %q", e.Name)
}

// ScriptError carries the error value raised by the sandboxed script itself.
// Value is the script-level error converted to a plain Go value; it never
// contains a host stack trace.
type ScriptError struct {
	Value any
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script error: %v", e.Value)
}

// ResourceExceededError is returned when a run overruns a VM resource
// ceiling such as the call stack depth.
type ResourceExceededError struct {
	Kind string
}

func (e *ResourceExceededError) Error() string {
	return fmt.Sprintf("resource limit exceeded: %s", e.Kind)
}
