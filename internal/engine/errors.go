package engine

import "fmt"

// RegistrationError indicates an unknown configuration option was supplied
// to Registry.Bind. Fatal, raised at registration.
//
// Go's functional-options pattern makes this structurally unreachable
// through Bind's public signature (there is no string-keyed option map to
// mistype), but the type is kept so callers composing Option values
// dynamically (e.g. from a plugin) have a defined error to return.
type RegistrationError struct {
	Option string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("engine: unknown registration option %q", e.Option)
}

// UnknownDescriptorError indicates a dependency reference names a
// descriptor that was never registered. Fatal, raised during resolution.
type UnknownDescriptorError struct {
	Descriptor *Descriptor
}

func (e *UnknownDescriptorError) Error() string {
	return "engine: dependency references an unregistered descriptor"
}

// UnresolvableReferenceError indicates a symbolic "a.b.c" reference could
// not be walked to a bound method on the receiver chain. Fatal, raised
// during resolution.
type UnresolvableReferenceError struct {
	Reference string
	Token     string
}

func (e *UnresolvableReferenceError) Error() string {
	return fmt.Sprintf("engine: unresolvable reference %q (failed at %q)", e.Reference, e.Token)
}

// MissingInputError indicates an input marker is depended on but was not
// supplied to Execute. Fatal, raised during resolution.
type MissingInputError struct {
	Name string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("engine: missing input %q", e.Name)
}

// CycleError indicates the declared dependencies form a cycle, detected
// during resolution before the scheduler would otherwise livelock against
// its iteration cap.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("engine: dependency cycle detected: %v", e.Path)
}

// ExecutionOverflowError indicates the scheduler exceeded its iteration
// cap. Diagnostic only: with cycle detection in place at resolution time,
// hitting this indicates an internal bug (e.g. a faulty identity equality)
// rather than a legitimately large graph.
type ExecutionOverflowError struct {
	Cap int
}

func (e *ExecutionOverflowError) Error() string {
	return fmt.Sprintf("engine: exceeded execution cap (%d iterations); this indicates an internal scheduler bug", e.Cap)
}
