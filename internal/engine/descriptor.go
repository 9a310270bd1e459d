// Package engine implements the declarative dependency-injection executor:
// named computations declare their dependencies, and Execute resolves the
// transitive graph rooted at a target, runs each node exactly once in a
// priority-respecting, dependency-satisfied order, and returns its value.
package engine

// DefaultPriority is applied to a descriptor when no Priority option is
// supplied at registration time. Lower values run earlier.
const DefaultPriority = 100

// InputPriority is the fixed priority of input markers: always ready, so
// they are eagerly dispatched ahead of anything with data dependencies.
const InputPriority = -1

// Descriptor is a registered computation: its body, its declared
// dependencies, and its scheduling priority.
//
// A *Descriptor is a stable opaque handle: it is returned once by
// Registry.Bind and compared by pointer identity thereafter, never by
// hashing the underlying body function.
type Descriptor struct {
	body     any
	deps     []any
	priority int
}

// Option configures a Descriptor at registration time.
type Option func(*Descriptor)

// Priority overrides the default priority (100) for a registration.
// Lower values are preferred among ready nodes; inputs are always -1.
func Priority(p int) Option {
	return func(d *Descriptor) {
		d.priority = p
	}
}

// Deps builds a dependency list for Registry.Bind. Each entry must be a
// *Descriptor (a direct computation reference), a string (a dotted symbolic
// reference resolved against the enclosing receiver at execute time), or an
// Input (a named externally supplied value).
func Deps(refs ...any) []any {
	return refs
}

// Call invokes the descriptor's body with the given positional arguments,
// returning whatever the body returns. Preserved so a bound descriptor can
// still be used as an ordinary callable outside of Execute.
func (d *Descriptor) Call(args ...any) (any, error) {
	return callBody(d.body, args)
}

// Priority reports the descriptor's scheduling priority.
func (d *Descriptor) Priority() int {
	return d.priority
}
