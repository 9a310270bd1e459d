package engine

// Member is what a Resolvable returns for one token of a dotted symbolic
// reference. Exactly one of Descriptor or Next is meaningful for a given
// lookup: Descriptor is set when the name is a bound method terminal; Next
// is set when the name is a held sub-object to keep walking through.
type Member struct {
	// Descriptor is the computation bound to this name, if it is a method
	// on the receiver that ResolveMember was called on.
	Descriptor *Descriptor

	// Next is the sub-object held under this name, if it is an attribute
	// to continue a multi-token symbolic reference through.
	Next any
}

// Resolvable is the narrow interface a receiver implements to participate
// in symbolic ("a.b.c") dependency resolution: it advertises its bound
// methods and the sub-objects it holds, without the engine ever touching
// receiver internals via reflection.
type Resolvable interface {
	// ResolveMember looks up one token of a dotted reference. ok is false
	// when name is not a bound method or held attribute on the receiver.
	ResolveMember(name string) (member Member, ok bool)
}

// Target names what Execute should run: a direct descriptor (no receiver),
// or a descriptor bound to a receiver (a method reference).
type Target struct {
	Descriptor *Descriptor
	Receiver   any
}

// Func builds a Target for a plain, receiver-less computation.
func Func(d *Descriptor) Target {
	return Target{Descriptor: d}
}

// Method builds a Target for a computation bound to a specific receiver,
// e.g. executing an object's own registered method directly rather than
// through a symbolic reference from another object.
func Method(d *Descriptor, receiver any) Target {
	return Target{Descriptor: d, Receiver: receiver}
}
