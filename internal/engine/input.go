package engine

// Input is a placeholder identifying an externally supplied value by a
// textual name. Used without a value it is a dependency reference; used
// with a value (via With) it is supplied to Execute. Its priority is fixed
// at InputPriority: always ready, eagerly dispatched.
type Input struct {
	Name     string
	value    any
	hasValue bool
}

// NewInput builds a bare input marker usable as a dependency reference.
func NewInput(name string) Input {
	return Input{Name: name}
}

// With returns a copy of the input marker paired with a concrete value,
// suitable for passing to Execute.
func (i Input) With(value any) Input {
	i.value = value
	i.hasValue = true
	return i
}
