package engine

import (
	"fmt"
	"strings"
)

// invocation is a concrete instance of a descriptor within one execution
// graph: a reference to its descriptor, the receiver to bind (if any), its
// resolved children in declared order, and its priority. Input invocations
// carry a name and a supplied value instead of a descriptor and children.
type invocation struct {
	descriptor *Descriptor
	receiver   any
	children   []*invocation
	priority   int

	isInput   bool
	inputName string
	value     any
}

// key is the invocation's identity: (descriptor, receiver) for ordinary
// invocations, or just the input name for input invocations. Receivers must
// be pointer types so Go's interface equality gives identity comparison
// rather than value comparison.
type key struct {
	descriptor *Descriptor
	receiver   any
	isInput    bool
	inputName  string
}

type resolver struct {
	registry *Registry
	inputs   map[string]Input
	memo     map[key]*invocation
	inflight map[key]bool
	stack    []string
}

// resolve builds the execution graph rooted at target, pairing declared
// input dependency references against the supplied inputs.
func resolve(registry *Registry, target Target, supplied []Input) (*invocation, error) {
	inputs := make(map[string]Input, len(supplied))
	for _, in := range supplied {
		inputs[in.Name] = in
	}

	r := &resolver{
		registry: registry,
		inputs:   inputs,
		memo:     make(map[key]*invocation),
		inflight: make(map[key]bool),
	}

	if target.Descriptor == nil {
		return nil, fmt.Errorf("engine: execute target has no descriptor")
	}

	return r.buildBound(target.Descriptor, target.Receiver, descLabel(target.Descriptor))
}

// buildBound resolves (and memoizes) the invocation for a descriptor
// already bound to a concrete receiver (possibly nil), descending into its
// declared dependencies with receiver as the new in-scope receiver.
func (r *resolver) buildBound(d *Descriptor, receiver any, label string) (*invocation, error) {
	k := key{descriptor: d, receiver: receiver}

	if inv, ok := r.memo[k]; ok {
		return inv, nil
	}
	if r.inflight[k] {
		return nil, &CycleError{Path: append(append([]string(nil), r.stack...), label)}
	}

	r.inflight[k] = true
	r.stack = append(r.stack, label)
	defer func() {
		delete(r.inflight, k)
		r.stack = r.stack[:len(r.stack)-1]
	}()

	inv := &invocation{descriptor: d, receiver: receiver, priority: d.priority}

	children := make([]*invocation, 0, len(d.deps))
	for _, dep := range d.deps {
		child, err := r.resolveRef(dep, receiver)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	inv.children = children
	r.memo[k] = inv

	return inv, nil
}

// resolveRef resolves a single dependency reference declared by a
// descriptor, given the receiver currently in scope for symbolic lookups.
func (r *resolver) resolveRef(ref any, currentReceiver any) (*invocation, error) {
	switch v := ref.(type) {
	case Input:
		return r.resolveInput(v.Name)

	case string:
		return r.resolveSymbolic(v, currentReceiver)

	case *Descriptor:
		if r.registry != nil {
			if _, ok := r.registry.descriptors[v]; !ok {
				return nil, &UnknownDescriptorError{Descriptor: v}
			}
		}
		// Direct descriptor references reset the in-scope receiver to
		// none for their own sub-resolution: a bare descriptor never
		// inherits the caller's bound receiver.
		return r.buildBound(v, nil, descLabel(v))

	default:
		return nil, fmt.Errorf("engine: unsupported dependency reference type %T", ref)
	}
}

func (r *resolver) resolveInput(name string) (*invocation, error) {
	k := key{isInput: true, inputName: name}
	if inv, ok := r.memo[k]; ok {
		return inv, nil
	}

	supplied, ok := r.inputs[name]
	if !ok {
		return nil, &MissingInputError{Name: name}
	}

	inv := &invocation{
		isInput:   true,
		inputName: name,
		value:     supplied.value,
		priority:  InputPriority,
	}
	r.memo[k] = inv
	return inv, nil
}

// resolveSymbolic walks a dotted reference ("a.b.c") against currentReceiver,
// terminating on a bound method and binding it to the receiver it was found
// on (which may differ from currentReceiver itself).
func (r *resolver) resolveSymbolic(ref string, currentReceiver any) (*invocation, error) {
	if currentReceiver == nil {
		return nil, &UnresolvableReferenceError{Reference: ref, Token: ref}
	}

	tokens := strings.Split(ref, ".")
	cur := currentReceiver

	for i, tok := range tokens {
		host, ok := cur.(Resolvable)
		if !ok {
			return nil, &UnresolvableReferenceError{Reference: ref, Token: tok}
		}

		member, ok := host.ResolveMember(tok)
		if !ok {
			return nil, &UnresolvableReferenceError{Reference: ref, Token: tok}
		}

		if i == len(tokens)-1 {
			if member.Descriptor == nil {
				return nil, &UnresolvableReferenceError{Reference: ref, Token: tok}
			}
			return r.buildBound(member.Descriptor, cur, ref)
		}

		if member.Next == nil {
			return nil, &UnresolvableReferenceError{Reference: ref, Token: tok}
		}
		cur = member.Next
	}

	// Unreachable: tokens always has at least one element.
	return nil, &UnresolvableReferenceError{Reference: ref, Token: ref}
}

func descLabel(d *Descriptor) string {
	return fmt.Sprintf("descriptor@%p", d)
}
