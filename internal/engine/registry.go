package engine

import "sync"

// Registry owns the process-wide mapping from a registered computation's
// identity to its descriptor. It is written only during initialization and
// read only thereafter, but the mutex keeps concurrent registration from
// independently initialized packages safe regardless.
type Registry struct {
	mu          sync.Mutex
	descriptors map[*Descriptor]struct{}
}

// NewRegistry creates an empty registry. Tests should create their own
// isolated registry rather than sharing a package-level global.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[*Descriptor]struct{})}
}

// Bind registers a computation body with its declared dependencies and
// optional configuration, returning the descriptor handle used as a
// dependency reference and as an execution target.
//
// Re-registering is not idempotent in the sense of replacing a prior
// descriptor in place — each Bind call mints a fresh handle — but repeatedly
// binding the "same" computation in practice only happens once at process
// initialization.
func (r *Registry) Bind(body any, deps []any, opts ...Option) *Descriptor {
	d := &Descriptor{
		body:     body,
		deps:     append([]any(nil), deps...),
		priority: DefaultPriority,
	}

	for _, opt := range opts {
		opt(d)
	}

	r.mu.Lock()
	r.descriptors[d] = struct{}{}
	r.mu.Unlock()

	return d
}
