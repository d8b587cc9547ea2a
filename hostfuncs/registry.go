package hostfuncs

import (
	"fmt"

	"github.com/ocwasm/ocsafe/domain/entities"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry is an immutable set of components keyed by address.
// Once created via NewRegistry, components cannot be added or removed.
// Iteration follows registration order.
type Registry struct {
	components *orderedmap.OrderedMap[string, *Object]
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	components *orderedmap.OrderedMap[string, *Object]
	middleware []Middleware
	errors     []error
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable Registry with the given options.
// Returns an error if any address is registered twice.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithComponent("gpu-1", gpu),
//	)
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	b := &registryBuilder{
		components: orderedmap.New[string, *Object](),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	return &Registry{
		components: b.components,
		middleware: b.middleware,
	}, nil
}

// WithComponent registers a component at address.
func WithComponent(address string, obj *Object) RegistryOption {
	return func(b *registryBuilder) {
		if address == "" {
			b.errors = append(b.errors, fmt.Errorf("component address must not be empty"))
			return
		}
		if obj == nil {
			b.errors = append(b.errors, fmt.Errorf("component %q is nil", address))
			return
		}
		if _, exists := b.components.Get(address); exists {
			b.errors = append(b.errors, fmt.Errorf("duplicate component address: %s", address))
			return
		}
		b.components.Set(address, obj)
	}
}

// WithBundle registers every component of a bundle.
func WithBundle(bundle Bundle) RegistryOption {
	return func(b *registryBuilder) {
		for pair := bundle.Components().Oldest(); pair != nil; pair = pair.Next() {
			WithComponent(pair.Key, pair.Value)(b)
		}
	}
}

// WithMiddleware adds middleware wrapped around every method call.
// Middleware executes in FIFO order (first registered wraps outermost).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// Lookup returns the component registered at address.
func (r *Registry) Lookup(address string) (*Object, bool) {
	return r.components.Get(address)
}

// Addresses returns the registered addresses in registration order.
func (r *Registry) Addresses() []string {
	out := make([]string, 0, r.components.Len())
	for pair := r.components.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// List returns the registered components, optionally filtered by exact type.
// An empty filter matches everything.
func (r *Registry) List(typeFilter string) []entities.ComponentInfo {
	var out []entities.ComponentInfo
	for pair := r.components.Oldest(); pair != nil; pair = pair.Next() {
		if typeFilter != "" && pair.Value.Type() != typeFilter {
			continue
		}
		out = append(out, pair.Value.Info(pair.Key))
	}
	return out
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	return r.components.Len()
}

func (r *Registry) wrap(h MethodHandler) MethodHandler {
	return chain(h, r.middleware)
}
