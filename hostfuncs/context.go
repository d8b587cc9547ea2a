package hostfuncs

import (
	"context"

	"github.com/ocwasm/ocsafe/domain/entities"
)

// HostContext wraps a standard context.Context with method-specific helpers.
// Handlers run while the Host holds its lock, so these helpers must be used
// instead of the locking Host methods.
type HostContext interface {
	context.Context

	// Address returns the address of the component the method was invoked on.
	// Methods invoked on an opaque value report the address of the component
	// that produced it.
	Address() string

	// Method returns the name of the method being invoked.
	Method() string

	// NewValue reserves a handle for obj as an opaque value and returns the
	// handle the guest receives for it. The handle is registered only when
	// the method's results are delivered.
	NewValue(obj *Object) entities.DescriptorRef

	// Resolve returns the object behind a handle passed in by the guest.
	Resolve(ref entities.DescriptorRef) (*Object, bool)

	// EmitSignal queues a signal for the guest.
	EmitSignal(name string, params ...entities.Value) error
}

type hostContext struct {
	context.Context
	host     *Host
	address  string
	method   string
	reserved []reservation
}

type reservation struct {
	entry *handleEntry
	raw   uint32
}

func (c *hostContext) Address() string {
	return c.address
}

func (c *hostContext) Method() string {
	return c.method
}

func (c *hostContext) NewValue(obj *Object) entities.DescriptorRef {
	skip := make([]uint32, len(c.reserved))
	for i, r := range c.reserved {
		skip[i] = r.raw
	}
	raw := c.host.nextRaw(skip...)
	c.reserved = append(c.reserved, reservation{raw: raw, entry: &handleEntry{obj: obj, address: c.address}})
	return entities.DescriptorRef(raw)
}

func (c *hostContext) Resolve(ref entities.DescriptorRef) (*Object, bool) {
	if h, ok := c.host.handles[uint32(ref)]; ok {
		return h.obj, true
	}
	for _, r := range c.reserved {
		if r.raw == uint32(ref) {
			return r.entry.obj, true
		}
	}
	return nil, false
}

// commit registers the values reserved by NewValue.
func (c *hostContext) commit() {
	for _, r := range c.reserved {
		c.host.handles[r.raw] = r.entry
	}
}

func (c *hostContext) EmitSignal(name string, params ...entities.Value) error {
	return c.host.pushSignal(entities.Signal{Name: name, Params: params})
}
