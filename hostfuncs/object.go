package hostfuncs

import (
	"fmt"

	"github.com/ocwasm/ocsafe/domain/entities"
)

type method struct {
	handler MethodHandler
	doc     string
	attrs   entities.MethodAttributes
}

// Object is anything the guest can hold a handle to: a component or an
// opaque value produced by a component method.
type Object struct {
	data       any
	methods    map[string]method
	indexRead  MethodHandler
	indexWrite MethodHandler
	typ        string
	names      []string
	slot       int
	hasSlot    bool
}

// ObjectOption configures an Object.
type ObjectOption func(*Object)

// WithMethod adds a method. A later method with the same name replaces the
// earlier one.
func WithMethod(name, doc string, h MethodHandler) ObjectOption {
	return func(o *Object) {
		if _, exists := o.methods[name]; !exists {
			o.names = append(o.names, name)
		}
		o.methods[name] = method{handler: h, doc: doc}
	}
}

// WithMethodAttributes sets the attributes reported for a method added
// earlier.
func WithMethodAttributes(name string, attrs entities.MethodAttributes) ObjectOption {
	return func(o *Object) {
		if m, ok := o.methods[name]; ok {
			m.attrs = attrs
			o.methods[name] = m
		}
	}
}

// WithIndexer makes the object indexable. read receives the index
// parameters; write receives the index parameters followed by the value.
// Either may be nil.
func WithIndexer(read, write MethodHandler) ObjectOption {
	return func(o *Object) {
		o.indexRead = read
		o.indexWrite = write
	}
}

// WithSlot places a component in a numbered slot of its machine.
func WithSlot(n int) ObjectOption {
	return func(o *Object) {
		o.slot = n
		o.hasSlot = true
	}
}

// WithData attaches host-side state to the object.
func WithData(v any) ObjectOption {
	return func(o *Object) {
		o.data = v
	}
}

// NewObject creates an object of the given type.
func NewObject(typ string, opts ...ObjectOption) *Object {
	o := &Object{typ: typ, methods: make(map[string]method)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Type returns the object's type name, such as "gpu" or "screen".
func (o *Object) Type() string {
	return o.typ
}

// Data returns the state attached with WithData.
func (o *Object) Data() any {
	return o.data
}

// Methods returns the method names in registration order.
func (o *Object) Methods() []string {
	out := make([]string, len(o.names))
	copy(out, o.names)
	return out
}

// Doc returns the documentation string of a method.
func (o *Object) Doc(name string) (string, bool) {
	m, ok := o.methods[name]
	return m.doc, ok
}

// MethodInfo returns every method with its attributes, in registration order.
func (o *Object) MethodInfo() []entities.MethodInfo {
	out := make([]entities.MethodInfo, 0, len(o.names))
	for _, name := range o.names {
		out = append(out, entities.MethodInfo{Name: name, Attributes: o.methods[name].attrs})
	}
	return out
}

// Slot returns the slot the component occupies.
func (o *Object) Slot() (int, bool) {
	return o.slot, o.hasSlot
}

func (o *Object) indexer(write bool) MethodHandler {
	if write {
		return o.indexWrite
	}
	return o.indexRead
}

func (o *Object) handler(name string) (MethodHandler, bool) {
	m, ok := o.methods[name]
	return m.handler, ok
}

func (o *Object) String() string {
	return fmt.Sprintf("%s(%d methods)", o.typ, len(o.names))
}

// Info describes a component object registered at address.
func (o *Object) Info(address string) entities.ComponentInfo {
	return entities.ComponentInfo{Address: address, Type: o.typ}
}
