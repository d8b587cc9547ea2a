package hostfuncs

import (
	"context"
	"fmt"
	"sync"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/ocwasm/ocsafe/wireformat"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Bundle is a pre-configured set of components.
// Bundles allow registering multiple components at once.
type Bundle interface {
	// Components returns the components keyed by address, in registration order.
	Components() *orderedmap.OrderedMap[string, *Object]
}

// staticBundle implements Bundle with a fixed set of components.
type staticBundle struct {
	components *orderedmap.OrderedMap[string, *Object]
}

func (b *staticBundle) Components() *orderedmap.OrderedMap[string, *Object] {
	return b.components
}

// NewBundle creates a bundle from address/object pairs given in order.
func NewBundle(pairs ...orderedmap.Pair[string, *Object]) Bundle {
	m := orderedmap.New[string, *Object](len(pairs))
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return &staticBundle{components: m}
}

// DemoBundle returns a small machine: a computer, a gpu and a screen.
//
// The gpu keeps its resolution between calls and emits a "screen_resized"
// signal when it changes. The computer can push arbitrary signals and hand
// out opaque buffer values that can be read and written by index.
func DemoBundle() Bundle {
	var mu sync.Mutex
	width, height := int64(160), int64(50)

	gpu := NewObject("gpu",
		WithMethod("getResolution", "function():number, number -- Get the current screen resolution.",
			func(context.Context, []entities.Value) ([]entities.Value, error) {
				mu.Lock()
				defer mu.Unlock()
				return []entities.Value{entities.Int(width), entities.Int(height)}, nil
			}),
		WithMethod("maxResolution", "function():number, number -- Get the maximum screen resolution.",
			Returning(entities.Int(160), entities.Int(50))),
		WithMethod("setResolution", "function(width:number, height:number):boolean -- Set the screen resolution.",
			func(ctx context.Context, args []entities.Value) ([]entities.Value, error) {
				w, wok := intArg(args, 0)
				h, hok := intArg(args, 1)
				if !wok || !hok {
					return nil, NewValidationError("expected two integers")
				}
				if w < 1 || h < 1 || w > 160 || h > 50 {
					return nil, NewValidationError("unsupported resolution")
				}
				mu.Lock()
				changed := w != width || h != height
				width, height = w, h
				mu.Unlock()
				if changed {
					if hc, ok := ctx.(HostContext); ok {
						if err := hc.EmitSignal("screen_resized", entities.String("screen-0"), entities.Int(w), entities.Int(h)); err != nil {
							Logger().Debug("screen_resized signal dropped")
						}
					}
				}
				return []entities.Value{entities.Bool(changed)}, nil
			}),
		WithMethodAttributes("getResolution", entities.AttrDirect),
		WithMethodAttributes("maxResolution", entities.AttrDirect|entities.AttrGetter),
		WithSlot(1),
	)

	screen := NewObject("screen",
		WithMethod("isOn", "function():boolean -- Returns whether the screen is currently on.",
			Returning(entities.Bool(true))),
	)

	computer := NewObject("computer",
		WithMethod("pushSignal", "function(name:string, ...) -- Pushes a user-defined signal onto the signal queue.",
			func(ctx context.Context, args []entities.Value) ([]entities.Value, error) {
				if len(args) == 0 {
					return nil, NewValidationError("signal name expected")
				}
				name, ok := args[0].(entities.String)
				if !ok || name == "" {
					return nil, NewValidationError("signal name must be a non-empty string")
				}
				hc, ok := ctx.(HostContext)
				if !ok {
					return nil, NewStatusError(errors.StatusUnsupported, "no host context")
				}
				if err := hc.EmitSignal(string(name), args[1:]...); err != nil {
					return []entities.Value{entities.Bool(false)}, nil
				}
				return []entities.Value{entities.Bool(true)}, nil
			}),
		WithMethod("newBuffer", "function(size:number):userdata -- Allocates an opaque buffer value.",
			func(ctx context.Context, args []entities.Value) ([]entities.Value, error) {
				size, ok := intArg(args, 0)
				if !ok || size < 0 || size > maxDemoBuffer {
					return nil, NewValidationError("size must be an integer between 0 and 65536")
				}
				hc, ok := ctx.(HostContext)
				if !ok {
					return nil, NewStatusError(errors.StatusUnsupported, "no host context")
				}
				return []entities.Value{hc.NewValue(bufferObject(size))}, nil
			}),
		WithMethod("sizeOf", "function(buffer:userdata):number -- Returns the size of an opaque buffer.",
			func(ctx context.Context, args []entities.Value) ([]entities.Value, error) {
				if len(args) != 1 {
					return nil, NewValidationError("buffer expected")
				}
				ref, ok := args[0].(entities.DescriptorRef)
				if !ok {
					return nil, NewValidationError("buffer expected")
				}
				hc, ok := ctx.(HostContext)
				if !ok {
					return nil, NewStatusError(errors.StatusUnsupported, "no host context")
				}
				obj, ok := hc.Resolve(ref)
				if !ok {
					return nil, NewStatusError(errors.StatusBadDescriptor, "unknown buffer")
				}
				buf, ok := obj.Data().(*demoBuffer)
				if !ok {
					return nil, NewValidationError("not a buffer")
				}
				return []entities.Value{entities.Int(len(buf.data))}, nil
			}),
	)

	return NewBundle(
		orderedmap.Pair[string, *Object]{Key: "computer-0", Value: computer},
		orderedmap.Pair[string, *Object]{Key: "gpu-0", Value: gpu},
		orderedmap.Pair[string, *Object]{Key: "screen-0", Value: screen},
	)
}

const maxDemoBuffer = 1 << 16

type demoBuffer struct {
	data []byte
}

// index resolves a 1-based index parameter.
func (b *demoBuffer) index(args []entities.Value) (int, error) {
	i, ok := intArg(args, 0)
	if !ok || i < 1 || i > int64(len(b.data)) {
		return 0, NewValidationError("index out of range")
	}
	return int(i - 1), nil
}

func bufferObject(size int64) *Object {
	buf := &demoBuffer{data: make([]byte, size)}
	return NewObject("buffer",
		WithData(buf),
		WithMethod("size", "function():number -- Size of the buffer in bytes.",
			Returning(entities.Int(size))),
		WithMethodAttributes("size", entities.AttrDirect|entities.AttrGetter),
		WithIndexer(
			func(_ context.Context, args []entities.Value) ([]entities.Value, error) {
				i, err := buf.index(args)
				if err != nil {
					return nil, err
				}
				return []entities.Value{entities.Int(buf.data[i])}, nil
			},
			func(_ context.Context, args []entities.Value) ([]entities.Value, error) {
				i, err := buf.index(args)
				if err != nil {
					return nil, err
				}
				v, ok := intArg(args, 1)
				if !ok || v < 0 || v > 255 {
					return nil, NewValidationError("byte value expected")
				}
				buf.data[i] = byte(v)
				return nil, nil
			},
		),
	)
}

func intArg(args []entities.Value, i int) (int64, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case entities.Int:
		return int64(v), true
	case entities.Float:
		if float64(int64(v)) == float64(v) {
			return int64(v), true
		}
	}
	return 0, false
}

// FixtureBundle builds a bundle from a parsed host fixture. Every method
// answers with its fixed return values, or fails with its status when set.
func FixtureBundle(fix *entities.HostFixture) (Bundle, error) {
	m := orderedmap.New[string, *Object](len(fix.Components))
	for _, c := range fix.Components {
		opts := make([]ObjectOption, 0, 2*len(c.Methods)+1)
		for _, mf := range c.Methods {
			h, err := fixtureHandler(mf)
			if err != nil {
				return nil, fmt.Errorf("component %s: %w", c.Address, err)
			}
			opts = append(opts,
				WithMethod(mf.Name, mf.Doc, h),
				WithMethodAttributes(mf.Name, mf.Attributes()))
		}
		if c.Slot != nil {
			opts = append(opts, WithSlot(*c.Slot))
		}
		if _, exists := m.Get(c.Address); exists {
			return nil, fmt.Errorf("duplicate component address: %s", c.Address)
		}
		m.Set(c.Address, NewObject(c.Type, opts...))
	}
	return &staticBundle{components: m}, nil
}

func fixtureHandler(mf entities.MethodFixture) (MethodHandler, error) {
	if mf.Status != 0 {
		status := errors.Status(mf.Status)
		return func(context.Context, []entities.Value) ([]entities.Value, error) {
			return nil, NewStatusError(status, "method %s fails by fixture", mf.Name)
		}, nil
	}
	results, err := wireformat.ValuesOf(mf.Returns...)
	if err != nil {
		return nil, fmt.Errorf("method %s returns: %w", mf.Name, err)
	}
	return Returning(results...), nil
}

// FixtureSignals converts the fixture's queued signals.
func FixtureSignals(fix *entities.HostFixture) ([]entities.Signal, error) {
	out := make([]entities.Signal, 0, len(fix.Signals))
	for _, sf := range fix.Signals {
		params, err := wireformat.ValuesOf(sf.Params...)
		if err != nil {
			return nil, fmt.Errorf("signal %s params: %w", sf.Name, err)
		}
		out = append(out, entities.Signal{Name: sf.Name, Params: params})
	}
	return out, nil
}
