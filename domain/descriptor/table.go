// Package descriptor tracks ownership and liveness of raw host handles.
//
// The host identifies resources by small integers and may hand the same
// integer out again once a resource is released. The Table pairs every raw
// handle with a generation that advances on each acquisition, so a
// Descriptor kept past its close is detected instead of silently addressing
// whatever resource now sits behind the same number.
//
// A Table is not safe for concurrent use. The guest runs a single
// instruction stream and every mutation happens in program order.
package descriptor

import (
	"context"
	stdErrors "errors"
	"fmt"
	"slices"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/ocwasm/ocsafe/domain/ports"
)

// Kind tags the resource type a descriptor refers to.
type Kind uint8

const (
	// KindComponent is an opened component.
	KindComponent Kind = iota + 1
	// KindValue is an opaque value returned by a method call.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindComponent:
		return "component"
	case KindValue:
		return "value"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Descriptor is a generation-tagged reference to a host handle.
// The zero Descriptor is never valid.
type Descriptor struct {
	raw  uint32
	gen  uint32
	kind Kind
}

// Raw returns the host handle number.
func (d Descriptor) Raw() uint32 { return d.raw }

// Generation returns the local generation tag.
func (d Descriptor) Generation() uint32 { return d.gen }

// Kind returns the resource kind.
func (d Descriptor) Kind() Kind { return d.kind }

// IsZero reports whether d is the zero Descriptor.
func (d Descriptor) IsZero() bool { return d.gen == 0 }

// Ref returns the value used to pass d as a method argument.
func (d Descriptor) Ref() entities.DescriptorRef { return entities.DescriptorRef(d.raw) }

func (d Descriptor) String() string {
	return fmt.Sprintf("%s#%d.%d", d.kind, d.raw, d.gen)
}

type slot struct {
	gen  uint32
	kind Kind
	open bool
}

// Table owns every descriptor handed to guest code.
type Table struct {
	releaser ports.Releaser
	slots    map[uint32]*slot
	open     int
}

// NewTable creates a table that releases handles through r.
func NewTable(r ports.Releaser) *Table {
	return &Table{
		releaser: r,
		slots:    make(map[uint32]*slot),
	}
}

// Acquire registers a handle the host just returned and assigns it the
// next generation for its raw slot. Receiving a raw handle that is still
// open locally means the host handed out a live handle twice. Raw handle 0
// is reserved for calls that target no descriptor and is never accepted.
func (t *Table) Acquire(raw uint32, kind Kind) (Descriptor, error) {
	if raw == 0 {
		return Descriptor{}, errors.ProtocolViolation("acquire", "host returned the null handle")
	}
	s, ok := t.slots[raw]
	if !ok {
		s = &slot{}
		t.slots[raw] = s
	}
	if s.open {
		return Descriptor{}, errors.ProtocolViolation("acquire",
			"host returned handle %d which is still open as %s", raw, Descriptor{raw: raw, gen: s.gen, kind: s.kind})
	}
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.kind = kind
	s.open = true
	t.open++
	return Descriptor{raw: raw, gen: s.gen, kind: kind}, nil
}

// Adopt acquires the handle carried by a reference decoded from a host result.
func (t *Table) Adopt(ref entities.DescriptorRef, kind Kind) (Descriptor, error) {
	return t.Acquire(uint32(ref), kind)
}

// Validate checks that d is open and, when kinds is non-empty, that its kind
// is one of them. Every failure is an InvalidDescriptor error.
func (t *Table) Validate(d Descriptor, kinds ...Kind) error {
	return t.check("validate", d, kinds)
}

func (t *Table) check(op string, d Descriptor, kinds []Kind) error {
	if d.IsZero() {
		return errors.InvalidDescriptor(op, nil, "zero descriptor")
	}
	s, ok := t.slots[d.raw]
	if !ok {
		return errors.InvalidDescriptor(op, nil, "descriptor %s is not registered", d)
	}
	if s.gen != d.gen {
		return errors.InvalidDescriptor(op, errors.ErrStaleDescriptor,
			"descriptor %s, current generation %d", d, s.gen)
	}
	if !s.open {
		return errors.InvalidDescriptor(op, errors.ErrUseAfterClose, "descriptor %s", d)
	}
	if len(kinds) > 0 && !slices.Contains(kinds, d.kind) {
		return errors.InvalidDescriptor(op, errors.ErrDescriptorMismatch,
			"descriptor %s, want %v", d, kinds)
	}
	return nil
}

// IsOpen reports whether d is currently valid.
func (t *Table) IsOpen(d Descriptor) bool {
	return t.Validate(d) == nil
}

// IsOpenRaw reports whether the raw handle is open under any generation.
func (t *Table) IsOpenRaw(raw uint32) bool {
	s, ok := t.slots[raw]
	return ok && s.open
}

// Close invalidates d and releases the host handle. Closing an invalid
// descriptor, including a second close, fails without contacting the host.
// The descriptor stays closed even when the host release fails.
func (t *Table) Close(ctx context.Context, d Descriptor) error {
	if err := t.check("close", d, nil); err != nil {
		return err
	}
	s := t.slots[d.raw]
	s.open = false
	t.open--

	if t.releaser == nil {
		return nil
	}
	if err := t.releaser.Release(ctx, d.raw); err != nil {
		return fmt.Errorf("release %s: %w", d, err)
	}
	return nil
}

// Scope runs fn and closes d on every exit path: normal return, error and
// panic. If fn closes d itself the scope leaves it alone. A close failure is
// joined with fn's error.
func (t *Table) Scope(ctx context.Context, d Descriptor, fn func(Descriptor) error) (err error) {
	defer func() {
		if !t.IsOpen(d) {
			return
		}
		if cerr := t.Close(ctx, d); cerr != nil {
			err = stdErrors.Join(err, cerr)
		}
	}()
	return fn(d)
}

// CloseAll closes every open descriptor in ascending handle order and
// returns the joined release errors.
func (t *Table) CloseAll(ctx context.Context) error {
	raws := make([]uint32, 0, t.open)
	for raw, s := range t.slots {
		if s.open {
			raws = append(raws, raw)
		}
	}
	slices.Sort(raws)

	var errs []error
	for _, raw := range raws {
		s := t.slots[raw]
		if err := t.Close(ctx, Descriptor{raw: raw, gen: s.gen, kind: s.kind}); err != nil {
			errs = append(errs, err)
		}
	}
	return stdErrors.Join(errs...)
}

// Len returns the number of open descriptors.
func (t *Table) Len() int {
	return t.open
}
