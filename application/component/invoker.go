// Package component performs method calls and related descriptor operations
// against host components.
package component

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ocwasm/ocsafe/application/config"
	"github.com/ocwasm/ocsafe/domain/descriptor"
	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/internal/arena"
	"github.com/ocwasm/ocsafe/internal/negotiate"
	"github.com/ocwasm/ocsafe/wireformat"
)

// Invoker marshals component calls across the host boundary.
// An Invoker is not safe for concurrent use.
type Invoker struct {
	table  *descriptor.Table
	caller *negotiate.Caller
	codec  *wireformat.Codec
	req    *arena.Buffer
	resp   *arena.Buffer
	logger *slog.Logger
}

// Option configures an Invoker.
type Option func(*invokerConfig)

type invokerConfig struct {
	logger *slog.Logger
	cfg    config.Config
}

// WithConfig sets buffer and negotiation limits.
func WithConfig(cfg config.Config) Option {
	return func(c *invokerConfig) {
		c.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *invokerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func defaultInvokerConfig() invokerConfig {
	return invokerConfig{
		logger: slog.Default(),
		cfg:    config.Default(),
	}
}

// New creates an Invoker that issues calls through host and tracks
// descriptors in table.
func New(host ports.HostCaller, table *descriptor.Table, opts ...Option) *Invoker {
	c := defaultInvokerConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return &Invoker{
		table: table,
		caller: negotiate.New(host,
			negotiate.WithMaxRounds(c.cfg.MaxNegotiationRounds),
			negotiate.WithLogger(c.logger)),
		codec:  wireformat.NewCodec(wireformat.WithMaxDepth(c.cfg.MaxDecodeDepth)),
		req:    arena.New(c.cfg.InitialBufferSize, c.cfg.MaxBufferSize),
		resp:   arena.New(c.cfg.InitialBufferSize, c.cfg.MaxBufferSize),
		logger: c.logger,
	}
}

// Table returns the descriptor table the Invoker validates against.
func (inv *Invoker) Table() *descriptor.Table {
	return inv.table
}

// Open opens the component at address and returns its descriptor.
func (inv *Invoker) Open(ctx context.Context, address string) (descriptor.Descriptor, error) {
	in, err := inv.encode(entities.String(address))
	if err != nil {
		return descriptor.Descriptor{}, fmt.Errorf("open %q: %w", address, err)
	}
	ref, err := inv.callForRef(ctx, ports.CallOpen, 0, in)
	if err != nil {
		return descriptor.Descriptor{}, fmt.Errorf("open %q: %w", address, err)
	}
	return inv.table.Adopt(ref, descriptor.KindComponent)
}

// List returns the components known to the host, restricted to typeFilter
// when it is not empty.
func (inv *Invoker) List(ctx context.Context, typeFilter string) ([]entities.ComponentInfo, error) {
	var filter entities.Value = entities.Null{}
	if typeFilter != "" {
		filter = entities.String(typeFilter)
	}
	in, err := inv.encode(filter)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	results, err := inv.call(ctx, ports.CallList, 0, in)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	infos := make([]entities.ComponentInfo, 0, len(results))
	for i, r := range results {
		info, err := componentInfo(r)
		if err != nil {
			return nil, fmt.Errorf("list entry %d: %w", i, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Invoke calls a method on a component or opaque value descriptor and
// returns its results. An invalid descriptor fails before any host call.
func (inv *Invoker) Invoke(ctx context.Context, d descriptor.Descriptor, call entities.Call) ([]entities.Value, error) {
	if err := inv.table.Validate(d, descriptor.KindComponent, descriptor.KindValue); err != nil {
		return nil, err
	}
	if call.Method() == "" {
		return nil, errors.BadArgument("invoke", "empty method name")
	}
	for i := 0; i < call.NumArgs(); i++ {
		if err := inv.checkRefs("invoke", call.Arg(i)); err != nil {
			return nil, fmt.Errorf("invoke %s argument %d: %w", call.Method(), i, err)
		}
	}

	size, err := inv.codec.CallSize(call)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", call.Method(), err)
	}
	inv.req.Reset()
	if err := inv.req.Ensure(size); err != nil {
		return nil, fmt.Errorf("invoke %s: %w", call.Method(), err)
	}
	in, err := inv.codec.AppendCall(inv.req.Bytes(), call)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", call.Method(), err)
	}

	inv.logger.DebugContext(ctx, "invoking component method",
		"descriptor", d.String(), "method", call.Method(), "args", call.NumArgs(), "request_bytes", len(in))

	results, err := inv.call(ctx, ports.CallInvoke, d.Raw(), in)
	if err != nil {
		return nil, fmt.Errorf("invoke %s on %s: %w", call.Method(), d, err)
	}
	return results, nil
}

// Documentation returns the documentation string of a method.
func (inv *Invoker) Documentation(ctx context.Context, d descriptor.Descriptor, method string) (string, error) {
	if err := inv.table.Validate(d, descriptor.KindComponent, descriptor.KindValue); err != nil {
		return "", err
	}
	in, err := inv.encode(entities.String(method))
	if err != nil {
		return "", fmt.Errorf("documentation %s: %w", method, err)
	}
	results, err := inv.call(ctx, ports.CallDocumentation, d.Raw(), in)
	if err != nil {
		return "", fmt.Errorf("documentation %s: %w", method, err)
	}
	doc, err := single[entities.String]("documentation", results)
	if err != nil {
		return "", err
	}
	return string(doc), nil
}

// Methods lists the methods of a component or opaque value with their
// attributes.
func (inv *Invoker) Methods(ctx context.Context, d descriptor.Descriptor) ([]entities.MethodInfo, error) {
	if err := inv.table.Validate(d, descriptor.KindComponent, descriptor.KindValue); err != nil {
		return nil, err
	}
	results, err := inv.call(ctx, ports.CallMethods, d.Raw(), nil)
	if err != nil {
		return nil, fmt.Errorf("methods of %s: %w", d, err)
	}
	infos := make([]entities.MethodInfo, 0, len(results))
	for i, r := range results {
		info, err := methodInfo(r)
		if err != nil {
			return nil, fmt.Errorf("methods entry %d: %w", i, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ComponentType returns the type of the component at address without
// opening it.
func (inv *Invoker) ComponentType(ctx context.Context, address string) (string, error) {
	results, err := inv.byAddress(ctx, ports.CallComponentType, address)
	if err != nil {
		return "", err
	}
	typ, err := single[entities.String](ports.CallComponentType.String(), results)
	if err != nil {
		return "", err
	}
	return string(typ), nil
}

// Slot returns the slot occupied by the component at address. A component
// outside any slot fails with HostUnsupported.
func (inv *Invoker) Slot(ctx context.Context, address string) (int, error) {
	results, err := inv.byAddress(ctx, ports.CallSlot, address)
	if err != nil {
		return 0, err
	}
	n, err := single[entities.Int](ports.CallSlot.String(), results)
	if err != nil {
		return 0, err
	}
	if n < 0 || int64(n) > math.MaxInt32 {
		return 0, errors.ProtocolViolation(ports.CallSlot.String(), "slot %d out of range", int64(n))
	}
	return int(n), nil
}

func (inv *Invoker) byAddress(ctx context.Context, call ports.CallIndex, address string) ([]entities.Value, error) {
	in, err := inv.encode(entities.String(address))
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", call, address, err)
	}
	results, err := inv.call(ctx, call, 0, in)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", call, address, err)
	}
	return results, nil
}

// IndexedRead reads an opaque value at index.
func (inv *Invoker) IndexedRead(ctx context.Context, d descriptor.Descriptor, index ...entities.Value) ([]entities.Value, error) {
	return inv.indexed(ctx, ports.CallIndexedRead, d, index)
}

// IndexedWrite stores value into an opaque value at index.
func (inv *Invoker) IndexedWrite(ctx context.Context, d descriptor.Descriptor, index []entities.Value, value entities.Value) error {
	params := make([]entities.Value, 0, len(index)+1)
	params = append(params, index...)
	params = append(params, value)
	_, err := inv.indexed(ctx, ports.CallIndexedWrite, d, params)
	return err
}

// indexed issues an indexed access. params are the index parameters,
// followed by the value on a write.
func (inv *Invoker) indexed(ctx context.Context, call ports.CallIndex, d descriptor.Descriptor, params []entities.Value) ([]entities.Value, error) {
	op := call.String()
	if err := inv.table.Validate(d, descriptor.KindValue); err != nil {
		return nil, err
	}
	if len(params) == 0 || (call == ports.CallIndexedWrite && len(params) < 2) {
		return nil, errors.BadArgument(op, "index expected")
	}
	arr := entities.Array(params)
	if err := inv.checkRefs(op, arr); err != nil {
		return nil, err
	}
	in, err := inv.encode(arr)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", op, d, err)
	}
	results, err := inv.call(ctx, call, d.Raw(), in)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", op, d, err)
	}
	return results, nil
}

// PushSignal queues a signal on the host, to be pulled like any host
// signal. A full host queue fails with an error matching ErrQueueFull.
func (inv *Invoker) PushSignal(ctx context.Context, name string, params ...entities.Value) error {
	op := ports.CallPushSignal.String()
	if name == "" {
		return errors.BadArgument(op, "empty signal name")
	}
	for i, p := range params {
		if err := inv.checkRefs(op, p); err != nil {
			return fmt.Errorf("push signal %s parameter %d: %w", name, i, err)
		}
	}
	in, err := inv.encode(entities.String(name), entities.Array(params))
	if err != nil {
		return fmt.Errorf("push signal %s: %w", name, err)
	}
	if err := inv.caller.Exec(ctx, ports.CallPushSignal, 0, in); err != nil {
		inv.logger.DebugContext(ctx, "host refused signal", "signal", name, "error", err)
		return fmt.Errorf("push signal %s: %w", name, err)
	}
	return nil
}

// Dup asks the host for a second handle to the same opaque value.
func (inv *Invoker) Dup(ctx context.Context, d descriptor.Descriptor) (descriptor.Descriptor, error) {
	if err := inv.table.Validate(d, descriptor.KindValue); err != nil {
		return descriptor.Descriptor{}, err
	}
	ref, err := inv.callForRef(ctx, ports.CallDup, d.Raw(), nil)
	if err != nil {
		return descriptor.Descriptor{}, fmt.Errorf("dup %s: %w", d, err)
	}
	return inv.table.Adopt(ref, descriptor.KindValue)
}

// Adopt takes ownership of an opaque value handle returned in call results.
func (inv *Invoker) Adopt(v entities.Value) (descriptor.Descriptor, error) {
	ref, ok := v.(entities.DescriptorRef)
	if !ok {
		return descriptor.Descriptor{}, errors.BadArgument("adopt", "value is %s, want descriptor", tagOf(v))
	}
	return inv.table.Adopt(ref, descriptor.KindValue)
}

// Close closes a descriptor and releases its host handle.
func (inv *Invoker) Close(ctx context.Context, d descriptor.Descriptor) error {
	if err := inv.table.Close(ctx, d); err != nil {
		return err
	}
	inv.logger.DebugContext(ctx, "closed descriptor", "descriptor", d.String())
	return nil
}

// encode writes vs into the request buffer.
func (inv *Invoker) encode(vs ...entities.Value) ([]byte, error) {
	size, err := inv.codec.Size(vs...)
	if err != nil {
		return nil, err
	}
	inv.req.Reset()
	if err := inv.req.Ensure(size); err != nil {
		return nil, err
	}
	return inv.codec.AppendAll(inv.req.Bytes(), vs...)
}

// call issues a negotiated call and decodes its result array.
func (inv *Invoker) call(ctx context.Context, call ports.CallIndex, handle uint32, in []byte) ([]entities.Value, error) {
	out, err := inv.caller.Do(ctx, call, handle, in, inv.resp)
	if err != nil {
		return nil, err
	}
	results, err := inv.codec.DecodeResults(out)
	if err != nil {
		inv.logger.WarnContext(ctx, "host returned a malformed result", "call", call.String(), "error", err)
		return nil, err
	}
	return results, nil
}

func (inv *Invoker) callForRef(ctx context.Context, call ports.CallIndex, handle uint32, in []byte) (entities.DescriptorRef, error) {
	results, err := inv.call(ctx, call, handle, in)
	if err != nil {
		return 0, err
	}
	return single[entities.DescriptorRef](call.String(), results)
}

// checkRefs rejects descriptor references to handles that are not open.
func (inv *Invoker) checkRefs(op string, v entities.Value) error {
	switch tv := v.(type) {
	case entities.DescriptorRef:
		if !inv.table.IsOpenRaw(uint32(tv)) {
			return errors.InvalidDescriptor(op, nil, "argument references handle %d which is not open", uint32(tv))
		}
	case entities.Array:
		for _, e := range tv {
			if err := inv.checkRefs(op, e); err != nil {
				return err
			}
		}
	case entities.Table:
		for _, e := range tv {
			if err := inv.checkRefs(op, e.Key); err != nil {
				return err
			}
			if err := inv.checkRefs(op, e.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// single extracts the only result of a call, which must be of type T.
func single[T entities.Value](op string, results []entities.Value) (T, error) {
	var zero T
	if len(results) != 1 {
		return zero, errors.ProtocolViolation(op, "host returned %d results, want 1", len(results))
	}
	v, ok := results[0].(T)
	if !ok {
		return zero, errors.ProtocolViolation(op, "host returned %s, want %s", tagOf(results[0]), zero.Tag())
	}
	return v, nil
}

func componentInfo(v entities.Value) (entities.ComponentInfo, error) {
	tbl, ok := v.(entities.Table)
	if !ok {
		return entities.ComponentInfo{}, errors.ProtocolViolation("list", "entry is %s, want table", tagOf(v))
	}
	addr, ok := tbl.Field("address")
	if !ok {
		return entities.ComponentInfo{}, errors.ProtocolViolation("list", "entry has no address")
	}
	typ, ok := tbl.Field("type")
	if !ok {
		return entities.ComponentInfo{}, errors.ProtocolViolation("list", "entry has no type")
	}
	a, aok := addr.(entities.String)
	ty, tok := typ.(entities.String)
	if !aok || !tok {
		return entities.ComponentInfo{}, errors.ProtocolViolation("list", "address and type must be strings")
	}
	return entities.ComponentInfo{Address: string(a), Type: string(ty)}, nil
}

func methodInfo(v entities.Value) (entities.MethodInfo, error) {
	tbl, ok := v.(entities.Table)
	if !ok {
		return entities.MethodInfo{}, errors.ProtocolViolation("methods", "entry is %s, want table", tagOf(v))
	}
	name, ok := tbl.Field("name")
	if !ok {
		return entities.MethodInfo{}, errors.ProtocolViolation("methods", "entry has no name")
	}
	n, ok := name.(entities.String)
	if !ok {
		return entities.MethodInfo{}, errors.ProtocolViolation("methods", "name is %s, want string", tagOf(name))
	}
	info := entities.MethodInfo{Name: string(n)}
	if attrs, ok := tbl.Field("attributes"); ok {
		bits, ok := attrs.(entities.Int)
		if !ok || bits < 0 || int64(bits) > math.MaxUint32 {
			return entities.MethodInfo{}, errors.ProtocolViolation("methods", "attributes of %s are malformed", n)
		}
		info.Attributes = entities.MethodAttributes(bits)
	}
	return info, nil
}

func tagOf(v entities.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Tag().String()
}
