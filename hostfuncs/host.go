package hostfuncs

import (
	"bytes"
	"context"
	stdErrors "errors"
	"slices"
	"sync"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/wireformat"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultMaxBatch is the default number of signals delivered per pull.
const DefaultMaxBatch = 64

// ErrSignalBufferFull is returned when a signal was dropped because the
// buffer is full.
var ErrSignalBufferFull = stdErrors.New("signal buffer full")

// Compile-time interface check.
var _ ports.HostCaller = (*Host)(nil)

// CallRecord is one raw call as seen by the Host.
type CallRecord struct {
	Call   ports.CallIndex
	Handle uint32
	Status errors.Status
	N      uint32
}

type handleEntry struct {
	obj       *Object
	address   string
	component bool
}

// pendingResponse is a response that did not fit the offered buffer. It is
// replayed, without running the call again, when the guest retries the same
// call with the same request bytes.
type pendingResponse struct {
	in     []byte
	body   []byte
	commit func()
	call   ports.CallIndex
	handle uint32
}

func (p *pendingResponse) matches(call ports.CallIndex, handle uint32, in []byte) bool {
	return p != nil && p.call == call && p.handle == handle && bytes.Equal(p.in, in)
}

type hostConfig struct {
	logger         *zap.Logger
	codec          *wireformat.Codec
	signalCapacity int
	maxRequestSize int
	maxBatch       int
}

func defaultHostConfig() *hostConfig {
	return &hostConfig{
		signalCapacity: DefaultSignalCapacity,
		maxRequestSize: DefaultMaxRequestSize,
		maxBatch:       DefaultMaxBatch,
	}
}

// HostOption configures a Host.
type HostOption func(*hostConfig)

// WithSignalCapacity sets how many signals are buffered before new ones are dropped.
func WithSignalCapacity(n int) HostOption {
	return func(c *hostConfig) {
		c.signalCapacity = n
	}
}

// WithMaxRequestSize sets the largest request accepted, in bytes.
// Larger requests fail with StatusTooLarge.
func WithMaxRequestSize(size int) HostOption {
	return func(c *hostConfig) {
		c.maxRequestSize = size
	}
}

// WithMaxBatch sets the maximum number of signals delivered per pull.
func WithMaxBatch(n int) HostOption {
	return func(c *hostConfig) {
		if n > 0 {
			c.maxBatch = n
		}
	}
}

// WithHostLogger sets the logger for host activity and guest log records.
func WithHostLogger(l *zap.Logger) HostOption {
	return func(c *hostConfig) {
		c.logger = l
	}
}

// WithHostCodec sets the codec used on requests and responses.
func WithHostCodec(codec *wireformat.Codec) HostOption {
	return func(c *hostConfig) {
		c.codec = codec
	}
}

// Host is an in-process implementation of the host side of the call ABI.
// It is safe for concurrent use; calls are serialized.
type Host struct {
	registry *Registry
	codec    *wireformat.Codec
	logger   *zap.Logger
	handles  map[uint32]*handleEntry
	signals  *SignalBuffer
	pending  *pendingResponse
	calls    []CallRecord
	released []uint32
	logs     []entities.LogRecord
	maxReq   int
	maxBatch int
	mu       sync.Mutex
}

// NewHost creates a Host serving the components of registry.
// A nil registry serves no components.
func NewHost(registry *Registry, opts ...HostOption) *Host {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}
	if cfg.codec == nil {
		cfg.codec = wireformat.NewCodec()
	}
	if registry == nil {
		registry, _ = NewRegistry()
	}

	return &Host{
		registry: registry,
		codec:    cfg.codec,
		logger:   cfg.logger,
		handles:  make(map[uint32]*handleEntry),
		signals:  NewSignalBuffer(cfg.signalCapacity),
		maxReq:   cfg.maxRequestSize,
		maxBatch: cfg.maxBatch,
	}
}

// Registry returns the component registry.
func (h *Host) Registry() *Registry {
	return h.registry
}

// HostCall implements ports.HostCaller.
func (h *Host) HostCall(ctx context.Context, call ports.CallIndex, handle uint32, in, out []byte) (status, n uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, size := h.hostCall(ctx, call, handle, in, out)
	h.calls = append(h.calls, CallRecord{Call: call, Handle: handle, Status: st, N: size})
	if st != errors.StatusOK {
		h.logger.Debug("host call failed",
			zap.Stringer("call", call),
			zap.Uint32("handle", handle),
			zap.Stringer("status", st),
			zap.Uint32("n", size))
	}
	return uint32(st), size
}

func (h *Host) hostCall(ctx context.Context, call ports.CallIndex, handle uint32, in, out []byte) (errors.Status, uint32) {
	if len(in) > h.maxReq {
		h.pending = nil
		return errors.StatusTooLarge, 0
	}

	if call == ports.CallPullSignals {
		h.pending = nil
		return h.pullSignals(out)
	}

	var body []byte
	var commit func()
	if h.pending.matches(call, handle, in) {
		body, commit = h.pending.body, h.pending.commit
	} else {
		h.pending = nil
		var st errors.Status
		body, commit, st = h.dispatch(ctx, call, handle, in)
		if st != errors.StatusOK {
			return st, 0
		}
	}

	if len(body) > len(out) {
		h.pending = &pendingResponse{
			call:   call,
			handle: handle,
			in:     bytes.Clone(in),
			body:   body,
			commit: commit,
		}
		return errors.StatusBufferTooSmall, uint32(len(body))
	}

	h.pending = nil
	copy(out, body)
	if commit != nil {
		commit()
	}
	return errors.StatusOK, uint32(len(body))
}

func (h *Host) dispatch(ctx context.Context, call ports.CallIndex, handle uint32, in []byte) ([]byte, func(), errors.Status) {
	switch call {
	case ports.CallOpen:
		return h.open(in)
	case ports.CallList:
		return h.list(in)
	case ports.CallInvoke:
		return h.invoke(ctx, handle, in)
	case ports.CallDocumentation:
		return h.documentation(handle, in)
	case ports.CallDup:
		return h.dup(handle)
	case ports.CallRelease:
		return h.release(handle)
	case ports.CallLog:
		return h.log(in)
	case ports.CallPushSignal:
		return h.guestSignal(in)
	case ports.CallMethods:
		return h.methods(handle)
	case ports.CallComponentType:
		return h.componentType(in)
	case ports.CallSlot:
		return h.slot(in)
	case ports.CallIndexedRead:
		return h.indexed(ctx, handle, in, false)
	case ports.CallIndexedWrite:
		return h.indexed(ctx, handle, in, true)
	default:
		return nil, nil, errors.StatusUnsupported
	}
}

func (h *Host) open(in []byte) ([]byte, func(), errors.Status) {
	address, obj, st := h.component(in)
	if st != errors.StatusOK {
		return nil, nil, st
	}

	raw := h.nextRaw()
	body, err := h.codec.AppendResults(nil, []entities.Value{entities.DescriptorRef(raw)})
	if err != nil {
		return nil, nil, errors.StatusProtocolError
	}
	return body, func() {
		h.handles[raw] = &handleEntry{obj: obj, address: address, component: true}
	}, errors.StatusOK
}

func (h *Host) list(in []byte) ([]byte, func(), errors.Status) {
	var filter string
	if len(in) > 0 {
		v, err := h.codec.DecodeAll(in)
		if err != nil {
			return nil, nil, errors.StatusDecodeFailure
		}
		switch f := v.(type) {
		case entities.Null:
		case entities.String:
			filter = string(f)
		default:
			return nil, nil, errors.StatusBadParameters
		}
	}

	infos := h.registry.List(filter)
	rows := make(entities.Array, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, entities.Table{
			{Key: entities.String("address"), Value: entities.String(info.Address)},
			{Key: entities.String("type"), Value: entities.String(info.Type)},
		})
	}
	body, err := h.codec.AppendResults(nil, rows)
	if err != nil {
		return nil, nil, errors.StatusProtocolError
	}
	return body, nil, errors.StatusOK
}

func (h *Host) invoke(ctx context.Context, handle uint32, in []byte) ([]byte, func(), errors.Status) {
	entry, ok := h.handles[handle]
	if !ok {
		return nil, nil, errors.StatusBadDescriptor
	}
	call, err := h.codec.DecodeCall(in)
	if err != nil {
		return nil, nil, errors.StatusDecodeFailure
	}
	for _, arg := range call.Args() {
		if !h.refsOpen(arg) {
			return nil, nil, errors.StatusBadDescriptor
		}
	}
	handler, ok := entry.obj.handler(call.Method())
	if !ok {
		return nil, nil, errors.StatusNoSuchMethod
	}
	return h.run(ctx, entry, call.Method(), handler, call.Args())
}

// run calls a handler and encodes its results. Values the handler created
// are registered by the returned commit.
func (h *Host) run(ctx context.Context, entry *handleEntry, name string, handler MethodHandler, args []entities.Value) ([]byte, func(), errors.Status) {
	hc := &hostContext{Context: ctx, host: h, address: entry.address, method: name}
	results, err := h.registry.wrap(handler)(hc, args)
	if err != nil {
		st := statusOf(err)
		h.logger.Debug("method returned error",
			zap.String("address", entry.address),
			zap.String("method", name),
			zap.Stringer("status", st),
			zap.Error(err))
		return nil, nil, st
	}

	body, err := h.codec.AppendResults(nil, results)
	if err != nil {
		h.logger.Error("method returned unencodable results",
			zap.String("address", entry.address),
			zap.String("method", name),
			zap.Error(err))
		return nil, nil, errors.StatusProtocolError
	}
	return body, hc.commit, errors.StatusOK
}

func (h *Host) refsOpen(v entities.Value) bool {
	switch x := v.(type) {
	case entities.DescriptorRef:
		_, ok := h.handles[uint32(x)]
		return ok
	case entities.Array:
		for _, e := range x {
			if !h.refsOpen(e) {
				return false
			}
		}
	case entities.Table:
		for _, e := range x {
			if !h.refsOpen(e.Key) || !h.refsOpen(e.Value) {
				return false
			}
		}
	}
	return true
}

func (h *Host) documentation(handle uint32, in []byte) ([]byte, func(), errors.Status) {
	entry, ok := h.handles[handle]
	if !ok {
		return nil, nil, errors.StatusBadDescriptor
	}
	v, err := h.codec.DecodeAll(in)
	if err != nil {
		return nil, nil, errors.StatusDecodeFailure
	}
	method, ok := v.(entities.String)
	if !ok {
		return nil, nil, errors.StatusBadParameters
	}
	doc, ok := entry.obj.Doc(string(method))
	if !ok {
		return nil, nil, errors.StatusNoSuchMethod
	}
	body, err := h.codec.AppendResults(nil, []entities.Value{entities.String(doc)})
	if err != nil {
		return nil, nil, errors.StatusProtocolError
	}
	return body, nil, errors.StatusOK
}

func (h *Host) dup(handle uint32) ([]byte, func(), errors.Status) {
	entry, ok := h.handles[handle]
	if !ok {
		return nil, nil, errors.StatusBadDescriptor
	}
	if entry.component {
		return nil, nil, errors.StatusUnsupported
	}
	raw := h.nextRaw()
	body, err := h.codec.AppendResults(nil, []entities.Value{entities.DescriptorRef(raw)})
	if err != nil {
		return nil, nil, errors.StatusProtocolError
	}
	return body, func() {
		h.handles[raw] = &handleEntry{obj: entry.obj, address: entry.address}
	}, errors.StatusOK
}

func (h *Host) release(handle uint32) ([]byte, func(), errors.Status) {
	if _, ok := h.handles[handle]; !ok {
		return nil, nil, errors.StatusBadDescriptor
	}
	delete(h.handles, handle)
	h.released = append(h.released, handle)
	return nil, nil, errors.StatusOK
}

func (h *Host) log(in []byte) ([]byte, func(), errors.Status) {
	rec, err := h.codec.DecodeLog(in)
	if err != nil {
		return nil, nil, errors.StatusDecodeFailure
	}
	h.logs = append(h.logs, rec)

	fields := make([]zap.Field, 0, len(rec.Attrs)+1)
	fields = append(fields, zap.String("source", "guest"))
	for _, e := range rec.Attrs {
		key, ok := e.Key.(entities.String)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(string(key), wireformat.ToAny(e.Value)))
	}
	if ce := h.logger.Check(zapLevel(rec.Level), rec.Message); ce != nil {
		ce.Write(fields...)
	}
	return nil, nil, errors.StatusOK
}

// guestSignal queues a signal pushed by the guest itself.
func (h *Host) guestSignal(in []byte) ([]byte, func(), errors.Status) {
	sig, err := h.codec.DecodeSignal(in)
	if err != nil {
		return nil, nil, errors.StatusDecodeFailure
	}
	if sig.Name == "" {
		return nil, nil, errors.StatusBadParameters
	}
	for _, p := range sig.Params {
		if !h.refsOpen(p) {
			return nil, nil, errors.StatusBadDescriptor
		}
	}
	// the guest learns of a refused push from the status, so it is not
	// reported as a drop
	if h.signals.Len() >= h.signals.Limit() {
		return nil, nil, errors.StatusQueueFull
	}
	if err := h.pushSignal(sig); err != nil {
		return nil, nil, statusOf(err)
	}
	return nil, nil, errors.StatusOK
}

func (h *Host) methods(handle uint32) ([]byte, func(), errors.Status) {
	entry, ok := h.handles[handle]
	if !ok {
		return nil, nil, errors.StatusBadDescriptor
	}
	infos := entry.obj.MethodInfo()
	rows := make([]entities.Value, 0, len(infos))
	for _, m := range infos {
		rows = append(rows, entities.Table{
			{Key: entities.String("name"), Value: entities.String(m.Name)},
			{Key: entities.String("attributes"), Value: entities.Int(m.Attributes)},
		})
	}
	body, err := h.codec.AppendResults(nil, rows)
	if err != nil {
		return nil, nil, errors.StatusProtocolError
	}
	return body, nil, errors.StatusOK
}

// component decodes an address request and looks the component up.
func (h *Host) component(in []byte) (string, *Object, errors.Status) {
	v, err := h.codec.DecodeAll(in)
	if err != nil {
		return "", nil, errors.StatusDecodeFailure
	}
	address, ok := v.(entities.String)
	if !ok {
		return "", nil, errors.StatusBadParameters
	}
	obj, ok := h.registry.Lookup(string(address))
	if !ok {
		return "", nil, errors.StatusNoSuchComponent
	}
	return string(address), obj, errors.StatusOK
}

func (h *Host) componentType(in []byte) ([]byte, func(), errors.Status) {
	_, obj, st := h.component(in)
	if st != errors.StatusOK {
		return nil, nil, st
	}
	body, err := h.codec.AppendResults(nil, []entities.Value{entities.String(obj.Type())})
	if err != nil {
		return nil, nil, errors.StatusProtocolError
	}
	return body, nil, errors.StatusOK
}

// slot reports a component's slot. A component outside any slot answers
// StatusUnsupported.
func (h *Host) slot(in []byte) ([]byte, func(), errors.Status) {
	_, obj, st := h.component(in)
	if st != errors.StatusOK {
		return nil, nil, st
	}
	n, ok := obj.Slot()
	if !ok {
		return nil, nil, errors.StatusUnsupported
	}
	body, err := h.codec.AppendResults(nil, []entities.Value{entities.Int(n)})
	if err != nil {
		return nil, nil, errors.StatusProtocolError
	}
	return body, nil, errors.StatusOK
}

// indexed reads or writes an opaque value by index. The request is one
// array of parameters: the index, followed by the value on a write.
func (h *Host) indexed(ctx context.Context, handle uint32, in []byte, write bool) ([]byte, func(), errors.Status) {
	entry, ok := h.handles[handle]
	if !ok {
		return nil, nil, errors.StatusBadDescriptor
	}
	if entry.component {
		return nil, nil, errors.StatusUnsupported
	}
	v, err := h.codec.DecodeAll(in)
	if err != nil {
		return nil, nil, errors.StatusDecodeFailure
	}
	params, ok := v.(entities.Array)
	if !ok || len(params) == 0 || (write && len(params) < 2) {
		return nil, nil, errors.StatusBadParameters
	}
	if !h.refsOpen(params) {
		return nil, nil, errors.StatusBadDescriptor
	}
	handler := entry.obj.indexer(write)
	if handler == nil {
		return nil, nil, errors.StatusUnsupported
	}
	name := ports.CallIndexedRead.String()
	if write {
		name = ports.CallIndexedWrite.String()
	}
	return h.run(ctx, entry, name, handler, params)
}

func zapLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// pullSignals delivers as many buffered signals as fit in out. Delivered
// signals leave the buffer only here, after the batch was written.
func (h *Host) pullSignals(out []byte) (errors.Status, uint32) {
	entries := h.signals.Peek(h.maxBatch)
	if len(entries) == 0 && !h.signals.Dropped {
		return errors.StatusOK, 0
	}

	size := wireformat.BatchHeaderSize
	count := 0
	for _, e := range entries {
		next := size + 4 + len(e)
		if next > len(out) {
			break
		}
		size = next
		count++
	}
	if count == 0 && len(entries) > 0 {
		return errors.StatusBufferTooSmall, uint32(wireformat.BatchHeaderSize + 4 + len(entries[0]))
	}
	if size > len(out) {
		return errors.StatusBufferTooSmall, uint32(size)
	}

	body := wireformat.AppendBatchHeader(out[:0], h.signals.Dropped, count)
	for _, e := range entries[:count] {
		body = wireformat.AppendBatchEntry(body, e)
	}
	h.signals.Pop(count)
	return errors.StatusOK, uint32(len(body))
}

// nextRaw returns the lowest raw handle neither in use nor in skip.
func (h *Host) nextRaw(skip ...uint32) uint32 {
	raw := uint32(1)
	for {
		if _, used := h.handles[raw]; !used && !slices.Contains(skip, raw) {
			return raw
		}
		raw++
	}
}

func (h *Host) pushSignal(s entities.Signal) error {
	entry, err := h.codec.AppendSignal(nil, s)
	if err != nil {
		return err
	}
	return h.pushEntry(entry)
}

func (h *Host) pushEntry(entry []byte) error {
	if !h.signals.Push(entry) {
		h.logger.Warn("signal dropped", zap.Int("capacity", h.signals.Limit()))
		return ErrSignalBufferFull
	}
	return nil
}

// InjectSignal queues a signal for the guest.
func (h *Host) InjectSignal(name string, params ...entities.Value) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pushSignal(entities.Signal{Name: name, Params: params})
}

// InjectRawSignal queues an already encoded signal entry, which need not be
// well formed.
func (h *Host) InjectRawSignal(entry []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pushEntry(bytes.Clone(entry))
}

// PendingSignals returns the number of buffered signals.
func (h *Host) PendingSignals() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.signals.Len()
}

// OpenHandles returns the number of live handles.
func (h *Host) OpenHandles() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handles)
}

// Calls returns every call received so far.
func (h *Host) Calls() []CallRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]CallRecord, len(h.calls))
	copy(out, h.calls)
	return out
}

// CallCount returns how many calls of the given kind were received.
func (h *Host) CallCount(call ports.CallIndex) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c.Call == call {
			n++
		}
	}
	return n
}

// ResetCalls forgets the recorded calls.
func (h *Host) ResetCalls() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
}

// Released returns the raw handles released so far, in order.
func (h *Host) Released() []uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]uint32, len(h.released))
	copy(out, h.released)
	return out
}

// Logs returns the guest log records received so far.
func (h *Host) Logs() []entities.LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]entities.LogRecord, len(h.logs))
	copy(out, h.logs)
	return out
}
