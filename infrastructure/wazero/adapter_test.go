package wazero

import (
	"context"
	"testing"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/hostfuncs"
	"github.com/ocwasm/ocsafe/internal/abi"
	"github.com/ocwasm/ocsafe/internal/testutil"
	"github.com/ocwasm/ocsafe/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()

	assert.Equal(t, "oc_host", cfg.ModuleName)
	assert.Equal(t, uint32(hostfuncs.DefaultMaxRequestSize), cfg.MaxRequestSize)
	assert.Nil(t, cfg.Logger)
}

func TestAdapterOptions(t *testing.T) {
	cfg := defaultAdapterConfig()
	l := zap.NewNop()
	WithModuleName("custom_module")(&cfg)
	WithMaxRequestSize(2048)(&cfg)
	WithLogger(l)(&cfg)

	assert.Equal(t, "custom_module", cfg.ModuleName)
	assert.Equal(t, uint32(2048), cfg.MaxRequestSize)
	assert.Same(t, l, cfg.Logger)
}

func TestGuestName(t *testing.T) {
	ctx := context.Background()
	_, ok := GuestNameFromContext(ctx)
	assert.False(t, ok)

	ctx = WithGuestName(ctx, "sensor")
	name, ok := GuestNameFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "sensor", name)
}

// guest runs the forwarder module against host.
type guest struct {
	t      *testing.T
	ctx    context.Context
	mod    api.Module
	invoke api.Function
}

func newGuest(t *testing.T, host ports.HostCaller, opts ...AdapterOption) *guest {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = r.Close(ctx) })

	require.NoError(t, RegisterWithRuntime(ctx, r, host, opts...))
	mod, err := r.Instantiate(ctx, testutil.ForwarderWasm)
	require.NoError(t, err)

	return &guest{t: t, ctx: ctx, mod: mod, invoke: mod.ExportedFunction("invoke")}
}

// call writes in to guest memory, offers outLen bytes for the response and
// returns the status with the bytes the host wrote.
func (g *guest) call(call ports.CallIndex, handle uint32, in []byte, outLen uint32) (errors.Status, uint32, []byte) {
	g.t.Helper()
	mem := g.mod.Memory()
	require.True(g.t, mem.Write(testutil.ForwarderInOffset, in))

	var inPacked, outPacked uint64
	if len(in) > 0 {
		inPacked = abi.PackPtrLen(testutil.ForwarderInOffset, uint32(len(in)))
	}
	if outLen > 0 {
		outPacked = abi.PackPtrLen(testutil.ForwarderOutOffset, outLen)
	}

	res, err := g.invoke.Call(g.ctx, uint64(call), uint64(handle), inPacked, outPacked)
	require.NoError(g.t, err)
	require.Len(g.t, res, 1)

	status, n := abi.UnpackStatus(res[0])
	if errors.Status(status) != errors.StatusOK {
		return errors.Status(status), n, nil
	}
	out, ok := mem.Read(testutil.ForwarderOutOffset, n)
	require.True(g.t, ok)
	return errors.Status(status), n, append([]byte(nil), out...)
}

func newDemoHost(t *testing.T) *hostfuncs.Host {
	t.Helper()
	reg, err := hostfuncs.NewRegistry(hostfuncs.WithBundle(hostfuncs.DemoBundle()))
	require.NoError(t, err)
	return hostfuncs.NewHost(reg)
}

func encode(t *testing.T, v entities.Value) []byte {
	t.Helper()
	b, err := wireformat.Encode(v)
	require.NoError(t, err)
	return b
}

func TestRegisterWithRuntime_OpenAndInvoke(t *testing.T) {
	host := newDemoHost(t)
	g := newGuest(t, host)
	codec := wireformat.NewCodec()

	status, _, out := g.call(ports.CallOpen, 0, encode(t, entities.String("gpu-0")), 64)
	require.Equal(t, errors.StatusOK, status)
	results, err := codec.DecodeResults(out)
	require.NoError(t, err)
	require.Len(t, results, 1)
	ref, ok := results[0].(entities.DescriptorRef)
	require.True(t, ok)

	req, err := codec.AppendCall(nil, entities.NewCall("getResolution"))
	require.NoError(t, err)
	status, _, out = g.call(ports.CallInvoke, uint32(ref), req, 64)
	require.Equal(t, errors.StatusOK, status)

	results, err = codec.DecodeResults(out)
	require.NoError(t, err)
	testutil.AssertValuesEqual(t, []entities.Value{entities.Int(160), entities.Int(50)}, results)
}

func TestRegisterWithRuntime_BufferTooSmall(t *testing.T) {
	host := newDemoHost(t)
	g := newGuest(t, host)

	status, n, _ := g.call(ports.CallOpen, 0, encode(t, entities.String("gpu-0")), 2)
	assert.Equal(t, errors.StatusBufferTooSmall, status)
	assert.Greater(t, n, uint32(2))

	status, m, _ := g.call(ports.CallOpen, 0, encode(t, entities.String("gpu-0")), n)
	assert.Equal(t, errors.StatusOK, status)
	assert.Equal(t, n, m)
}

func TestRegisterWithRuntime_StatusPassthrough(t *testing.T) {
	g := newGuest(t, newDemoHost(t))

	status, _, _ := g.call(ports.CallOpen, 0, encode(t, entities.String("missing-0")), 64)
	assert.Equal(t, errors.StatusNoSuchComponent, status)

	status, _, _ = g.call(ports.CallInvoke, 42, nil, 64)
	assert.Equal(t, errors.StatusBadDescriptor, status)
}

func TestRegisterWithRuntime_RequestTooLarge(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	host := newDemoHost(t)
	g := newGuest(t, host, WithMaxRequestSize(4), WithLogger(zap.New(core)))

	status, n, _ := g.call(ports.CallOpen, 0, encode(t, entities.String("gpu-0")), 64)

	assert.Equal(t, errors.StatusTooLarge, status)
	assert.Zero(t, n)
	assert.Zero(t, host.CallCount(ports.CallOpen), "oversized request must not reach the host")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "guest request exceeds maximum size", logs.All()[0].Message)
}

func TestRegisterWithRuntime_OutOfBoundsBuffer(t *testing.T) {
	host := newDemoHost(t)
	g := newGuest(t, host, WithLogger(zap.NewNop()))

	// One page of memory ends at 65536.
	res, err := g.invoke.Call(g.ctx, uint64(ports.CallList), 0, 0, abi.PackPtrLen(65000, 4096))
	require.NoError(t, err)

	status, _ := abi.UnpackStatus(res[0])
	assert.Equal(t, uint32(errors.StatusBadParameters), status)
	assert.Zero(t, host.CallCount(ports.CallList))
}

func TestRegisterWithRuntime_CustomModuleName(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	require.NoError(t, RegisterWithRuntime(ctx, r, newDemoHost(t), WithModuleName("other_host")))

	// The forwarder imports oc_host, which is not registered.
	_, err := r.Instantiate(ctx, testutil.ForwarderWasm)
	assert.Error(t, err)
}
