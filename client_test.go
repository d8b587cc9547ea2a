package ocsafe

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/ocwasm/ocsafe/application/config"
	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/hostfuncs"
	"github.com/ocwasm/ocsafe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDemo(t *testing.T, opts ...Option) (*Client, *hostfuncs.Host) {
	t.Helper()
	reg, err := hostfuncs.NewRegistry(hostfuncs.WithBundle(hostfuncs.DemoBundle()))
	require.NoError(t, err)
	h := hostfuncs.NewHost(reg)
	c, err := New(h, opts...)
	require.NoError(t, err)
	return c, h
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.InitialBufferSize = 0

	_, err := New(hostfuncs.NewHost(nil), WithConfig(cfg))
	require.Error(t, err)

	var ce *errors.ConfigError
	require.True(t, stdErrors.As(err, &ce))
	assert.Equal(t, "InitialBufferSize", ce.Field)
}

func TestClient_OpenInvokeClose(t *testing.T) {
	ctx := context.Background()
	c, h := newDemo(t)

	gpu, err := c.Open(ctx, "gpu-0")
	require.NoError(t, err)
	assert.True(t, c.IsOpen(gpu))
	assert.Equal(t, 1, c.OpenDescriptors())

	res, err := c.Invoke(ctx, gpu, "getResolution")
	require.NoError(t, err)
	w, err := MustIntAt(res, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(160), w)
	assert.Equal(t, int64(50), IntAtDefault(res, 1, 0))

	require.NoError(t, c.Close(ctx, gpu))
	assert.False(t, c.IsOpen(gpu))
	assert.Zero(t, h.OpenHandles())

	calls := h.CallCount(ports.CallInvoke)
	_, err = c.Invoke(ctx, gpu, "getResolution")
	assert.ErrorIs(t, err, errors.ErrInvalidDescriptor)
	assert.Equal(t, calls, h.CallCount(ports.CallInvoke), "closed descriptor must not reach the host")

	err = c.Close(ctx, gpu)
	assert.ErrorIs(t, err, errors.ErrUseAfterClose)
	assert.Len(t, h.Released(), 1)
}

func TestClient_Call(t *testing.T) {
	ctx := context.Background()
	c, _ := newDemo(t)

	gpu, err := c.Open(ctx, "gpu-0")
	require.NoError(t, err)

	res, err := c.Call(ctx, gpu, entities.NewCall("setResolution", entities.Int(80), entities.Int(25)))
	require.NoError(t, err)
	changed, err := MustBoolAt(res, 0)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = c.Invoke(ctx, gpu, "setResolution", entities.Int(500), entities.Int(25))
	testutil.RequireKind(t, err, errors.KindBadArgument)

	_, err = c.Invoke(ctx, gpu, "noSuchMethod")
	testutil.RequireKind(t, err, errors.KindHostUnsupported)
}

func TestClient_ListAndDocumentation(t *testing.T) {
	ctx := context.Background()
	c, _ := newDemo(t)

	all, err := c.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "computer-0", all[0].Address)

	gpus, err := c.List(ctx, "gpu")
	require.NoError(t, err)
	require.Len(t, gpus, 1)
	assert.Equal(t, "gpu-0", gpus[0].Address)

	gpu, err := c.Open(ctx, gpus[0].Address)
	require.NoError(t, err)
	doc, err := c.Documentation(ctx, gpu, "getResolution")
	require.NoError(t, err)
	assert.Contains(t, doc, "Get the current screen resolution.")
}

func TestClient_WithComponent(t *testing.T) {
	ctx := context.Background()
	c, h := newDemo(t)

	var on bool
	err := c.WithComponent(ctx, "screen-0", func(d Descriptor) error {
		res, err := c.Invoke(ctx, d, "isOn")
		if err != nil {
			return err
		}
		on, _ = BoolAt(res, 0)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, on)
	assert.Zero(t, c.OpenDescriptors())
	assert.Zero(t, h.OpenHandles())

	boom := stdErrors.New("boom")
	err = c.WithComponent(ctx, "screen-0", func(Descriptor) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, h.OpenHandles())

	err = c.WithComponent(ctx, "missing-0", func(Descriptor) error { return nil })
	assert.ErrorIs(t, err, errors.ErrInvalidDescriptor)
}

func TestClient_OpaqueValues(t *testing.T) {
	ctx := context.Background()
	c, h := newDemo(t)

	computer, err := c.Open(ctx, "computer-0")
	require.NoError(t, err)

	res, err := c.Invoke(ctx, computer, "newBuffer", entities.Int(128))
	require.NoError(t, err)
	require.Len(t, res, 1)

	buf, err := c.Adopt(res[0])
	require.NoError(t, err)
	dup, err := c.Dup(ctx, buf)
	require.NoError(t, err)
	assert.NotEqual(t, buf.Raw(), dup.Raw())

	size, err := c.Invoke(ctx, computer, "sizeOf", dup.Ref())
	require.NoError(t, err)
	assert.Equal(t, int64(128), IntAtDefault(size, 0, 0))

	_, err = c.Dup(ctx, computer)
	assert.ErrorIs(t, err, errors.ErrInvalidDescriptor)

	assert.Equal(t, 3, c.OpenDescriptors())
	require.NoError(t, c.CloseAll(ctx))
	assert.Zero(t, c.OpenDescriptors())
	assert.Zero(t, h.OpenHandles())
}

func TestClient_Signals(t *testing.T) {
	ctx := context.Background()
	c, h := newDemo(t)

	_, ok, err := c.PollSignal(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	gpu, err := c.Open(ctx, "gpu-0")
	require.NoError(t, err)
	_, err = c.Invoke(ctx, gpu, "setResolution", entities.Int(100), entities.Int(40))
	require.NoError(t, err)
	require.NoError(t, h.InjectSignal("key_down", entities.String("keyboard-0"), entities.Int(65)))

	sig, ok, err := c.PollSignal(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "screen_resized", sig.Name)
	assert.Equal(t, []entities.Value{entities.String("screen-0"), entities.Int(100), entities.Int(40)}, sig.Params)

	sig, ok, err = c.PollSignal(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "key_down", sig.Name)
	assert.False(t, c.Dropped())
}

func TestClient_Dropped(t *testing.T) {
	ctx := context.Background()
	reg, err := hostfuncs.NewRegistry()
	require.NoError(t, err)
	h := hostfuncs.NewHost(reg, hostfuncs.WithSignalCapacity(1))
	c, err := New(h)
	require.NoError(t, err)

	require.NoError(t, h.InjectSignal("first"))
	assert.ErrorIs(t, h.InjectSignal("second"), hostfuncs.ErrSignalBufferFull)

	sig, ok, err := c.PollSignal(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", sig.Name)
	assert.True(t, c.Dropped())
	assert.False(t, c.Dropped())
}

func TestClient_HostLogging(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	c, h := newDemo(t, WithConfig(cfg), WithHostLogging())

	c.Logger().Info("ignored")
	c.Logger().Warn("low on energy", "percent", 5)

	logs := h.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "warn", logs[0].Level)
	assert.Equal(t, "low on energy", logs[0].Message)
	assert.Equal(t, cfg, c.Config())
}

func TestClient_HostLoggingDuringBufferGrowth(t *testing.T) {
	ctx := context.Background()
	runs := 0
	reg, err := hostfuncs.NewRegistry(hostfuncs.WithComponent("eeprom-0", hostfuncs.NewObject("eeprom",
		hostfuncs.WithMethod("dump", "", func(context.Context, []entities.Value) ([]entities.Value, error) {
			runs++
			return []entities.Value{entities.Bytes(make([]byte, 64))}, nil
		}),
	)))
	require.NoError(t, err)
	h := hostfuncs.NewHost(reg)

	cfg := config.Default()
	cfg.InitialBufferSize = 8
	cfg.LogLevel = "debug"
	c, err := New(h, WithConfig(cfg), WithHostLogging())
	require.NoError(t, err)

	eeprom, err := c.Open(ctx, "eeprom-0")
	require.NoError(t, err)
	h.ResetCalls()

	res, err := c.Invoke(ctx, eeprom, "dump")
	require.NoError(t, err)
	data, ok := BytesAt(res, 0)
	require.True(t, ok)
	assert.Len(t, data, 64)
	assert.Equal(t, 1, runs)

	// the retry must directly follow the undersized reply
	calls := h.Calls()
	retried := false
	for i, rec := range calls {
		if rec.Call == ports.CallInvoke && rec.Status == errors.StatusBufferTooSmall {
			require.Less(t, i+1, len(calls))
			assert.Equal(t, ports.CallInvoke, calls[i+1].Call)
			assert.Equal(t, errors.StatusOK, calls[i+1].Status)
			retried = true
		}
	}
	assert.True(t, retried)
	assert.Equal(t, 2, h.CallCount(ports.CallInvoke))

	var messages []string
	for _, rec := range h.Logs() {
		messages = append(messages, rec.Message)
	}
	assert.Contains(t, messages, "grew host call buffer")
}

func TestClient_Introspection(t *testing.T) {
	ctx := context.Background()
	c, _ := newDemo(t)

	typ, err := c.ComponentType(ctx, "gpu-0")
	require.NoError(t, err)
	assert.Equal(t, "gpu", typ)

	slot, err := c.Slot(ctx, "gpu-0")
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	_, err = c.Slot(ctx, "computer-0")
	testutil.RequireKind(t, err, errors.KindHostUnsupported)

	err = c.WithComponent(ctx, "gpu-0", func(gpu Descriptor) error {
		methods, err := c.Methods(ctx, gpu)
		if err != nil {
			return err
		}
		names := make([]string, len(methods))
		for i, m := range methods {
			names[i] = m.Name
		}
		assert.Equal(t, []string{"getResolution", "maxResolution", "setResolution"}, names)
		assert.True(t, methods[0].Attributes.Direct())
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, c.OpenDescriptors())
}

func TestClient_IndexedValues(t *testing.T) {
	ctx := context.Background()
	c, h := newDemo(t)

	computer, err := c.Open(ctx, "computer-0")
	require.NoError(t, err)
	res, err := c.Invoke(ctx, computer, "newBuffer", entities.Int(2))
	require.NoError(t, err)
	buf, err := c.Adopt(res[0])
	require.NoError(t, err)

	methods, err := c.Methods(ctx, buf)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, entities.MethodInfo{Name: "size", Attributes: entities.AttrDirect | entities.AttrGetter}, methods[0])

	require.NoError(t, c.IndexedWrite(ctx, buf, []entities.Value{entities.Int(1)}, entities.Int(42)))
	got, err := c.IndexedRead(ctx, buf, entities.Int(1))
	require.NoError(t, err)
	assert.Equal(t, int64(42), IntAtDefault(got, 0, -1))

	require.NoError(t, c.CloseAll(ctx))
	assert.Zero(t, h.OpenHandles())
}

func TestClient_PushSignal(t *testing.T) {
	ctx := context.Background()
	reg, err := hostfuncs.NewRegistry()
	require.NoError(t, err)
	h := hostfuncs.NewHost(reg, hostfuncs.WithSignalCapacity(1))
	c, err := New(h)
	require.NoError(t, err)

	require.NoError(t, c.PushSignal(ctx, "alarm", entities.String("kitchen")))
	err = c.PushSignal(ctx, "alarm")
	assert.ErrorIs(t, err, errors.ErrQueueFull)

	sig, ok, err := c.PollSignal(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entities.Signal{Name: "alarm", Params: []entities.Value{entities.String("kitchen")}}, sig)
	assert.False(t, c.Dropped(), "a refused push is not a drop")
}
