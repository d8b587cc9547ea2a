package host

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
)

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.NotNil(t, e.Host())
	assert.Zero(t, e.Host().Registry().Len())
	assert.NoError(t, e.Close(ctx))
}

func TestExecutor_GuestCallsHost(t *testing.T) {
	ctx := context.Background()
	reg, err := hostfuncs.NewRegistry(hostfuncs.WithBundle(hostfuncs.DemoBundle()))
	require.NoError(t, err)
	h := hostfuncs.NewHost(reg)

	e, err := NewExecutor(ctx, WithHost(h))
	require.NoError(t, err)
	defer e.Close(ctx)

	g, err := e.LoadGuest(ctx, "forwarder", testutil.ForwarderWasm)
	require.NoError(t, err)
	assert.Equal(t, "forwarder", g.Name())

	in, err := wireformat.Encode(entities.String("screen-0"))
	require.NoError(t, err)
	require.NoError(t, g.Write(testutil.ForwarderInOffset, in))

	res, err := g.Call(ctx, "invoke",
		uint64(ports.CallOpen), 0,
		abi.PackPtrLen(testutil.ForwarderInOffset, uint32(len(in))),
		abi.PackPtrLen(testutil.ForwarderOutOffset, 64))
	require.NoError(t, err)
	require.Len(t, res, 1)

	status, n := abi.UnpackStatus(res[0])
	require.Equal(t, uint32(errors.StatusOK), status)

	out, err := g.Read(testutil.ForwarderOutOffset, n)
	require.NoError(t, err)
	results, err := wireformat.NewCodec().DecodeResults(out)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.IsType(t, entities.DescriptorRef(0), results[0])

	assert.Equal(t, 1, h.OpenHandles())
	assert.Equal(t, 1, h.CallCount(ports.CallOpen))
	assert.NoError(t, g.Close(ctx))
}

func TestExecutor_Errors(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer e.Close(ctx)

	_, err = e.LoadGuest(ctx, "broken", []byte("not wasm"))
	assert.ErrorContains(t, err, "failed to instantiate guest broken")

	assert.ErrorContains(t, e.Run(ctx, "broken", []byte("not wasm")), "guest broken")

	g, err := e.LoadGuest(ctx, "forwarder", testutil.ForwarderWasm)
	require.NoError(t, err)

	_, err = g.Call(ctx, "missing")
	assert.ErrorContains(t, err, `export "missing" not found`)

	_, err = g.Read(65530, 64)
	assert.Error(t, err)
	assert.Error(t, g.Write(65530, make([]byte, 64)))
}

func TestExecutor_RunWithoutStart(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer e.Close(ctx)

	assert.NoError(t, e.Run(ctx, "reactor", testutil.ForwarderWasm))
}
