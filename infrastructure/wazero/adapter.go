// Package wazero exports a host caller to guest modules running on the wazero runtime.
package wazero

import (
	"bytes"
	"context"

	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/hostfuncs"
	"github.com/ocwasm/ocsafe/internal/abi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// DefaultModuleName is the import module guests bind the raw call from.
const DefaultModuleName = "oc_host"

// CallFunctionName is the exported name of the raw call.
const CallFunctionName = "call"

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Logger receives boundary failures. Defaults to hostfuncs.Logger().
	Logger *zap.Logger

	// ModuleName is the host module name (default: "oc_host").
	ModuleName string

	// MaxRequestSize limits the size of incoming requests from guest memory.
	// Default is 1MB.
	MaxRequestSize uint32
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "oc_host").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *zap.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = l
	}
}

// defaultAdapterConfig returns the default adapter configuration.
func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName:     DefaultModuleName,
		MaxRequestSize: hostfuncs.DefaultMaxRequestSize,
	}
}

// RegisterWithRuntime exports host as the raw call of a host module
// (default: "oc_host"):
//
//	call(call i32, handle i32, in i64, out i64) -> i64
//
// in and out are packed pointer+length pairs into guest memory. The result
// packs the status in the high 32 bits and the byte count in the low 32 bits.
// The host writes the response straight into the guest's out region.
//
// Example:
//
//	registry, _ := hostfuncs.NewRegistry(hostfuncs.WithBundle(hostfuncs.DemoBundle()))
//	err := wazero.RegisterWithRuntime(ctx, runtime, hostfuncs.NewHost(registry))
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, host ports.HostCaller, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = hostfuncs.Logger()
	}

	_, err := runtime.NewHostModuleBuilder(cfg.ModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = handleCall(ctx, mod, stack, host, &cfg)
		}),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI64},
			[]api.ValueType{api.ValueTypeI64}).
		WithParameterNames("call", "handle", "in", "out").
		Export(CallFunctionName).
		Instantiate(ctx)
	return err
}

// handleCall resolves the guest's buffers and forwards one raw call.
func handleCall(ctx context.Context, mod api.Module, stack []uint64, host ports.HostCaller, cfg *AdapterConfig) uint64 {
	call := ports.CallIndex(api.DecodeU32(stack[0]))
	handle := api.DecodeU32(stack[1])
	inPtr, inLen := abi.UnpackPtrLen(stack[2])
	outPtr, outLen := abi.UnpackPtrLen(stack[3])
	guest := GuestName(ctx, mod)

	if inLen > cfg.MaxRequestSize {
		cfg.Logger.Warn("guest request exceeds maximum size",
			zap.String("guest", guest),
			zap.Stringer("call", call),
			zap.Uint32("size", inLen),
			zap.Uint32("max", cfg.MaxRequestSize))
		return abi.PackStatus(uint32(errors.StatusTooLarge), 0)
	}

	in, ok := read(mod, inPtr, inLen)
	if !ok {
		cfg.Logger.Error("failed to read request from guest memory",
			zap.String("guest", guest), zap.Stringer("call", call), zap.Uint32("ptr", inPtr), zap.Uint32("len", inLen))
		return abi.PackStatus(uint32(errors.StatusBadParameters), 0)
	}
	out, ok := read(mod, outPtr, outLen)
	if !ok {
		cfg.Logger.Error("response buffer is outside guest memory",
			zap.String("guest", guest), zap.Stringer("call", call), zap.Uint32("ptr", outPtr), zap.Uint32("len", outLen))
		return abi.PackStatus(uint32(errors.StatusBadParameters), 0)
	}

	// The request may overlap the response region, so the host works on a copy.
	status, n := host.HostCall(ctx, call, handle, bytes.Clone(in), out)
	return abi.PackStatus(status, n)
}

// read returns a view of guest memory. An empty region needs no memory.
func read(mod api.Module, ptr, length uint32) ([]byte, bool) {
	if length == 0 {
		return nil, true
	}
	mem := mod.Memory()
	if mem == nil {
		return nil, false
	}
	return mem.Read(ptr, length)
}
