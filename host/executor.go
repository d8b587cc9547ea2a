package host

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/ocwasm/ocsafe/hostfuncs"
	adapter "github.com/ocwasm/ocsafe/infrastructure/wazero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

// Executor manages the lifecycle of guest modules.
type Executor struct {
	runtime wazero.Runtime
	host    *hostfuncs.Host
	logger  *zap.Logger
}

// NewExecutor creates a new executor with the given options.
// Without WithHost it serves an empty reference host.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	cfg := executorConfig{
		moduleName:     adapter.DefaultModuleName,
		maxRequestSize: hostfuncs.DefaultMaxRequestSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = hostfuncs.Logger()
	}
	if cfg.host == nil {
		cfg.host = hostfuncs.NewHost(nil, hostfuncs.WithHostLogger(cfg.logger))
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	err := adapter.RegisterWithRuntime(ctx, rt, cfg.host,
		adapter.WithModuleName(cfg.moduleName),
		adapter.WithMaxRequestSize(cfg.maxRequestSize),
		adapter.WithLogger(cfg.logger),
	)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host module: %w", err)
	}

	return &Executor{runtime: rt, host: cfg.host, logger: cfg.logger}, nil
}

// Host returns the reference host guests call into.
func (e *Executor) Host() *hostfuncs.Host {
	return e.host
}

// Close releases resources held by the executor, including every guest.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// GuestInstance is an instantiated reactor guest.
type GuestInstance struct {
	module api.Module
	name   string
}

// LoadGuest instantiates a reactor module without running _start,
// then calls its _initialize export if present.
func (e *Executor) LoadGuest(ctx context.Context, name string, wasmBytes []byte) (*GuestInstance, error) {
	ctx = adapter.WithGuestName(ctx, name)
	mod, err := e.runtime.InstantiateWithConfig(ctx, wasmBytes,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions())
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate guest %s: %w", name, err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	e.logger.Debug("guest loaded", zap.String("guest", name))
	return &GuestInstance{module: mod, name: name}, nil
}

// Run instantiates a command module and runs its _start export to completion.
// A clean exit (status 0) is not an error.
func (e *Executor) Run(ctx context.Context, name string, wasmBytes []byte) error {
	ctx = adapter.WithGuestName(ctx, name)
	mod, err := e.runtime.InstantiateWithConfig(ctx, wasmBytes,
		wazero.NewModuleConfig().WithName(name).WithArgs(name))
	if mod != nil {
		defer mod.Close(ctx)
	}

	var exitErr *sys.ExitError
	if stdErrors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		err = nil
	}
	if err != nil {
		e.logger.Warn("guest failed", zap.String("guest", name), zap.Error(err))
		return fmt.Errorf("guest %s: %w", name, err)
	}
	e.logger.Debug("guest exited", zap.String("guest", name))
	return nil
}

// Name returns the module name the guest was loaded under.
func (g *GuestInstance) Name() string {
	return g.name
}

// Call invokes an exported function of the guest.
func (g *GuestInstance) Call(ctx context.Context, export string, params ...uint64) ([]uint64, error) {
	f := g.module.ExportedFunction(export)
	if f == nil {
		return nil, fmt.Errorf("export %q not found", export)
	}
	return f.Call(adapter.WithGuestName(ctx, g.name), params...)
}

// Write copies data into guest memory at offset.
func (g *GuestInstance) Write(offset uint32, data []byte) error {
	mem := g.module.Memory()
	if mem == nil {
		return fmt.Errorf("guest %s exports no memory", g.name)
	}
	if !mem.Write(offset, data) {
		return fmt.Errorf("failed to write %d bytes at %d to guest memory", len(data), offset)
	}
	return nil
}

// Read copies length bytes of guest memory starting at offset.
func (g *GuestInstance) Read(offset, length uint32) ([]byte, error) {
	mem := g.module.Memory()
	if mem == nil {
		return nil, fmt.Errorf("guest %s exports no memory", g.name)
	}
	data, ok := mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("failed to read %d bytes at %d from guest memory", length, offset)
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

// Close closes the guest module.
func (g *GuestInstance) Close(ctx context.Context) error {
	return g.module.Close(ctx)
}
