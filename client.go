// Package ocsafe is a safe guest-side layer over the raw component host calls.
//
// A Client owns the descriptors it opens and closes them exactly once,
// marshals method calls through growable bounded buffers, translates host
// status codes into typed errors, and drains host signals into a local queue.
//
// Inside a guest module the client talks to the imported raw call:
//
//	client, err := ocsafe.NewGuest()
//	gpu, err := client.Open(ctx, "gpu-0")
//	defer client.Close(ctx, gpu)
//	res, err := client.Invoke(ctx, gpu, "getResolution")
package ocsafe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ocwasm/ocsafe/application/component"
	"github.com/ocwasm/ocsafe/application/config"
	"github.com/ocwasm/ocsafe/application/signal"
	"github.com/ocwasm/ocsafe/domain/descriptor"
	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/infrastructure/wasm"
	hostlog "github.com/ocwasm/ocsafe/log"
)

// Descriptor is an owned reference to a host component or opaque value.
type Descriptor = descriptor.Descriptor

// Client composes the descriptor table, call marshaller and signal queue
// over one host. A Client is not safe for concurrent use.
type Client struct {
	host    ports.HostCaller
	table   *descriptor.Table
	invoker *component.Invoker
	signals *signal.Queue
	logger  *slog.Logger
	cfg     config.Config
}

// New creates a Client over host. The configuration is validated first.
func New(host ports.HostCaller, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}

	logger := o.logger
	if o.hostLog {
		logger = slog.New(hostlog.NewHandler(host, hostlog.WithLevel(o.cfg.Level())))
	}
	if logger == nil {
		logger = slog.Default()
	}

	table := descriptor.NewTable(component.NewReleaser(host))
	return &Client{
		host:  host,
		table: table,
		invoker: component.New(host, table,
			component.WithConfig(o.cfg),
			component.WithLogger(logger)),
		signals: signal.New(host,
			signal.WithConfig(o.cfg),
			signal.WithLogger(logger)),
		logger: logger,
		cfg:    o.cfg,
	}, nil
}

// NewGuest creates a Client over the raw call imported by the guest module.
func NewGuest(opts ...Option) (*Client, error) {
	return New(wasm.NewHostAdapter(), opts...)
}

// Config returns the validated configuration.
func (c *Client) Config() config.Config {
	return c.cfg
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Open opens the component at address.
func (c *Client) Open(ctx context.Context, address string) (Descriptor, error) {
	return c.invoker.Open(ctx, address)
}

// List returns the host's components, restricted to typeFilter when it is not empty.
func (c *Client) List(ctx context.Context, typeFilter string) ([]entities.ComponentInfo, error) {
	return c.invoker.List(ctx, typeFilter)
}

// Invoke calls method on d with args and returns its results.
func (c *Client) Invoke(ctx context.Context, d Descriptor, method string, args ...entities.Value) ([]entities.Value, error) {
	return c.invoker.Invoke(ctx, d, entities.NewCall(method, args...))
}

// Call issues a prepared component call.
func (c *Client) Call(ctx context.Context, d Descriptor, call entities.Call) ([]entities.Value, error) {
	return c.invoker.Invoke(ctx, d, call)
}

// Documentation returns the documentation string of method.
func (c *Client) Documentation(ctx context.Context, d Descriptor, method string) (string, error) {
	return c.invoker.Documentation(ctx, d, method)
}

// Methods lists the methods of d with their attributes.
func (c *Client) Methods(ctx context.Context, d Descriptor) ([]entities.MethodInfo, error) {
	return c.invoker.Methods(ctx, d)
}

// ComponentType returns the type of the component at address.
func (c *Client) ComponentType(ctx context.Context, address string) (string, error) {
	return c.invoker.ComponentType(ctx, address)
}

// Slot returns the slot the component at address occupies.
func (c *Client) Slot(ctx context.Context, address string) (int, error) {
	return c.invoker.Slot(ctx, address)
}

// IndexedRead reads the opaque value d at index.
func (c *Client) IndexedRead(ctx context.Context, d Descriptor, index ...entities.Value) ([]entities.Value, error) {
	return c.invoker.IndexedRead(ctx, d, index...)
}

// IndexedWrite stores value into the opaque value d at index.
func (c *Client) IndexedWrite(ctx context.Context, d Descriptor, index []entities.Value, value entities.Value) error {
	return c.invoker.IndexedWrite(ctx, d, index, value)
}

// Dup returns a second owned handle to the opaque value d.
func (c *Client) Dup(ctx context.Context, d Descriptor) (Descriptor, error) {
	return c.invoker.Dup(ctx, d)
}

// Adopt takes ownership of an opaque value returned in call results.
func (c *Client) Adopt(v entities.Value) (Descriptor, error) {
	return c.invoker.Adopt(v)
}

// Close releases d. A second close fails without contacting the host.
func (c *Client) Close(ctx context.Context, d Descriptor) error {
	return c.invoker.Close(ctx, d)
}

// IsOpen reports whether d is still owned by the client.
func (c *Client) IsOpen(d Descriptor) bool {
	return c.table.IsOpen(d)
}

// Scope runs fn with d and releases d on every exit path.
func (c *Client) Scope(ctx context.Context, d Descriptor, fn func(Descriptor) error) error {
	return c.table.Scope(ctx, d, fn)
}

// WithComponent opens address, runs fn with it and releases it afterwards.
func (c *Client) WithComponent(ctx context.Context, address string, fn func(Descriptor) error) error {
	d, err := c.Open(ctx, address)
	if err != nil {
		return err
	}
	return c.Scope(ctx, d, fn)
}

// PollSignal returns the next pending signal, or false when there is none.
// A signal that failed to decode is returned as an error; later signals
// are unaffected.
func (c *Client) PollSignal(ctx context.Context) (entities.Signal, bool, error) {
	return c.signals.PollNext(ctx)
}

// PushSignal queues a signal on the host. It is delivered by PollSignal
// like any other signal.
func (c *Client) PushSignal(ctx context.Context, name string, params ...entities.Value) error {
	return c.invoker.PushSignal(ctx, name, params...)
}

// Dropped reports whether the host discarded signals since the last check.
func (c *Client) Dropped() bool {
	return c.signals.Dropped()
}

// OpenDescriptors returns the number of descriptors the client owns.
func (c *Client) OpenDescriptors() int {
	return c.table.Len()
}

// CloseAll releases every descriptor the client still owns.
func (c *Client) CloseAll(ctx context.Context) error {
	n := c.table.Len()
	if err := c.table.CloseAll(ctx); err != nil {
		return err
	}
	if n > 0 {
		c.logger.DebugContext(ctx, "released all descriptors", "count", n)
	}
	return nil
}
