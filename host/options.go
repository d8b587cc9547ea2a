package host

import (
	"github.com/ocwasm/ocsafe/hostfuncs"
	"go.uber.org/zap"
)

// executorConfig holds configuration for the Executor.
type executorConfig struct {
	host           *hostfuncs.Host
	logger         *zap.Logger
	moduleName     string
	maxRequestSize uint32
}

// Option defines a functional option for configuring the Executor.
type Option func(*executorConfig)

// WithHost configures the executor with the reference host guests call into.
func WithHost(h *hostfuncs.Host) Option {
	return func(c *executorConfig) {
		c.host = h
	}
}

// WithModuleName overrides the import module name guests bind to.
func WithModuleName(name string) Option {
	return func(c *executorConfig) {
		c.moduleName = name
	}
}

// WithMaxRequestSize limits the request size accepted from guest memory.
func WithMaxRequestSize(size uint32) Option {
	return func(c *executorConfig) {
		c.maxRequestSize = size
	}
}

// WithLogger sets the logger for guest lifecycle and boundary failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *executorConfig) {
		c.logger = l
	}
}
