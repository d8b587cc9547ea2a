package ocsafe

import (
	"log/slog"

	"github.com/ocwasm/ocsafe/application/config"
)

type options struct {
	logger  *slog.Logger
	cfg     config.Config
	hostLog bool
}

func defaultOptions() options {
	return options{cfg: config.Default()}
}

// Option configures a Client.
type Option func(*options)

// WithConfig sets buffer, negotiation and decode limits.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger used by the client's components.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHostLogging routes the client's log records to the host log call,
// filtered at the configured LogLevel. It takes precedence over WithLogger.
func WithHostLogging() Option {
	return func(o *options) {
		o.hostLog = true
	}
}
