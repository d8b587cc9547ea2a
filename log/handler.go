// Package log provides structured logging (slog) routed through the host log call.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/internal/negotiate"
	"github.com/ocwasm/ocsafe/wireformat"
)

// HostHandler implements slog.Handler to route logs through the host log call.
type HostHandler struct {
	caller *negotiate.Caller
	codec  *wireformat.Codec
	attrs  entities.Table
	groups []string
	opts   handlerConfig
}

// HandlerOption configures the HostHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Leveler
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level are filtered on the guest side.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewHandler creates a new HostHandler sending records through host.
func NewHandler(host ports.HostCaller, opts ...HandlerOption) *HostHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HostHandler{
		caller: negotiate.New(host),
		codec:  wireformat.NewCodec(),
		opts:   cfg,
	}
}

// Install makes a HostHandler over host the slog default and returns its logger.
func Install(host ports.HostCaller, opts ...HandlerOption) *slog.Logger {
	l := slog.New(NewHandler(host, opts...))
	slog.SetDefault(l)
	return l
}

// Enabled reports whether the handler handles records at the given level.
func (h *HostHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// Handle encodes the record and sends it to the host.
func (h *HostHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs := make(entities.Table, 0, len(h.attrs)+record.NumAttrs()+1)
	attrs = append(attrs, h.attrs...)
	if h.opts.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		attrs = append(attrs, entities.Entry{
			Key:   entities.String(slog.SourceKey),
			Value: entities.String(fmt.Sprintf("%s:%d", frame.File, frame.Line)),
		})
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs = appendAttr(attrs, h.groups, attr)
		return true
	})

	payload, err := h.codec.AppendLog(nil, entities.LogRecord{
		Level:   levelName(record.Level),
		Message: record.Message,
		Attrs:   attrs,
	})
	if err != nil {
		return fmt.Errorf("encode log record: %w", err)
	}
	return h.caller.Exec(ctx, ports.CallLog, 0, payload)
}

// WithAttrs returns a new HostHandler that includes the given attributes.
func (h *HostHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	for _, a := range attrs {
		next.attrs = appendAttr(next.attrs, h.groups, a)
	}
	return next
}

// WithGroup returns a new HostHandler that qualifies later attribute keys with name.
func (h *HostHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *HostHandler) clone() *HostHandler {
	next := *h
	next.attrs = append(entities.Table(nil), h.attrs...)
	next.groups = append([]string(nil), h.groups...)
	return &next
}

func levelName(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelInfo:
		return "info"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	}
	return strings.ToLower(l.String())
}
