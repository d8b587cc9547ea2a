// Package negotiate runs the two-phase size negotiation shared by every host
// call that returns a payload.
//
// The caller offers the full capacity of an arena buffer. If the host answers
// "buffer too small, need N", the buffer grows to N and the identical call is
// issued again. Each report must ask for more than was offered, which also
// rules out a repeated size, and the number of rounds is bounded. Anything
// else from the host is a protocol violation.
package negotiate

import (
	"context"
	"log/slog"

	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/internal/arena"
)

// DefaultMaxRounds bounds the host calls spent on one negotiation.
const DefaultMaxRounds = 4

// Caller issues host calls with size negotiation.
type Caller struct {
	host      ports.HostCaller
	logger    *slog.Logger
	maxRounds int
}

// Option configures a Caller.
type Option func(*Caller)

// WithMaxRounds sets the maximum number of host calls per negotiation.
func WithMaxRounds(n int) Option {
	return func(c *Caller) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// WithLogger sets the logger used for negotiation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Caller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Caller over host.
func New(host ports.HostCaller, opts ...Option) *Caller {
	c := &Caller{
		host:      host,
		logger:    slog.Default(),
		maxRounds: DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the underlying host caller.
func (c *Caller) Host() ports.HostCaller {
	return c.host
}

// Do issues call with in as the request and out as the response space,
// growing out until the host accepts it. It returns the response bytes,
// which alias out. The context is checked before every host call.
//
// Diagnostics are logged only once the negotiation has finished. A logger
// that forwards records to the host would otherwise issue a host call
// between a "buffer too small" reply and its retry.
func (c *Caller) Do(ctx context.Context, call ports.CallIndex, handle uint32, in []byte, out *arena.Buffer) ([]byte, error) {
	var t trace
	b, err := c.negotiate(ctx, call, handle, in, out, &t)
	t.flush(ctx, c.logger, call.String())
	return b, err
}

// trace records what happened during one negotiation.
type trace struct {
	grown   []growth
	warn    string
	warnArg []any
}

type growth struct {
	need     int64
	capacity int
}

func (t *trace) flush(ctx context.Context, logger *slog.Logger, op string) {
	for _, g := range t.grown {
		logger.DebugContext(ctx, "grew host call buffer",
			"call", op, "need", g.need, "capacity", g.capacity)
	}
	if t.warn != "" {
		logger.WarnContext(ctx, t.warn, append([]any{"call", op}, t.warnArg...)...)
	}
}

func (c *Caller) negotiate(ctx context.Context, call ports.CallIndex, handle uint32, in []byte, out *arena.Buffer, t *trace) ([]byte, error) {
	op := call.String()
	out.Reset()

	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		scratch := out.Scratch()
		status, n := c.host.HostCall(ctx, call, handle, in, scratch)

		switch errors.Status(status) {
		case errors.StatusOK:
			if int64(n) > int64(len(scratch)) {
				t.warn = "host wrote past the offered buffer"
				t.warnArg = []any{"written", n, "offered", len(scratch)}
				return nil, errors.ProtocolViolation(op, "host reported %d bytes written into a %d byte buffer", n, len(scratch))
			}
			out.SetLen(int(n))
			return out.Bytes(), nil

		case errors.StatusBufferTooSmall:
			need := int64(n)
			if need <= int64(len(scratch)) {
				t.warn = "host repeated an undersized buffer report"
				t.warnArg = []any{"need", need, "offered", len(scratch)}
				return nil, errors.ProtocolViolation(op, "host asked for %d bytes after %d were offered", need, len(scratch))
			}
			if round >= c.maxRounds {
				return nil, errors.ProtocolViolation(op, "size negotiation did not settle within %d rounds", c.maxRounds)
			}
			if err := out.Ensure(int(need)); err != nil {
				return nil, err
			}
			t.grown = append(t.grown, growth{need: need, capacity: out.Cap()})

		default:
			return nil, errors.Translate(op, errors.Status(status))
		}
	}
}

// Exec issues a call that returns no payload.
func (c *Caller) Exec(ctx context.Context, call ports.CallIndex, handle uint32, in []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	status, _ := c.host.HostCall(ctx, call, handle, in, nil)
	return errors.Translate(call.String(), errors.Status(status))
}
