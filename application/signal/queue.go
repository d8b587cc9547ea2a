// Package signal delivers host signals to the guest in arrival order.
package signal

import (
	"context"
	"log/slog"

	list "github.com/bahlo/generic-list-go"
	"github.com/ocwasm/ocsafe/application/config"
	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/internal/arena"
	"github.com/ocwasm/ocsafe/internal/negotiate"
	"github.com/ocwasm/ocsafe/wireformat"
)

type entry struct {
	err    error
	signal entities.Signal
}

// Queue is a pull-model FIFO of host signals.
// A Queue is not safe for concurrent use.
type Queue struct {
	caller  *negotiate.Caller
	codec   *wireformat.Codec
	buf     *arena.Buffer
	pending *list.List[entry]
	logger  *slog.Logger
	dropped bool
}

// Option configures a Queue.
type Option func(*queueConfig)

type queueConfig struct {
	logger *slog.Logger
	cfg    config.Config
}

// WithConfig sets buffer and negotiation limits.
func WithConfig(cfg config.Config) Option {
	return func(c *queueConfig) {
		c.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *queueConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Queue that pulls signals from host.
func New(host ports.HostCaller, opts ...Option) *Queue {
	c := queueConfig{logger: slog.Default(), cfg: config.Default()}
	for _, opt := range opts {
		opt(&c)
	}
	return &Queue{
		caller: negotiate.New(host,
			negotiate.WithMaxRounds(c.cfg.MaxNegotiationRounds),
			negotiate.WithLogger(c.logger)),
		codec:   wireformat.NewCodec(wireformat.WithMaxDepth(c.cfg.MaxDecodeDepth)),
		buf:     arena.New(c.cfg.InitialBufferSize, c.cfg.MaxBufferSize),
		pending: list.New[entry](),
		logger:  c.logger,
	}
}

// PollNext returns the next signal. When nothing is buffered it fetches one
// batch from the host first. It reports false when no signal is pending.
//
// A malformed entry is returned as its error by the poll that reaches it;
// the entries behind it are unaffected.
func (q *Queue) PollNext(ctx context.Context) (entities.Signal, bool, error) {
	if q.pending.Len() == 0 {
		if err := q.fetch(ctx); err != nil {
			return entities.Signal{}, false, err
		}
	}

	front := q.pending.Front()
	if front == nil {
		return entities.Signal{}, false, nil
	}
	e := q.pending.Remove(front)
	if e.err != nil {
		return entities.Signal{}, false, e.err
	}
	return e.signal, true, nil
}

func (q *Queue) fetch(ctx context.Context) error {
	raw, err := q.caller.Do(ctx, ports.CallPullSignals, 0, nil, q.buf)
	if err != nil {
		return err
	}
	batch, err := q.codec.DecodeBatch(raw)
	if err != nil {
		q.logger.WarnContext(ctx, "host returned a malformed signal batch", "bytes", len(raw), "error", err)
		return err
	}

	if batch.Dropped {
		q.dropped = true
		q.logger.WarnContext(ctx, "host dropped signals")
	}
	for _, be := range batch.Entries {
		if be.Err != nil {
			q.logger.WarnContext(ctx, "queued malformed signal", "error", be.Err)
		}
		q.pending.PushBack(entry{signal: be.Signal, err: be.Err})
	}
	return nil
}

// Len returns the number of signals buffered locally.
func (q *Queue) Len() int {
	return q.pending.Len()
}

// Dropped reports whether the host dropped signals since the last call,
// and clears the indicator.
func (q *Queue) Dropped() bool {
	d := q.dropped
	q.dropped = false
	return d
}
