package hostfuncs

import (
	"context"
	"time"

	"github.com/ocwasm/ocsafe/domain/entities"
	"go.uber.org/zap"
)

// Middleware is a function that wraps a MethodHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	timing := func(next MethodHandler) MethodHandler {
//	    return func(ctx context.Context, args []entities.Value) ([]entities.Value, error) {
//	        start := time.Now()
//	        defer func() { log.Printf("took %s", time.Since(start)) }()
//	        return next(ctx, args)
//	    }
//	}
type Middleware func(next MethodHandler) MethodHandler

// PanicRecoveryMiddleware returns a middleware that converts handler panics
// into a StatusError instead of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next MethodHandler) MethodHandler {
		return func(ctx context.Context, args []entities.Value) (results []entities.Value, err error) {
			defer func() {
				if r := recover(); r != nil {
					results = nil
					err = NewPanicError(r)
				}
			}()
			return next(ctx, args)
		}
	}
}

// LoggingMiddleware returns a middleware that logs method invocations.
func LoggingMiddleware(l *zap.Logger) Middleware {
	return func(next MethodHandler) MethodHandler {
		return func(ctx context.Context, args []entities.Value) ([]entities.Value, error) {
			address, method := "unknown", "unknown"
			if hc, ok := ctx.(HostContext); ok {
				address, method = hc.Address(), hc.Method()
			}
			start := time.Now()
			results, err := next(ctx, args)
			if err != nil {
				l.Warn("component method failed",
					zap.String("address", address),
					zap.String("method", method),
					zap.Error(err))
				return results, err
			}
			l.Debug("component method completed",
				zap.String("address", address),
				zap.String("method", method),
				zap.Int("args", len(args)),
				zap.Int("results", len(results)),
				zap.Duration("elapsed", time.Since(start)))
			return results, nil
		}
	}
}

func chain(h MethodHandler, mw []Middleware) MethodHandler {
	// Apply middleware in reverse order so first middleware wraps outermost
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
