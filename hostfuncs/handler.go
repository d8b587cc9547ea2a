package hostfuncs

import (
	"context"
	"fmt"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/wireformat"
)

// MethodHandler implements one component method. The context passed in is a
// HostContext.
type MethodHandler func(ctx context.Context, args []entities.Value) ([]entities.Value, error)

// HostFunc is a method implementation over plain Go values.
type HostFunc func(ctx context.Context, args []any) ([]any, error)

// NewValueHandler wraps a HostFunc into a MethodHandler.
// Arguments are converted with wireformat.ToAny and results with wireformat.ValueOf.
//
// Usage:
//
//	add := hostfuncs.NewValueHandler(func(ctx context.Context, args []any) ([]any, error) {
//	    a, _ := args[0].(int64)
//	    b, _ := args[1].(int64)
//	    return []any{a + b}, nil
//	})
func NewValueHandler(fn HostFunc) MethodHandler {
	return func(ctx context.Context, args []entities.Value) ([]entities.Value, error) {
		plain := make([]any, len(args))
		for i, a := range args {
			plain[i] = wireformat.ToAny(a)
		}

		out, err := fn(ctx, plain)
		if err != nil {
			return nil, err
		}

		results, err := wireformat.ValuesOf(out...)
		if err != nil {
			return nil, fmt.Errorf("failed to convert results: %w", err)
		}
		return results, nil
	}
}

// Returning is a handler that always answers with vals.
func Returning(vals ...entities.Value) MethodHandler {
	return func(context.Context, []entities.Value) ([]entities.Value, error) {
		out := make([]entities.Value, len(vals))
		copy(out, vals)
		return out, nil
	}
}
