package hostfuncs

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValueHandler(t *testing.T) {
	add := NewValueHandler(func(ctx context.Context, args []any) ([]any, error) {
		a, _ := args[0].(int64)
		b, _ := args[1].(int64)
		return []any{a + b, "sum"}, nil
	})

	results, err := add(context.Background(), []entities.Value{entities.Int(2), entities.Int(3)})
	require.NoError(t, err)
	assert.Equal(t, []entities.Value{entities.Int(5), entities.String("sum")}, results)
}

func TestNewValueHandler_Errors(t *testing.T) {
	failing := NewValueHandler(func(ctx context.Context, args []any) ([]any, error) {
		return nil, NewValidationError("bad")
	})
	_, err := failing(context.Background(), nil)
	assert.Equal(t, errors.StatusBadParameters, statusOf(err))

	unencodable := NewValueHandler(func(ctx context.Context, args []any) ([]any, error) {
		return []any{struct{}{}}, nil
	})
	_, err = unencodable(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to convert results")
}

func TestReturning_CopiesResults(t *testing.T) {
	h := Returning(entities.Int(1))

	first, err := h(context.Background(), nil)
	require.NoError(t, err)
	first[0] = entities.Int(9)

	second, err := h(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, entities.Int(1), second[0])
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Status
	}{
		{"status error", NewStatusError(errors.StatusUnsupported, "nope"), errors.StatusUnsupported},
		{"not found", NewNotFoundError("bind"), errors.StatusNoSuchMethod},
		{"panic", NewPanicError(stdErrors.New("boom")), errors.StatusProtocolError},
		{"bad argument", errors.BadArgument("x", "y"), errors.StatusBadParameters},
		{"invalid descriptor", errors.InvalidDescriptor("x", nil, "y"), errors.StatusBadDescriptor},
		{"too large", errors.BufferTooLarge("x", 2, 1), errors.StatusTooLarge},
		{"queue full", ErrSignalBufferFull, errors.StatusQueueFull},
		{"translated queue full", errors.Translate("x", errors.StatusQueueFull), errors.StatusQueueFull},
		{"unknown", errors.Unknown("x", 42), errors.Status(42)},
		{"plain", stdErrors.New("boom"), errors.StatusBadParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}

func TestNewPanicError_Messages(t *testing.T) {
	assert.Equal(t, "panic: boom", NewPanicError("boom").Message)
	assert.Equal(t, "panic: err", NewPanicError(stdErrors.New("err")).Message)
	assert.Equal(t, "panic: panic recovered", NewPanicError(42).Message)
	assert.Equal(t, "no such method: unknown method: bind", NewNotFoundError("bind").Error())
}
