package arena

import (
	"testing"

	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsure_GrowthSteps(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		max     int
		need    int
		wantCap int
	}{
		{"fits", 16, 64, 10, 16},
		{"doubling", 16, 64, 20, 32},
		{"exact when doubling short", 4, 64, 10, 10},
		{"clamped to max", 40, 64, 50, 64},
		{"exact max", 4, 64, 64, 64},
		{"from zero", 0, 64, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.initial, tt.max)
			require.NoError(t, b.Ensure(tt.need))
			assert.Equal(t, tt.wantCap, b.Cap())
		})
	}
}

func TestEnsure_TooLargeLeavesBufferUntouched(t *testing.T) {
	b := New(8, 32)
	require.NoError(t, b.Append([]byte("abc")))

	err := b.Ensure(33)
	assert.ErrorIs(t, err, errors.ErrBufferTooLarge)
	assert.Equal(t, 8, b.Cap())
	assert.Equal(t, []byte("abc"), b.Bytes())
	assert.Equal(t, 0, b.Grows())
}

func TestEnsure_CapacityMonotonicAndBounded(t *testing.T) {
	b := New(1, 100)
	prev := b.Cap()
	for _, n := range []int{5, 2, 17, 17, 0, 64, 3, 99, 100, 101, 40, 250} {
		err := b.Ensure(n)
		if n > b.Max() {
			assert.ErrorIs(t, err, errors.ErrBufferTooLarge)
		} else {
			require.NoError(t, err)
			assert.GreaterOrEqual(t, b.Cap(), n)
		}
		assert.GreaterOrEqual(t, b.Cap(), prev, "capacity shrank after Ensure(%d)", n)
		assert.LessOrEqual(t, b.Cap(), b.Max())
		prev = b.Cap()
	}
}

func TestEnsure_PreservesContents(t *testing.T) {
	b := New(2, 16)
	require.NoError(t, b.Append([]byte{1, 2}))
	require.NoError(t, b.Ensure(9))

	assert.Equal(t, []byte{1, 2}, b.Bytes())
	assert.Equal(t, 1, b.Grows())
}

func TestScratchAndSetLen(t *testing.T) {
	b := New(4, 4)
	s := b.Scratch()
	require.Len(t, s, 4)
	copy(s, "wxyz")
	b.SetLen(3)
	assert.Equal(t, []byte("wxy"), b.Bytes())

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 4, b.Cap())
}

func TestNew_ClampsArguments(t *testing.T) {
	b := New(-1, -5)
	assert.Equal(t, 0, b.Cap())
	assert.Equal(t, 0, b.Max())

	b = New(32, 8)
	assert.Equal(t, 32, b.Max())
}
