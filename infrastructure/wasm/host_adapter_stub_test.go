//go:build !wasip1

package wasm

import (
	"context"
	"testing"

	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/stretchr/testify/assert"
)

func TestHostAdapter_NativeStubPanics(t *testing.T) {
	a := NewHostAdapter()
	assert.PanicsWithValue(t, "HostAdapter.HostCall not available in native build", func() {
		a.HostCall(context.Background(), ports.CallList, 0, nil, nil)
	})
}
