package component

import (
	"context"

	"github.com/ocwasm/ocsafe/domain/ports"
	"github.com/ocwasm/ocsafe/internal/negotiate"
)

// Compile-time interface compliance check
var _ ports.Releaser = (*HostReleaser)(nil)

// HostReleaser releases raw handles with the host release call.
type HostReleaser struct {
	caller *negotiate.Caller
}

// NewReleaser creates a releaser over host.
func NewReleaser(host ports.HostCaller) *HostReleaser {
	return &HostReleaser{caller: negotiate.New(host)}
}

// Release releases raw on the host.
func (r *HostReleaser) Release(ctx context.Context, raw uint32) error {
	return r.caller.Exec(ctx, ports.CallRelease, raw, nil)
}
