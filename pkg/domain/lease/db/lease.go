package db

import (
	"context"
	"time"

	"github.com/omniphi/orchestrator/pkg/domain"
)

type LeaseInterface interface {
	// take the provisioning lease on a SetupRequest.
	//
	// At most one unexpired lease exists per SetupRequest. An expired
	// lease does not block: the new holder silently takes over, since
	// expiry means the former holder is assumed dead.
	//
	// Args
	//
	// - context.Context
	//
	// - setupId: SetupRequest to be locked.
	//
	// - holder: who is taking the lease; the correlation id of the
	// provisioning run, normally.
	//
	// - ttl: how long the lease lasts unless released.
	//
	// Returns
	//
	// - domain.Lease: the acquired lease.
	//
	// - error: domain.ErrLeaseHeld (when an unexpired lease of another
	// holder exists)
	Acquire(ctx context.Context, setupId string, holder string, ttl time.Duration) (domain.Lease, error)

	// let the provisioning lease on a SetupRequest go.
	//
	// Only the lease of the given holder is removed; when the lease
	// has expired and someone else took over, Release does nothing.
	// Releasing a lease which does not exist is not an error.
	Release(ctx context.Context, setupId string, holder string) error
}
