package domain

import (
	"errors"
	"fmt"
	"time"
)

// Lease marks a SetupRequest as under active provisioning.
//
// Leases serialize provisioning runs per SetupRequest and let the health
// loop leave nodes alone while they are being redeployed. They live in the
// database (not in process memory) so that they survive restarts and can be
// inspected; staleness is bounded by ExpiresAt, after which the next
// acquirer silently takes over.
type Lease struct {
	SetupId string

	// Holder is the correlation id of the provisioning run holding the lease.
	Holder string

	AcquiredAt time.Time
	ExpiresAt  time.Time
}

func (l Lease) Equal(other Lease) bool {
	return l.SetupId == other.SetupId &&
		l.Holder == other.Holder &&
		l.AcquiredAt.Equal(other.AcquiredAt) &&
		l.ExpiresAt.Equal(other.ExpiresAt)
}

var ErrLeaseHeld = errors.New("provisioning lease is held")

func NewErrLeaseHeld(setupId, holder string) error {
	return fmt.Errorf("%w: setup request %s (holder %s)", ErrLeaseHeld, setupId, holder)
}
