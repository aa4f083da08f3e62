package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/omniphi/orchestrator/pkg/domain"
)

func TestLease_Equal(t *testing.T) {
	acquiredAt := time.Date(2025, 4, 1, 12, 13, 14, 0, time.UTC)

	base := domain.Lease{
		SetupId:    "setup-1",
		Holder:     "order-1",
		AcquiredAt: acquiredAt,
		ExpiresAt:  acquiredAt.Add(5 * time.Minute),
	}

	t.Run("it equals an identical lease, timezones aside", func(t *testing.T) {
		other := base
		other.ExpiresAt = base.ExpiresAt.In(time.FixedZone("JST", 9*60*60))
		if !base.Equal(other) {
			t.Error("leases should be equal")
		}
	})

	t.Run("it does not equal a lease held by someone else", func(t *testing.T) {
		other := base
		other.Holder = "order-2"
		if base.Equal(other) {
			t.Error("leases should not be equal")
		}
	})
}

func TestNewErrLeaseHeld(t *testing.T) {
	err := domain.NewErrLeaseHeld("setup-1", "order-1")
	if !errors.Is(err, domain.ErrLeaseHeld) {
		t.Errorf("unexpected error identity: %v", err)
	}
}
