package mock

import (
	"context"
	"errors"
	"time"

	"github.com/omniphi/orchestrator/pkg/domain"
	dbmock "github.com/omniphi/orchestrator/pkg/domain/internal/db/mock"
	kdb "github.com/omniphi/orchestrator/pkg/domain/lease/db"
)

type LeaseInterface struct {
	Impl struct {
		Acquire func(ctx context.Context, setupId string, holder string, ttl time.Duration) (domain.Lease, error)
		Release func(ctx context.Context, setupId string, holder string) error
	}

	Calls struct {
		Acquire dbmock.CallLog[struct {
			SetupId string
			Holder  string
			Ttl     time.Duration
		}]
		Release dbmock.CallLog[struct {
			SetupId string
			Holder  string
		}]
	}
}

func NewLeaseInterface() *LeaseInterface {
	return &LeaseInterface{}
}

var _ kdb.LeaseInterface = &LeaseInterface{}

func (m *LeaseInterface) Acquire(ctx context.Context, setupId string, holder string, ttl time.Duration) (domain.Lease, error) {
	m.Calls.Acquire = append(m.Calls.Acquire, struct {
		SetupId string
		Holder  string
		Ttl     time.Duration
	}{
		SetupId: setupId,
		Holder:  holder,
		Ttl:     ttl,
	})
	if m.Impl.Acquire != nil {
		return m.Impl.Acquire(ctx, setupId, holder, ttl)
	}

	panic(errors.New("it should not be called"))
}

func (m *LeaseInterface) Release(ctx context.Context, setupId string, holder string) error {
	m.Calls.Release = append(m.Calls.Release, struct {
		SetupId string
		Holder  string
	}{
		SetupId: setupId,
		Holder:  holder,
	})
	if m.Impl.Release != nil {
		return m.Impl.Release(ctx, setupId, holder)
	}

	panic(errors.New("it should not be called"))
}
