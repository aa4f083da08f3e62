package mock

import (
	"context"
	"errors"

	"github.com/omniphi/orchestrator/pkg/domain"
	dbmock "github.com/omniphi/orchestrator/pkg/domain/internal/db/mock"
	kdb "github.com/omniphi/orchestrator/pkg/domain/order/db"
)

type OrderInterface struct {
	Impl struct {
		Enqueue func(ctx context.Context, setupId string, redeploy bool) (domain.ProvisionOrder, error)
		Get     func(ctx context.Context, correlationIds []string) (map[string]domain.ProvisionOrder, error)
		Pick    func(ctx context.Context, cursor domain.OrderCursor, task func(domain.ProvisionOrder) error) (domain.OrderCursor, bool, error)
	}

	Calls struct {
		Enqueue dbmock.CallLog[struct {
			SetupId  string
			Redeploy bool
		}]
		Get  dbmock.CallLog[[]string]
		Pick dbmock.CallLog[domain.OrderCursor]
	}
}

func NewOrderInterface() *OrderInterface {
	return &OrderInterface{}
}

var _ kdb.OrderInterface = &OrderInterface{}

func (m *OrderInterface) Enqueue(ctx context.Context, setupId string, redeploy bool) (domain.ProvisionOrder, error) {
	m.Calls.Enqueue = append(m.Calls.Enqueue, struct {
		SetupId  string
		Redeploy bool
	}{
		SetupId:  setupId,
		Redeploy: redeploy,
	})
	if m.Impl.Enqueue != nil {
		return m.Impl.Enqueue(ctx, setupId, redeploy)
	}

	panic(errors.New("it should not be called"))
}

func (m *OrderInterface) Get(ctx context.Context, correlationIds []string) (map[string]domain.ProvisionOrder, error) {
	m.Calls.Get = append(m.Calls.Get, correlationIds)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, correlationIds)
	}

	panic(errors.New("it should not be called"))
}

func (m *OrderInterface) Pick(
	ctx context.Context,
	cursor domain.OrderCursor,
	task func(domain.ProvisionOrder) error,
) (domain.OrderCursor, bool, error) {
	m.Calls.Pick = append(m.Calls.Pick, cursor)
	if m.Impl.Pick != nil {
		return m.Impl.Pick(ctx, cursor, task)
	}

	panic(errors.New("it should not be called"))
}
