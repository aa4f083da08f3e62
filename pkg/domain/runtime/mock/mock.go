package mock

import (
	"context"
	"errors"

	dbmock "github.com/omniphi/orchestrator/pkg/domain/internal/db/mock"
	"github.com/omniphi/orchestrator/pkg/domain/runtime"
)

type Runtime struct {
	Impl struct {
		Create    func(ctx context.Context, spec runtime.ValidatorSpec) (runtime.Created, error)
		Remove    func(ctx context.Context, instanceId string) error
		GetStatus func(ctx context.Context, instanceId string) (runtime.Status, error)
	}

	Calls struct {
		Create    dbmock.CallLog[runtime.ValidatorSpec]
		Remove    dbmock.CallLog[string]
		GetStatus dbmock.CallLog[string]
	}
}

func NewRuntime() *Runtime {
	return &Runtime{}
}

var _ runtime.Interface = &Runtime{}

func (m *Runtime) Create(ctx context.Context, spec runtime.ValidatorSpec) (runtime.Created, error) {
	m.Calls.Create = append(m.Calls.Create, spec)
	if m.Impl.Create != nil {
		return m.Impl.Create(ctx, spec)
	}

	panic(errors.New("it should not be called"))
}

func (m *Runtime) Remove(ctx context.Context, instanceId string) error {
	m.Calls.Remove = append(m.Calls.Remove, instanceId)
	if m.Impl.Remove != nil {
		return m.Impl.Remove(ctx, instanceId)
	}

	panic(errors.New("it should not be called"))
}

func (m *Runtime) GetStatus(ctx context.Context, instanceId string) (runtime.Status, error) {
	m.Calls.GetStatus = append(m.Calls.GetStatus, instanceId)
	if m.Impl.GetStatus != nil {
		return m.Impl.GetStatus(ctx, instanceId)
	}

	panic(errors.New("it should not be called"))
}
