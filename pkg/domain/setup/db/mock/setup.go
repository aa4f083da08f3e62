package mock

import (
	"context"
	"errors"

	"github.com/omniphi/orchestrator/pkg/domain"
	dbmock "github.com/omniphi/orchestrator/pkg/domain/internal/db/mock"
	kdb "github.com/omniphi/orchestrator/pkg/domain/setup/db"
)

type SetupInterface struct {
	Impl struct {
		Register  func(ctx context.Context, spec domain.SetupRequestSpec) (domain.SetupRequest, error)
		Get       func(ctx context.Context, setupIds []string) (map[string]domain.SetupRequest, error)
		Find      func(ctx context.Context, query domain.SetupFindQuery) ([]string, error)
		SetStatus func(ctx context.Context, setupId string, newStatus domain.SetupStatus) error
		Configure func(ctx context.Context, setupId string, consensusPubkey string) error
		Fail      func(ctx context.Context, setupId string, message string) error
	}

	Calls struct {
		Register  dbmock.CallLog[domain.SetupRequestSpec]
		Get       dbmock.CallLog[[]string]
		Find      dbmock.CallLog[domain.SetupFindQuery]
		SetStatus dbmock.CallLog[struct {
			SetupId   string
			NewStatus domain.SetupStatus
		}]
		Configure dbmock.CallLog[struct {
			SetupId         string
			ConsensusPubkey string
		}]
		Fail dbmock.CallLog[struct {
			SetupId string
			Message string
		}]
	}
}

func NewSetupInterface() *SetupInterface {
	return &SetupInterface{}
}

var _ kdb.SetupInterface = &SetupInterface{}

func (m *SetupInterface) Register(ctx context.Context, spec domain.SetupRequestSpec) (domain.SetupRequest, error) {
	m.Calls.Register = append(m.Calls.Register, spec)
	if m.Impl.Register != nil {
		return m.Impl.Register(ctx, spec)
	}

	panic(errors.New("it should not be called"))
}

func (m *SetupInterface) Get(ctx context.Context, setupIds []string) (map[string]domain.SetupRequest, error) {
	m.Calls.Get = append(m.Calls.Get, setupIds)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, setupIds)
	}

	panic(errors.New("it should not be called"))
}

func (m *SetupInterface) Find(ctx context.Context, query domain.SetupFindQuery) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, query)
	}

	panic(errors.New("it should not be called"))
}

func (m *SetupInterface) SetStatus(ctx context.Context, setupId string, newStatus domain.SetupStatus) error {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		SetupId   string
		NewStatus domain.SetupStatus
	}{
		SetupId:   setupId,
		NewStatus: newStatus,
	})
	if m.Impl.SetStatus != nil {
		return m.Impl.SetStatus(ctx, setupId, newStatus)
	}

	panic(errors.New("it should not be called"))
}

func (m *SetupInterface) Configure(ctx context.Context, setupId string, consensusPubkey string) error {
	m.Calls.Configure = append(m.Calls.Configure, struct {
		SetupId         string
		ConsensusPubkey string
	}{
		SetupId:         setupId,
		ConsensusPubkey: consensusPubkey,
	})
	if m.Impl.Configure != nil {
		return m.Impl.Configure(ctx, setupId, consensusPubkey)
	}

	panic(errors.New("it should not be called"))
}

func (m *SetupInterface) Fail(ctx context.Context, setupId string, message string) error {
	m.Calls.Fail = append(m.Calls.Fail, struct {
		SetupId string
		Message string
	}{
		SetupId: setupId,
		Message: message,
	})
	if m.Impl.Fail != nil {
		return m.Impl.Fail(ctx, setupId, message)
	}

	panic(errors.New("it should not be called"))
}
