package mock

import (
	"context"
	"errors"

	"github.com/omniphi/orchestrator/pkg/domain"
	dbmock "github.com/omniphi/orchestrator/pkg/domain/internal/db/mock"
	kdb "github.com/omniphi/orchestrator/pkg/domain/node/db"
)

type NodeInterface struct {
	Impl struct {
		Register       func(ctx context.Context, spec domain.NodeSpec) (domain.Node, error)
		Get            func(ctx context.Context, nodeIds []string) (map[string]domain.Node, error)
		Find           func(ctx context.Context, query domain.NodeFindQuery) ([]string, error)
		SetStatus      func(ctx context.Context, nodeId string, newStatus domain.NodeStatus) error
		Delete         func(ctx context.Context, nodeId string) error
		PickAndObserve func(ctx context.Context, cursor domain.NodeCursor, observe func(domain.Node) (domain.HealthObservation, error)) (domain.NodeCursor, bool, error)
	}

	Calls struct {
		Register  dbmock.CallLog[domain.NodeSpec]
		Get       dbmock.CallLog[[]string]
		Find      dbmock.CallLog[domain.NodeFindQuery]
		SetStatus dbmock.CallLog[struct {
			NodeId    string
			NewStatus domain.NodeStatus
		}]
		Delete         dbmock.CallLog[string]
		PickAndObserve dbmock.CallLog[domain.NodeCursor]
	}
}

func NewNodeInterface() *NodeInterface {
	return &NodeInterface{}
}

var _ kdb.NodeInterface = &NodeInterface{}

func (m *NodeInterface) Register(ctx context.Context, spec domain.NodeSpec) (domain.Node, error) {
	m.Calls.Register = append(m.Calls.Register, spec)
	if m.Impl.Register != nil {
		return m.Impl.Register(ctx, spec)
	}

	panic(errors.New("it should not be called"))
}

func (m *NodeInterface) Get(ctx context.Context, nodeIds []string) (map[string]domain.Node, error) {
	m.Calls.Get = append(m.Calls.Get, nodeIds)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, nodeIds)
	}

	panic(errors.New("it should not be called"))
}

func (m *NodeInterface) Find(ctx context.Context, query domain.NodeFindQuery) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, query)
	}

	panic(errors.New("it should not be called"))
}

func (m *NodeInterface) SetStatus(ctx context.Context, nodeId string, newStatus domain.NodeStatus) error {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		NodeId    string
		NewStatus domain.NodeStatus
	}{
		NodeId:    nodeId,
		NewStatus: newStatus,
	})
	if m.Impl.SetStatus != nil {
		return m.Impl.SetStatus(ctx, nodeId, newStatus)
	}

	panic(errors.New("it should not be called"))
}

func (m *NodeInterface) Delete(ctx context.Context, nodeId string) error {
	m.Calls.Delete = append(m.Calls.Delete, nodeId)
	if m.Impl.Delete != nil {
		return m.Impl.Delete(ctx, nodeId)
	}

	panic(errors.New("it should not be called"))
}

func (m *NodeInterface) PickAndObserve(
	ctx context.Context,
	cursor domain.NodeCursor,
	observe func(domain.Node) (domain.HealthObservation, error),
) (domain.NodeCursor, bool, error) {
	m.Calls.PickAndObserve = append(m.Calls.PickAndObserve, cursor)
	if m.Impl.PickAndObserve != nil {
		return m.Impl.PickAndObserve(ctx, cursor, observe)
	}

	panic(errors.New("it should not be called"))
}
