package health

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/omniphi/orchestrator/cmd/loops/recurring"
	"github.com/omniphi/orchestrator/pkg/domain"
	nodedb "github.com/omniphi/orchestrator/pkg/domain/node/db"
	"github.com/omniphi/orchestrator/pkg/domain/runtime"
	"github.com/omniphi/orchestrator/pkg/domain/runtime/rpc"
)

// Return initial NodeCursor value for task.
//
// interval is the debounce: a node checked within the last interval
// is not picked again.
func Seed(interval time.Duration) domain.NodeCursor {
	return domain.NodeCursor{
		// statuses of the nodes to be watched over.
		Status:   []domain.NodeStatus{domain.Running, domain.Syncing},
		Debounce: interval,
	}
}

// Prober reads the latest block height of a node over its RPC.
type Prober func(ctx context.Context, node domain.Node) (int64, error)

type monitor struct {
	probe Prober
}

type Option func(*monitor) *monitor

// WithProber replaces how block heights are read.
func WithProber(p Prober) Option {
	return func(m *monitor) *monitor {
		m.probe = p
		return m
	}
}

func rpcProbe(ctx context.Context, node domain.Node) (int64, error) {
	status, err := rpc.New(node.RpcEndpoint).Status(ctx)
	if err != nil {
		return 0, err
	}
	return status.BlockHeight, nil
}

// Task for the health loop.
//
//	Sweep over running/syncing nodes and reconcile their recorded
//	status with what their runtime reports. A node whose instance is
//	no longer running is marked stopped.
//
// return:
//
// - task: pick the next due node and observe it.
func Task(
	logger *log.Logger,
	inode nodedb.NodeInterface,
	runtimes *runtime.Registry,
	options ...Option,
) recurring.Task[domain.NodeCursor] {
	m := &monitor{probe: rpcProbe}
	for _, opt := range options {
		m = opt(m)
	}

	return func(ctx context.Context, cursor domain.NodeCursor) (domain.NodeCursor, bool, error) {
		nextCursor, picked, err := inode.PickAndObserve(
			ctx, cursor,
			func(node domain.Node) (domain.HealthObservation, error) {
				adapter, err := runtimes.Get(node.Provider)
				if err != nil {
					return domain.HealthObservation{}, err
				}

				status, err := adapter.GetStatus(ctx, node.InstanceId)
				if err != nil {
					return domain.HealthObservation{}, err
				}

				if status.Phase != runtime.Running {
					logger.Printf(
						"node %s: instance %s is %s (%s). marking it stopped",
						node.NodeId, node.InstanceId, status.Phase, status.Raw,
					)
					return domain.HealthObservation{Status: domain.Stopped}, nil
				}

				// The instance is up. The status stays whatever it is;
				// the block height is taken along when the node answers.
				observation := domain.HealthObservation{Status: node.Status}
				if height, err := m.probe(ctx, node); err != nil {
					logger.Printf("node %s: rpc probe failed: %s", node.NodeId, err)
				} else {
					observation.BlockHeight = &height
				}
				return observation, nil
			},
		)

		// Context cancelled/deadline exceeded are okay. It will be retried.
		if err == nil ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, domain.ErrInvalidNodeStateChanging) {
			return nextCursor, picked, nil
		}

		// The node keeps its record. The sweep moves on past it.
		logger.Printf("health check failed (node: %s): %s", nextCursor.Head, err)
		return nextCursor, picked, nil
	}
}
