package manager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/omniphi/orchestrator/cmd/loops/hook"
	bindsetups "github.com/omniphi/orchestrator/pkg/api/bind/setups"
	apisetups "github.com/omniphi/orchestrator/pkg/api/types/setups"
	"github.com/omniphi/orchestrator/pkg/domain"
	leasedb "github.com/omniphi/orchestrator/pkg/domain/lease/db"
	nodedb "github.com/omniphi/orchestrator/pkg/domain/node/db"
	"github.com/omniphi/orchestrator/pkg/domain/runtime"
	setupdb "github.com/omniphi/orchestrator/pkg/domain/setup/db"
)

// Manager runs the provisioning workflow for the setup an order names.
//
// The returned error is what the order picker records on the order;
// by the time it returns, the SetupRequest and its Node already carry
// the terminal state the run came to.
type Manager func(ctx context.Context, order domain.ProvisionOrder) error

type manager struct {
	logger    *log.Logger
	isetup    setupdb.SetupInterface
	inode     nodedb.NodeInterface
	ilease    leasedb.LeaseInterface
	runtimes  *runtime.Registry
	chainId   string
	leaseTTL  time.Duration
	initGrace time.Duration
	lifecycle hook.Hook[apisetups.Detail, struct{}]
}

type Option func(*manager) *manager

// WithLeaseTTL sets how long a run may keep its provisioning lease
// before a successor is allowed to assume it dead.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(m *manager) *manager {
		m.leaseTTL = ttl
		return m
	}
}

// WithInitGrace sets how long a fresh instance may settle before its
// observed status decides the outcome of the run.
func WithInitGrace(d time.Duration) Option {
	return func(m *manager) *manager {
		m.initGrace = d
		return m
	}
}

// WithLifecycle sets the hook observing the SetupRequest around the run.
func WithLifecycle(h hook.Hook[apisetups.Detail, struct{}]) Option {
	return func(m *manager) *manager {
		m.lifecycle = h
		return m
	}
}

func New(
	logger *log.Logger,
	isetup setupdb.SetupInterface,
	inode nodedb.NodeInterface,
	ilease leasedb.LeaseInterface,
	runtimes *runtime.Registry,
	chainId string,
	options ...Option,
) Manager {
	m := &manager{
		logger:    logger,
		isetup:    isetup,
		inode:     inode,
		ilease:    ilease,
		runtimes:  runtimes,
		chainId:   chainId,
		leaseTTL:  5 * time.Minute,
		initGrace: 10 * time.Second,
		lifecycle: hook.None[apisetups.Detail]{},
	}
	for _, opt := range options {
		m = opt(m)
	}
	return m.run
}

func (m *manager) run(ctx context.Context, order domain.ProvisionOrder) error {
	if _, err := m.ilease.Acquire(ctx, order.SetupId, order.CorrelationId, m.leaseTTL); err != nil {
		// somebody else is on it. This run has nothing it may touch.
		return err
	}
	defer func() {
		// a release lost to a dying process is fine; the TTL reclaims it.
		if err := m.ilease.Release(ctx, order.SetupId, order.CorrelationId); err != nil {
			m.logger.Printf("failed to release provisioning lease on %s: %v", order.SetupId, err)
		}
	}()

	setups, err := m.isetup.Get(ctx, []string{order.SetupId})
	if err != nil {
		return err
	}
	setup, ok := setups[order.SetupId]
	if !ok {
		return fmt.Errorf("%w: setup request %s", domain.ErrMissing, order.SetupId)
	}

	if _, err := m.lifecycle.Before(bindsetups.ComposeDetail(setup)); err != nil {
		return err
	}

	err = m.provision(ctx, order, setup)

	// the After hook observes where the run left the request, success or not.
	if updated, gerr := m.isetup.Get(ctx, []string{order.SetupId}); gerr == nil {
		if s, ok := updated[order.SetupId]; ok {
			if herr := m.lifecycle.After(bindsetups.ComposeDetail(s)); herr != nil {
				m.logger.Printf("lifecycle hook (after) on %s: %v", order.SetupId, herr)
			}
		}
	}

	return err
}

func (m *manager) provision(ctx context.Context, order domain.ProvisionOrder, setup domain.SetupRequest) error {
	if err := m.isetup.SetStatus(ctx, order.SetupId, domain.Provisioning); err != nil {
		return err
	}

	adapter, err := m.runtimes.Get(setup.Provider)
	if err != nil {
		return m.fail(ctx, order.SetupId, "", err)
	}

	if order.Redeploy {
		if err := m.teardown(ctx, adapter, order.SetupId); err != nil {
			return m.fail(ctx, order.SetupId, "", err)
		}
	}

	created, err := adapter.Create(ctx, runtime.ValidatorSpec{
		Label:   label(order),
		Moniker: moniker(setup),
		ChainId: m.chainId,
	})
	if err != nil {
		return m.fail(ctx, order.SetupId, "", err)
	}

	if err := m.isetup.Configure(ctx, order.SetupId, created.ConsensusPubkey); err != nil {
		return err
	}

	node, err := m.inode.Register(ctx, domain.NodeSpec{
		SetupId:      order.SetupId,
		Provider:     setup.Provider,
		InstanceId:   created.InstanceId,
		RpcEndpoint:  created.RpcEndpoint,
		P2pEndpoint:  created.P2pEndpoint,
		GrpcEndpoint: created.GrpcEndpoint,
		Resources:    created.Resources,
	})
	if err != nil {
		return m.fail(ctx, order.SetupId, "", err)
	}

	// let the validator process find its feet before judging it.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.initGrace):
	}

	status, err := adapter.GetStatus(ctx, created.InstanceId)
	if err != nil {
		return m.fail(ctx, order.SetupId, node.NodeId, err)
	}

	if status.Phase != runtime.Running {
		return m.fail(
			ctx, order.SetupId, node.NodeId,
			fmt.Errorf(
				"instance %s is %s (%s), not running",
				created.InstanceId, status.Phase, status.Raw,
			),
		)
	}

	if err := m.inode.SetStatus(ctx, node.NodeId, domain.Running); err != nil {
		return err
	}
	return m.isetup.SetStatus(ctx, order.SetupId, domain.Ready)
}

// teardown clears the prior deployment of a setup: instances best-effort,
// Node records for sure.
func (m *manager) teardown(ctx context.Context, adapter runtime.Interface, setupId string) error {
	nodeIds, err := m.inode.Find(ctx, domain.NodeFindQuery{SetupId: &setupId})
	if err != nil {
		return err
	}
	nodes, err := m.inode.Get(ctx, nodeIds)
	if err != nil {
		return err
	}

	for _, nodeId := range nodeIds {
		node, ok := nodes[nodeId]
		if !ok {
			continue
		}
		if err := adapter.Remove(ctx, node.InstanceId); err != nil {
			// a zombie instance does not block re-creation. The new deploy
			// gets a fresh label, so they cannot collide.
			m.logger.Printf(
				"failed to remove instance %s of node %s: %v",
				node.InstanceId, nodeId, err,
			)
		}
		if err := m.inode.Delete(ctx, nodeId); err != nil && !errors.Is(err, domain.ErrMissing) {
			return err
		}
	}
	return nil
}

// fail records a broken run: the Node (when one exists already) goes to
// error, the SetupRequest to failed. The cause comes back as-is so the
// order picks it up.
func (m *manager) fail(ctx context.Context, setupId string, nodeId string, cause error) error {
	if nodeId != "" {
		if err := m.inode.SetStatus(ctx, nodeId, domain.Errored); err != nil {
			m.logger.Printf("failed to mark node %s as error: %v", nodeId, err)
		}
	}
	if err := m.isetup.Fail(ctx, setupId, cause.Error()); err != nil {
		m.logger.Printf("failed to mark setup request %s as failed: %v", setupId, err)
	}
	return cause
}

// label names one deploy attempt. The correlation id keeps labels unique
// across redeploys, so a zombie instance whose removal failed never
// collides with its replacement.
func label(order domain.ProvisionOrder) string {
	return "omni-validator-" + order.CorrelationId
}

func moniker(setup domain.SetupRequest) string {
	if setup.DisplayName != "" {
		return setup.DisplayName
	}
	return setup.SetupId
}
