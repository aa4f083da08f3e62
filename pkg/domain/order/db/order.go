package db

import (
	"context"

	"github.com/omniphi/orchestrator/pkg/domain"
)

type OrderInterface interface {
	// put a provisioning order for a SetupRequest on the queue.
	//
	// When the SetupRequest already has a queued (not yet started) order,
	// no new order is created and the queued one is returned instead,
	// so that hammering the trigger endpoint stays harmless.
	//
	// Args
	//
	// - context.Context
	//
	// - setupId: SetupRequest to be provisioned.
	//
	// - redeploy: tear the current Node down before re-creating it.
	//
	// Returns
	//
	// - domain.ProvisionOrder: the queued order, new or pre-existing.
	//
	// - error
	Enqueue(ctx context.Context, setupId string, redeploy bool) (domain.ProvisionOrder, error)

	// retrieve orders.
	//
	// Args
	//
	// - context.Context
	//
	// - []string: correlation ids
	//
	// Returns
	//
	// - map[string]domain.ProvisionOrder: mapping correlation id -> order.
	// Ids which are not found are just omitted from the map.
	//
	// - error
	Get(ctx context.Context, correlationIds []string) (map[string]domain.ProvisionOrder, error)

	// pick the oldest queued order and run task() on it.
	//
	// The order is marked started before task() runs, in its own
	// transaction. A process crash during task() leaves the order started
	// and unfinished, and it is never picked again: retrying a
	// half-provisioned setup is an operator decision, not ours.
	//
	// After task() returns, the order is marked finished; when task()
	// returned an error, its message is recorded on the order and the
	// error comes back to the caller for logging.
	//
	// Args
	//
	// - context.Context
	//
	// - cursor: where the last pick left off.
	//
	// - task: the provisioning run itself.
	//
	// Returns
	//
	// - domain.OrderCursor: cursor pointing at the picked order.
	// If no order is queued, the cursor is returned as it was passed.
	//
	// - bool: true when an order was picked.
	//
	// - error
	Pick(
		ctx context.Context,
		cursor domain.OrderCursor,
		task func(domain.ProvisionOrder) error,
	) (domain.OrderCursor, bool, error)
}
