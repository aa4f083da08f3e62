package provisioning

import (
	"context"
	"errors"
	"log"

	"github.com/omniphi/orchestrator/cmd/loops/recurring"
	"github.com/omniphi/orchestrator/cmd/loops/tasks/provisioning/manager"
	"github.com/omniphi/orchestrator/pkg/domain"
	orderdb "github.com/omniphi/orchestrator/pkg/domain/order/db"
)

// Return initial OrderCursor value for task
func Seed() domain.OrderCursor {
	return domain.OrderCursor{}
}

// Task for the provisioning loop.
//
//	Drain the provision order queue. Each picked order drives one
//	provisioning run, carrying its SetupRequest to ready or failed.
//
// return:
//
// - task: pick the oldest queued order and run it.
func Task(
	logger *log.Logger,
	iorder orderdb.OrderInterface,
	run manager.Manager,
) recurring.Task[domain.OrderCursor] {
	return func(ctx context.Context, cursor domain.OrderCursor) (domain.OrderCursor, bool, error) {
		nextCursor, picked, err := iorder.Pick(
			ctx, cursor,
			func(order domain.ProvisionOrder) error {
				logger.Printf(
					"provisioning setup %s (order: %s, redeploy: %v)",
					order.SetupId, order.CorrelationId, order.Redeploy,
				)
				return run(ctx, order)
			},
		)

		// Context cancelled/deadline exceeded are okay. It will be retried.
		if err == nil ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return nextCursor, picked, nil
		}

		// The order record carries the failure for its user already.
		// Keep the loop going for the orders behind it.
		logger.Printf("provisioning failed (order: %s): %s", nextCursor.Head, err)
		return nextCursor, picked, nil
	}
}
