package provisioning_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/omniphi/orchestrator/cmd/loops/tasks/provisioning"
	"github.com/omniphi/orchestrator/cmd/loops/tasks/provisioning/manager"
	"github.com/omniphi/orchestrator/pkg/domain"
	ordermock "github.com/omniphi/orchestrator/pkg/domain/order/db/mock"
)

type PickReturns struct {
	Cursor domain.OrderCursor
	Picked bool
	Err    error
}

type TaskReturns struct {
	Cursor domain.OrderCursor
	Ok     bool
	Err    error
}

func (r TaskReturns) Satisfies(other TaskReturns) bool {
	return r.Cursor.Equal(other.Cursor) &&
		r.Ok == other.Ok &&
		errors.Is(r.Err, other.Err)
}

func TestTask(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	{
		type When struct {
			Cursor      domain.OrderCursor
			PickReturns PickReturns
		}
		type Then struct {
			TaskReturns TaskReturns
		}
		theory := func(when When, then Then) func(t *testing.T) {
			return func(t *testing.T) {
				iorder := ordermock.NewOrderInterface()
				iorder.Impl.Pick = func(
					_ context.Context, cursor domain.OrderCursor,
					_ func(domain.ProvisionOrder) error,
				) (domain.OrderCursor, bool, error) {
					if !cursor.Equal(when.Cursor) {
						t.Errorf("expected cursor %v, got %v", when.Cursor, cursor)
					}
					r := when.PickReturns
					return r.Cursor, r.Picked, r.Err
				}

				run := func(context.Context, domain.ProvisionOrder) error {
					return nil
				}
				testee := provisioning.Task(logger, iorder, manager.Manager(run))

				ctx := context.Background()

				actualCursor, actualOk, actualErr := testee(ctx, when.Cursor)
				actual := TaskReturns{
					Cursor: actualCursor, Ok: actualOk, Err: actualErr,
				}

				if !actual.Satisfies(then.TaskReturns) {
					t.Errorf(
						"expected task returns %+v, got %+v",
						then.TaskReturns, actual,
					)
				}
			}
		}

		{
			given := domain.OrderCursor{Head: ""}
			picked := domain.OrderCursor{Head: "order-1"}
			t.Run("should return ok when an order was picked", theory(
				When{
					Cursor:      given,
					PickReturns: PickReturns{Cursor: picked, Picked: true, Err: nil},
				},
				Then{
					TaskReturns: TaskReturns{Cursor: picked, Ok: true, Err: nil},
				},
			))
		}
		{
			given := domain.OrderCursor{Head: "order-1"}
			t.Run("should return not-ok when the queue is empty", theory(
				When{
					Cursor:      given,
					PickReturns: PickReturns{Cursor: given, Picked: false, Err: nil},
				},
				Then{
					TaskReturns: TaskReturns{Cursor: given, Ok: false, Err: nil},
				},
			))
		}
		{
			given := domain.OrderCursor{Head: ""}
			picked := domain.OrderCursor{Head: "order-1"}
			t.Run("should swallow run errors to stay alive for the next order", theory(
				When{
					Cursor: given,
					PickReturns: PickReturns{
						Cursor: picked, Picked: true,
						Err: errors.New("fake error: provisioning went sideways"),
					},
				},
				Then{
					TaskReturns: TaskReturns{Cursor: picked, Ok: true, Err: nil},
				},
			))
		}
		{
			given := domain.OrderCursor{Head: "order-1"}
			t.Run("should stay quiet when the context is cancelled", theory(
				When{
					Cursor: given,
					PickReturns: PickReturns{
						Cursor: given, Picked: false, Err: context.Canceled,
					},
				},
				Then{
					TaskReturns: TaskReturns{Cursor: given, Ok: false, Err: nil},
				},
			))
		}
	}

	t.Run("the picked order is handed to the manager as-is", func(t *testing.T) {
		startedAt := time.Date(2024, 4, 1, 10, 1, 0, 0, time.UTC)
		order := domain.ProvisionOrder{
			CorrelationId: "order-1",
			SetupId:       "setup-1",
			Redeploy:      true,
			QueuedAt:      startedAt.Add(-3 * time.Second),
			StartedAt:     &startedAt,
		}

		iorder := ordermock.NewOrderInterface()
		iorder.Impl.Pick = func(
			_ context.Context, _ domain.OrderCursor,
			task func(domain.ProvisionOrder) error,
		) (domain.OrderCursor, bool, error) {
			return domain.OrderCursor{Head: order.CorrelationId}, true, task(order)
		}

		received := []domain.ProvisionOrder{}
		run := func(_ context.Context, o domain.ProvisionOrder) error {
			received = append(received, o)
			return nil
		}
		testee := provisioning.Task(logger, iorder, manager.Manager(run))

		ctx := context.Background()
		if _, _, err := testee(ctx, domain.OrderCursor{}); err != nil {
			t.Fatal(err)
		}

		if len(received) != 1 {
			t.Fatalf("the manager should run once, not %d times", len(received))
		}
		if !received[0].Equal(order) {
			t.Errorf("order: (actual, expected) = (%+v, %+v)", received[0], order)
		}
	})
}
