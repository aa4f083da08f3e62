package recurring

import (
	"context"

	"github.com/omniphi/orchestrator/pkg/loop"
)

// Task is one cycle of a recurring loop.
//
// Return:
//
// - T : same as return value T of github.com/omniphi/orchestrator/pkg/loop.Task[T]
//
// - bool : true when this task did something in this cycle, and more backlog can be.
// otherwise false.
//
// - error : same as err of github.com/omniphi/orchestrator/pkg/loop.Break(err)
type Task[T any] func(context.Context, T) (T, bool, error)

// a loop.Task which executes rt ('rt()') and asks p.Next() what to do with the result.
func (rt Task[T]) Applied(p Policy) loop.Task[T] {
	return func(ctx context.Context, t T) (T, loop.Next) {
		new, ok, err := rt(ctx, t)
		return new, p.Next(ok, err)
	}
}
