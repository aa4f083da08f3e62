package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	kpool "github.com/omniphi/orchestrator/pkg/conn/db/postgres/pool"
	"github.com/omniphi/orchestrator/pkg/conn/db/postgres/scanner"
	"github.com/omniphi/orchestrator/pkg/domain"
	kdborder "github.com/omniphi/orchestrator/pkg/domain/order/db"
	xe "github.com/omniphi/orchestrator/pkg/errors"
)

// a struct for DB operations related to ProvisionOrder
type pgOrder struct { // implements kdborder.OrderInterface
	pool kpool.Pool

	// generator of new correlation ids
	newId func() string
}

type Option func(*pgOrder) *pgOrder

func WithNewId(newId func() string) Option {
	return func(o *pgOrder) *pgOrder {
		o.newId = newId
		return o
	}
}

func New(pool kpool.Pool, options ...Option) *pgOrder {
	o := &pgOrder{
		pool:  pool,
		newId: uuid.NewString,
	}
	for _, opt := range options {
		o = opt(o)
	}
	return o
}

var _ kdborder.OrderInterface = &pgOrder{}

type orderRow struct {
	CorrelationId string     `sql:"correlation_id"`
	SetupId       string     `sql:"setup_id"`
	Redeploy      bool       `sql:"redeploy"`
	QueuedAt      time.Time  `sql:"queued_at"`
	StartedAt     *time.Time `sql:"started_at"`
	FinishedAt    *time.Time `sql:"finished_at"`
	ErrorMessage  string     `sql:"error_message"`
}

func (r orderRow) Body() domain.ProvisionOrder {
	return domain.ProvisionOrder{
		CorrelationId: r.CorrelationId,
		SetupId:       r.SetupId,
		Redeploy:      r.Redeploy,
		QueuedAt:      r.QueuedAt,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		ErrorMessage:  r.ErrorMessage,
	}
}

func (m *pgOrder) Enqueue(ctx context.Context, setupId string, redeploy bool) (domain.ProvisionOrder, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.ProvisionOrder{}, err
	}
	defer conn.Release()

	// Insert and read back in a single statement: when another order for
	// the same SetupRequest is already queued, the insert hits the partial
	// unique index and "old" exposes the queued one.
	//
	// There is a small window where the queued order gets started between
	// our conflict and our read; then both branches come back empty and
	// inserting anew is legal, hence one more attempt.
	for attempt := 0; attempt < 2; attempt++ {
		found, err := scanner.New[orderRow]().QueryAll(
			ctx, conn,
			`
			with
			"new" as (
				insert into "provision_order" ("correlation_id", "setup_id", "redeploy")
				values ($1, $2, $3)
				on conflict ("setup_id") where "started_at" is null do nothing
				returning
					"correlation_id", "setup_id", "redeploy", "queued_at",
					"started_at", "finished_at", "error_message"
			),
			"old" as (
				select
					"correlation_id", "setup_id", "redeploy", "queued_at",
					"started_at", "finished_at", "error_message"
				from "provision_order"
				where "setup_id" = $2 and "started_at" is null
			)
			select * from "new"
			union all
			select * from "old"
			limit 1
			`,
			m.newId(), setupId, redeploy,
		)
		if err != nil {
			return domain.ProvisionOrder{}, xe.Wrap(err)
		}
		if len(found) == 0 {
			continue
		}
		return found[0].Body(), nil
	}

	return domain.ProvisionOrder{}, fmt.Errorf("enqueue lost the race twice: setup_id='%s'", setupId)
}

func (m *pgOrder) Get(ctx context.Context, correlationIds []string) (map[string]domain.ProvisionOrder, error) {
	if len(correlationIds) == 0 {
		return map[string]domain.ProvisionOrder{}, nil
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	found, err := scanner.New[orderRow]().QueryAll(
		ctx, conn,
		`
		select
			"correlation_id", "setup_id", "redeploy", "queued_at",
			"started_at", "finished_at", "error_message"
		from "provision_order"
		where "correlation_id" = any($1::varchar[])
		`,
		correlationIds,
	)
	if err != nil {
		return nil, err
	}

	result := map[string]domain.ProvisionOrder{}
	for _, r := range found {
		result[r.CorrelationId] = r.Body()
	}
	return result, nil
}

func (m *pgOrder) Pick(
	ctx context.Context,
	cursor domain.OrderCursor,
	task func(domain.ProvisionOrder) error,
) (domain.OrderCursor, bool, error) {
	var order domain.ProvisionOrder
	{
		tx, err := m.pool.Begin(ctx)
		if err != nil {
			return cursor, false, err
		}
		defer tx.Rollback(ctx)

		// Orders queue FIFO. Started orders leave the queue for good,
		// so there is no starvation to defend against with round-robin.
		found, err := scanner.New[orderRow]().QueryAll(
			ctx, tx,
			`
			with "target" as (
				select "correlation_id" from "provision_order"
				where "started_at" is null
				order by "queued_at", "correlation_id"
				limit 1
				for no key update skip locked
			)
			update "provision_order" set "started_at" = now()
			where "correlation_id" in (table "target")
			returning
				"correlation_id", "setup_id", "redeploy", "queued_at",
				"started_at", "finished_at", "error_message"
			`,
		)
		if err != nil {
			return cursor, false, err
		}
		if len(found) == 0 {
			return cursor, false, nil
		}
		order = found[0].Body()

		// The start mark is committed before the run: a crash mid-run
		// leaves the order started and unfinished, never picked again.
		if err := tx.Commit(ctx); err != nil {
			return cursor, false, err
		}

		// cursor is moved!
		cursor = domain.OrderCursor{Head: order.CorrelationId}
	}

	taskErr := task(order)

	message := ""
	if taskErr != nil {
		message = taskErr.Error()
	}
	if err := m.finish(ctx, order.CorrelationId, message); err != nil {
		return cursor, true, err
	}

	return cursor, true, taskErr
}

func (m *pgOrder) finish(ctx context.Context, correlationId string, message string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx,
		`
		update "provision_order" set
			"finished_at" = now(),
			"error_message" = $1
		where "correlation_id" = $2
		`,
		message, correlationId,
	); err != nil {
		return xe.Wrap(err)
	}

	return tx.Commit(ctx)
}
