package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	kpool "github.com/omniphi/orchestrator/pkg/conn/db/postgres/pool"
	"github.com/omniphi/orchestrator/pkg/domain"
	kdblease "github.com/omniphi/orchestrator/pkg/domain/lease/db"
	xe "github.com/omniphi/orchestrator/pkg/errors"
)

// a struct for DB operations related to provisioning Leases
type pgLease struct { // implements kdblease.LeaseInterface
	pool kpool.Pool
}

func New(pool kpool.Pool) *pgLease {
	return &pgLease{pool: pool}
}

var _ kdblease.LeaseInterface = &pgLease{}

func (m *pgLease) Acquire(ctx context.Context, setupId string, holder string, ttl time.Duration) (domain.Lease, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.Lease{}, err
	}
	defer tx.Rollback(ctx)

	lease := domain.Lease{SetupId: setupId, Holder: holder}
	if err := tx.QueryRow(
		ctx,
		`
		insert into "provisioning_lease" ("setup_id", "holder", "acquired_at", "expires_at")
		values ($1, $2, now(), now() + $3)
		on conflict ("setup_id") do update
		set
			"holder" = excluded."holder",
			"acquired_at" = excluded."acquired_at",
			"expires_at" = excluded."expires_at"
		where "provisioning_lease"."expires_at" <= now()
		returning "acquired_at", "expires_at"
		`,
		setupId, holder, ttl,
	).Scan(&lease.AcquiredAt, &lease.ExpiresAt); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.Lease{}, xe.Wrap(err)
		}

		// somebody else holds an unexpired lease. say who.
		var currentHolder string
		if err := tx.QueryRow(
			ctx,
			`select "holder" from "provisioning_lease" where "setup_id" = $1`,
			setupId,
		).Scan(&currentHolder); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Lease{}, fmt.Errorf(
					"%w: setup request %s", domain.ErrLeaseHeld, setupId,
				)
			}
			return domain.Lease{}, err
		}
		return domain.Lease{}, domain.NewErrLeaseHeld(setupId, currentHolder)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Lease{}, err
	}
	return lease, nil
}

func (m *pgLease) Release(ctx context.Context, setupId string, holder string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// 0 rows deleted is fine: the lease expired and was taken over,
	// or was never there.
	if _, err := tx.Exec(
		ctx,
		`delete from "provisioning_lease" where "setup_id" = $1 and "holder" = $2`,
		setupId, holder,
	); err != nil {
		return xe.Wrap(err)
	}

	return tx.Commit(ctx)
}
