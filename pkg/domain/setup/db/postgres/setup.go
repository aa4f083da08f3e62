package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	kpool "github.com/omniphi/orchestrator/pkg/conn/db/postgres/pool"
	kpgerr "github.com/omniphi/orchestrator/pkg/db/postgres/errors"
	"github.com/omniphi/orchestrator/pkg/domain"
	kdbsetup "github.com/omniphi/orchestrator/pkg/domain/setup/db"
	xe "github.com/omniphi/orchestrator/pkg/errors"
	"github.com/omniphi/orchestrator/pkg/utils"
)

// a struct for DB operations related to SetupRequest
type pgSetup struct { // implements kdbsetup.SetupInterface
	pool kpool.Pool

	// generator of new setup ids
	newId func() string
}

type Option func(*pgSetup) *pgSetup

func WithNewId(newId func() string) Option {
	return func(s *pgSetup) *pgSetup {
		s.newId = newId
		return s
	}
}

func New(pool kpool.Pool, options ...Option) *pgSetup {
	s := &pgSetup{
		pool:  pool,
		newId: uuid.NewString,
	}
	for _, o := range options {
		s = o(s)
	}
	return s
}

var _ kdbsetup.SetupInterface = &pgSetup{}

// sql.Scanner for domain.SetupStatus
type setupStatus domain.SetupStatus

func (ss *setupStatus) Scan(v any) error {
	var s string
	switch vv := v.(type) {
	case string:
		s = vv
	case []byte:
		s = string(vv)
	default:
		return fmt.Errorf("parse error for SetupStatus: %#v", v)
	}

	parsed, err := domain.AsSetupStatus(s)
	if err != nil {
		return err
	}
	*ss = setupStatus(parsed)
	return nil
}

// sql.Scanner for domain.RunMode
type runMode domain.RunMode

func (rm *runMode) Scan(v any) error {
	var s string
	switch vv := v.(type) {
	case string:
		s = vv
	case []byte:
		s = string(vv)
	default:
		return fmt.Errorf("parse error for RunMode: %#v", v)
	}

	parsed, err := domain.AsRunMode(s)
	if err != nil {
		return err
	}
	*rm = runMode(parsed)
	return nil
}

func (m *pgSetup) Register(ctx context.Context, spec domain.SetupRequestSpec) (domain.SetupRequest, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.SetupRequest{}, err
	}
	defer tx.Rollback(ctx)

	req := domain.SetupRequest{
		SetupId:        m.newId(),
		WalletAddress:  spec.WalletAddress,
		DisplayName:    spec.DisplayName,
		CommissionRate: spec.CommissionRate,
		RunMode:        spec.RunMode,
		Provider:       spec.Provider,
		Status:         domain.Pending,
	}

	if err := tx.QueryRow(
		ctx,
		`
		insert into "setup_request" (
			"setup_id", "wallet_address", "display_name",
			"commission_rate", "run_mode", "provider", "status"
		)
		values ($1, $2, $3, $4, $5::runMode, $6, 'pending'::setupStatus)
		returning "created_at", "updated_at"
		`,
		req.SetupId, req.WalletAddress, req.DisplayName,
		req.CommissionRate, req.RunMode.String(), req.Provider,
	).Scan(&req.CreatedAt, &req.UpdatedAt); err != nil {
		return domain.SetupRequest{}, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.SetupRequest{}, err
	}

	return req, nil
}

func (m *pgSetup) Get(ctx context.Context, setupIds []string) (map[string]domain.SetupRequest, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return getSetups(ctx, conn, setupIds)
}

func getSetups(ctx context.Context, conn kpool.Queryer, setupIds []string) (map[string]domain.SetupRequest, error) {
	if len(setupIds) == 0 {
		return map[string]domain.SetupRequest{}, nil
	}

	rows, err := conn.Query(
		ctx,
		`
		select
			"setup_id", "wallet_address", "display_name",
			"commission_rate", "run_mode", "provider",
			"consensus_pubkey", "error_message", "status",
			"created_at", "updated_at", "completed_at"
		from "setup_request"
		where "setup_id" = any($1::varchar[])
		`,
		setupIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]domain.SetupRequest{}
	for rows.Next() {
		var req domain.SetupRequest
		if err := rows.Scan(
			&req.SetupId, &req.WalletAddress, &req.DisplayName,
			&req.CommissionRate, (*runMode)(&req.RunMode), &req.Provider,
			&req.ConsensusPubkey, &req.ErrorMessage, (*setupStatus)(&req.Status),
			&req.CreatedAt, &req.UpdatedAt, &req.CompletedAt,
		); err != nil {
			return nil, err
		}
		result[req.SetupId] = req
	}

	return result, nil
}

func (m *pgSetup) Find(ctx context.Context, query domain.SetupFindQuery) ([]string, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	var mode *string
	if query.RunMode != nil {
		s := query.RunMode.String()
		mode = &s
	}

	rows, err := conn.Query(
		ctx,
		`
		select "setup_id" from "setup_request"
		where
			(cardinality($1::setupStatus[]) = 0 or "status" = any($1::setupStatus[]))
			and ($2::runMode is null or "run_mode" = $2::runMode)
			and ($3::varchar is null or "provider" = $3)
			and ($4::varchar is null or "wallet_address" = $4)
		order by "created_at", "setup_id"
		`,
		utils.Map(query.Status, domain.SetupStatus.String),
		mode, query.Provider, query.WalletAddress,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	setupIds := []string{}
	for rows.Next() {
		var setupId string
		if err := rows.Scan(&setupId); err != nil {
			return nil, err
		}
		setupIds = append(setupIds, setupId)
	}

	return setupIds, nil
}

// lock the setup request row and return its current status.
func lockSetup(ctx context.Context, tx kpool.Tx, setupId string) (domain.SetupStatus, error) {
	var current setupStatus
	if err := tx.QueryRow(
		ctx,
		`select "status" from "setup_request" where "setup_id" = $1 for update`,
		setupId,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", kpgerr.Missing{
				Table:    "setup_request",
				Identity: fmt.Sprintf("setup_id='%s'", setupId),
			}
		}
		return "", err
	}
	return domain.SetupStatus(current), nil
}

func (m *pgSetup) SetStatus(ctx context.Context, setupId string, newStatus domain.SetupStatus) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	current, err := lockSetup(ctx, tx, setupId)
	if err != nil {
		return err
	}
	if !current.CanTransitTo(newStatus) {
		return domain.NewErrInvalidSetupStateChanging(current, newStatus)
	}

	switch newStatus {
	case domain.Provisioning:
		// a fresh run starts; leftovers of past runs are wiped.
		_, err = tx.Exec(
			ctx,
			`
			update "setup_request" set
				"status" = $1::setupStatus,
				"consensus_pubkey" = '',
				"error_message" = '',
				"completed_at" = null,
				"updated_at" = now()
			where "setup_id" = $2
			`,
			newStatus.String(), setupId,
		)
	case domain.Ready:
		_, err = tx.Exec(
			ctx,
			`
			update "setup_request" set
				"status" = $1::setupStatus,
				"completed_at" = now(),
				"updated_at" = now()
			where "setup_id" = $2
			`,
			newStatus.String(), setupId,
		)
	default:
		_, err = tx.Exec(
			ctx,
			`
			update "setup_request" set
				"status" = $1::setupStatus,
				"updated_at" = now()
			where "setup_id" = $2
			`,
			newStatus.String(), setupId,
		)
	}
	if err != nil {
		return xe.Wrap(err)
	}

	return tx.Commit(ctx)
}

func (m *pgSetup) Configure(ctx context.Context, setupId string, consensusPubkey string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	current, err := lockSetup(ctx, tx, setupId)
	if err != nil {
		return err
	}
	if !current.CanTransitTo(domain.Configuring) {
		return domain.NewErrInvalidSetupStateChanging(current, domain.Configuring)
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "setup_request" set
			"status" = 'configuring'::setupStatus,
			"consensus_pubkey" = $1,
			"updated_at" = now()
		where "setup_id" = $2
		`,
		consensusPubkey, setupId,
	); err != nil {
		return xe.Wrap(err)
	}

	return tx.Commit(ctx)
}

func (m *pgSetup) Fail(ctx context.Context, setupId string, message string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	current, err := lockSetup(ctx, tx, setupId)
	if err != nil {
		return err
	}
	if !current.CanTransitTo(domain.Failed) {
		return domain.NewErrInvalidSetupStateChanging(current, domain.Failed)
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "setup_request" set
			"status" = 'failed'::setupStatus,
			"error_message" = $1,
			"updated_at" = now()
		where "setup_id" = $2
		`,
		message, setupId,
	); err != nil {
		return xe.Wrap(err)
	}

	return tx.Commit(ctx)
}
