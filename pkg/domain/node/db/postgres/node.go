package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	kpool "github.com/omniphi/orchestrator/pkg/conn/db/postgres/pool"
	kpgerr "github.com/omniphi/orchestrator/pkg/db/postgres/errors"
	"github.com/omniphi/orchestrator/pkg/db/postgres/marshal"
	"github.com/omniphi/orchestrator/pkg/domain"
	kdbnode "github.com/omniphi/orchestrator/pkg/domain/node/db"
	xe "github.com/omniphi/orchestrator/pkg/errors"
	"github.com/omniphi/orchestrator/pkg/utils"
	"k8s.io/apimachinery/pkg/api/resource"
)

// a struct for DB operations related to Node
type pgNode struct { // implements kdbnode.NodeInterface
	pool kpool.Pool

	// generator of new node ids
	newId func() string
}

type Option func(*pgNode) *pgNode

func WithNewId(newId func() string) Option {
	return func(n *pgNode) *pgNode {
		n.newId = newId
		return n
	}
}

func New(pool kpool.Pool, options ...Option) *pgNode {
	n := &pgNode{
		pool:  pool,
		newId: uuid.NewString,
	}
	for _, o := range options {
		n = o(n)
	}
	return n
}

var _ kdbnode.NodeInterface = &pgNode{}

// sql.Scanner for domain.NodeStatus
type nodeStatus domain.NodeStatus

func (ns *nodeStatus) Scan(v any) error {
	var s string
	switch vv := v.(type) {
	case string:
		s = vv
	case []byte:
		s = string(vv)
	default:
		return fmt.Errorf("parse error for NodeStatus: %#v", v)
	}

	parsed, err := domain.AsNodeStatus(s)
	if err != nil {
		return err
	}
	*ns = nodeStatus(parsed)
	return nil
}

func (m *pgNode) Register(ctx context.Context, spec domain.NodeSpec) (domain.Node, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.Node{}, err
	}
	defer tx.Rollback(ctx)

	node := domain.Node{
		NodeId:       m.newId(),
		SetupId:      spec.SetupId,
		Provider:     spec.Provider,
		InstanceId:   spec.InstanceId,
		RpcEndpoint:  spec.RpcEndpoint,
		P2pEndpoint:  spec.P2pEndpoint,
		GrpcEndpoint: spec.GrpcEndpoint,
		Status:       domain.Starting,
		Resources:    spec.Resources,
	}

	if err := tx.QueryRow(
		ctx,
		`
		insert into "node" (
			"node_id", "setup_id", "provider", "instance_id",
			"rpc_endpoint", "p2p_endpoint", "grpc_endpoint", "status"
		)
		values ($1, $2, $3, $4, $5, $6, $7, 'starting'::nodeStatus)
		returning "created_at", "updated_at"
		`,
		node.NodeId, node.SetupId, node.Provider, node.InstanceId,
		node.RpcEndpoint, node.P2pEndpoint, node.GrpcEndpoint,
	).Scan(&node.CreatedAt, &node.UpdatedAt); err != nil {
		return domain.Node{}, xe.Wrap(err)
	}

	for typ, quantity := range spec.Resources {
		if _, err := tx.Exec(
			ctx,
			`
			insert into "node_resource" ("node_id", "type", "value")
			values ($1, $2, $3)
			`,
			node.NodeId, typ, marshal.ResourceQuantity(quantity),
		); err != nil {
			return domain.Node{}, xe.Wrap(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Node{}, err
	}

	return node, nil
}

func (m *pgNode) Get(ctx context.Context, nodeIds []string) (map[string]domain.Node, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return getNodes(ctx, conn, nodeIds)
}

func getNodes(ctx context.Context, conn kpool.Queryer, nodeIds []string) (map[string]domain.Node, error) {
	if len(nodeIds) == 0 {
		return map[string]domain.Node{}, nil
	}

	result := map[string]domain.Node{}
	{
		rows, err := conn.Query(
			ctx,
			`
			select
				"node_id", "setup_id", "provider", "instance_id",
				"rpc_endpoint", "p2p_endpoint", "grpc_endpoint",
				"status", "block_height", "last_health_check",
				"created_at", "updated_at"
			from "node"
			where "node_id" = any($1::varchar[])
			`,
			nodeIds,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var node domain.Node
			if err := rows.Scan(
				&node.NodeId, &node.SetupId, &node.Provider, &node.InstanceId,
				&node.RpcEndpoint, &node.P2pEndpoint, &node.GrpcEndpoint,
				(*nodeStatus)(&node.Status), &node.BlockHeight, &node.LastHealthCheck,
				&node.CreatedAt, &node.UpdatedAt,
			); err != nil {
				return nil, err
			}
			result[node.NodeId] = node
		}
	}

	if len(result) == 0 {
		return result, nil
	}

	{
		rows, err := conn.Query(
			ctx,
			`
			select "node_id", "type", "value" from "node_resource"
			where "node_id" = any($1::varchar[])
			`,
			utils.KeysOf(result),
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var nodeId, typ string
			var value marshal.ResourceQuantity
			if err := rows.Scan(&nodeId, &typ, &value); err != nil {
				return nil, err
			}
			node := result[nodeId]
			if node.Resources == nil {
				node.Resources = map[string]resource.Quantity{}
			}
			node.Resources[typ] = resource.Quantity(value)
			result[nodeId] = node
		}
	}

	return result, nil
}

func (m *pgNode) Find(ctx context.Context, query domain.NodeFindQuery) ([]string, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "node_id" from "node"
		where
			(cardinality($1::nodeStatus[]) = 0 or "status" = any($1::nodeStatus[]))
			and ($2::varchar is null or "setup_id" = $2)
		order by "created_at", "node_id"
		`,
		utils.Map(query.Status, domain.NodeStatus.String),
		query.SetupId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodeIds := []string{}
	for rows.Next() {
		var nodeId string
		if err := rows.Scan(&nodeId); err != nil {
			return nil, err
		}
		nodeIds = append(nodeIds, nodeId)
	}

	return nodeIds, nil
}

func (m *pgNode) SetStatus(ctx context.Context, nodeId string, newStatus domain.NodeStatus) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var current nodeStatus
	if err := tx.QueryRow(
		ctx,
		`select "status" from "node" where "node_id" = $1 for update`,
		nodeId,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return kpgerr.Missing{
				Table:    "node",
				Identity: fmt.Sprintf("node_id='%s'", nodeId),
			}
		}
		return err
	}

	if !domain.NodeStatus(current).CanTransitTo(newStatus) {
		return domain.NewErrInvalidNodeStateChanging(domain.NodeStatus(current), newStatus)
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "node" set
			"status" = $1::nodeStatus,
			"updated_at" = now()
		where "node_id" = $2
		`,
		newStatus.String(), nodeId,
	); err != nil {
		return xe.Wrap(err)
	}

	return tx.Commit(ctx)
}

func (m *pgNode) Delete(ctx context.Context, nodeId string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(
		ctx, `delete from "node" where "node_id" = $1`, nodeId,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return kpgerr.Missing{
			Table:    "node",
			Identity: fmt.Sprintf("node_id='%s'", nodeId),
		}
	}

	return tx.Commit(ctx)
}

// select the node which satisfies the cursor, and reconcile it.
func (m *pgNode) PickAndObserve(
	ctx context.Context,
	cursor domain.NodeCursor,
	observe func(domain.Node) (domain.HealthObservation, error),
) (domain.NodeCursor, bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return cursor, false, err
	}
	defer tx.Rollback(ctx)

	var node domain.Node
	{
		var nodeId string
		if err := tx.QueryRow(
			ctx,
			`
			with
			"candidate" as (
				select "node_id" from "node"
				where
					"status" = any($1::nodeStatus[])
					and (
						"last_health_check" is null
						or "last_health_check" + $2 <= now()
					)
					and not exists (
						select 1 from "provisioning_lease"
						where
							"provisioning_lease"."setup_id" = "node"."setup_id"
							and now() < "provisioning_lease"."expires_at"
					)
			),
			"target" as (
				select "node_id" from "node"
				where "node_id" in (table "candidate")
				order by "node_id" <= $3, "node_id"
				limit 1
				for no key update skip locked
			)
			select "node_id" from "target"
			`,
			utils.Map(cursor.Status, domain.NodeStatus.String),
			cursor.Debounce,
			cursor.Head,
		).Scan(&nodeId); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return cursor, false, nil
			}
			return cursor, false, err
		}

		nodes, err := getNodes(ctx, tx, []string{nodeId})
		if err != nil {
			return cursor, false, err
		}
		node = nodes[nodeId]

		// cursor is moved!
		cursor = domain.NodeCursor{
			Head:     nodeId,
			Debounce: cursor.Debounce,
			Status:   cursor.Status,
		}
	}

	obs, obsErr := observe(node)
	if obsErr != nil {
		// the health check timestamp moves even now, so that one sweep
		// visits a node with a flaky runtime at most once.
		if _, err := tx.Exec(
			ctx,
			`
			update "node" set "last_health_check" = now()
			where "node_id" = $1
			`,
			node.NodeId,
		); err != nil {
			return cursor, true, err
		}
		if err := tx.Commit(ctx); err != nil {
			return cursor, true, err
		}
		return cursor, true, obsErr
	}

	newStatus := obs.Status
	var invalid error
	if newStatus != node.Status && !node.Status.CanTransitTo(newStatus) {
		invalid = domain.NewErrInvalidNodeStateChanging(node.Status, newStatus)
		newStatus = node.Status
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "node" set
			"status" = $1::nodeStatus,
			"block_height" = coalesce($2::bigint, "block_height"),
			"last_health_check" = now(),
			"updated_at" = now()
		where "node_id" = $3
		`,
		newStatus.String(), obs.BlockHeight, node.NodeId,
	); err != nil {
		return cursor, true, err
	}

	if err := tx.Commit(ctx); err != nil {
		return cursor, true, err
	}
	return cursor, true, invalid
}
