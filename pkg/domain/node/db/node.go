package db

import (
	"context"

	"github.com/omniphi/orchestrator/pkg/domain"
)

type NodeInterface interface {
	// register a Node for an instance which has just been created.
	//
	// The new Node starts in Starting status.
	//
	// Args
	//
	// - context.Context
	//
	// - domain.NodeSpec: instance the new Node stands for.
	//
	// Returns
	//
	// - domain.Node: the registered Node, with its new node id.
	//
	// - error
	Register(ctx context.Context, spec domain.NodeSpec) (domain.Node, error)

	// retrieve Nodes.
	//
	// Args
	//
	// - context.Context
	//
	// - []string: node ids
	//
	// Returns
	//
	// - map[string]domain.Node: mapping node id -> Node.
	// Ids which are not found are just omitted from the map.
	//
	// - error
	Get(ctx context.Context, nodeIds []string) (map[string]domain.Node, error)

	// find Nodes matching the query.
	//
	// When some conditions in the query are empty,
	// such conditions do not narrow the result.
	//
	// Returns
	//
	// - []string: found node ids, ordered by creation time.
	//
	// - error
	Find(ctx context.Context, query domain.NodeFindQuery) ([]string, error)

	// update the status of a Node.
	//
	// Returns
	//
	// - error: domain.ErrInvalidNodeStateChanging (when newStatus is not
	// a permitted move from the current status),
	// domain.ErrMissing (when no Node is found for nodeId)
	SetStatus(ctx context.Context, nodeId string, newStatus domain.NodeStatus) error

	// delete a Node record.
	//
	// The instance behind it is not touched; tearing that down is
	// the caller's business.
	//
	// Returns
	//
	// - error: domain.ErrMissing (when no Node is found for nodeId)
	Delete(ctx context.Context, nodeId string) error

	// pick the next Node after the cursor and reconcile its status with
	// the result of observe().
	//
	// A Node is eligible when all of these hold:
	//
	// - its status is one of cursor.Status,
	//
	// - its last health check is unset or older than cursor.Debounce and
	//
	// - its SetupRequest is not under an unexpired provisioning lease.
	//
	// Whatever observe() comes to, the picked Node's "last health check"
	// timestamp is refreshed, so one sweep visits each Node at most once.
	//
	// When observe() returns an observation, its status is stored
	// (if it is a permitted move; impermissible moves are reported as
	// domain.ErrInvalidNodeStateChanging and leave the status as it is)
	// and its block height is stored when known.
	//
	// When observe() returns an error, the Node keeps its status and
	// the error is returned as-is for the caller to log.
	//
	// Args
	//
	// - context.Context
	//
	// - cursor: where the last pick left off.
	//
	// - observe: inspection of the picked Node.
	//
	// Returns
	//
	// - domain.NodeCursor: cursor pointing at the picked Node.
	// If no Node is eligible, the cursor is returned as it was passed.
	//
	// - bool: true when a Node was picked.
	//
	// - error
	PickAndObserve(
		ctx context.Context,
		cursor domain.NodeCursor,
		observe func(domain.Node) (domain.HealthObservation, error),
	) (domain.NodeCursor, bool, error)
}
