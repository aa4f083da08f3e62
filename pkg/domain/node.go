package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/omniphi/orchestrator/pkg/utils/cmp"
	"k8s.io/apimachinery/pkg/api/resource"
)

type NodeStatus string

const (
	// The instance was created and the validator process is coming up.
	Starting NodeStatus = "starting"

	// The validator process is up, as last observed.
	Running NodeStatus = "running"

	// The validator is catching up with the chain.
	Syncing NodeStatus = "syncing"

	// The validator has caught up with the chain head.
	Synced NodeStatus = "synced"

	// The underlying instance was observed not running.
	// Nodes never leave this status by themselves; recovery is a redeploy.
	Stopped NodeStatus = "stopped"

	// The provisioning run for this Node gave up.
	// Nodes never leave this status by themselves; recovery is a redeploy.
	Errored NodeStatus = "error"

	// The instance was torn down on purpose.
	Terminated NodeStatus = "terminated"
)

func (ns NodeStatus) String() string {
	return string(ns)
}

func AsNodeStatus(status string) (NodeStatus, error) {
	switch status {
	case string(Starting):
		return Starting, nil
	case string(Running):
		return Running, nil
	case string(Syncing):
		return Syncing, nil
	case string(Synced):
		return Synced, nil
	case string(Stopped):
		return Stopped, nil
	case string(Errored):
		return Errored, nil
	case string(Terminated):
		return Terminated, nil
	default:
		return "", fmt.Errorf("'%s' is not NodeStatus", status)
	}
}

// Active = the validator process is supposed to be alive.
func (ns NodeStatus) Active() bool {
	switch ns {
	case Starting, Running, Syncing, Synced:
		return true
	default:
		return false
	}
}

// CanTransitTo answers whether a Node in this status may be moved to next.
//
// Stopped and Errored are one-way: the health loop never escalates a Node
// out of them, and redeploys replace the row instead of reviving it.
func (ns NodeStatus) CanTransitTo(next NodeStatus) bool {
	switch ns {
	case Starting:
		switch next {
		case Running, Errored, Stopped, Terminated:
			return true
		}
	case Running:
		switch next {
		case Syncing, Stopped, Errored, Terminated:
			return true
		}
	case Syncing:
		switch next {
		case Synced, Stopped, Errored, Terminated:
			return true
		}
	case Synced:
		switch next {
		case Syncing, Stopped, Errored, Terminated:
			return true
		}
	case Stopped, Errored:
		return next == Terminated
	case Terminated:
		return false
	}
	return false
}

// parameters to register a Node once its instance exists.
type NodeSpec struct {
	SetupId      string
	Provider     string
	InstanceId   string
	RpcEndpoint  string
	P2pEndpoint  string
	GrpcEndpoint string

	// informational sizing of the instance, keyed by "cpu", "memory", "disk".
	Resources map[string]resource.Quantity
}

func (ns NodeSpec) Equal(other NodeSpec) bool {
	return ns.SetupId == other.SetupId &&
		ns.Provider == other.Provider &&
		ns.InstanceId == other.InstanceId &&
		ns.RpcEndpoint == other.RpcEndpoint &&
		ns.P2pEndpoint == other.P2pEndpoint &&
		ns.GrpcEndpoint == other.GrpcEndpoint &&
		cmp.MapEqWith(ns.Resources, other.Resources, resource.Quantity.Equal)
}

type Node struct {
	NodeId  string
	SetupId string

	// tag of the runtime adapter hosting this Node.
	Provider string

	// identifier of the instance inside the runtime:
	// container id (docker), pod name (kubernetes), server id (hetzner).
	InstanceId string

	// endpoints are empty strings until assigned.
	RpcEndpoint  string
	P2pEndpoint  string
	GrpcEndpoint string

	Status NodeStatus

	// chain height last observed over the validator RPC, if ever.
	BlockHeight *int64

	// timestamp of the last reconciliation sweep which inspected this Node.
	LastHealthCheck *time.Time

	// informational sizing of the instance, keyed by "cpu", "memory", "disk".
	Resources map[string]resource.Quantity

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (n Node) Equal(other Node) bool {
	return n.NodeId == other.NodeId &&
		n.SetupId == other.SetupId &&
		n.Provider == other.Provider &&
		n.InstanceId == other.InstanceId &&
		n.RpcEndpoint == other.RpcEndpoint &&
		n.P2pEndpoint == other.P2pEndpoint &&
		n.GrpcEndpoint == other.GrpcEndpoint &&
		n.Status == other.Status &&
		cmp.PEqEq(n.BlockHeight, other.BlockHeight) &&
		cmp.PEqualWith(n.LastHealthCheck, other.LastHealthCheck, time.Time.Equal) &&
		cmp.MapEqWith(n.Resources, other.Resources, resource.Quantity.Equal) &&
		n.CreatedAt.Equal(other.CreatedAt) &&
		n.UpdatedAt.Equal(other.UpdatedAt)
}

// outcome of inspecting one Node during a reconciliation sweep.
type HealthObservation struct {
	// status the Node should be in. Equal to the current status = refresh only.
	Status NodeStatus

	// chain height read over the validator RPC. nil when unknown.
	BlockHeight *int64
}

func (ho HealthObservation) Equal(other HealthObservation) bool {
	return ho.Status == other.Status &&
		cmp.PEqEq(ho.BlockHeight, other.BlockHeight)
}

type NodeCursor struct {
	// Id of the node which was picked last time.
	Head string

	// minimum age of LastHealthCheck for a node to be picked again.
	Debounce time.Duration

	// statuses of nodes to be picked.
	Status []NodeStatus
}

func (nc NodeCursor) Equal(other NodeCursor) bool {
	return nc.Head == other.Head &&
		cmp.SliceContentEq(nc.Status, other.Status)
}

// parameter to query Nodes
//
// When all dimensions match a Node, this query matches it.
type NodeFindQuery struct {
	// match if the status is one of these.
	//
	// If it is nil or empty, it means "match any".
	Status []NodeStatus

	// match if the node backs this SetupRequest. nil means "match any".
	SetupId *string
}

func (q NodeFindQuery) Equal(other NodeFindQuery) bool {
	return cmp.SliceContentEq(q.Status, other.Status) &&
		cmp.PEqEq(q.SetupId, other.SetupId)
}

var ErrInvalidNodeStateChanging = errors.New("cannot change node state")

func NewErrInvalidNodeStateChanging(from, to NodeStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidNodeStateChanging, from, to)
}
