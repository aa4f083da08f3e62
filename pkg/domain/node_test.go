package domain_test

import (
	"testing"
	"time"

	"github.com/omniphi/orchestrator/pkg/domain"
	"github.com/omniphi/orchestrator/pkg/utils/pointer"
)

func TestAsNodeStatus(t *testing.T) {
	t.Run("it parses every known status", func(t *testing.T) {
		for _, expected := range []domain.NodeStatus{
			domain.Starting, domain.Running, domain.Syncing, domain.Synced,
			domain.Stopped, domain.Errored, domain.Terminated,
		} {
			actual, err := domain.AsNodeStatus(expected.String())
			if err != nil {
				t.Errorf("unexpected error for %s: %v", expected, err)
			}
			if actual != expected {
				t.Errorf("unexpected status: %s (expected: %s)", actual, expected)
			}
		}
	})

	t.Run("it rejects unknown statuses", func(t *testing.T) {
		if _, err := domain.AsNodeStatus("rebooting"); err == nil {
			t.Error("error is expected, but not")
		}
	})
}

func TestNodeStatus_Active(t *testing.T) {
	for status, expected := range map[domain.NodeStatus]bool{
		domain.Starting:   true,
		domain.Running:    true,
		domain.Syncing:    true,
		domain.Synced:     true,
		domain.Stopped:    false,
		domain.Errored:    false,
		domain.Terminated: false,
	} {
		if actual := status.Active(); actual != expected {
			t.Errorf("%s.Active() = %v (expected: %v)", status, actual, expected)
		}
	}
}

func TestNodeStatus_CanTransitTo(t *testing.T) {
	type When struct {
		From domain.NodeStatus
		To   domain.NodeStatus
	}

	allowed := []When{
		{From: domain.Starting, To: domain.Running},
		{From: domain.Starting, To: domain.Errored},
		{From: domain.Starting, To: domain.Stopped},
		{From: domain.Running, To: domain.Syncing},
		{From: domain.Running, To: domain.Stopped},
		{From: domain.Running, To: domain.Errored},
		{From: domain.Syncing, To: domain.Synced},
		{From: domain.Syncing, To: domain.Stopped},
		{From: domain.Synced, To: domain.Syncing},
		{From: domain.Synced, To: domain.Stopped},
		{From: domain.Stopped, To: domain.Terminated},
		{From: domain.Errored, To: domain.Terminated},
	}
	for _, when := range allowed {
		t.Run(string(when.From)+" -> "+string(when.To)+" is allowed", func(t *testing.T) {
			if !when.From.CanTransitTo(when.To) {
				t.Errorf("%s -> %s should be allowed", when.From, when.To)
			}
		})
	}

	forbidden := []When{
		// stopped and error are one-way; redeploys replace the row.
		{From: domain.Stopped, To: domain.Running},
		{From: domain.Stopped, To: domain.Starting},
		{From: domain.Errored, To: domain.Running},
		{From: domain.Errored, To: domain.Starting},
		{From: domain.Terminated, To: domain.Starting},
		{From: domain.Terminated, To: domain.Running},

		{From: domain.Starting, To: domain.Syncing},
		{From: domain.Starting, To: domain.Synced},
		{From: domain.Running, To: domain.Starting},
		{From: domain.Running, To: domain.Synced},
		{From: domain.Syncing, To: domain.Running},
	}
	for _, when := range forbidden {
		t.Run(string(when.From)+" -> "+string(when.To)+" is forbidden", func(t *testing.T) {
			if when.From.CanTransitTo(when.To) {
				t.Errorf("%s -> %s should be forbidden", when.From, when.To)
			}
		})
	}
}

func TestNodeCursor_Equal(t *testing.T) {
	base := domain.NodeCursor{
		Head:   "node-1",
		Status: []domain.NodeStatus{domain.Running, domain.Syncing},
	}

	t.Run("cursors with same head and statuses are equal", func(t *testing.T) {
		other := domain.NodeCursor{
			Head:   "node-1",
			Status: []domain.NodeStatus{domain.Syncing, domain.Running},
		}
		if !base.Equal(other) {
			t.Error("cursors should be equal")
		}
	})

	t.Run("cursors with different head are not equal", func(t *testing.T) {
		other := domain.NodeCursor{
			Head:   "node-2",
			Status: []domain.NodeStatus{domain.Running, domain.Syncing},
		}
		if base.Equal(other) {
			t.Error("cursors should not be equal")
		}
	})

	t.Run("cursors with different statuses are not equal", func(t *testing.T) {
		other := domain.NodeCursor{
			Head:   "node-1",
			Status: []domain.NodeStatus{domain.Running},
		}
		if base.Equal(other) {
			t.Error("cursors should not be equal")
		}
	})
}

func TestNode_Equal(t *testing.T) {
	timestamp := time.Date(2025, 4, 1, 12, 13, 14, 0, time.UTC)

	base := domain.Node{
		NodeId:          "node-1",
		SetupId:         "setup-1",
		Provider:        "docker",
		InstanceId:      "c-1",
		RpcEndpoint:     "http://localhost:26657",
		P2pEndpoint:     "localhost:26656",
		GrpcEndpoint:    "localhost:9090",
		Status:          domain.Running,
		BlockHeight:     pointer.Ref(int64(1200)),
		LastHealthCheck: pointer.Ref(timestamp),
		CreatedAt:       timestamp,
		UpdatedAt:       timestamp,
	}

	t.Run("it equals an identical node", func(t *testing.T) {
		other := base
		other.BlockHeight = pointer.Ref(int64(1200))
		other.LastHealthCheck = pointer.Ref(timestamp.In(time.FixedZone("JST", 9*60*60)))
		if !base.Equal(other) {
			t.Error("nodes should be equal")
		}
	})

	t.Run("it does not equal a node with different block height", func(t *testing.T) {
		other := base
		other.BlockHeight = pointer.Ref(int64(1201))
		if base.Equal(other) {
			t.Error("nodes should not be equal")
		}
	})

	t.Run("nil and non-nil health check timestamps differ", func(t *testing.T) {
		other := base
		other.LastHealthCheck = nil
		if base.Equal(other) {
			t.Error("nodes should not be equal")
		}
	})
}
