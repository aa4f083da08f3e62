package nodes

import (
	"github.com/omniphi/orchestrator/pkg/api/types/misc/rfctime"
	"github.com/omniphi/orchestrator/pkg/api/types/nodes"
	"github.com/omniphi/orchestrator/pkg/domain"
)

func ComposeSummary(n domain.Node) nodes.Summary {
	return nodes.Summary{
		NodeId:    n.NodeId,
		SetupId:   n.SetupId,
		Status:    string(n.Status),
		UpdatedAt: rfctime.RFC3339(n.UpdatedAt),
	}
}

func ComposeDetail(n domain.Node) nodes.Detail {
	return nodes.Detail{
		Summary:    ComposeSummary(n),
		Provider:   n.Provider,
		InstanceId: n.InstanceId,
		Endpoints: nodes.Endpoints{
			Rpc:  n.RpcEndpoint,
			P2p:  n.P2pEndpoint,
			Grpc: n.GrpcEndpoint,
		},
		BlockHeight:     n.BlockHeight,
		LastHealthCheck: rfctime.Pointer(n.LastHealthCheck),
		Resources:       nodes.Resources(n.Resources),
		CreatedAt:       rfctime.RFC3339(n.CreatedAt),
	}
}
