package orders

import (
	"github.com/omniphi/orchestrator/pkg/api/types/misc/rfctime"
	"github.com/omniphi/orchestrator/pkg/api/types/orders"
	"github.com/omniphi/orchestrator/pkg/domain"
)

func ComposeDetail(o domain.ProvisionOrder) orders.Detail {
	status := orders.StatusQueued
	if o.StartedAt != nil {
		status = orders.StatusStarted
	}
	if o.FinishedAt != nil {
		status = orders.StatusFinished
	}

	return orders.Detail{
		CorrelationId: o.CorrelationId,
		SetupId:       o.SetupId,
		Redeploy:      o.Redeploy,
		Status:        status,
		QueuedAt:      rfctime.RFC3339(o.QueuedAt),
		StartedAt:     rfctime.Pointer(o.StartedAt),
		FinishedAt:    rfctime.Pointer(o.FinishedAt),
		Error:         o.ErrorMessage,
	}
}
