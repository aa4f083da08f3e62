package setups

import (
	"github.com/omniphi/orchestrator/pkg/api/types/misc/rfctime"
	"github.com/omniphi/orchestrator/pkg/api/types/setups"
	"github.com/omniphi/orchestrator/pkg/domain"
)

func ComposeSummary(s domain.SetupRequest) setups.Summary {
	return setups.Summary{
		SetupId:   s.SetupId,
		Status:    string(s.Status),
		UpdatedAt: rfctime.RFC3339(s.UpdatedAt),
	}
}

func ComposeDetail(s domain.SetupRequest) setups.Detail {
	return setups.Detail{
		Summary:         ComposeSummary(s),
		WalletAddress:   s.WalletAddress,
		DisplayName:     s.DisplayName,
		CommissionRate:  s.CommissionRate,
		RunMode:         string(s.RunMode),
		Provider:        s.Provider,
		ConsensusPubkey: s.ConsensusPubkey,
		Error:           s.ErrorMessage,
		CreatedAt:       rfctime.RFC3339(s.CreatedAt),
		CompletedAt:     rfctime.Pointer(s.CompletedAt),
	}
}
