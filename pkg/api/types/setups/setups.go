package setups

import (
	"github.com/omniphi/orchestrator/pkg/api/types/misc/rfctime"
)

// SetupSpec is the payload registering a new SetupRequest.
type SetupSpec struct {
	WalletAddress  string  `json:"walletAddress"`
	DisplayName    string  `json:"displayName"`
	CommissionRate float64 `json:"commissionRate"`
	RunMode        string  `json:"runMode"`
	Provider       string  `json:"provider"`
}

func (s SetupSpec) Equal(o SetupSpec) bool {
	return s.WalletAddress == o.WalletAddress &&
		s.DisplayName == o.DisplayName &&
		s.CommissionRate == o.CommissionRate &&
		s.RunMode == o.RunMode &&
		s.Provider == o.Provider
}

// ProvisionRequest is the payload of POST /api/setups/{setupId}/provision/.
type ProvisionRequest struct {
	// tear the current validator instance down before creating a new one.
	Redeploy bool `json:"redeploy"`
}

func (p ProvisionRequest) Equal(o ProvisionRequest) bool {
	return p.Redeploy == o.Redeploy
}

type Summary struct {
	SetupId   string          `json:"setupId"`
	Status    string          `json:"status"`
	UpdatedAt rfctime.RFC3339 `json:"updatedAt"`
}

func (s Summary) Equal(o Summary) bool {
	return s.SetupId == o.SetupId &&
		s.Status == o.Status &&
		s.UpdatedAt.Equal(o.UpdatedAt)
}

type Detail struct {
	Summary
	WalletAddress  string  `json:"walletAddress"`
	DisplayName    string  `json:"displayName"`
	CommissionRate float64 `json:"commissionRate"`
	RunMode        string  `json:"runMode"`
	Provider       string  `json:"provider"`

	// base64 consensus public key. Empty until an instance exists.
	ConsensusPubkey string `json:"consensusPubkey,omitempty"`

	// why the last provisioning run failed, when Status is "failed".
	Error string `json:"error,omitempty"`

	CreatedAt   rfctime.RFC3339  `json:"createdAt"`
	CompletedAt *rfctime.RFC3339 `json:"completedAt,omitempty"`
}

func (d Detail) Equal(o Detail) bool {

	completedEq := (d.CompletedAt == nil && o.CompletedAt == nil) ||
		(d.CompletedAt != nil && o.CompletedAt != nil && d.CompletedAt.Equal(*o.CompletedAt))

	return d.Summary.Equal(o.Summary) &&
		d.WalletAddress == o.WalletAddress &&
		d.DisplayName == o.DisplayName &&
		d.CommissionRate == o.CommissionRate &&
		d.RunMode == o.RunMode &&
		d.Provider == o.Provider &&
		d.ConsensusPubkey == o.ConsensusPubkey &&
		d.Error == o.Error &&
		d.CreatedAt.Equal(o.CreatedAt) &&
		completedEq
}
