package nodes

import (
	"encoding/json"

	"github.com/omniphi/orchestrator/pkg/api/types/misc/rfctime"
	"github.com/omniphi/orchestrator/pkg/utils/cmp"
	"k8s.io/apimachinery/pkg/api/resource"
)

type Summary struct {
	NodeId    string          `json:"nodeId"`
	SetupId   string          `json:"setupId"`
	Status    string          `json:"status"`
	UpdatedAt rfctime.RFC3339 `json:"updatedAt"`
}

func (s Summary) Equal(o Summary) bool {
	return s.NodeId == o.NodeId &&
		s.SetupId == o.SetupId &&
		s.Status == o.Status &&
		s.UpdatedAt.Equal(o.UpdatedAt)
}

type Endpoints struct {
	Rpc  string `json:"rpc,omitempty"`
	P2p  string `json:"p2p,omitempty"`
	Grpc string `json:"grpc,omitempty"`
}

func (e Endpoints) Equal(o Endpoints) bool {
	return e == o
}

// Resources is the instance sizing, keyed by "cpu", "memory", "disk".
type Resources map[string]resource.Quantity

func (r Resources) Equal(o Resources) bool {
	return cmp.MapEqWith(r, o, resource.Quantity.Equal)
}

func (r Resources) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]resource.Quantity(r))
}

func (r *Resources) UnmarshalJSON(b []byte) error {
	var m map[string]resource.Quantity
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*r = Resources(m)
	return nil
}

type Detail struct {
	Summary
	Provider   string    `json:"provider"`
	InstanceId string    `json:"instanceId"`
	Endpoints  Endpoints `json:"endpoints"`

	// chain height last observed over the validator RPC.
	BlockHeight *int64 `json:"blockHeight,omitempty"`

	LastHealthCheck *rfctime.RFC3339 `json:"lastHealthCheck,omitempty"`

	Resources Resources       `json:"resources,omitempty"`
	CreatedAt rfctime.RFC3339 `json:"createdAt"`
}

func (d Detail) Equal(o Detail) bool {

	heightEq := (d.BlockHeight == nil && o.BlockHeight == nil) ||
		(d.BlockHeight != nil && o.BlockHeight != nil && *d.BlockHeight == *o.BlockHeight)

	checkedEq := (d.LastHealthCheck == nil && o.LastHealthCheck == nil) ||
		(d.LastHealthCheck != nil && o.LastHealthCheck != nil && d.LastHealthCheck.Equal(*o.LastHealthCheck))

	return d.Summary.Equal(o.Summary) &&
		d.Provider == o.Provider &&
		d.InstanceId == o.InstanceId &&
		d.Endpoints.Equal(o.Endpoints) &&
		heightEq &&
		checkedEq &&
		d.Resources.Equal(o.Resources) &&
		d.CreatedAt.Equal(o.CreatedAt)
}
