package orders

import (
	"github.com/omniphi/orchestrator/pkg/api/types/misc/rfctime"
)

// progress tags shown to API consumers. Derived, not stored.
const (
	StatusQueued   = "queued"
	StatusStarted  = "started"
	StatusFinished = "finished"
)

type Detail struct {
	CorrelationId string `json:"correlationId"`
	SetupId       string `json:"setupId"`
	Redeploy      bool   `json:"redeploy"`

	// queued | started | finished
	Status string `json:"status"`

	QueuedAt   rfctime.RFC3339  `json:"queuedAt"`
	StartedAt  *rfctime.RFC3339 `json:"startedAt,omitempty"`
	FinishedAt *rfctime.RFC3339 `json:"finishedAt,omitempty"`

	// why the run finished with failure, if it did.
	Error string `json:"error,omitempty"`
}

func (d Detail) Equal(o Detail) bool {

	startedEq := (d.StartedAt == nil && o.StartedAt == nil) ||
		(d.StartedAt != nil && o.StartedAt != nil && d.StartedAt.Equal(*o.StartedAt))

	finishedEq := (d.FinishedAt == nil && o.FinishedAt == nil) ||
		(d.FinishedAt != nil && o.FinishedAt != nil && d.FinishedAt.Equal(*o.FinishedAt))

	return d.CorrelationId == o.CorrelationId &&
		d.SetupId == o.SetupId &&
		d.Redeploy == o.Redeploy &&
		d.Status == o.Status &&
		d.QueuedAt.Equal(o.QueuedAt) &&
		startedEq &&
		finishedEq &&
		d.Error == o.Error
}
