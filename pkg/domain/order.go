package domain

import (
	"time"

	"github.com/omniphi/orchestrator/pkg/utils/cmp"
)

// ProvisionOrder is one queued invocation of the provisioning workflow.
//
// Orders are the durable form of "provision this SetupRequest, please":
// the REST API enqueues them, the provisioning loop picks them up.
// They stay around after finishing, as the audit trail of who asked what and
// how it went.
type ProvisionOrder struct {
	// CorrelationId identifies this order in logs, webhooks, and the read API.
	CorrelationId string

	SetupId string

	// Redeploy asks for tearing the current Node down before re-creating it.
	Redeploy bool

	QueuedAt time.Time

	// StartedAt is nil while the order waits in the queue.
	StartedAt *time.Time

	// FinishedAt is nil until a provisioning run has processed the order.
	//
	// An order started long ago and never finished means the run crashed;
	// such orders are left as they are (retries are operator redeploys).
	FinishedAt *time.Time

	// message of the error which finished the run, if any.
	ErrorMessage string
}

func (po ProvisionOrder) Equal(other ProvisionOrder) bool {
	return po.CorrelationId == other.CorrelationId &&
		po.SetupId == other.SetupId &&
		po.Redeploy == other.Redeploy &&
		po.QueuedAt.Equal(other.QueuedAt) &&
		cmp.PEqualWith(po.StartedAt, other.StartedAt, time.Time.Equal) &&
		cmp.PEqualWith(po.FinishedAt, other.FinishedAt, time.Time.Equal) &&
		po.ErrorMessage == other.ErrorMessage
}

type OrderCursor struct {
	// CorrelationId of the order which was picked last time.
	Head string
}

func (oc OrderCursor) Equal(other OrderCursor) bool {
	return oc.Head == other.Head
}
