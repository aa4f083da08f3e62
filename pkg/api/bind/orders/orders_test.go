package orders_test

import (
	"testing"
	"time"

	bindorders "github.com/omniphi/orchestrator/pkg/api/bind/orders"
	"github.com/omniphi/orchestrator/pkg/api/types/misc/rfctime"
	apiorders "github.com/omniphi/orchestrator/pkg/api/types/orders"
	"github.com/omniphi/orchestrator/pkg/domain"
)

func TestComposeDetail(t *testing.T) {

	queuedAt := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	startedAt := queuedAt.Add(30 * time.Second)
	finishedAt := startedAt.Add(2 * time.Minute)

	for name, testcase := range map[string]struct {
		when domain.ProvisionOrder
		then apiorders.Detail
	}{
		"When an order is still waiting, it should compose a queued Detail.": {
			when: domain.ProvisionOrder{
				CorrelationId: "order-1",
				SetupId:       "setup-1",
				Redeploy:      false,
				QueuedAt:      queuedAt,
			},
			then: apiorders.Detail{
				CorrelationId: "order-1",
				SetupId:       "setup-1",
				Redeploy:      false,
				Status:        apiorders.StatusQueued,
				QueuedAt:      rfctime.RFC3339(queuedAt),
			},
		},
		"When an order has been picked up, it should compose a started Detail.": {
			when: domain.ProvisionOrder{
				CorrelationId: "order-2",
				SetupId:       "setup-1",
				Redeploy:      true,
				QueuedAt:      queuedAt,
				StartedAt:     &startedAt,
			},
			then: apiorders.Detail{
				CorrelationId: "order-2",
				SetupId:       "setup-1",
				Redeploy:      true,
				Status:        apiorders.StatusStarted,
				QueuedAt:      rfctime.RFC3339(queuedAt),
				StartedAt:     rfctime.Pointer(&startedAt),
			},
		},
		"When an order has been processed, it should compose a finished Detail.": {
			when: domain.ProvisionOrder{
				CorrelationId: "order-3",
				SetupId:       "setup-2",
				Redeploy:      false,
				QueuedAt:      queuedAt,
				StartedAt:     &startedAt,
				FinishedAt:    &finishedAt,
				ErrorMessage:  "runtime adapter gave up",
			},
			then: apiorders.Detail{
				CorrelationId: "order-3",
				SetupId:       "setup-2",
				Redeploy:      false,
				Status:        apiorders.StatusFinished,
				QueuedAt:      rfctime.RFC3339(queuedAt),
				StartedAt:     rfctime.Pointer(&startedAt),
				FinishedAt:    rfctime.Pointer(&finishedAt),
				Error:         "runtime adapter gave up",
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual := bindorders.ComposeDetail(testcase.when)
			if !actual.Equal(testcase.then) {
				t.Errorf("unmatch: (actual, expected) = (%+v, %+v)", actual, testcase.then)
			}
		})
	}
}
