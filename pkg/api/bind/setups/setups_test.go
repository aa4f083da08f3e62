package setups_test

import (
	"testing"
	"time"

	bindsetups "github.com/omniphi/orchestrator/pkg/api/bind/setups"
	"github.com/omniphi/orchestrator/pkg/api/types/misc/rfctime"
	apisetups "github.com/omniphi/orchestrator/pkg/api/types/setups"
	"github.com/omniphi/orchestrator/pkg/domain"
)

func TestComposeDetail(t *testing.T) {

	createdAt := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	updatedAt := createdAt.Add(5 * time.Minute)
	completedAt := createdAt.Add(10 * time.Minute)

	for name, testcase := range map[string]struct {
		when domain.SetupRequest
		then apisetups.Detail
	}{
		"When a setup in flight is passed, it should compose a Detail without completion.": {
			when: domain.SetupRequest{
				SetupId:        "setup-1",
				WalletAddress:  "omni1qwexyz",
				DisplayName:    "validator one",
				CommissionRate: 0.05,
				RunMode:        domain.RunModeLocal,
				Provider:       "docker",
				Status:         domain.Provisioning,
				CreatedAt:      createdAt,
				UpdatedAt:      updatedAt,
			},
			then: apisetups.Detail{
				Summary: apisetups.Summary{
					SetupId:   "setup-1",
					Status:    "provisioning",
					UpdatedAt: rfctime.RFC3339(updatedAt),
				},
				WalletAddress:  "omni1qwexyz",
				DisplayName:    "validator one",
				CommissionRate: 0.05,
				RunMode:        "local",
				Provider:       "docker",
				CreatedAt:      rfctime.RFC3339(createdAt),
			},
		},
		"When a ready setup is passed, it should compose a Detail with pubkey and completion.": {
			when: domain.SetupRequest{
				SetupId:         "setup-2",
				WalletAddress:   "omni1abcdef",
				DisplayName:     "validator two",
				CommissionRate:  0.10,
				RunMode:         domain.RunModeCloud,
				Provider:        "kubernetes",
				ConsensusPubkey: "PpXpsz8nqrqZ8Fzv7XbPn2fBXBn0nL0=",
				Status:          domain.Ready,
				CreatedAt:       createdAt,
				UpdatedAt:       updatedAt,
				CompletedAt:     &completedAt,
			},
			then: apisetups.Detail{
				Summary: apisetups.Summary{
					SetupId:   "setup-2",
					Status:    "ready",
					UpdatedAt: rfctime.RFC3339(updatedAt),
				},
				WalletAddress:   "omni1abcdef",
				DisplayName:     "validator two",
				CommissionRate:  0.10,
				RunMode:         "cloud",
				Provider:        "kubernetes",
				ConsensusPubkey: "PpXpsz8nqrqZ8Fzv7XbPn2fBXBn0nL0=",
				CreatedAt:       rfctime.RFC3339(createdAt),
				CompletedAt:     rfctime.Pointer(&completedAt),
			},
		},
		"When a failed setup is passed, it should compose a Detail carrying the error.": {
			when: domain.SetupRequest{
				SetupId:        "setup-3",
				WalletAddress:  "omni1ghijkl",
				DisplayName:    "validator three",
				CommissionRate: 0.07,
				RunMode:        domain.RunModeCloud,
				Provider:       "hetzner",
				ErrorMessage:   "server disappeared while starting",
				Status:         domain.Failed,
				CreatedAt:      createdAt,
				UpdatedAt:      updatedAt,
				CompletedAt:    &completedAt,
			},
			then: apisetups.Detail{
				Summary: apisetups.Summary{
					SetupId:   "setup-3",
					Status:    "failed",
					UpdatedAt: rfctime.RFC3339(updatedAt),
				},
				WalletAddress:  "omni1ghijkl",
				DisplayName:    "validator three",
				CommissionRate: 0.07,
				RunMode:        "cloud",
				Provider:       "hetzner",
				Error:          "server disappeared while starting",
				CreatedAt:      rfctime.RFC3339(createdAt),
				CompletedAt:    rfctime.Pointer(&completedAt),
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual := bindsetups.ComposeDetail(testcase.when)
			if !actual.Equal(testcase.then) {
				t.Errorf("unmatch: (actual, expected) = (%+v, %+v)", actual, testcase.then)
			}
		})
	}
}
