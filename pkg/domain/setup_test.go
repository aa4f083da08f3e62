package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/omniphi/orchestrator/pkg/domain"
	"github.com/omniphi/orchestrator/pkg/utils/pointer"
)

func TestAsSetupStatus(t *testing.T) {
	t.Run("it parses every known status", func(t *testing.T) {
		for _, expected := range []domain.SetupStatus{
			domain.Pending, domain.Provisioning, domain.Configuring,
			domain.Ready, domain.Failed,
		} {
			actual, err := domain.AsSetupStatus(expected.String())
			if err != nil {
				t.Errorf("unexpected error for %s: %v", expected, err)
			}
			if actual != expected {
				t.Errorf("unexpected status: %s (expected: %s)", actual, expected)
			}
		}
	})

	t.Run("it rejects unknown statuses", func(t *testing.T) {
		if _, err := domain.AsSetupStatus("no-such-status"); err == nil {
			t.Error("error is expected, but not")
		}
	})
}

func TestAsRunMode(t *testing.T) {
	for _, expected := range []domain.RunMode{domain.RunModeCloud, domain.RunModeLocal} {
		actual, err := domain.AsRunMode(expected.String())
		if err != nil {
			t.Errorf("unexpected error for %s: %v", expected, err)
		}
		if actual != expected {
			t.Errorf("unexpected run mode: %s (expected: %s)", actual, expected)
		}
	}

	if _, err := domain.AsRunMode("on-premise"); err == nil {
		t.Error("error is expected, but not")
	}
}

func TestSetupStatus_CanTransitTo(t *testing.T) {
	type When struct {
		From domain.SetupStatus
		To   domain.SetupStatus
	}

	allowed := []When{
		{From: domain.Pending, To: domain.Provisioning},
		{From: domain.Provisioning, To: domain.Configuring},
		{From: domain.Provisioning, To: domain.Failed},
		{From: domain.Configuring, To: domain.Ready},
		{From: domain.Configuring, To: domain.Failed},

		// operator redeploys re-enter provisioning from terminal
		// and crashed (left mid-flight) statuses.
		{From: domain.Ready, To: domain.Provisioning},
		{From: domain.Failed, To: domain.Provisioning},
		{From: domain.Provisioning, To: domain.Provisioning},
		{From: domain.Configuring, To: domain.Provisioning},
	}
	for _, when := range allowed {
		t.Run(string(when.From)+" -> "+string(when.To)+" is allowed", func(t *testing.T) {
			if !when.From.CanTransitTo(when.To) {
				t.Errorf("%s -> %s should be allowed", when.From, when.To)
			}
		})
	}

	forbidden := []When{
		{From: domain.Pending, To: domain.Configuring},
		{From: domain.Pending, To: domain.Ready},
		{From: domain.Pending, To: domain.Failed},
		{From: domain.Provisioning, To: domain.Ready},
		{From: domain.Ready, To: domain.Configuring},
		{From: domain.Ready, To: domain.Failed},
		{From: domain.Failed, To: domain.Ready},
		{From: domain.Ready, To: domain.Pending},
		{From: domain.Failed, To: domain.Pending},
	}
	for _, when := range forbidden {
		t.Run(string(when.From)+" -> "+string(when.To)+" is forbidden", func(t *testing.T) {
			if when.From.CanTransitTo(when.To) {
				t.Errorf("%s -> %s should be forbidden", when.From, when.To)
			}
		})
	}
}

func TestSetupStatus_Processing(t *testing.T) {
	for status, expected := range map[domain.SetupStatus]bool{
		domain.Pending:      false,
		domain.Provisioning: true,
		domain.Configuring:  true,
		domain.Ready:        false,
		domain.Failed:       false,
	} {
		if actual := status.Processing(); actual != expected {
			t.Errorf("%s.Processing() = %v (expected: %v)", status, actual, expected)
		}
	}
}

func TestNewErrInvalidSetupStateChanging(t *testing.T) {
	err := domain.NewErrInvalidSetupStateChanging(domain.Ready, domain.Configuring)
	if !errors.Is(err, domain.ErrInvalidSetupStateChanging) {
		t.Errorf("unexpected error identity: %v", err)
	}
}

func TestSetupRequest_Equal(t *testing.T) {
	timestamp := time.Date(2025, 4, 1, 12, 13, 14, 0, time.UTC)

	base := domain.SetupRequest{
		SetupId:         "setup-1",
		WalletAddress:   "omni1qfw0e9vxgk",
		DisplayName:     "validator one",
		CommissionRate:  0.05,
		RunMode:         domain.RunModeCloud,
		Provider:        "kubernetes",
		ConsensusPubkey: "PpXpsz8nqrqZ8Fzv7XbPn2fBXBn0nL0=",
		Status:          domain.Ready,
		CreatedAt:       timestamp,
		UpdatedAt:       timestamp,
		CompletedAt:     pointer.Ref(timestamp),
	}

	t.Run("it equals an identical setup, timezones aside", func(t *testing.T) {
		other := base
		other.CompletedAt = pointer.Ref(timestamp.In(time.FixedZone("JST", 9*60*60)))
		if !base.Equal(other) {
			t.Error("setups should be equal")
		}
	})

	t.Run("it does not equal a setup with different status", func(t *testing.T) {
		other := base
		other.Status = domain.Failed
		if base.Equal(other) {
			t.Error("setups should not be equal")
		}
	})

	t.Run("nil and non-nil completion timestamps differ", func(t *testing.T) {
		other := base
		other.CompletedAt = nil
		if base.Equal(other) {
			t.Error("setups should not be equal")
		}
	})
}

func TestSetupRequestSpec_Validate(t *testing.T) {

	okSpec := func() domain.SetupRequestSpec {
		return domain.SetupRequestSpec{
			WalletAddress:  "omni1qfw0e9vxgk",
			DisplayName:    "validator one",
			CommissionRate: 0.05,
			RunMode:        domain.RunModeCloud,
			Provider:       "kubernetes",
		}
	}

	t.Run("it accepts a well-formed spec as it is", func(t *testing.T) {
		spec := okSpec()
		actual, err := spec.Validate()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actual != spec {
			t.Errorf("unexpected spec: %+v (expected: %+v)", actual, spec)
		}
	})

	t.Run("it trims surrounding spaces", func(t *testing.T) {
		spec := okSpec()
		spec.WalletAddress = "  omni1qfw0e9vxgk "
		spec.DisplayName = " validator one "
		spec.Provider = " kubernetes "

		actual, err := spec.Validate()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actual != okSpec() {
			t.Errorf("unexpected spec: %+v (expected: %+v)", actual, okSpec())
		}
	})

	for name, breakSpec := range map[string]func(domain.SetupRequestSpec) domain.SetupRequestSpec{
		"wallet address is empty": func(s domain.SetupRequestSpec) domain.SetupRequestSpec {
			s.WalletAddress = ""
			return s
		},
		"wallet address is blank": func(s domain.SetupRequestSpec) domain.SetupRequestSpec {
			s.WalletAddress = "   "
			return s
		},
		"wallet address is out of the omni1 namespace": func(s domain.SetupRequestSpec) domain.SetupRequestSpec {
			s.WalletAddress = "cosmos1qfw0e9vxgk"
			return s
		},
		"commission rate is negative": func(s domain.SetupRequestSpec) domain.SetupRequestSpec {
			s.CommissionRate = -0.01
			return s
		},
		"commission rate is over 1": func(s domain.SetupRequestSpec) domain.SetupRequestSpec {
			s.CommissionRate = 1.01
			return s
		},
		"run mode is unknown": func(s domain.SetupRequestSpec) domain.SetupRequestSpec {
			s.RunMode = "hybrid"
			return s
		},
		"run mode is empty": func(s domain.SetupRequestSpec) domain.SetupRequestSpec {
			s.RunMode = ""
			return s
		},
		"provider is empty": func(s domain.SetupRequestSpec) domain.SetupRequestSpec {
			s.Provider = ""
			return s
		},
	} {
		t.Run("it rejects a spec whose "+name, func(t *testing.T) {
			_, err := breakSpec(okSpec()).Validate()
			if !errors.Is(err, domain.ErrInvalidSetupRequest) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	t.Run("commission rate bounds are inclusive", func(t *testing.T) {
		for _, rate := range []float64{0, 1} {
			spec := okSpec()
			spec.CommissionRate = rate
			if _, err := spec.Validate(); err != nil {
				t.Errorf("unexpected error for rate %v: %v", rate, err)
			}
		}
	})
}
