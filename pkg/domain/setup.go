package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omniphi/orchestrator/pkg/utils/cmp"
)

// RunMode tells where the validator for a SetupRequest should live.
type RunMode string

const (
	// validator runs on a managed cloud resource (kubernetes pod, hetzner server, ...).
	RunModeCloud RunMode = "cloud"

	// validator runs on the host the orchestrator can reach directly (docker).
	RunModeLocal RunMode = "local"
)

func (rm RunMode) String() string {
	return string(rm)
}

func AsRunMode(s string) (RunMode, error) {
	switch s {
	case string(RunModeCloud):
		return RunModeCloud, nil
	case string(RunModeLocal):
		return RunModeLocal, nil
	default:
		return "", fmt.Errorf("'%s' is not RunMode", s)
	}
}

type SetupStatus string

const (
	// This SetupRequest is registered and waits for its first provisioning run.
	Pending SetupStatus = "pending"

	// The provisioning workflow has picked this SetupRequest up
	// and is creating the validator instance.
	Provisioning SetupStatus = "provisioning"

	// The validator instance exists. Its consensus public key is recorded
	// and the workflow is waiting for the process to come up.
	Configuring SetupStatus = "configuring"

	// The validator came up running. Terminal for this provisioning run.
	Ready SetupStatus = "ready"

	// The provisioning run gave up. ErrorMessage tells why.
	Failed SetupStatus = "failed"
)

func (ss SetupStatus) String() string {
	return string(ss)
}

func AsSetupStatus(status string) (SetupStatus, error) {
	switch status {
	case string(Pending):
		return Pending, nil
	case string(Provisioning):
		return Provisioning, nil
	case string(Configuring):
		return Configuring, nil
	case string(Ready):
		return Ready, nil
	case string(Failed):
		return Failed, nil
	default:
		return "", fmt.Errorf("'%s' is not SetupStatus", status)
	}
}

// Processing = a provisioning run is (supposed to be) working on this SetupRequest.
func (ss SetupStatus) Processing() bool {
	switch ss {
	case Provisioning, Configuring:
		return true
	default:
		return false
	}
}

// CanTransitTo answers whether a SetupRequest in this status may be moved to next.
//
// Provisioning is enterable from everywhere since operator redeploys re-invoke
// the workflow against ready, failed, and crashed (= left mid-flight) SetupRequests.
func (ss SetupStatus) CanTransitTo(next SetupStatus) bool {
	switch next {
	case Provisioning:
		return true
	case Configuring:
		return ss == Provisioning
	case Ready:
		return ss == Configuring
	case Failed:
		return ss == Provisioning || ss == Configuring
	default:
		return false
	}
}

// user input to register a new SetupRequest.
type SetupRequestSpec struct {
	WalletAddress  string
	DisplayName    string
	CommissionRate float64
	RunMode        RunMode
	Provider       string
}

var ErrInvalidSetupRequest = errors.New("invalid setup request")

// Validate normalizes the spec and checks it is registrable.
//
// Whether the provider tag names an adapter the loop daemon actually
// offers is not known here; an unknown provider fails at provisioning
// time instead.
func (s SetupRequestSpec) Validate() (SetupRequestSpec, error) {
	s.WalletAddress = strings.TrimSpace(s.WalletAddress)
	s.DisplayName = strings.TrimSpace(s.DisplayName)
	s.Provider = strings.TrimSpace(s.Provider)

	if s.WalletAddress == "" {
		return s, fmt.Errorf("%w: wallet address is required", ErrInvalidSetupRequest)
	}
	if !strings.HasPrefix(s.WalletAddress, "omni1") {
		return s, fmt.Errorf(
			`%w: wallet address should be an omni1... account address`,
			ErrInvalidSetupRequest,
		)
	}
	if s.CommissionRate < 0 || 1 < s.CommissionRate {
		return s, fmt.Errorf(
			"%w: commission rate should be between 0 and 1",
			ErrInvalidSetupRequest,
		)
	}
	if _, err := AsRunMode(string(s.RunMode)); err != nil {
		return s, fmt.Errorf("%w: %s", ErrInvalidSetupRequest, err)
	}
	if s.Provider == "" {
		return s, fmt.Errorf("%w: provider is required", ErrInvalidSetupRequest)
	}
	return s, nil
}

type SetupRequest struct {
	SetupId        string
	WalletAddress  string
	DisplayName    string
	CommissionRate float64
	RunMode        RunMode

	// tag selecting the runtime adapter which hosts the validator.
	Provider string

	// consensus public key of the validator, once known.
	//
	// Empty until the provisioning workflow has created the instance.
	ConsensusPubkey string

	// message of the error which made the last provisioning run fail.
	//
	// Empty unless Status is Failed.
	ErrorMessage string

	Status SetupStatus

	CreatedAt time.Time
	UpdatedAt time.Time

	// timestamp of the moment the SetupRequest became Ready, if ever.
	CompletedAt *time.Time
}

func (s SetupRequest) Equal(other SetupRequest) bool {
	return s.SetupId == other.SetupId &&
		s.WalletAddress == other.WalletAddress &&
		s.DisplayName == other.DisplayName &&
		s.CommissionRate == other.CommissionRate &&
		s.RunMode == other.RunMode &&
		s.Provider == other.Provider &&
		s.ConsensusPubkey == other.ConsensusPubkey &&
		s.ErrorMessage == other.ErrorMessage &&
		s.Status == other.Status &&
		s.CreatedAt.Equal(other.CreatedAt) &&
		s.UpdatedAt.Equal(other.UpdatedAt) &&
		cmp.PEqualWith(s.CompletedAt, other.CompletedAt, time.Time.Equal)
}

// parameter to query SetupRequests
//
// When all dimensions match a SetupRequest, this query matches it.
type SetupFindQuery struct {
	// match if the status is one of these.
	//
	// If it is nil or empty, it means "match any".
	Status []SetupStatus

	// match if the run mode equals this. nil means "match any".
	RunMode *RunMode

	// match if the provider tag equals this. nil means "match any".
	Provider *string

	// match if the wallet address equals this. nil means "match any".
	WalletAddress *string
}

func (q SetupFindQuery) Equal(other SetupFindQuery) bool {
	return cmp.SliceContentEq(q.Status, other.Status) &&
		cmp.PEqEq(q.RunMode, other.RunMode) &&
		cmp.PEqEq(q.Provider, other.Provider) &&
		cmp.PEqEq(q.WalletAddress, other.WalletAddress)
}

var ErrInvalidSetupStateChanging = errors.New("cannot change setup request state")

func NewErrInvalidSetupStateChanging(from, to SetupStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidSetupStateChanging, from, to)
}
