package db

import (
	"context"

	"github.com/omniphi/orchestrator/pkg/domain"
)

type SetupInterface interface {
	// register a new setup request.
	//
	// The new request starts in Pending status.
	//
	// Args
	//
	// - context.Context
	//
	// - domain.SetupRequestSpec: content of the request to be registered.
	//
	// Returns
	//
	// - domain.SetupRequest: the registered request, with its new setup id.
	//
	// - error
	Register(ctx context.Context, spec domain.SetupRequestSpec) (domain.SetupRequest, error)

	// retrieve setup requests.
	//
	// Args
	//
	// - context.Context
	//
	// - []string: setup ids
	//
	// Returns
	//
	// - map[string]domain.SetupRequest: mapping setup id -> request.
	// Ids which are not found are just omitted from the map.
	//
	// - error
	Get(ctx context.Context, setupIds []string) (map[string]domain.SetupRequest, error)

	// find setup requests matching the query.
	//
	// When some conditions in the query are empty,
	// such conditions do not narrow the result.
	//
	// Returns
	//
	// - []string: found setup ids, ordered by creation time.
	//
	// - error
	Find(ctx context.Context, query domain.SetupFindQuery) ([]string, error)

	// update the status of a setup request.
	//
	// On transiting to Ready, "completed at" timestamp is set.
	//
	// On transiting to Provisioning, records of past attempts
	// (consensus pubkey, error message and "completed at") are cleared.
	//
	// Returns
	//
	// - error: domain.ErrInvalidSetupStateChanging (when newStatus is not
	// a permitted move from the current status),
	// domain.ErrMissing (when no request is found for setupId)
	SetStatus(ctx context.Context, setupId string, newStatus domain.SetupStatus) error

	// store the consensus pubkey obtained from a new validator node,
	// transiting the request from Provisioning to Configuring.
	//
	// Both are done atomically.
	//
	// Returns
	//
	// - error: domain.ErrInvalidSetupStateChanging (when the request is
	// not in Provisioning status),
	// domain.ErrMissing (when no request is found for setupId)
	Configure(ctx context.Context, setupId string, consensusPubkey string) error

	// mark a setup request as Failed, recording why.
	//
	// Returns
	//
	// - error: domain.ErrInvalidSetupStateChanging (when the request is
	// not in a status which can fail),
	// domain.ErrMissing (when no request is found for setupId)
	Fail(ctx context.Context, setupId string, message string) error
}
