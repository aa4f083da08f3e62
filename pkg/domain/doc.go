package domain

// domain package contains the Domain Models and Interfaces of the Omniphi Validator Orchestrator.
//
// `domain/ENTITY.go` has high-level entities (Domain Model types) and functions.
// For example, `domain/setup.go` contains the `SetupRequest` entity.
//
// `domain/ENTITY` directories contain the "physical" representation of the domain entities.
// For example, `domain/setup/db` exposes the client interface to handle SetupRequests in RDB,
// and `domain/setup/db/postgres` implements it.
//
// # Entities
//
// Core entities in the domain are:
//
// - `setup`: A user-initiated request to stand up one validator ("SetupRequest").
// It carries the identity of the validator (wallet address, display name, commission rate)
// and the configuration intent (run mode, provider).
// SetupRequests are created over the REST API and advanced through their lifecycle
// (pending -> provisioning -> configuring -> ready/failed) by the provisioning loop.
// They are never hard-deleted.
//
// - `node`: The running (or attempted) validator process instance backing one SetupRequest.
// In the runtime, a Node is a container, Pod, or cloud server, depending on the provider.
// At most one Node exists per SetupRequest at a time; a redeploy deletes the old
// Node row before the replacement is registered.
// Nodes are observed by the health loop, which reconciles their status column
// with the runtime's last-observed state.
//
// - `order`: A queued request to run the provisioning workflow for one SetupRequest
// ("ProvisionOrder"). Orders carry a correlation id and record when the run was
// queued, started, and finished, so that fire-and-forget tasks stay inspectable.
//
// - `lease`: The provisioning lease, a keyed store with TTL semantics marking a
// SetupRequest as under active provisioning. It serializes provisioning runs per
// SetupRequest and lets the health loop skip nodes that are being redeployed.
//
// - `runtime`: The boundary to the validator's execution environment.
// Implementations create, inspect, and remove validator instances per provider
// (docker, kubernetes, hetzner).
//
// - `loop`: Constants naming the recurring tasks. Implementations of the loops are
// in the `cmd/loops/tasks/` directory.
