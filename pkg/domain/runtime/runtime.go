package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/omniphi/orchestrator/pkg/utils"
	"github.com/omniphi/orchestrator/pkg/utils/cmp"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Ports the validator image listens on, whatever hosts it.
//
// Local runtimes publish them to ephemeral host ports; cloud runtimes
// expose them as-is on the instance address.
const (
	RpcPort  = 26657
	P2pPort  = 26656
	GrpcPort = 9090
)

// Phase is the lifecycle state of a validator instance as an adapter
// reports it. Adapters normalize their provider's raw status strings
// into this enumeration; strings an adapter does not recognize become
// Unknown, never an error.
type Phase string

const (
	// The instance exists but the validator is not serving yet.
	Creating Phase = "creating"

	// The instance is up.
	Running Phase = "running"

	// The instance has stopped, crashed or is being torn down.
	Exited Phase = "exited"

	// The provider reported something this orchestrator has no name for.
	// Treated as non-running everywhere.
	Unknown Phase = "unknown"
)

func (p Phase) String() string {
	return string(p)
}

// AsPhase parses a phase tag. Unrecognized strings map to Unknown.
func AsPhase(phase string) Phase {
	switch phase {
	case string(Creating):
		return Creating
	case string(Running):
		return Running
	case string(Exited):
		return Exited
	default:
		return Unknown
	}
}

// parameters to create a validator instance.
type ValidatorSpec struct {
	// name for the underlying instance. Unique per deploy attempt.
	Label string

	// moniker the validator announces on chain.
	Moniker string

	// id of the chain the validator joins.
	ChainId string
}

func (vs ValidatorSpec) Equal(other ValidatorSpec) bool {
	return vs == other
}

// Created describes a validator instance an adapter has brought up.
type Created struct {
	// identifier of the instance inside the runtime:
	// container id (docker), pod name (kubernetes), server id (hetzner).
	InstanceId string

	// base64 consensus public key the validator announced over RPC.
	ConsensusPubkey string

	// "host:port" addresses reaching the instance.
	RpcEndpoint  string
	P2pEndpoint  string
	GrpcEndpoint string

	// sizing of the instance, keyed by "cpu", "memory", "disk".
	// nil when the runtime does not know.
	Resources map[string]resource.Quantity
}

func (c Created) Equal(other Created) bool {
	return c.InstanceId == other.InstanceId &&
		c.ConsensusPubkey == other.ConsensusPubkey &&
		c.RpcEndpoint == other.RpcEndpoint &&
		c.P2pEndpoint == other.P2pEndpoint &&
		c.GrpcEndpoint == other.GrpcEndpoint &&
		cmp.MapEqWith(c.Resources, other.Resources, resource.Quantity.Equal)
}

// Status is an adapter's view of one instance.
type Status struct {
	Phase Phase

	// the provider's status string before normalization, for logs.
	Raw string
}

func (s Status) Equal(other Status) bool {
	return s == other
}

// Interface is the contract every validator runtime adapter satisfies.
//
// Implementations are safe for concurrent calls.
type Interface interface {
	// Create brings up a validator instance and waits until it answers
	// over RPC with its consensus public key.
	//
	// # Args
	//
	// - ctx: bounds the whole bring-up, including the RPC wait.
	//
	// - spec: what to run.
	//
	// # Returns
	//
	// - Created: the instance, its consensus key and its endpoints.
	//
	// - error: the instance may or may not exist when Create fails;
	// callers tear down by label or instance id if they need certainty.
	Create(ctx context.Context, spec ValidatorSpec) (Created, error)

	// Remove tears the instance down. Removing an instance that is
	// already gone is not an error.
	Remove(ctx context.Context, instanceId string) error

	// GetStatus inspects the instance and reports its phase.
	GetStatus(ctx context.Context, instanceId string) (Status, error)
}

var ErrUnsupportedProvider = errors.New("unsupported runtime provider")

func NewErrUnsupportedProvider(provider string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
}

// Registry maps provider tags to their adapters.
//
// Which tags are registered is decided at startup from configuration;
// a SetupRequest naming an unregistered provider fails its run with
// ErrUnsupportedProvider.
type Registry struct {
	adapters map[string]Interface
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Interface{}}
}

// Register binds an adapter to a provider tag. The last binding wins.
func (r *Registry) Register(provider string, adapter Interface) *Registry {
	r.adapters[provider] = adapter
	return r
}

func (r *Registry) Get(provider string) (Interface, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, NewErrUnsupportedProvider(provider)
	}
	return adapter, nil
}

// Providers lists the registered provider tags, sorted.
func (r *Registry) Providers() []string {
	return utils.Sorted(
		utils.KeysOf(r.adapters),
		func(a, b string) bool { return a < b },
	)
}
