package hetzner

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/omniphi/orchestrator/pkg/domain/runtime"
	"github.com/omniphi/orchestrator/pkg/domain/runtime/rpc"
	"github.com/omniphi/orchestrator/pkg/utils/retry"
	"k8s.io/apimachinery/pkg/api/resource"
)

// API is the subset of the hcloud API this adapter touches.
type API interface {
	GetServerType(ctx context.Context, name string) (*hcloud.ServerType, error)
	GetImage(ctx context.Context, name string) (*hcloud.Image, error)
	GetLocation(ctx context.Context, name string) (*hcloud.Location, error)
	CreateServer(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error)
	WaitForActions(ctx context.Context, actions ...*hcloud.Action) error
	GetServerByID(ctx context.Context, id int64) (*hcloud.Server, error)
	DeleteServer(ctx context.Context, server *hcloud.Server) error
}

// A wrapper for the type hcloud.Client; because it does not prefer
// method chain-style invocations of that type.
type hcloudAPI struct {
	client *hcloud.Client
}

var _ API = &hcloudAPI{}

func (h *hcloudAPI) GetServerType(ctx context.Context, name string) (*hcloud.ServerType, error) {
	st, _, err := h.client.ServerType.Get(ctx, name)
	return st, err
}

func (h *hcloudAPI) GetImage(ctx context.Context, name string) (*hcloud.Image, error) {
	img, _, err := h.client.Image.Get(ctx, name)
	return img, err
}

func (h *hcloudAPI) GetLocation(ctx context.Context, name string) (*hcloud.Location, error) {
	loc, _, err := h.client.Location.Get(ctx, name)
	return loc, err
}

func (h *hcloudAPI) CreateServer(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error) {
	result, _, err := h.client.Server.Create(ctx, opts)
	return result, err
}

func (h *hcloudAPI) WaitForActions(ctx context.Context, actions ...*hcloud.Action) error {
	return h.client.Action.WaitFor(ctx, actions...)
}

func (h *hcloudAPI) GetServerByID(ctx context.Context, id int64) (*hcloud.Server, error) {
	server, _, err := h.client.Server.GetByID(ctx, id)
	return server, err
}

func (h *hcloudAPI) DeleteServer(ctx context.Context, server *hcloud.Server) error {
	_, _, err := h.client.Server.DeleteWithResult(ctx, server)
	return err
}

func WrapClient(c *hcloud.Client) API {
	return &hcloudAPI{client: c}
}

// Prober waits for a validator on an RPC endpoint to announce its
// consensus public key.
type Prober func(ctx context.Context, endpoint string) (string, error)

type adapter struct {
	api           API
	serverType    string
	image         string
	location      string
	prober        Prober
	probeInterval time.Duration
	probeTimeout  time.Duration
}

type Option func(*adapter) *adapter

// WithProbe tunes the wait for the validator's first RPC answer.
//
// Cloud servers boot an OS before the validator starts, so the default
// timeout is looser than for container runtimes.
func WithProbe(interval, timeout time.Duration) Option {
	return func(a *adapter) *adapter {
		a.probeInterval = interval
		a.probeTimeout = timeout
		return a
	}
}

// WithProber replaces how the consensus key is probed.
func WithProber(p Prober) Option {
	return func(a *adapter) *adapter {
		a.prober = p
		return a
	}
}

// New creates an adapter running validators as Hetzner Cloud servers.
//
// serverType, image and location name what to boot; location may be
// empty to let the cloud place the server.
func New(api API, serverType string, image string, location string, options ...Option) runtime.Interface {
	a := &adapter{
		api:           api,
		serverType:    serverType,
		image:         image,
		location:      location,
		probeInterval: 10 * time.Second,
		probeTimeout:  10 * time.Minute,
	}
	for _, opt := range options {
		a = opt(a)
	}
	if a.prober == nil {
		interval := a.probeInterval
		a.prober = func(ctx context.Context, endpoint string) (string, error) {
			return rpc.WaitPubkey(ctx, retry.StaticBackoff(interval), rpc.New(endpoint))
		}
	}
	return a
}

var _ runtime.Interface = &adapter{}

func (a *adapter) Create(ctx context.Context, spec runtime.ValidatorSpec) (runtime.Created, error) {
	serverType, err := a.api.GetServerType(ctx, a.serverType)
	if err != nil {
		return runtime.Created{}, fmt.Errorf("get server type %s: %w", a.serverType, err)
	}
	if serverType == nil {
		return runtime.Created{}, fmt.Errorf("server type not found: %s", a.serverType)
	}

	image, err := a.api.GetImage(ctx, a.image)
	if err != nil {
		return runtime.Created{}, fmt.Errorf("get image %s: %w", a.image, err)
	}
	if image == nil {
		return runtime.Created{}, fmt.Errorf("image not found: %s", a.image)
	}

	var location *hcloud.Location
	if a.location != "" {
		location, err = a.api.GetLocation(ctx, a.location)
		if err != nil {
			return runtime.Created{}, fmt.Errorf("get location %s: %w", a.location, err)
		}
		if location == nil {
			return runtime.Created{}, fmt.Errorf("location not found: %s", a.location)
		}
	}

	result, err := a.api.CreateServer(ctx, hcloud.ServerCreateOpts{
		Name:       spec.Label,
		ServerType: serverType,
		Image:      image,
		Location:   location,
		Labels: map[string]string{
			"managed-by": "omniphi",
			"component":  "validator",
		},
		UserData:         userData(spec),
		StartAfterCreate: hcloud.Ptr(true),
	})
	if err != nil {
		return runtime.Created{}, fmt.Errorf("create server %s: %w", spec.Label, err)
	}
	if result.Action != nil {
		if err := a.api.WaitForActions(ctx, result.Action); err != nil {
			return runtime.Created{}, fmt.Errorf("create server %s: %w", spec.Label, err)
		}
	}

	pctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	running, err := retry.Blocking(
		pctx, retry.StaticBackoff(a.probeInterval),
		func() (*hcloud.Server, error) {
			server, err := a.api.GetServerByID(pctx, result.Server.ID)
			if err != nil {
				return nil, err
			}
			if server == nil {
				return nil, fmt.Errorf("server %d disappeared while starting", result.Server.ID)
			}
			switch server.Status {
			case hcloud.ServerStatusOff, hcloud.ServerStatusStopping, hcloud.ServerStatusDeleting:
				return nil, fmt.Errorf(
					"server %s stopped while starting: %s", server.Name, server.Status,
				)
			}
			if server.Status != hcloud.ServerStatusRunning || server.PublicNet.IPv4.IP == nil {
				return nil, retry.ErrRetry
			}
			return server, nil
		},
	)
	if err != nil {
		return runtime.Created{}, fmt.Errorf("server %s did not come up: %w", spec.Label, err)
	}

	ip := running.PublicNet.IPv4.IP.String()
	rpcEndpoint := endpoint(ip, runtime.RpcPort)
	pubkey, err := a.prober(pctx, rpcEndpoint)
	if err != nil {
		return runtime.Created{}, fmt.Errorf(
			"validator %s did not announce its consensus key on %s: %w",
			spec.Label, rpcEndpoint, err,
		)
	}

	return runtime.Created{
		InstanceId:      strconv.FormatInt(running.ID, 10),
		ConsensusPubkey: pubkey,
		RpcEndpoint:     rpcEndpoint,
		P2pEndpoint:     endpoint(ip, runtime.P2pPort),
		GrpcEndpoint:    endpoint(ip, runtime.GrpcPort),
		Resources:       sizing(serverType),
	}, nil
}

func (a *adapter) Remove(ctx context.Context, instanceId string) error {
	id, err := strconv.ParseInt(instanceId, 10, 64)
	if err != nil {
		return fmt.Errorf("not a server id: %s", instanceId)
	}
	if err := a.api.DeleteServer(ctx, &hcloud.Server{ID: id}); err != nil {
		if hcloud.IsError(err, hcloud.ErrorCodeNotFound) {
			return nil
		}
		return fmt.Errorf("delete server %d: %w", id, err)
	}
	return nil
}

func (a *adapter) GetStatus(ctx context.Context, instanceId string) (runtime.Status, error) {
	id, err := strconv.ParseInt(instanceId, 10, 64)
	if err != nil {
		return runtime.Status{}, fmt.Errorf("not a server id: %s", instanceId)
	}
	server, err := a.api.GetServerByID(ctx, id)
	if err != nil {
		return runtime.Status{}, fmt.Errorf("get server %d: %w", id, err)
	}
	if server == nil {
		// the server is gone. that is an observation, not a failure.
		return runtime.Status{Phase: runtime.Exited, Raw: "deleted"}, nil
	}
	raw := string(server.Status)
	return runtime.Status{Phase: asPhase(server.Status), Raw: raw}, nil
}

func asPhase(status hcloud.ServerStatus) runtime.Phase {
	switch status {
	case hcloud.ServerStatusInitializing, hcloud.ServerStatusStarting, hcloud.ServerStatusRebuilding:
		return runtime.Creating
	case hcloud.ServerStatusRunning, hcloud.ServerStatusMigrating:
		return runtime.Running
	case hcloud.ServerStatusOff, hcloud.ServerStatusStopping, hcloud.ServerStatusDeleting:
		return runtime.Exited
	default:
		return runtime.Unknown
	}
}

// userData carries the validator's identity into the server through
// cloud-init. The validator image's systemd unit reads the env file.
func userData(spec runtime.ValidatorSpec) string {
	return fmt.Sprintf(`#cloud-config
write_files:
  - path: /etc/omniphi/validator.env
    content: |
      OMNI_MONIKER=%s
      OMNI_CHAIN_ID=%s
`, spec.Moniker, spec.ChainId)
}

func sizing(serverType *hcloud.ServerType) map[string]resource.Quantity {
	memory := strconv.FormatFloat(float64(serverType.Memory), 'f', -1, 32)
	return map[string]resource.Quantity{
		"cpu":    *resource.NewQuantity(int64(serverType.Cores), resource.DecimalSI),
		"memory": resource.MustParse(memory + "G"),
		"disk":   resource.MustParse(strconv.Itoa(serverType.Disk) + "G"),
	}
}

func endpoint(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
