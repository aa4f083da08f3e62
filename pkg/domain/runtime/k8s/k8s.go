package k8s

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/omniphi/orchestrator/pkg/buildtime"
	"github.com/omniphi/orchestrator/pkg/domain/runtime"
	"github.com/omniphi/orchestrator/pkg/domain/runtime/rpc"
	"github.com/omniphi/orchestrator/pkg/utils/retry"
	kubecore "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubernetes "k8s.io/client-go/kubernetes"
)

// Client is the subset of kubernetes.Clientset this adapter touches.
type Client interface {
	CreatePod(ctx context.Context, namespace string, pod *kubecore.Pod) (*kubecore.Pod, error)
	GetPod(ctx context.Context, namespace string, name string) (*kubecore.Pod, error)
	DeletePod(ctx context.Context, namespace string, name string) error
}

// A wrapper for the type kubernetes.Clientset; because it does not prefer
// method chain-style invocations of that type.
type clientsetWrapper struct {
	client *kubernetes.Clientset
}

var _ Client = &clientsetWrapper{}

func (c *clientsetWrapper) CreatePod(ctx context.Context, namespace string, pod *kubecore.Pod) (*kubecore.Pod, error) {
	return c.client.CoreV1().Pods(namespace).Create(ctx, pod, kubeapimeta.CreateOptions{})
}

func (c *clientsetWrapper) GetPod(ctx context.Context, namespace string, name string) (*kubecore.Pod, error) {
	return c.client.CoreV1().Pods(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (c *clientsetWrapper) DeletePod(ctx context.Context, namespace string, name string) error {
	return c.client.CoreV1().Pods(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func WrapClientset(c *kubernetes.Clientset) Client {
	return &clientsetWrapper{client: c}
}

// Prober waits for a validator on an RPC endpoint to announce its
// consensus public key.
type Prober func(ctx context.Context, endpoint string) (string, error)

type adapter struct {
	client        Client
	namespace     string
	image         string
	resources     map[string]resource.Quantity
	prober        Prober
	probeInterval time.Duration
	probeTimeout  time.Duration
}

type Option func(*adapter) *adapter

// WithResources sets the resource limits ("cpu", "memory", ...) each
// validator pod is created with.
func WithResources(resources map[string]resource.Quantity) Option {
	return func(a *adapter) *adapter {
		a.resources = resources
		return a
	}
}

// WithProbe tunes the wait for the validator's first RPC answer.
func WithProbe(interval, timeout time.Duration) Option {
	return func(a *adapter) *adapter {
		a.probeInterval = interval
		a.probeTimeout = timeout
		return a
	}
}

// WithProber replaces how the consensus key is probed. Pod IPs are not
// reachable from outside the cluster, so tests need this.
func WithProber(p Prober) Option {
	return func(a *adapter) *adapter {
		a.prober = p
		return a
	}
}

// New creates an adapter running validators as pods in a kubernetes
// namespace.
//
// Endpoints it reports are pod IPs, reachable from inside the cluster
// only.
func New(client Client, namespace string, image string, options ...Option) runtime.Interface {
	a := &adapter{
		client:        client,
		namespace:     namespace,
		image:         image,
		probeInterval: 3 * time.Second,
		probeTimeout:  90 * time.Second,
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
	pod, err := a.client.CreatePod(ctx, a.namespace, a.buildPod(spec))
	if err != nil {
		return runtime.Created{}, fmt.Errorf("create pod %s: %w", spec.Label, err)
	}

	pctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	running, err := retry.Blocking(
		pctx, retry.StaticBackoff(a.probeInterval),
		func() (*kubecore.Pod, error) {
			p, err := a.client.GetPod(pctx, a.namespace, pod.ObjectMeta.Name)
			if err != nil {
				return nil, err
			}
			switch p.Status.Phase {
			case kubecore.PodSucceeded, kubecore.PodFailed:
				return nil, fmt.Errorf(
					"validator pod %s exited while starting: %s",
					p.ObjectMeta.Name, p.Status.Phase,
				)
			}
			if p.Status.Phase != kubecore.PodRunning || p.Status.PodIP == "" {
				return nil, retry.ErrRetry
			}
			return p, nil
		},
	)
	if err != nil {
		return runtime.Created{}, fmt.Errorf(
			"validator pod %s did not come up: %w", pod.ObjectMeta.Name, err,
		)
	}

	rpcEndpoint := endpoint(running.Status.PodIP, runtime.RpcPort)
	pubkey, err := a.prober(pctx, rpcEndpoint)
	if err != nil {
		return runtime.Created{}, fmt.Errorf(
			"validator %s did not announce its consensus key on %s: %w",
			spec.Label, rpcEndpoint, err,
		)
	}

	resources := map[string]resource.Quantity{}
	for k, v := range a.resources {
		resources[k] = v
	}

	return runtime.Created{
		InstanceId:      running.ObjectMeta.Name,
		ConsensusPubkey: pubkey,
		RpcEndpoint:     rpcEndpoint,
		P2pEndpoint:     endpoint(running.Status.PodIP, runtime.P2pPort),
		GrpcEndpoint:    endpoint(running.Status.PodIP, runtime.GrpcPort),
		Resources:       resources,
	}, nil
}

func (a *adapter) Remove(ctx context.Context, instanceId string) error {
	if err := a.client.DeletePod(ctx, a.namespace, instanceId); err != nil {
		if kubeerr.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete pod %s: %w", instanceId, err)
	}
	return nil
}

func (a *adapter) GetStatus(ctx context.Context, instanceId string) (runtime.Status, error) {
	pod, err := a.client.GetPod(ctx, a.namespace, instanceId)
	if err != nil {
		if kubeerr.IsNotFound(err) {
			// the pod is gone. that is an observation, not a failure.
			return runtime.Status{Phase: runtime.Exited, Raw: "deleted"}, nil
		}
		return runtime.Status{}, fmt.Errorf("get pod %s: %w", instanceId, err)
	}
	raw := string(pod.Status.Phase)
	return runtime.Status{Phase: asPhase(pod.Status.Phase), Raw: raw}, nil
}

func asPhase(phase kubecore.PodPhase) runtime.Phase {
	switch phase {
	case kubecore.PodPending:
		return runtime.Creating
	case kubecore.PodRunning:
		return runtime.Running
	case kubecore.PodSucceeded, kubecore.PodFailed:
		return runtime.Exited
	default:
		return runtime.Unknown
	}
}

func (a *adapter) buildPod(spec runtime.ValidatorSpec) *kubecore.Pod {
	limits := kubecore.ResourceList{}
	for typ, val := range a.resources {
		switch typ {
		case "cpu":
			limits[kubecore.ResourceCPU] = val
		case "memory":
			limits[kubecore.ResourceMemory] = val
		default:
			limits[kubecore.ResourceName(typ)] = val
		}
	}

	var requirements kubecore.ResourceRequirements
	if 0 < len(limits) {
		requirements = kubecore.ResourceRequirements{Limits: limits}
	}

	return &kubecore.Pod{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:      spec.Label,
			Namespace: a.namespace,
			Labels: map[string]string{
				"app.kubernetes.io/name":       "validator",
				"app.kubernetes.io/instance":   spec.Label,
				"app.kubernetes.io/component":  "validator",
				"app.kubernetes.io/part-of":    "omniphi",
				"app.kubernetes.io/managed-by": "omniphi",
				"app.kubernetes.io/version":    buildtime.VERSION(),
			},
		},
		Spec: kubecore.PodSpec{
			RestartPolicy: kubecore.RestartPolicyNever,
			Containers: []kubecore.Container{
				{
					Name:  "validator",
					Image: a.image,
					Env: []kubecore.EnvVar{
						{Name: "OMNI_MONIKER", Value: spec.Moniker},
						{Name: "OMNI_CHAIN_ID", Value: spec.ChainId},
					},
					Ports: []kubecore.ContainerPort{
						{Name: "rpc", ContainerPort: runtime.RpcPort},
						{Name: "p2p", ContainerPort: runtime.P2pPort},
						{Name: "grpc", ContainerPort: runtime.GrpcPort},
					},
					Resources: requirements,
				},
			},
		},
	}
}

func endpoint(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
