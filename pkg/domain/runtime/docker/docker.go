package docker

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/omniphi/orchestrator/pkg/domain/runtime"
	"github.com/omniphi/orchestrator/pkg/domain/runtime/rpc"
	"github.com/omniphi/orchestrator/pkg/utils/retry"
)

// Runner abstracts the docker CLI so the adapter can be tested without
// a docker daemon.
type Runner interface {
	// Output runs a command and returns its trimmed stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %s", err, msg)
		}
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

type adapter struct {
	bin           string
	image         string
	runner        Runner
	probeInterval time.Duration
	probeTimeout  time.Duration
}

type Option func(*adapter) *adapter

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(a *adapter) *adapter {
		a.runner = r
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

// New creates an adapter running validators as containers on the local
// docker daemon.
//
// bin is the docker CLI to shell out to (usually "docker"); image is the
// validator image to run.
func New(bin string, image string, options ...Option) runtime.Interface {
	a := &adapter{
		bin:           bin,
		image:         image,
		runner:        execRunner{},
		probeInterval: 3 * time.Second,
		probeTimeout:  90 * time.Second,
	}
	for _, opt := range options {
		a = opt(a)
	}
	return a
}

var _ runtime.Interface = &adapter{}

func (a *adapter) Create(ctx context.Context, spec runtime.ValidatorSpec) (runtime.Created, error) {
	instanceId, err := a.runner.Output(
		ctx, a.bin, "run", "-d",
		"--name", spec.Label,
		"-e", "OMNI_MONIKER="+spec.Moniker,
		"-e", "OMNI_CHAIN_ID="+spec.ChainId,
		"-P", a.image,
	)
	if err != nil {
		return runtime.Created{}, fmt.Errorf("docker run %s: %w", spec.Label, err)
	}

	rpcEndpoint, err := a.publishedEndpoint(ctx, instanceId, runtime.RpcPort)
	if err != nil {
		return runtime.Created{}, err
	}
	p2pEndpoint, err := a.publishedEndpoint(ctx, instanceId, runtime.P2pPort)
	if err != nil {
		return runtime.Created{}, err
	}
	grpcEndpoint, err := a.publishedEndpoint(ctx, instanceId, runtime.GrpcPort)
	if err != nil {
		return runtime.Created{}, err
	}

	pctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()
	pubkey, err := rpc.WaitPubkey(
		pctx, retry.StaticBackoff(a.probeInterval), rpc.New(rpcEndpoint),
	)
	if err != nil {
		return runtime.Created{}, fmt.Errorf(
			"validator %s did not announce its consensus key on %s: %w",
			spec.Label, rpcEndpoint, err,
		)
	}

	return runtime.Created{
		InstanceId:      instanceId,
		ConsensusPubkey: pubkey,
		RpcEndpoint:     rpcEndpoint,
		P2pEndpoint:     p2pEndpoint,
		GrpcEndpoint:    grpcEndpoint,
	}, nil
}

// publishedEndpoint resolves the host port -P assigned for a container port.
//
// `docker port` prints one binding per line, like "0.0.0.0:32768" or
// "[::]:32768"; the first line wins and wildcard hosts become loopback.
func (a *adapter) publishedEndpoint(ctx context.Context, instanceId string, port int) (string, error) {
	out, err := a.runner.Output(
		ctx, a.bin, "port", instanceId, fmt.Sprintf("%d/tcp", port),
	)
	if err != nil {
		return "", fmt.Errorf("docker port %s %d/tcp: %w", instanceId, port, err)
	}

	line, _, _ := strings.Cut(out, "\n")
	sep := strings.LastIndex(line, ":")
	if sep < 0 {
		return "", fmt.Errorf("docker port %s %d/tcp: no binding in %q", instanceId, port, out)
	}
	host := strings.Trim(line[:sep], "[]")
	if host == "0.0.0.0" || host == "::" || host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, line[sep+1:]), nil
}

func (a *adapter) Remove(ctx context.Context, instanceId string) error {
	if _, err := a.runner.Output(ctx, a.bin, "rm", "-f", instanceId); err != nil {
		if isNoSuchContainer(err) {
			return nil
		}
		return fmt.Errorf("docker rm -f %s: %w", instanceId, err)
	}
	return nil
}

func (a *adapter) GetStatus(ctx context.Context, instanceId string) (runtime.Status, error) {
	raw, err := a.runner.Output(
		ctx, a.bin, "inspect", "-f", "{{.State.Status}}", instanceId,
	)
	if err != nil {
		if isNoSuchContainer(err) || isNoSuchObject(err) {
			// the container is gone. that is an observation, not a failure.
			return runtime.Status{Phase: runtime.Exited, Raw: "removed"}, nil
		}
		return runtime.Status{}, fmt.Errorf("docker inspect %s: %w", instanceId, err)
	}
	return runtime.Status{Phase: asPhase(raw), Raw: raw}, nil
}

// docker container states: created, restarting, running, removing,
// paused, exited, dead.
func asPhase(state string) runtime.Phase {
	switch state {
	case "created", "restarting":
		return runtime.Creating
	case "running":
		return runtime.Running
	case "paused", "removing", "exited", "dead":
		return runtime.Exited
	default:
		return runtime.Unknown
	}
}

func isNoSuchContainer(err error) bool {
	return strings.Contains(err.Error(), "No such container")
}

func isNoSuchObject(err error) bool {
	return strings.Contains(err.Error(), "No such object")
}
