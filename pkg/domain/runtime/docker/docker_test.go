package docker_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/omniphi/orchestrator/pkg/domain/runtime"
	"github.com/omniphi/orchestrator/pkg/domain/runtime/docker"
	"github.com/omniphi/orchestrator/pkg/utils/cmp"
	"github.com/omniphi/orchestrator/pkg/utils/try"
)

type fakeRunner struct {
	calls [][]string
	fn    func(name string, args ...string) (string, error)
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.fn(name, args...)
}

func validatorAnswer(pubkey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(
			w,
			`{"result": {"sync_info": {"latest_block_height": "1", "catching_up": false}, "validator_info": {"pub_key": {"value": %q}}}}`,
			pubkey,
		)
	}
}

func TestAdapter_Create(t *testing.T) {
	t.Run("it runs the image, reads published ports and waits for the consensus key", func(t *testing.T) {
		ts := httptest.NewServer(validatorAnswer("ZG9ja2VyLWtleQ=="))
		defer ts.Close()
		rpcBinding := ts.Listener.Addr().String() // 127.0.0.1:<port>

		runner := &fakeRunner{fn: func(name string, args ...string) (string, error) {
			switch args[0] {
			case "run":
				return "0123abcd4567", nil
			case "port":
				switch args[2] {
				case "26657/tcp":
					return rpcBinding, nil
				case "26656/tcp":
					return "0.0.0.0:32656", nil
				case "9090/tcp":
					return "[::]:39090\n0.0.0.0:39090", nil
				}
			}
			return "", fmt.Errorf("unexpected command: %s %v", name, args)
		}}

		testee := docker.New(
			"docker", "omniphi/validator:v1.2.3",
			docker.WithRunner(runner),
			docker.WithProbe(1*time.Millisecond, 1*time.Second),
		)

		actual := try.To(testee.Create(context.Background(), runtime.ValidatorSpec{
			Label:   "omni-validator-sr1-1",
			Moniker: "sr1",
			ChainId: "omniphi-local-1",
		})).OrFatal(t)

		expected := runtime.Created{
			InstanceId:      "0123abcd4567",
			ConsensusPubkey: "ZG9ja2VyLWtleQ==",
			RpcEndpoint:     rpcBinding,
			P2pEndpoint:     "127.0.0.1:32656",
			GrpcEndpoint:    "127.0.0.1:39090",
		}
		if !actual.Equal(expected) {
			t.Errorf("unmatch: (actual, expected) = (%+v, %+v)", actual, expected)
		}

		expectedRun := []string{
			"docker", "run", "-d",
			"--name", "omni-validator-sr1-1",
			"-e", "OMNI_MONIKER=sr1",
			"-e", "OMNI_CHAIN_ID=omniphi-local-1",
			"-P", "omniphi/validator:v1.2.3",
		}
		if len(runner.calls) == 0 || !cmp.SliceEq(runner.calls[0], expectedRun) {
			t.Errorf("unmatch docker run: (actual, expected) = (%+v, %+v)", runner.calls, expectedRun)
		}
	})

	t.Run("when docker run fails, it gives up before touching ports", func(t *testing.T) {
		runner := &fakeRunner{fn: func(name string, args ...string) (string, error) {
			return "", errors.New("Unable to find image")
		}}
		testee := docker.New("docker", "omniphi/validator:v1", docker.WithRunner(runner))

		if _, err := testee.Create(context.Background(), runtime.ValidatorSpec{
			Label: "x", Moniker: "x", ChainId: "c",
		}); err == nil {
			t.Error("no error is caused")
		}
		if len(runner.calls) != 1 {
			t.Errorf("unexpected commands after failure: %+v", runner.calls)
		}
	})

	t.Run("when docker port prints no binding, it errors", func(t *testing.T) {
		runner := &fakeRunner{fn: func(name string, args ...string) (string, error) {
			if args[0] == "run" {
				return "deadbeef", nil
			}
			return "", nil
		}}
		testee := docker.New("docker", "omniphi/validator:v1", docker.WithRunner(runner))

		if _, err := testee.Create(context.Background(), runtime.ValidatorSpec{
			Label: "x", Moniker: "x", ChainId: "c",
		}); err == nil {
			t.Error("no error is caused")
		}
	})
}

func TestAdapter_GetStatus(t *testing.T) {
	for raw, expected := range map[string]runtime.Phase{
		"created":       runtime.Creating,
		"restarting":    runtime.Creating,
		"running":       runtime.Running,
		"paused":        runtime.Exited,
		"removing":      runtime.Exited,
		"exited":        runtime.Exited,
		"dead":          runtime.Exited,
		"host-rebooted": runtime.Unknown,
	} {
		t.Run(fmt.Sprintf("it maps container state %s to phase %s", raw, expected), func(t *testing.T) {
			runner := &fakeRunner{fn: func(name string, args ...string) (string, error) {
				return raw, nil
			}}
			testee := docker.New("docker", "omniphi/validator:v1", docker.WithRunner(runner))

			actual := try.To(testee.GetStatus(context.Background(), "deadbeef")).OrFatal(t)
			if !actual.Equal(runtime.Status{Phase: expected, Raw: raw}) {
				t.Errorf("unmatch: (actual, expected) = (%+v, {%s %s})", actual, expected, raw)
			}
		})
	}

	t.Run("a container that is gone reports exited, not an error", func(t *testing.T) {
		runner := &fakeRunner{fn: func(name string, args ...string) (string, error) {
			return "", errors.New("Error: No such object: deadbeef")
		}}
		testee := docker.New("docker", "omniphi/validator:v1", docker.WithRunner(runner))

		actual := try.To(testee.GetStatus(context.Background(), "deadbeef")).OrFatal(t)
		if actual.Phase != runtime.Exited {
			t.Errorf("unmatch phase: (actual, expected) = (%s, %s)", actual.Phase, runtime.Exited)
		}
	})

	t.Run("when the daemon is unreachable, it errors", func(t *testing.T) {
		runner := &fakeRunner{fn: func(name string, args ...string) (string, error) {
			return "", errors.New("Cannot connect to the Docker daemon")
		}}
		testee := docker.New("docker", "omniphi/validator:v1", docker.WithRunner(runner))

		if _, err := testee.GetStatus(context.Background(), "deadbeef"); err == nil {
			t.Error("no error is caused")
		}
	})
}

func TestAdapter_Remove(t *testing.T) {
	t.Run("it removes the container with force", func(t *testing.T) {
		runner := &fakeRunner{fn: func(name string, args ...string) (string, error) {
			return "deadbeef", nil
		}}
		testee := docker.New("docker", "omniphi/validator:v1", docker.WithRunner(runner))

		if err := testee.Remove(context.Background(), "deadbeef"); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		expected := []string{"docker", "rm", "-f", "deadbeef"}
		if len(runner.calls) != 1 || !cmp.SliceEq(runner.calls[0], expected) {
			t.Errorf("unmatch docker rm: (actual, expected) = (%+v, %+v)", runner.calls, expected)
		}
	})

	t.Run("removing a container that is already gone is fine", func(t *testing.T) {
		runner := &fakeRunner{fn: func(name string, args ...string) (string, error) {
			return "", errors.New("Error response from daemon: No such container: deadbeef")
		}}
		testee := docker.New("docker", "omniphi/validator:v1", docker.WithRunner(runner))

		if err := testee.Remove(context.Background(), "deadbeef"); err != nil {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("other daemon errors are passed through", func(t *testing.T) {
		runner := &fakeRunner{fn: func(name string, args ...string) (string, error) {
			return "", errors.New("Cannot connect to the Docker daemon")
		}}
		testee := docker.New("docker", "omniphi/validator:v1", docker.WithRunner(runner))

		err := testee.Remove(context.Background(), "deadbeef")
		if err == nil || !strings.Contains(err.Error(), "docker rm") {
			t.Errorf("unexpected error: %+v", err)
		}
	})
}
