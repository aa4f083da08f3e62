package hetzner_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/omniphi/orchestrator/pkg/domain/runtime"
	"github.com/omniphi/orchestrator/pkg/domain/runtime/hetzner"
	"github.com/omniphi/orchestrator/pkg/utils/try"
	"k8s.io/apimachinery/pkg/api/resource"
)

type fakeAPI struct {
	serverType *hcloud.ServerType
	image      *hcloud.Image
	location   *hcloud.Location

	created []hcloud.ServerCreateOpts
	get     func(id int64) (*hcloud.Server, error)
	deleted []int64
	delErr  error
}

var _ hetzner.API = &fakeAPI{}

func (f *fakeAPI) GetServerType(ctx context.Context, name string) (*hcloud.ServerType, error) {
	return f.serverType, nil
}

func (f *fakeAPI) GetImage(ctx context.Context, name string) (*hcloud.Image, error) {
	return f.image, nil
}

func (f *fakeAPI) GetLocation(ctx context.Context, name string) (*hcloud.Location, error) {
	return f.location, nil
}

func (f *fakeAPI) CreateServer(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error) {
	f.created = append(f.created, opts)
	return hcloud.ServerCreateResult{Server: &hcloud.Server{ID: 4242}}, nil
}

func (f *fakeAPI) WaitForActions(ctx context.Context, actions ...*hcloud.Action) error {
	return nil
}

func (f *fakeAPI) GetServerByID(ctx context.Context, id int64) (*hcloud.Server, error) {
	return f.get(id)
}

func (f *fakeAPI) DeleteServer(ctx context.Context, server *hcloud.Server) error {
	f.deleted = append(f.deleted, server.ID)
	return f.delErr
}

func serverInStatus(id int64, status hcloud.ServerStatus, ip string) *hcloud.Server {
	server := &hcloud.Server{ID: id, Name: fmt.Sprintf("server-%d", id), Status: status}
	if ip != "" {
		server.PublicNet.IPv4.IP = net.ParseIP(ip)
	}
	return server
}

func TestAdapter_Create(t *testing.T) {
	t.Run("it boots a server, waits for its address and probes the consensus key", func(t *testing.T) {
		polls := 0
		api := &fakeAPI{
			serverType: &hcloud.ServerType{Name: "cx32", Cores: 4, Memory: 8, Disk: 80},
			image:      &hcloud.Image{Name: "omniphi-validator-v1"},
			location:   &hcloud.Location{Name: "fsn1"},
			get: func(id int64) (*hcloud.Server, error) {
				polls += 1
				if polls == 1 {
					return serverInStatus(id, hcloud.ServerStatusInitializing, ""), nil
				}
				return serverInStatus(id, hcloud.ServerStatusRunning, "198.51.100.7"), nil
			},
		}

		probed := []string{}
		testee := hetzner.New(
			api, "cx32", "omniphi-validator-v1", "fsn1",
			hetzner.WithProbe(1*time.Millisecond, 1*time.Second),
			hetzner.WithProber(func(ctx context.Context, endpoint string) (string, error) {
				probed = append(probed, endpoint)
				return "aGV0em5lci1rZXk=", nil
			}),
		)

		actual := try.To(testee.Create(context.Background(), runtime.ValidatorSpec{
			Label:   "omni-validator-sr1-1",
			Moniker: "sr1",
			ChainId: "omniphi-mainnet-1",
		})).OrFatal(t)

		expected := runtime.Created{
			InstanceId:      "4242",
			ConsensusPubkey: "aGV0em5lci1rZXk=",
			RpcEndpoint:     "198.51.100.7:26657",
			P2pEndpoint:     "198.51.100.7:26656",
			GrpcEndpoint:    "198.51.100.7:9090",
			Resources: map[string]resource.Quantity{
				"cpu":    resource.MustParse("4"),
				"memory": resource.MustParse("8G"),
				"disk":   resource.MustParse("80G"),
			},
		}
		if !actual.Equal(expected) {
			t.Errorf("unmatch: (actual, expected) = (%+v, %+v)", actual, expected)
		}

		if len(probed) != 1 || probed[0] != "198.51.100.7:26657" {
			t.Errorf("unexpected probes: %+v", probed)
		}

		if len(api.created) != 1 {
			t.Fatalf("unexpected servers created: %+v", api.created)
		}
		opts := api.created[0]
		if opts.Name != "omni-validator-sr1-1" {
			t.Errorf("unmatch server name: %s", opts.Name)
		}
		if opts.ServerType.Name != "cx32" || opts.Image.Name != "omniphi-validator-v1" || opts.Location.Name != "fsn1" {
			t.Errorf("unmatch create opts: %+v", opts)
		}
		if !strings.Contains(opts.UserData, "OMNI_MONIKER=sr1") ||
			!strings.Contains(opts.UserData, "OMNI_CHAIN_ID=omniphi-mainnet-1") {
			t.Errorf("unmatch user data: %s", opts.UserData)
		}
	})

	t.Run("an unknown server type stops Create before anything boots", func(t *testing.T) {
		api := &fakeAPI{serverType: nil}
		testee := hetzner.New(api, "cx999", "omniphi-validator-v1", "")

		if _, err := testee.Create(context.Background(), runtime.ValidatorSpec{
			Label: "x", Moniker: "x", ChainId: "c",
		}); err == nil {
			t.Error("no error is caused")
		}
		if len(api.created) != 0 {
			t.Errorf("unexpected servers created: %+v", api.created)
		}
	})

	t.Run("a server which powers off while starting is an error, not a wait", func(t *testing.T) {
		api := &fakeAPI{
			serverType: &hcloud.ServerType{Name: "cx32", Cores: 4, Memory: 8, Disk: 80},
			image:      &hcloud.Image{Name: "omniphi-validator-v1"},
			get: func(id int64) (*hcloud.Server, error) {
				return serverInStatus(id, hcloud.ServerStatusOff, ""), nil
			},
		}
		testee := hetzner.New(
			api, "cx32", "omniphi-validator-v1", "",
			hetzner.WithProbe(1*time.Millisecond, 1*time.Second),
			hetzner.WithProber(func(ctx context.Context, endpoint string) (string, error) {
				t.Error("prober should not be reached")
				return "", nil
			}),
		)

		if _, err := testee.Create(context.Background(), runtime.ValidatorSpec{
			Label: "x", Moniker: "x", ChainId: "c",
		}); err == nil {
			t.Error("no error is caused")
		}
	})
}

func TestAdapter_GetStatus(t *testing.T) {
	for status, expected := range map[hcloud.ServerStatus]runtime.Phase{
		hcloud.ServerStatusInitializing: runtime.Creating,
		hcloud.ServerStatusStarting:     runtime.Creating,
		hcloud.ServerStatusRebuilding:   runtime.Creating,
		hcloud.ServerStatusRunning:      runtime.Running,
		hcloud.ServerStatusMigrating:    runtime.Running,
		hcloud.ServerStatusOff:          runtime.Exited,
		hcloud.ServerStatusStopping:     runtime.Exited,
		hcloud.ServerStatusDeleting:     runtime.Exited,
		hcloud.ServerStatusUnknown:      runtime.Unknown,
	} {
		t.Run(fmt.Sprintf("it maps server status %s to %s", status, expected), func(t *testing.T) {
			api := &fakeAPI{get: func(id int64) (*hcloud.Server, error) {
				return serverInStatus(id, status, "198.51.100.7"), nil
			}}
			testee := hetzner.New(api, "cx32", "omniphi-validator-v1", "")

			actual := try.To(testee.GetStatus(context.Background(), "4242")).OrFatal(t)
			if !actual.Equal(runtime.Status{Phase: expected, Raw: string(status)}) {
				t.Errorf("unmatch: (actual, expected) = (%+v, {%s %s})", actual, expected, status)
			}
		})
	}

	t.Run("a server that is gone reports exited, not an error", func(t *testing.T) {
		api := &fakeAPI{get: func(id int64) (*hcloud.Server, error) {
			return nil, nil
		}}
		testee := hetzner.New(api, "cx32", "omniphi-validator-v1", "")

		actual := try.To(testee.GetStatus(context.Background(), "4242")).OrFatal(t)
		if actual.Phase != runtime.Exited {
			t.Errorf("unmatch phase: (actual, expected) = (%s, %s)", actual.Phase, runtime.Exited)
		}
	})

	t.Run("an instance id that is not a server id is an error", func(t *testing.T) {
		api := &fakeAPI{}
		testee := hetzner.New(api, "cx32", "omniphi-validator-v1", "")

		if _, err := testee.GetStatus(context.Background(), "not-a-number"); err == nil {
			t.Error("no error is caused")
		}
	})
}

func TestAdapter_Remove(t *testing.T) {
	t.Run("it deletes the server", func(t *testing.T) {
		api := &fakeAPI{}
		testee := hetzner.New(api, "cx32", "omniphi-validator-v1", "")

		if err := testee.Remove(context.Background(), "4242"); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if len(api.deleted) != 1 || api.deleted[0] != 4242 {
			t.Errorf("unexpected deletions: %+v", api.deleted)
		}
	})

	t.Run("removing a server that is already gone is fine", func(t *testing.T) {
		api := &fakeAPI{delErr: hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "server not found"}}
		testee := hetzner.New(api, "cx32", "omniphi-validator-v1", "")

		if err := testee.Remove(context.Background(), "4242"); err != nil {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("other api errors are passed through", func(t *testing.T) {
		api := &fakeAPI{delErr: errors.New("rate limit exceeded")}
		testee := hetzner.New(api, "cx32", "omniphi-validator-v1", "")

		if err := testee.Remove(context.Background(), "4242"); err == nil {
			t.Error("no error is caused")
		}
	})
}
