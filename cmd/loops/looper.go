package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/omniphi/orchestrator/cmd/loops/hook"
	"github.com/omniphi/orchestrator/cmd/loops/recurring"
	"github.com/omniphi/orchestrator/cmd/loops/tasks/health"
	"github.com/omniphi/orchestrator/cmd/loops/tasks/provisioning"
	"github.com/omniphi/orchestrator/cmd/loops/tasks/provisioning/manager"
	configs "github.com/omniphi/orchestrator/pkg/configs/backend"
	cfg_hook "github.com/omniphi/orchestrator/pkg/configs/hook"
	"github.com/omniphi/orchestrator/pkg/domain"
	odb "github.com/omniphi/orchestrator/pkg/domain/omniphi/db"
	"github.com/omniphi/orchestrator/pkg/domain/runtime"
	"github.com/omniphi/orchestrator/pkg/domain/runtime/docker"
	"github.com/omniphi/orchestrator/pkg/domain/runtime/hetzner"
	k8sruntime "github.com/omniphi/orchestrator/pkg/domain/runtime/k8s"
	"github.com/omniphi/orchestrator/pkg/kubeutil"
	"github.com/omniphi/orchestrator/pkg/loop"
)

type LoggerOptions func(*log.Logger) *log.Logger

func byLogger(l *log.Logger, opt ...LoggerOptions) *log.Logger {
	for _, o := range opt {
		l = o(l)
	}
	return l
}

func Copied() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		return log.New(l.Writer(), l.Prefix(), l.Flags())
	}
}

func WithPrefix(pre string) LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetPrefix(pre)
		return l
	}
}

func WithTimestamp() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetFlags(l.Flags() | log.Ldate | log.Ltime | log.Lmicroseconds)
		return l
	}
}

// Wrapper for monitoring loop tasks
//
//	Log the start and end of each time a task is executed. Essentially, it executes a task.
func monitor[T any](logger *log.Logger, task loop.Task[T]) loop.Task[T] {
	// counter for execution of the task
	var counter uint64
	return func(ctx context.Context, t T) (ret T, next loop.Next) {
		// func() capture the 'counter' variable
		counter += 1
		timestamp := time.Now()

		logger.Printf("task start: #0x%X: ", counter)

		// log at the end of the task
		defer func() {
			logger.Printf(
				"task end: #0x%X (takes %s): %s\n with value = %#v",
				counter, time.Since(timestamp), next, ret,
			)
		}()

		// execute the task specified by the argument
		ret, next = task(ctx, t)
		return
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	// Which loop to run
	Type domain.LoopType

	// Policy for the looping
	Policy recurring.Policy

	// Hooks for the looping
	Hooks cfg_hook.Config
}

// buildRuntimes connects an adapter for each provider the config offers.
func buildRuntimes(conf *configs.BackendConfig) *runtime.Registry {
	registry := runtime.NewRegistry()
	runtimes := conf.Runtimes()

	if d := runtimes.Docker(); d != nil {
		registry = registry.Register("docker", docker.New(d.Bin(), d.Image()))
	}
	if k := runtimes.Kubernetes(); k != nil {
		registry = registry.Register("kubernetes", k8sruntime.New(
			k8sruntime.WrapClientset(kubeutil.ConnectToK8s()),
			k.Namespace(), k.Image(),
			k8sruntime.WithResources(k.Resources()),
		))
	}
	if h := runtimes.Hetzner(); h != nil {
		registry = registry.Register("hetzner", hetzner.New(
			hetzner.WrapClient(hcloud.NewClient(hcloud.WithToken(h.Token()))),
			h.ServerType(), h.Image(), h.Location(),
		))
	}

	return registry
}

// Start the loop the manifest asks for, and run it until the policy or
// the context stops it.
//
// Args:
//
// - ctx
//
// - logger : logger for monitoring loop.
//
// - conf : loop daemon config.
//
// - db : database facade.
//
// - manifest
func StartLoop(
	ctx context.Context,
	logger *log.Logger,
	conf *configs.BackendConfig,
	db odb.OmniDatabase,
	manifest LoopManifest,
) error {
	switch manifest.Type {
	case domain.LoopTypeProvisioning:
		return StartProvisioningLoop(ctx, logger, conf, db, manifest)
	case domain.LoopTypeHealth:
		return StartHealthLoop(ctx, logger, conf, db, manifest)
	default:
		return fmt.Errorf(`%w: "%s"`, domain.ErrUnknownLoopType, manifest.Type)
	}
}

// Start provisioning loop
//
// It drains the provision order queue. No per-cycle timeout: a run may
// legitimately wait out instance boot and the init grace.
func StartProvisioningLoop(
	ctx context.Context,
	logger *log.Logger,
	conf *configs.BackendConfig,
	db odb.OmniDatabase,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[provisioning loop]"))

	run := manager.New(
		l,
		db.Setup(), db.Node(), db.Lease(),
		buildRuntimes(conf),
		conf.ChainId(),
		manager.WithLeaseTTL(conf.Provisioning().LeaseTtl()),
		manager.WithInitGrace(conf.Provisioning().InitGrace()),
		manager.WithLifecycle(hook.Build(manifest.Hooks.Lifecycle)),
	)

	_, err := loop.Start(
		ctx, provisioning.Seed(),
		monitor(
			l,
			provisioning.Task(l, db.Order(), run).Applied(manifest.Policy),
		),
	)
	return err
}

// Start health loop
func StartHealthLoop(
	ctx context.Context,
	logger *log.Logger,
	conf *configs.BackendConfig,
	db odb.OmniDatabase,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[health loop]"))

	_, err := loop.Start(
		ctx, health.Seed(conf.Health().Interval()),
		monitor(
			l,
			health.Task(l, db.Node(), buildRuntimes(conf)).Applied(manifest.Policy),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}
