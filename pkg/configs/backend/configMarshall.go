package backend

import (
	"fmt"
	"time"

	"github.com/google/go-containerregistry/pkg/name"
	"k8s.io/apimachinery/pkg/api/resource"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/backend.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

// Configuration of the loop daemon.
//
// This type is marshalling value and mutable.
// Consider to use immutable version, `BackendConfig`.
// You can get `BackendConfig` instance with `TrySeal()`
type BackendConfigMarshall struct {
	ChainId      string                      `yaml:"chainId"`
	Database     string                      `yaml:"database"`
	Provisioning *ProvisioningConfigMarshall `yaml:"provisioning,omitempty"`
	Health       *HealthConfigMarshall       `yaml:"health,omitempty"`
	Runtimes     *RuntimesConfigMarshall     `yaml:"runtimes"`
}

var _ Marshalled[*BackendConfig] = &BackendConfigMarshall{}

func (b *BackendConfigMarshall) trySeal(path string) *BackendConfig {
	// provisioning and health fall back to their defaults as a whole.
	provisioning := b.Provisioning
	if provisioning == nil {
		provisioning = &ProvisioningConfigMarshall{}
	}
	health := b.Health
	if health == nil {
		health = &HealthConfigMarshall{}
	}

	return &BackendConfig{
		chainId:      required(b.ChainId, path+".chainId"),
		database:     required(b.Database, path+".database"),
		provisioning: provisioning.trySeal(path + ".provisioning"),
		health:       health.trySeal(path + ".health"),
		runtimes:     nonnil(b.Runtimes, path+".runtimes").trySeal(path + ".runtimes"),
	}
}

type ProvisioningConfigMarshall struct {
	LeaseTtl  string `yaml:"leaseTtl,omitempty"`
	InitGrace string `yaml:"initGrace,omitempty"`
}

func (pm *ProvisioningConfigMarshall) trySeal(path string) *ProvisioningConfig {
	return &ProvisioningConfig{
		leaseTtl:  duration(pm.LeaseTtl, 5*time.Minute, path+".leaseTtl"),
		initGrace: duration(pm.InitGrace, 10*time.Second, path+".initGrace"),
	}
}

type HealthConfigMarshall struct {
	Interval string `yaml:"interval,omitempty"`
}

func (hm *HealthConfigMarshall) trySeal(path string) *HealthConfig {
	return &HealthConfig{
		interval: duration(hm.Interval, 30*time.Second, path+".interval"),
	}
}

type RuntimesConfigMarshall struct {
	Docker     *DockerConfigMarshall     `yaml:"docker,omitempty"`
	Kubernetes *KubernetesConfigMarshall `yaml:"kubernetes,omitempty"`
	Hetzner    *HetznerConfigMarshall    `yaml:"hetzner,omitempty"`
}

func (rm *RuntimesConfigMarshall) trySeal(path string) *RuntimesConfig {
	if rm.Docker == nil && rm.Kubernetes == nil && rm.Hetzner == nil {
		panic(path + " must configure at least one provider")
	}

	sealed := &RuntimesConfig{}
	if rm.Docker != nil {
		sealed.docker = rm.Docker.trySeal(path + ".docker")
	}
	if rm.Kubernetes != nil {
		sealed.kubernetes = rm.Kubernetes.trySeal(path + ".kubernetes")
	}
	if rm.Hetzner != nil {
		sealed.hetzner = rm.Hetzner.trySeal(path + ".hetzner")
	}
	return sealed
}

type DockerConfigMarshall struct {
	Bin   string `yaml:"bin,omitempty"`
	Image string `yaml:"image"`
}

func (dm *DockerConfigMarshall) trySeal(path string) *DockerConfig {
	bin := dm.Bin
	if bin == "" {
		bin = "docker"
	}
	return &DockerConfig{
		bin:   bin,
		image: imageTag(required(dm.Image, path+".image"), path+".image"),
	}
}

type KubernetesConfigMarshall struct {
	Namespace string            `yaml:"namespace"`
	Image     string            `yaml:"image"`
	Resources map[string]string `yaml:"resources,omitempty"`
}

func (km *KubernetesConfigMarshall) trySeal(path string) *KubernetesConfig {
	resources := map[string]resource.Quantity{}
	for typ, quantity := range km.Resources {
		q, err := resource.ParseQuantity(quantity)
		if err != nil {
			panic(fmt.Errorf("%s.resources.%s can not be parsed: %w", path, typ, err))
		}
		resources[typ] = q
	}

	return &KubernetesConfig{
		namespace: required(km.Namespace, path+".namespace"),
		image:     imageTag(required(km.Image, path+".image"), path+".image"),
		resources: resources,
	}
}

type HetznerConfigMarshall struct {
	Token      string `yaml:"token"`
	ServerType string `yaml:"serverType"`
	Image      string `yaml:"image"`
	Location   string `yaml:"location,omitempty"`
}

func (hm *HetznerConfigMarshall) trySeal(path string) *HetznerConfig {
	// the image is a Hetzner snapshot name, not a registry tag.
	return &HetznerConfig{
		token:      required(hm.Token, path+".token"),
		serverType: required(hm.ServerType, path+".serverType"),
		image:      required(hm.Image, path+".image"),
		location:   hm.Location,
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}

func duration(v string, fallback time.Duration, path string) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s can not be parsed: %w", path, err))
	}
	return d
}

func imageTag(v string, path string) string {
	if _, err := name.NewTag(v, name.WithDefaultRegistry("")); err != nil {
		panic(fmt.Errorf("%s is not an image tag: %w", path, err))
	}
	return v
}
