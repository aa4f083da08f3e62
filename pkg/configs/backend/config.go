package backend

import (
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
)

// Configuration for the loop daemon.
//
// to get `BackendConfig` instance, use `BackendConfigMarshall.TrySeal()` .
type BackendConfig struct {
	chainId      string
	database     string
	provisioning *ProvisioningConfig
	health       *HealthConfig
	runtimes     *RuntimesConfig
}

// Chain id every provisioned validator joins.
func (c *BackendConfig) ChainId() string {
	return c.chainId
}

// Connection string for database.
func (c *BackendConfig) Database() string {
	return c.database
}

// Configuration for provisioning runs.
func (c *BackendConfig) Provisioning() *ProvisioningConfig {
	return c.provisioning
}

// Configuration for the health loop.
func (c *BackendConfig) Health() *HealthConfig {
	return c.health
}

// Configuration for runtime adapters, per provider.
func (c *BackendConfig) Runtimes() *RuntimesConfig {
	return c.runtimes
}

type ProvisioningConfig struct {
	leaseTtl  time.Duration
	initGrace time.Duration
}

// how long a provisioning run owns its SetupRequest. default = 5m
func (p *ProvisioningConfig) LeaseTtl() time.Duration {
	return p.leaseTtl
}

// pause between creating an instance and inspecting it. default = 10s
func (p *ProvisioningConfig) InitGrace() time.Duration {
	return p.initGrace
}

type HealthConfig struct {
	interval time.Duration
}

// minimum age of a node's last health check before it is due again.
// default = 30s
func (h *HealthConfig) Interval() time.Duration {
	return h.interval
}

// Which providers this daemon can place validators on. A nil section
// means the provider is not offered.
type RuntimesConfig struct {
	docker     *DockerConfig
	kubernetes *KubernetesConfig
	hetzner    *HetznerConfig
}

func (r *RuntimesConfig) Docker() *DockerConfig {
	return r.docker
}

func (r *RuntimesConfig) Kubernetes() *KubernetesConfig {
	return r.kubernetes
}

func (r *RuntimesConfig) Hetzner() *HetznerConfig {
	return r.hetzner
}

type DockerConfig struct {
	bin   string
	image string
}

// docker cli to shell out to. default = "docker"
func (d *DockerConfig) Bin() string {
	return d.bin
}

// validator container image, tag included.
func (d *DockerConfig) Image() string {
	return d.image
}

type KubernetesConfig struct {
	namespace string
	image     string
	resources map[string]resource.Quantity
}

// k8s namespace where validator pods are placed.
func (k *KubernetesConfig) Namespace() string {
	return k.namespace
}

// validator container image, tag included.
func (k *KubernetesConfig) Image() string {
	return k.image
}

// resource requests for a validator pod.
func (k *KubernetesConfig) Resources() map[string]resource.Quantity {
	return k.resources
}

type HetznerConfig struct {
	token      string
	serverType string
	image      string
	location   string
}

// Hetzner Cloud API token.
func (h *HetznerConfig) Token() string {
	return h.token
}

// server type for validator servers. e.g. "cx32"
func (h *HetznerConfig) ServerType() string {
	return h.serverType
}

// Hetzner image (snapshot or system image) servers boot from.
func (h *HetznerConfig) Image() string {
	return h.image
}

// datacenter location, e.g. "fsn1". empty lets the cloud place the server.
func (h *HetznerConfig) Location() string {
	return h.location
}
