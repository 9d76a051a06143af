package pvcconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig describes one hypervisor's identity, BMC credentials, and
// IPMI-reachable address as this node sees it in the cluster manifest.
type NodeConfig struct {
	Name          string `yaml:"name"`
	CoordinatorID string `yaml:"coordinator_id"`
	IPMIHost      string `yaml:"ipmi_host"`
	IPMIUsername  string `yaml:"ipmi_username"`
	IPMIPassword  string `yaml:"ipmi_password"`
}

// NetworkInterfaceConfig names the physical bridge backing a managed
// network's VNI, so the floating-services manager knows which link to
// attach gateway and floating addresses to.
type NetworkInterfaceConfig struct {
	VNI    int    `yaml:"vni"`
	Bridge string `yaml:"bridge"`
}

// Config is this node's full static configuration, loaded once at
// startup from a YAML manifest and overridable per-field by PVC_-
// prefixed environment variables.
type Config struct {
	NodeName string `yaml:"node_name"`
	DataDir  string `yaml:"data_dir"`

	CoordinatorServers []string      `yaml:"coordinator_servers"`
	CoordinatorTimeout time.Duration `yaml:"coordinator_timeout"`

	TaskBusServers []string `yaml:"task_bus_servers"`

	LibvirtSocket string `yaml:"libvirt_socket"`

	CephConfigPath string `yaml:"ceph_config_path"`
	CephPool       string `yaml:"ceph_pool"`

	HTTPListenAddr    string `yaml:"http_listen_addr"`
	MetricsListenAddr string `yaml:"metrics_listen_addr"`

	FloatingUpstreamCIDR string `yaml:"floating_upstream_cidr"`
	FloatingClusterCIDR  string `yaml:"floating_cluster_cidr"`
	FloatingStorageCIDR  string `yaml:"floating_storage_cidr"`
	FloatingInterface    string `yaml:"floating_interface"`

	MetadataListenAddr string `yaml:"metadata_listen_addr"`
	DNSDomain          string `yaml:"dns_domain"`
	DNSUpstreams       []string `yaml:"dns_upstreams"`

	Nodes    []NodeConfig             `yaml:"nodes"`
	Networks []NetworkInterfaceConfig `yaml:"networks"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool    `yaml:"log_json"`

	// APIKeys, if non-empty, requires every HTTP request (except
	// /metrics and the login route) to carry a matching X-Api-Key
	// header or a valid session cookie issued by the login route.
	APIKeys []string `yaml:"api_keys"`
}

// Default returns a Config with sensible defaults for every field a
// manifest is allowed to omit.
func Default() *Config {
	return &Config{
		DataDir:            "/var/lib/pvc",
		CoordinatorTimeout: 10 * time.Second,
		LibvirtSocket:      "/var/run/libvirt/libvirt-sock",
		CephPool:           "pvc",
		HTTPListenAddr:     ":7370",
		MetricsListenAddr:  ":9370",
		MetadataListenAddr: "169.254.169.254:80",
		DNSDomain:          "pvc.local",
		LogLevel:           "info",
	}
}

// Load reads a YAML manifest from path, starting from Default() and
// layering PVC_-prefixed environment variable overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides mirrors the scalar fields a deployment most often
// needs to override per-host without editing the shared manifest:
// identity, coordination endpoints, and logging.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PVC_NODE_NAME"); v != "" {
		cfg.NodeName = v
	}
	if v := os.Getenv("PVC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PVC_COORDINATOR_SERVERS"); v != "" {
		cfg.CoordinatorServers = strings.Split(v, ",")
	}
	if v := os.Getenv("PVC_TASK_BUS_SERVERS"); v != "" {
		cfg.TaskBusServers = strings.Split(v, ",")
	}
	if v := os.Getenv("PVC_HTTP_LISTEN_ADDR"); v != "" {
		cfg.HTTPListenAddr = v
	}
	if v := os.Getenv("PVC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PVC_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogJSON = b
		}
	}
	if v := os.Getenv("PVC_API_KEYS"); v != "" {
		cfg.APIKeys = strings.Split(v, ",")
	}
}

// Validate checks the invariants the rest of the daemon assumes hold:
// a node name, at least one coordination server, and a data directory.
func (c *Config) Validate() error {
	if c.NodeName == "" {
		return fmt.Errorf("node_name is required")
	}
	if len(c.CoordinatorServers) == 0 {
		return fmt.Errorf("coordinator_servers must list at least one address")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	return nil
}

// NodeByName returns this manifest's entry for name, if present.
func (c *Config) NodeByName(name string) (NodeConfig, bool) {
	for _, n := range c.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeConfig{}, false
}

// BridgeForVNI returns the physical bridge configured for a VNI, or ""
// if the manifest has no entry for it.
func (c *Config) BridgeForVNI(vni int) string {
	for _, n := range c.Networks {
		if n.VNI == vni {
			return n.Bridge
		}
	}
	return ""
}
