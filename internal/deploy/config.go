// Package deploy models the cluster deployment configuration consumed by the
// deployment scripts: per-service hostnames, ports, replica counts, image
// policy, and resource sizing for the application server and its backing
// stores.
package deploy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ImagePullPolicy mirrors the container runtime pull policies.
type ImagePullPolicy string

const (
	PullAlways       ImagePullPolicy = "Always"
	PullIfNotPresent ImagePullPolicy = "IfNotPresent"
	PullNever        ImagePullPolicy = "Never"
)

// Resources sizes one service's container.
type Resources struct {
	CPURequest    string `yaml:"cpu_request,omitempty"`
	CPULimit      string `yaml:"cpu_limit,omitempty"`
	MemoryRequest string `yaml:"memory_request,omitempty"`
	MemoryLimit   string `yaml:"memory_limit,omitempty"`
}

// Service configures one deployed service.
type Service struct {
	Hostname   string          `yaml:"hostname"`
	Port       int             `yaml:"port"`
	Replicas   int             `yaml:"replicas,omitempty"`
	Image      string          `yaml:"image"`
	PullPolicy ImagePullPolicy `yaml:"image_pull_policy,omitempty"`
	Resources  Resources       `yaml:"resources,omitempty"`
}

// Config is the full cluster configuration.
type Config struct {
	ClusterName   string  `yaml:"cluster_name"`
	Namespace     string  `yaml:"namespace,omitempty"`
	AppServer     Service `yaml:"app_server"`
	Database      Service `yaml:"database"`
	DocumentStore Service `yaml:"document_store"`
	SearchIndex   Service `yaml:"search_index"`
	Cache         Service `yaml:"cache"`
}

// Load reads and validates a cluster configuration file.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

// Unmarshal parses, applies defaults, and validates a configuration document.
func Unmarshal(content []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse deploy config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "variantcore"
	}
	for _, service := range c.services() {
		if service.cfg.Replicas == 0 {
			service.cfg.Replicas = 1
		}
		if service.cfg.PullPolicy == "" {
			service.cfg.PullPolicy = PullIfNotPresent
		}
	}
}

type namedService struct {
	name string
	cfg  *Service
}

func (c *Config) services() []namedService {
	return []namedService{
		{"app_server", &c.AppServer},
		{"database", &c.Database},
		{"document_store", &c.DocumentStore},
		{"search_index", &c.SearchIndex},
		{"cache", &c.Cache},
	}
}

// Validate checks the configuration for misconfigured services.
func (c *Config) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("cluster_name is required")
	}
	for _, service := range c.services() {
		if err := service.cfg.validate(); err != nil {
			return fmt.Errorf("%s: %w", service.name, err)
		}
	}
	return nil
}

func (s *Service) validate() error {
	if s.Hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	if s.Replicas < 1 {
		return fmt.Errorf("replicas %d must be at least 1", s.Replicas)
	}
	if s.Image == "" {
		return fmt.Errorf("image is required")
	}
	switch s.PullPolicy {
	case PullAlways, PullIfNotPresent, PullNever:
	default:
		return fmt.Errorf("unknown image pull policy %q", s.PullPolicy)
	}
	return nil
}
