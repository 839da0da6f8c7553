package fleet

import (
	"fmt"
	"os"

	"github.com/cuemby/bluegreen/pkg/types"
	"gopkg.in/yaml.v3"
)

// Config is the YAML fleet definition consumed by pipelines:
//
//	policy: fail-fast
//	services:
//	  - name: accounts
//	    namespace: banking
//	    healthCheckPath: /healthz
//	    image: registry.local/accounts:v2
type Config struct {
	Policy   types.FleetPolicy `yaml:"policy"`
	Services []ServiceSpec     `yaml:"services"`
}

// ServiceSpec is one fleet entry: a service identity plus the image to
// roll out. List order is preserved through the whole run.
type ServiceSpec struct {
	Name            string `yaml:"name"`
	Namespace       string `yaml:"namespace"`
	HealthCheckPath string `yaml:"healthCheckPath"`
	Image           string `yaml:"image"`
}

// LoadConfig reads and validates a fleet definition file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fleet file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse fleet file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fleet definition and applies the default policy
func (c *Config) Validate() error {
	if c.Policy == "" {
		c.Policy = types.PolicyFailFast
	}
	if !c.Policy.Valid() {
		return fmt.Errorf("unknown fleet policy %q (want %q or %q)",
			c.Policy, types.PolicyFailFast, types.PolicyContinueOnError)
	}

	if len(c.Services) == 0 {
		return fmt.Errorf("fleet defines no services")
	}

	seen := make(map[string]bool, len(c.Services))
	for i, spec := range c.Services {
		if spec.Name == "" {
			return fmt.Errorf("services[%d]: name is required", i)
		}
		if spec.Namespace == "" {
			return fmt.Errorf("services[%d] (%s): namespace is required", i, spec.Name)
		}
		if spec.Image == "" {
			return fmt.Errorf("services[%d] (%s): image is required", i, spec.Name)
		}

		key := spec.Namespace + "/" + spec.Name
		if seen[key] {
			return fmt.Errorf("services[%d]: duplicate service %s", i, key)
		}
		seen[key] = true
	}
	return nil
}

// Targets converts the fleet definition into rollout targets,
// preserving list order
func (c *Config) Targets() []Target {
	targets := make([]Target, 0, len(c.Services))
	for _, spec := range c.Services {
		targets = append(targets, Target{
			Service: types.Service{
				Name:            spec.Name,
				Namespace:       spec.Namespace,
				HealthCheckPath: spec.HealthCheckPath,
			},
			Image: spec.Image,
		})
	}
	return targets
}
