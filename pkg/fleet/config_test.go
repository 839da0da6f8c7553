package fleet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/bluegreen/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFleetFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFleetFile(t, `
policy: continue-on-error
services:
  - name: accounts
    namespace: banking
    healthCheckPath: /healthz
    image: registry.local/accounts:v2
  - name: ledger
    namespace: banking
    image: registry.local/ledger:v2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, types.PolicyContinueOnError, cfg.Policy)
	require.Len(t, cfg.Services, 2)
	assert.Equal(t, "accounts", cfg.Services[0].Name)
	assert.Equal(t, "/healthz", cfg.Services[0].HealthCheckPath)

	targets := cfg.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, "banking/accounts", targets[0].Service.Key())
	assert.Equal(t, "registry.local/ledger:v2", targets[1].Image)
}

func TestLoadConfig_DefaultPolicy(t *testing.T) {
	path := writeFleetFile(t, `
services:
  - name: accounts
    namespace: banking
    image: registry.local/accounts:v2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, types.PolicyFailFast, cfg.Policy)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "unknown policy",
			content: "policy: sometimes\nservices:\n  - name: a\n    namespace: b\n    image: c\n",
			errText: "unknown fleet policy",
		},
		{
			name:    "no services",
			content: "policy: fail-fast\n",
			errText: "no services",
		},
		{
			name:    "missing name",
			content: "services:\n  - namespace: banking\n    image: c\n",
			errText: "name is required",
		},
		{
			name:    "missing namespace",
			content: "services:\n  - name: accounts\n    image: c\n",
			errText: "namespace is required",
		},
		{
			name:    "missing image",
			content: "services:\n  - name: accounts\n    namespace: banking\n",
			errText: "image is required",
		},
		{
			name: "duplicate service",
			content: `services:
  - name: accounts
    namespace: banking
    image: a
  - name: accounts
    namespace: banking
    image: b
`,
			errText: "duplicate service",
		},
		{
			name:    "malformed yaml",
			content: "services: [",
			errText: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFleetFile(t, tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// Targets must preserve configured list order; later services may
// depend on earlier ones being live
func TestTargets_OrderPreserved(t *testing.T) {
	cfg := &Config{
		Services: []ServiceSpec{
			{Name: "c", Namespace: "ns", Image: "c:v1"},
			{Name: "a", Namespace: "ns", Image: "a:v1"},
			{Name: "b", Namespace: "ns", Image: "b:v1"},
		},
	}

	targets := cfg.Targets()
	assert.Equal(t, "c", targets[0].Service.Name)
	assert.Equal(t, "a", targets[1].Service.Name)
	assert.Equal(t, "b", targets[2].Service.Name)
}
