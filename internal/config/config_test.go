package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-consilium/internal/domain"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults when no file and no env", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
		assert.Equal(t, "default", cfg.Temporal.Namespace)
		assert.Equal(t, "consultation-queue", cfg.Temporal.TaskQueue)
		assert.Equal(t, ":8080", cfg.HTTP.Addr)
		assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout)
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
temporal:
  host_port: temporal.internal:7233
  namespace: oncology
  task_queue: mdt-queue
http:
  addr: ":9090"
  shutdown_timeout: 5s
llm:
  base_url: https://llm.internal/v1
  model: clinical-4
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "temporal.internal:7233", cfg.Temporal.HostPort)
		assert.Equal(t, "oncology", cfg.Temporal.Namespace)
		assert.Equal(t, "mdt-queue", cfg.Temporal.TaskQueue)
		assert.Equal(t, ":9090", cfg.HTTP.Addr)
		assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
		assert.Equal(t, "https://llm.internal/v1", cfg.LLM.BaseURL)
		assert.Equal(t, "clinical-4", cfg.LLM.Model)
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := writeConfigFile(t, `
temporal:
  host_port: from-file:7233
`)
		t.Setenv("CONSILIUM_TEMPORAL_HOST_PORT", "from-env:7233")
		t.Setenv("CONSILIUM_LLM_API_KEY", "sk-test")
		t.Setenv("CONSILIUM_HTTP_SHUTDOWN_TIMEOUT", "30")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "from-env:7233", cfg.Temporal.HostPort)
		assert.Equal(t, "sk-test", cfg.LLM.APIKey)
		assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := writeConfigFile(t, "temporal: [not a mapping")

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("unknown role in weights fails", func(t *testing.T) {
		path := writeConfigFile(t, `
panel:
  role_weights:
    pharmacist: 0.4
`)

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown specialist role")
	})

	t.Run("out of range weight fails", func(t *testing.T) {
		path := writeConfigFile(t, `
panel:
  role_weights:
    oncologist: 1.5
`)

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be in [0, 1]")
	})

	t.Run("unknown risk category fails", func(t *testing.T) {
		path := writeConfigFile(t, `
panel:
  risk_keywords:
    astrological:
      oncologist: ["mercury retrograde"]
`)

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown risk category")
	})
}

func TestRolePolicy(t *testing.T) {
	t.Run("no overrides yields defaults", func(t *testing.T) {
		policy := Default().RolePolicy()
		assert.Equal(t, domain.DefaultRolePolicy().Weights, policy.Weights)
	})

	t.Run("weight override replaces single role", func(t *testing.T) {
		cfg := Default()
		cfg.Panel.RoleWeights = map[string]float64{"oncologist": 0.5}

		policy := cfg.RolePolicy()
		assert.InDelta(t, 0.5, policy.Weights[domain.RoleOncologist], 1e-9)
		assert.InDelta(t, domain.DefaultRolePolicy().Weights[domain.RoleRadiologist],
			policy.Weights[domain.RoleRadiologist], 1e-9)
	})

	t.Run("keyword override replaces category role list", func(t *testing.T) {
		cfg := Default()
		cfg.Panel.RiskKeywords = map[string]map[string][]string{
			"medical": {"oncologist": {"sepsis"}},
		}

		policy := cfg.RolePolicy()
		assert.Equal(t, []string{"sepsis"},
			policy.Keywords[domain.RiskMedical][domain.RoleOncologist])
		// Untouched categories keep their defaults.
		assert.NotEmpty(t, policy.Keywords[domain.RiskPsychological][domain.RolePsychologist])
	})
}
