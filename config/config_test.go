package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "agent-engine-responses", cfg.Topic)
	require.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	require.Equal(t, 8080, cfg.HTTPPort)
	require.Equal(t, "us-central1", cfg.Location)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
project: demo-project
resource_id: "12345"
engine_url: https://example.com
http_port: 9000
debug: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "demo-project", cfg.Project)
	require.Equal(t, "12345", cfg.ResourceID)
	require.Equal(t, "https://example.com", cfg.EngineURL)
	require.Equal(t, 9000, cfg.HTTPPort)
	require.True(t, cfg.Debug)
	// Untouched fields keep their defaults.
	require.Equal(t, "agent-engine-responses", cfg.Topic)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "env-project")
	t.Setenv("CONCIERGE_TOPIC", "env-topic")
	t.Setenv("CONCIERGE_HTTP_PORT", "7070")
	t.Setenv("CONCIERGE_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "env-project", cfg.Project)
	require.Equal(t, "env-topic", cfg.Topic)
	require.Equal(t, 7070, cfg.HTTPPort)
	require.True(t, cfg.Debug)
}

func TestConciergeEnvWinsOverCloudEnv(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "cloud-project")
	t.Setenv("CONCIERGE_PROJECT", "concierge-project")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "concierge-project", cfg.Project)
}

func TestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: -1\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("topic: \"\"\n"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}
