package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/shelver/config"
	"github.com/stevemurr/shelver/store"
)

func TestLoadEnvDefaults(t *testing.T) {
	env, err := config.LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, string(store.ProviderLocal), env.Provider)
	assert.Equal(t, "documents", env.Name)
	assert.Equal(t, store.DefaultBaseDir, env.BaseDir)
	assert.Equal(t, "info", env.LogLevel)
	assert.Equal(t, "stderr", env.LogOutput)
	assert.Equal(t, ":8080", env.Addr())
	assert.Equal(t, []string{"*"}, env.Origins())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SHELVER_PROVIDER", "s3")
	t.Setenv("SHELVER_NAME", "my-bucket")
	t.Setenv("SHELVER_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("SHELVER_HTTP_HOST", "127.0.0.1")
	t.Setenv("SHELVER_HTTP_PORT", "9999")
	t.Setenv("SHELVER_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("SHELVER_LOG_OUTPUT", "/var/log/shelver.log")

	env, err := config.LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, "s3", env.Provider)
	assert.Equal(t, "my-bucket", env.Name)
	assert.Equal(t, "http://localhost:9000", env.S3Endpoint)
	assert.Equal(t, "127.0.0.1:9999", env.Addr())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, env.Origins())
	assert.Equal(t, "/var/log/shelver.log", env.LogOutput)
}

func TestLoadEnvUnknownProvider(t *testing.T) {
	t.Setenv("SHELVER_PROVIDER", "ftp")

	_, err := config.LoadEnv()
	assert.ErrorIs(t, err, store.ErrUnknownProvider)
}
