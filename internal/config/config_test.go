package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Empty(t, cfg.Policy)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	content := `
server:
  address: ":9090"
client:
  timeout: 5s
connectors:
  fiserv:
    base_url: https://cert.api.fiservapps.com
  paytm:
    base_url: https://securegw-stage.paytm.in
policy:
  - id: block_large
    expression: "amount > 1000000"
    block: true
    reason: over limit
test_mode: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.True(t, cfg.TestMode)
	require.Len(t, cfg.Policy, 1)
	assert.Equal(t, "block_large", cfg.Policy[0].ID)
	assert.True(t, cfg.Policy[0].Block)

	eps := cfg.Endpoints()
	assert.Equal(t, "https://cert.api.fiservapps.com", eps.Fiserv.BaseURL)
	assert.Equal(t, "https://securegw-stage.paytm.in", eps.Paytm.BaseURL)
	assert.Empty(t, eps.Razorpay.BaseURL)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GATEWAY_SERVER_ADDRESS", ":7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
