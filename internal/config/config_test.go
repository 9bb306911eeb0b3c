package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.PingPeriod)
	assert.Equal(t, 5, cfg.OfferRateLimit)
	assert.Equal(t, 10*time.Second, cfg.OfferRateInterval)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers[0].URLs)
	assert.False(t, cfg.TLSEnabled())
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	body := `
mode: debug
port: 8443
ping_period: 5s
tls_cert: cert.pem
tls_key: key.pem
ice_servers:
  - urls: ["turn:turn.example.org:3478"]
    username: relay
    credential: secret
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 8443, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.PingPeriod)
	assert.True(t, cfg.TLSEnabled())
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, "relay", cfg.ICEServers[0].Username)
	assert.Equal(t, "secret", cfg.ICEServers[0].Credential)
	assert.Equal(t, []string{"turn:turn.example.org:3478"}, cfg.ICEServers[0].URLs)
}
