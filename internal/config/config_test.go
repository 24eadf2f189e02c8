package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadExpandsEnvAndDefaults(t *testing.T) {
	t.Setenv("TEST_MP_TOKEN", "APP_USR-secret")

	dir := t.TempDir()
	path := writeConfig(t, `
server:
  port: 9090
database:
  path: `+filepath.Join(dir, "db", "clinica.db")+`
mercadopago:
  access_token: ${TEST_MP_TOKEN}
auth:
  jwt_secret: abc
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "APP_USR-secret", cfg.MercadoPago.AccessToken)
	assert.Equal(t, "data/uploads", cfg.Uploads.Dir)
	assert.DirExists(t, filepath.Join(dir, "db"))

	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 5*time.Minute, cfg.MercadoPagoCacheTTL())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDurationOverrides(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.TokenTTLHrs = 2
	cfg.MercadoPago.CacheTTLSeconds = 30
	cfg.Server.ShutdownTimeout = 5

	assert.Equal(t, 2*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 30*time.Second, cfg.MercadoPagoCacheTTL())
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout())
}
