package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "alchemy.yaml", `
log:
  level: debug
assets:
  root: /srv/assets
  shards: 4
storage:
  driver: redis
  redis:
    addr: redis:6379
    db: 2
server:
  quic_addr: 127.0.0.1:9443
  rate_window: 250ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Encoding)
	assert.Equal(t, "/srv/assets", cfg.Assets.Root)
	assert.Equal(t, 4, cfg.Assets.Shards)
	assert.Equal(t, 4, cfg.Assets.PreloadWorkers)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 2, cfg.Storage.Redis.DB)
	assert.Equal(t, "alchemy:scene:", cfg.Storage.Redis.Prefix)
	assert.Equal(t, "127.0.0.1:9443", cfg.Server.QUICAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.RateWindow.Duration)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "alchemy.toml", `
[audio]
sample_rate = 48000

[storage]
driver = "memory"

[server]
http_addr = ":9000"
shutdown_timeout = "3s"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "alchemy.ini", "level=debug")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ALCHEMY_LOG_LEVEL":      "warn",
		"ALCHEMY_STORAGE_DRIVER": "redis",
		"ALCHEMY_REDIS_ADDR":     "10.0.0.1:6379",
		"ALCHEMY_REDIS_DB":       "3",
		"ALCHEMY_HTTP_ADDR":      ":8181",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "10.0.0.1:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 3, cfg.Storage.Redis.DB)
	assert.Equal(t, ":8181", cfg.Server.HTTPAddr)

	env["ALCHEMY_REDIS_DB"] = "two"
	assert.ErrorIs(t, cfg.ApplyEnv(lookup), ErrInvalidConfig)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Storage.Driver = "s3"
	cfg.Server.CertFile = "cert.pem"
	cfg.Assets.Shards = 0

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	msg := err.Error()
	assert.Contains(t, msg, "loud")
	assert.Contains(t, msg, "s3")
	assert.Contains(t, msg, "cert_file")
	assert.Contains(t, msg, "assets.shards")
}
