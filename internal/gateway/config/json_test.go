package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJSON(t *testing.T) {
	t.Setenv(ConfigEnv, "")

	path := writeTempJSON(t, map[string]any{
		"listen_addr":                     ":9000",
		"identity_url":                    "http://identity:8081",
		"revocation_backend":              "memory",
		"redis_db":                        0,
		"revocation_timeout":              "500ms",
		"key_source":                      "s3",
		"s3_bucket":                       "secrets",
		"s3_private_key_object":           "k/priv.pem",
		"access_token_validity_duration":  "5m",
		"refresh_token_validity_duration": 7200000000000,
	})

	t.Run("loads from -config", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		cfg.RedisDB = 4

		require.NoError(t, parseJSON(cfg, []string{"-config", path}))

		assert.Equal(t, ":9000", cfg.ListenAddr)
		assert.Equal(t, "http://identity:8081", cfg.IdentityURL)
		assert.Equal(t, BackendMemory, cfg.RevocationBackend)
		assert.Equal(t, 0, cfg.RedisDB)
		assert.Equal(t, 500*time.Millisecond, cfg.RevocationTimeout)
		assert.Equal(t, KeySourceS3, cfg.KeySource)
		assert.Equal(t, "secrets", cfg.S3Bucket)
		assert.Equal(t, "k/priv.pem", cfg.S3PrivateKeyObject)
		assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 2*time.Hour, cfg.RefreshTokenValidityDuration)

		// untouched keys keep their defaults
		assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
		assert.Equal(t, time.Minute, cfg.ServiceTokenValidityDuration)
	})

	t.Run("loads from env", func(t *testing.T) {
		t.Setenv(ConfigEnv, path)
		cfg := &Config{}
		require.NoError(t, parseJSON(cfg, nil))
		assert.Equal(t, ":9000", cfg.ListenAddr)
	})

	t.Run("no file, no changes", func(t *testing.T) {
		cfg := &Config{ListenAddr: "defaults:1234"}
		require.NoError(t, parseJSON(cfg, []string{"-a", ":1"}))
		assert.Equal(t, "defaults:1234", cfg.ListenAddr)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		assert.Error(t, parseJSON(&Config{}, []string{"-c", bad}))
	})

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, parseJSON(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "nope.json")}))
	})
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	t.Setenv(ConfigEnv, "")
	path := writeTempJSON(t, map[string]any{"listen_addr": ":9000", "redis_addr": "redis:6379"})

	cfg, err := LoadConfig([]string{"-c", path, "-a", ":7000"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
}
