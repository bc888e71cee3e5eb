package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv_helpers(t *testing.T) {
	t.Setenv("CFG_STR", "value")
	t.Setenv("CFG_INT", "42")
	t.Setenv("CFG_BAD_INT", "forty")
	t.Setenv("CFG_DUR", "90s")
	t.Setenv("CFG_BOOL", "true")

	assert.Equal(t, "value", GetEnv("CFG_STR", "x"))
	assert.Equal(t, "x", GetEnv("CFG_UNSET", "x"))
	assert.Equal(t, 42, GetEnvInt("CFG_INT", 1))
	assert.Equal(t, 1, GetEnvInt("CFG_BAD_INT", 1))
	assert.Equal(t, 90*time.Second, GetEnvDuration("CFG_DUR", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("CFG_STR", time.Second))
	assert.True(t, GetEnvBool("CFG_BOOL", false))
	assert.False(t, GetEnvBool("CFG_STR", false))
}

func TestLoad_env_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CFG_FROM_DOTENV=loaded\n"), 0o644))
	t.Setenv("CFG_FROM_DOTENV", "")
	os.Unsetenv("CFG_FROM_DOTENV")

	require.NoError(t, Load(path))
	assert.Equal(t, "loaded", GetEnv("CFG_FROM_DOTENV", ""))

	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.env")))
}

const testSecret = "0123456789abcdef-test"

func TestLoadSettings_defaults(t *testing.T) {
	t.Setenv("MONTAGE_SIGNING_SECRET", testSecret)
	s, err := LoadSettings("")
	require.NoError(t, err)

	want := Defaults()
	want.SigningSecret = testSecret
	assert.Equal(t, want, s)
	assert.Equal(t, 2*time.Hour, s.Retention())
}

func TestLoadSettings_yaml_then_env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "montage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
storage_dir: /var/lib/montage
retention_hours: 6
token_ttl: 45m
rate_limit_per_minute: 3
signing_secret: from-the-settings-file
`), 0o644))
	t.Setenv("MONTAGE_RATE_LIMIT", "10")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", s.Port)
	assert.Equal(t, "/var/lib/montage", s.StorageDir)
	assert.Equal(t, 6, s.RetentionHours)
	assert.Equal(t, 45*time.Minute, s.TokenTTL)
	assert.Equal(t, 10, s.RateLimitPerMinute, "environment wins over the file")
	assert.Equal(t, "ffmpeg", s.FFmpegBin, "unset keys keep defaults")
	assert.Equal(t, "from-the-settings-file", s.SigningSecret)
}

func TestLoadSettings_requires_signing_secret(t *testing.T) {
	t.Setenv("MONTAGE_SIGNING_SECRET", "")
	_, err := LoadSettings("")
	assert.ErrorContains(t, err, "SigningSecret")

	t.Setenv("MONTAGE_SIGNING_SECRET", "short")
	_, err = LoadSettings("")
	assert.ErrorContains(t, err, "SigningSecret")

	t.Setenv("MONTAGE_SIGNING_SECRET", testSecret)
	_, err = LoadSettings("")
	assert.NoError(t, err)
}

func TestLoadSettings_errors(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read settings")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("port: [1, 2"), 0o644))
	_, err = LoadSettings(bad)
	assert.ErrorContains(t, err, "parse settings")

	t.Setenv("MONTAGE_SIGNING_SECRET", testSecret)
	t.Setenv("LOG_FORMAT", "xml")
	_, err = LoadSettings("")
	assert.ErrorContains(t, err, "invalid settings")
}
