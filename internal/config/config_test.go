package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Environment)
	assert.Equal(t, BackendKorgan, cfg.BackendName())
	assert.Equal(t, 20, cfg.PageSizeOrDefault())
	assert.Equal(t, 3*time.Minute, cfg.StaleTTLDuration())
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeoutDuration())
	assert.Equal(t, DefaultRPS, cfg.RPSOrDefault())
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetriesOrDefault())
}

func TestLoadFromParsesJSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	content := `{
  // comments are allowed
  "environment": "staging",
  "page_size": 50,
  "stale_ttl": "90s",
  "user_email": "me@example.com",
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 50, cfg.PageSizeOrDefault())
	assert.Equal(t, 90*time.Second, cfg.StaleTTLDuration())
	assert.Equal(t, "me@example.com", cfg.UserEmail)

	base, err := cfg.APIBase()
	require.NoError(t, err)
	assert.Equal(t, "https://api.staging.korgan.io", base)
}

func TestSetGetUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json5")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	require.NoError(t, cfg.Set("page_size", "25"))
	require.NoError(t, cfg.Set("environment", "local"))
	require.NoError(t, cfg.Set("base_url", "http://127.0.0.1:9000/"))

	reloaded, err := LoadFrom(path)
	require.NoError(t, err)
	got, err := reloaded.Get("page_size")
	require.NoError(t, err)
	assert.Equal(t, "25", got)
	base, err := reloaded.APIBase()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", base)

	require.NoError(t, reloaded.Unset("page_size"))
	got, err = reloaded.Get("page_size")
	require.NoError(t, err)
	assert.Empty(t, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSetRejectsInvalidValues(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)

	tests := []struct {
		key   string
		value string
	}{
		{"environment", "mars"},
		{"backend", "imap"},
		{"user_email", "not-an-email"},
		{"stale_ttl", "soon"},
		{"request_timeout", "-1s"},
		{"page_size", "0"},
		{"page_size", "abc"},
		{"rps", "0"},
		{"max_retries", "-2"},
		{"default_output", "xml"},
		{"log_level", "loud"},
		{"no_such_key", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			assert.Error(t, cfg.Set(tt.key, tt.value))
		})
	}
	_, err = os.Stat(cfg.Path())
	assert.True(t, os.IsNotExist(err), "nothing is saved on validation failure")
}

func TestApplyDoesNotSave(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)

	require.NoError(t, cfg.Apply("backend", "gmail"))
	require.NoError(t, cfg.Apply("rps", "4"))
	assert.Equal(t, BackendGmail, cfg.BackendName())
	assert.Equal(t, 4, cfg.RPSOrDefault())

	_, err = os.Stat(cfg.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Equal(t, "environment", keys[0])
	assert.Contains(t, keys, "gmail_config_dir")
	assert.Contains(t, keys, "log_level")
	assert.NotContains(t, keys, "path")
	assert.NotContains(t, keys, "")
}

func TestGetEnvironment(t *testing.T) {
	for _, name := range ValidEnvironments() {
		t.Run(name, func(t *testing.T) {
			env, err := GetEnvironment(name)
			require.NoError(t, err)
			assert.NotEmpty(t, env.AccountsServer)
			assert.NotEmpty(t, env.APIBase)
		})
	}

	env, err := GetEnvironment("")
	require.NoError(t, err)
	assert.Equal(t, Environments[DefaultEnvironment], env)

	_, err = GetEnvironment("xx")
	assert.ErrorContains(t, err, "unknown environment")

	assert.Equal(t, []string{"local", "production", "staging"}, ValidEnvironments())
}
