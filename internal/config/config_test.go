package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.API.URL = "https://meals.example.test"
	cfg.API.Token = "secret-token"
	cfg.API.Timeout = 10 * time.Second
	cfg.Offline.MaxAttempts = 7
	cfg.Offline.ThrottleGap = 250 * time.Millisecond

	require.NoError(t, saveConfigAt(dir, cfg))

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, v.ReadInConfig())

	var got Config
	require.NoError(t, v.Unmarshal(&got))

	assert.Equal(t, "https://meals.example.test", got.API.URL)
	assert.Equal(t, "secret-token", got.API.Token)
	assert.Equal(t, 10*time.Second, got.API.Timeout)
	assert.Equal(t, 7, got.Offline.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, got.Offline.ThrottleGap)
	assert.True(t, got.IsConfigured())
}

func TestIsConfigured(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.IsConfigured())

	cfg.API.URL = "https://meals.example.test"
	assert.False(t, cfg.IsConfigured(), "token still missing")

	cfg.API.Token = "secret-token"
	assert.True(t, cfg.IsConfigured())
}
