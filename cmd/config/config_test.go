package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	v := viper.New()
	require.NoError(t, LoadConfig(v, filepath.Join(t.TempDir(), "config.yaml")))
	assert.Equal(t, "simulated", v.GetString("backend"))
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: portaudio\nloglevel: debug\naggregate:\n  name: Bench\n"), 0644))

	v := viper.New()
	require.NoError(t, LoadConfig(v, path))
	assert.Equal(t, "portaudio", v.GetString("backend"))
	assert.Equal(t, "debug", v.GetString("loglevel"))
	assert.Equal(t, "Bench", v.GetString("aggregate.name"))
	assert.Equal(t, "halharness", v.GetString("aggregate.vendor"))
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [unterminated\n"), 0644))
	assert.Error(t, LoadConfig(viper.New(), path))
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("HALHARNESS_FIXTURE", "/tmp/devices.yaml")
	t.Setenv("HALHARNESS_AGGREGATE_NAME", "FromEnv")
	t.Setenv("HALHARNESS_FEED_ADDRESS", "0.0.0.0:9000")
	v := viper.New()
	require.NoError(t, LoadConfig(v, ""))
	assert.Equal(t, "/tmp/devices.yaml", v.GetString("fixture"))
	assert.Equal(t, "FromEnv", v.GetString("aggregate.name"))
	assert.Equal(t, "halharness", v.GetString("aggregate.vendor"))
	assert.Equal(t, "0.0.0.0:9000", v.GetString("feed.address"))
}
