package config_test

import (
	"os"
	"testing"

	"github.com/annisql/graphannis/pkg/config"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GRAPHANNIS_ROOT_DIR",
		"GRAPHANNIS_MAX_CACHE_SIZE",
		"GRAPHANNIS_PARALLEL_JOINS",
		"GRAPHANNIS_LOG_LEVEL",
	} {
		old, had := os.LookupEnv(key)
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() {
			if had {
				os.Setenv(key, old)
			}
		})
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg := config.LoadFromEnv()

	require.Equal(t, "./data", cfg.RootDir)
	require.Equal(t, int64(0), cfg.MaxCacheSize)
	require.False(t, cfg.UseParallelJoins)
	require.Equal(t, "INFO", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("GRAPHANNIS_ROOT_DIR", "/var/lib/graphannis")
	os.Setenv("GRAPHANNIS_MAX_CACHE_SIZE", "1048576")
	os.Setenv("GRAPHANNIS_PARALLEL_JOINS", "true")
	os.Setenv("GRAPHANNIS_LOG_LEVEL", "DEBUG")

	cfg := config.LoadFromEnv()
	require.Equal(t, "/var/lib/graphannis", cfg.RootDir)
	require.Equal(t, int64(1048576), cfg.MaxCacheSize)
	require.True(t, cfg.UseParallelJoins)
	require.Equal(t, "DEBUG", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.QueryConfig().UseParallelJoins)
}

func TestValidateRejectsBadValues(t *testing.T) {
	clearEnv(t)

	cfg := config.LoadFromEnv()
	cfg.RootDir = ""
	require.Error(t, cfg.Validate())

	cfg = config.LoadFromEnv()
	cfg.MaxCacheSize = -1
	require.Error(t, cfg.Validate())

	cfg = config.LoadFromEnv()
	cfg.LogLevel = "VERBOSE"
	require.Error(t, cfg.Validate())
}
