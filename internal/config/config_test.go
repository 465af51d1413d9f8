package config_test

import (
	"os"
	"testing"

	"github.com/mna/calyx/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("CALYX_MAX_STEPS")
	os.Unsetenv("CALYX_MAX_CALL_DEPTH")

	c, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.MaxSteps)
	assert.Equal(t, 10000, c.MaxCallDepth)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CALYX_MAX_STEPS", "5000")
	t.Setenv("CALYX_MAX_CALL_DEPTH", "64")

	c, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(5000), c.MaxSteps)
	assert.Equal(t, 64, c.MaxCallDepth)
}

func TestLoadInvalidEnvErrors(t *testing.T) {
	t.Setenv("CALYX_MAX_STEPS", "not-a-number")

	_, err := config.Load()
	require.Error(t, err)
}
