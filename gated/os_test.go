//go:build unit

package gated

import (
	"bytes"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetenvOrDefault(t *testing.T) {
	t.Setenv("GATED_TEST_VALUE", "value")
	t.Setenv("GATED_TEST_BLANK", "   ")

	assert.Equal(t, "value", GetenvOrDefault("GATED_TEST_VALUE", "default"))
	assert.Equal(t, "default", GetenvOrDefault("GATED_TEST_BLANK", "default"))
	assert.Equal(t, "default", GetenvOrDefault("GATED_TEST_MISSING_XYZ", "default"))
}

func TestGetenvBoolOrDefault(t *testing.T) {
	t.Setenv("GATED_TEST_BOOL", "true")
	t.Setenv("GATED_TEST_BOOL_BAD", "maybe")

	assert.True(t, GetenvBoolOrDefault("GATED_TEST_BOOL", false))
	assert.True(t, GetenvBoolOrDefault("GATED_TEST_BOOL_BAD", true))
	assert.False(t, GetenvBoolOrDefault("GATED_TEST_BOOL_MISSING_XYZ", false))
}

func TestGetenvIntOrDefault(t *testing.T) {
	t.Setenv("GATED_TEST_INT", "-42")
	t.Setenv("GATED_TEST_INT_BAD", "forty")

	assert.Equal(t, int64(-42), GetenvIntOrDefault("GATED_TEST_INT", 0))
	assert.Equal(t, int64(7), GetenvIntOrDefault("GATED_TEST_INT_BAD", 7))
}

func TestSetConfigFromEnvVars(t *testing.T) {
	type Config struct {
		Address  string `env:"GATED_TEST_ADDRESS"`
		Enabled  bool   `env:"GATED_TEST_ENABLED"`
		Decimals int64  `env:"GATED_TEST_DECIMALS"`
		Ignored  string
	}

	t.Setenv("GATED_TEST_ADDRESS", ":3000")
	t.Setenv("GATED_TEST_ENABLED", "true")
	t.Setenv("GATED_TEST_DECIMALS", "6")

	cfg := &Config{Ignored: "kept"}
	require.NoError(t, SetConfigFromEnvVars(cfg))

	assert.Equal(t, ":3000", cfg.Address)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, int64(6), cfg.Decimals)
	assert.Equal(t, "kept", cfg.Ignored)

	assert.ErrorIs(t, SetConfigFromEnvVars(Config{}), ErrNotPointer)

	type bad struct {
		Ratio float64 `env:"GATED_TEST_RATIO"`
	}

	assert.Error(t, SetConfigFromEnvVars(&bad{}))
}

func TestInitLocalEnvConfigPrintsVersionAndEnvironment(t *testing.T) {
	t.Setenv("VERSION", "NO-VERSION")
	t.Setenv("ENV_NAME", "development")

	localEnvConfig = nil
	localEnvConfigOnce = sync.Once{}

	stdout := os.Stdout
	reader, writer, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = writer

	var output bytes.Buffer
	done := make(chan error, 1)

	go func() {
		_, copyErr := io.Copy(&output, reader)
		done <- copyErr
	}()

	cfg := InitLocalEnvConfig()

	require.NoError(t, writer.Close())
	os.Stdout = stdout
	require.NoError(t, <-done)
	require.NoError(t, reader.Close())

	assert.Contains(t, output.String(), "VERSION: NO-VERSION\n\nENVIRONMENT NAME: development\n\n")
	require.NotNil(t, cfg)
	assert.False(t, cfg.Initialized)
}
