package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"KERNEL_DB", "KERNEL_ADDR", "KERNEL_COEFFICIENTS", "KERNEL_LOG_LEVEL", "KERNEL_LOG_DEV", "KERNEL_OTEL_ENDPOINT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "kernel.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:7401", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogDevelopment)
	assert.Empty(t, cfg.OTelEndpoint)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KERNEL_DB", "/var/lib/kernel/ledger.db")
	t.Setenv("KERNEL_ADDR", ":9000")
	t.Setenv("KERNEL_LOG_DEV", "true")
	t.Setenv("KERNEL_OTEL_ENDPOINT", "http://collector:4318")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/kernel/ledger.db", cfg.DBPath)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.True(t, cfg.LogDevelopment)
	assert.Equal(t, "http://collector:4318", cfg.OTelEndpoint)
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv("KERNEL_LOG_DEV", "sometimes")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadCoefficientsEmptyPath(t *testing.T) {
	c, err := LoadCoefficients("")
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultCoefficients(), c)
}

func TestLoadCoefficientsPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coeff.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coefficients:\n  delta: 0.12\n  pressure_decay: 0.004\n"), 0o644))

	c, err := LoadCoefficients(path)
	require.NoError(t, err)
	want := engine.DefaultCoefficients()
	want.Delta = 0.12
	want.PressureDecay = 0.004
	assert.Equal(t, want, c)
}

func TestLoadCoefficientsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coeff.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coefficients:\n  min_gauge: 0.9\n  max_gauge: 0.1\n"), 0o644))

	_, err := LoadCoefficients(path)
	assert.Error(t, err)
}

func TestLoadCoefficientsMissingFile(t *testing.T) {
	_, err := LoadCoefficients(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveThenLoadCoefficients(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuned", "coeff.yaml")
	c := engine.DefaultCoefficients()
	c.RecoveryTransfer = 0.22
	c.VolatilityDecay = 0.0033

	require.NoError(t, SaveCoefficients(path, "proposal-1", c))
	got, err := LoadCoefficients(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestSaveRejectsInvalid(t *testing.T) {
	c := engine.DefaultCoefficients()
	c.Delta = 0
	path := filepath.Join(t.TempDir(), "coeff.yaml")
	require.Error(t, SaveCoefficients(path, "", c))
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
