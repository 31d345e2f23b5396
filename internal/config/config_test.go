package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsAreValid(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2_000_000, cfg.IQSampleRate)
	assert.Equal(t, 1.0, cfg.DemodGain)
	assert.True(t, cfg.NormalizedOutput)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, New().OutputSampleRate, cfg.OutputSampleRate)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CORDIC_IQ_SAMPLE_RATE", "1200000")
	t.Setenv("CORDIC_DEMOD_GAIN", "0.5")
	t.Setenv("CORDIC_NORMALIZED_OUTPUT", "false")
	t.Setenv("CORDIC_CHUNK_SIZE", "1024")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1_200_000, cfg.IQSampleRate)
	assert.Equal(t, 1024, cfg.ChunkSize)
	assert.Equal(t, 0.5, cfg.DemodGain)
	assert.False(t, cfg.NormalizedOutput)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.InDelta(t, 100000.0/1_200_000, cfg.ChannelFilterCutoff, 1e-12)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CORDIC_VOLUME=1234\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CORDIC_VOLUME") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1234.0, cfg.Volume)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CORDIC_BLOCK_SIZE", "lots"},
		{"CORDIC_CHUNK_SIZE", "0"},
		{"CORDIC_DEVIATION", "wide"},
		{"CORDIC_NORMALIZED_OUTPUT", "maybe"},
		{"CORDIC_OUTPUT_SAMPLE_RATE", "480000"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}
