package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
)

// ErrInvalid is returned for unusable configuration values.
var ErrInvalid = errors.New("config: invalid value")

// Config holds all the configuration parameters for the application.
type Config struct {
	IQSampleRate        int
	IntermediateRate    int
	OutputSampleRate    int
	SampleBlockSize     int
	FilterTaps          int
	RingBufferSize      int
	ChunkSize           int
	ChannelFilterCutoff float64
	AudioFilterCutoff   float64
	DeemphTau           float64

	// DemodGain scales the demodulator output.
	DemodGain float64
	// NormalizedOutput keeps demodulated samples in angle/π units.
	NormalizedOutput bool
	// Deviation is the FM peak deviation in Hz used by the modulator.
	Deviation float64
	// Volume scales demodulated audio into int16 range.
	Volume float64

	LogLevel string
}

// New returns a new Config with default values.
func New() *Config {
	return &Config{
		IQSampleRate:        2_000_000,
		IntermediateRate:    240_000,
		OutputSampleRate:    48_000,
		SampleBlockSize:     4096,
		FilterTaps:          251,
		RingBufferSize:      2 * 2_000_000, // 2s of IQ
		ChunkSize:           8192,
		ChannelFilterCutoff: 100000.0 / float64(2_000_000),
		AudioFilterCutoff:   15000.0 / float64(240_000),
		DeemphTau:           50e-6, // 50us for Europe
		DemodGain:           1.0,
		NormalizedOutput:    true,
		Deviation:           75_000,
		Volume:              20_000,
		LogLevel:            "info",
	}
}

// Load returns the defaults overridden by envFile (if it exists) and then by
// the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.New(err)
		}
	}

	cfg := New()
	ints := map[string]*int{
		"CORDIC_IQ_SAMPLE_RATE":     &cfg.IQSampleRate,
		"CORDIC_INTERMEDIATE_RATE":  &cfg.IntermediateRate,
		"CORDIC_OUTPUT_SAMPLE_RATE": &cfg.OutputSampleRate,
		"CORDIC_BLOCK_SIZE":         &cfg.SampleBlockSize,
		"CORDIC_CHUNK_SIZE":         &cfg.ChunkSize,
		"CORDIC_FILTER_TAPS":        &cfg.FilterTaps,
		"CORDIC_RING_BUFFER_SIZE":   &cfg.RingBufferSize,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, xerrors.New(fmt.Errorf("%w: %s=%q", ErrInvalid, key, v))
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"CORDIC_DEMOD_GAIN": &cfg.DemodGain,
		"CORDIC_DEVIATION":  &cfg.Deviation,
		"CORDIC_VOLUME":     &cfg.Volume,
		"CORDIC_DEEMPH_TAU": &cfg.DeemphTau,
	}
	for key, dst := range floats {
		if v, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, xerrors.New(fmt.Errorf("%w: %s=%q", ErrInvalid, key, v))
			}
			*dst = f
		}
	}

	if v, ok := os.LookupEnv("CORDIC_NORMALIZED_OUTPUT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, xerrors.New(fmt.Errorf("%w: CORDIC_NORMALIZED_OUTPUT=%q", ErrInvalid, v))
		}
		cfg.NormalizedOutput = b
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}

	// Cutoffs follow the (possibly overridden) rates.
	cfg.ChannelFilterCutoff = 100000.0 / float64(cfg.IQSampleRate)
	cfg.AudioFilterCutoff = 15000.0 / float64(cfg.IntermediateRate)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks rate ordering and sizes.
func (c *Config) Validate() error {
	switch {
	case c.IQSampleRate <= 0 || c.IntermediateRate <= 0 || c.OutputSampleRate <= 0:
		return xerrors.New(fmt.Errorf("%w: sample rates must be positive", ErrInvalid))
	case c.IntermediateRate > c.IQSampleRate || c.OutputSampleRate > c.IntermediateRate:
		return xerrors.New(fmt.Errorf("%w: rates must not increase along the chain (%d > %d > %d)",
			ErrInvalid, c.IQSampleRate, c.IntermediateRate, c.OutputSampleRate))
	case c.SampleBlockSize <= 0 || c.RingBufferSize <= c.SampleBlockSize || c.ChunkSize <= 0:
		return xerrors.New(fmt.Errorf("%w: block, chunk and ring buffer sizes", ErrInvalid))
	case c.FilterTaps < 2:
		return xerrors.New(fmt.Errorf("%w: filter taps %d", ErrInvalid, c.FilterTaps))
	case c.Deviation <= 0 || c.Deviation >= float64(c.IQSampleRate)/2:
		return xerrors.New(fmt.Errorf("%w: deviation %v Hz", ErrInvalid, c.Deviation))
	}
	return nil
}
