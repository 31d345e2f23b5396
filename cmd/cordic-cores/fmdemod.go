package main

import (
	"errors"
	"log/slog"
	"math"
	"os"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"

	"go-cordic-cores/internal/config"
	"go-cordic-cores/internal/dsp"
	"go-cordic-cores/internal/fixed"
	"go-cordic-cores/internal/ringbuffer"
)

var (
	demodPlay bool
	demodRaw  bool
	// iqRate overrides the configured I/Q rate when non-zero.
	iqRate int
)

func init() {
	demodCmd := &cobra.Command{
		Use:   "fmdemod [flags] input.iq [output.wav]",
		Short: "FM demodulate 16-bit I/Q to audio with the fixed-point demodulator",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !demodPlay && len(args) != 2 {
				return errors.New("fmdemod: output file required unless --play is set")
			}
			var out string
			if len(args) == 2 {
				out = args[1]
			}
			return demodulateFile(cfg, args[0], out)
		},
	}
	demodCmd.Flags().BoolVarP(&demodPlay, "play", "p", false, "Play the audio instead of writing a WAV file")
	demodCmd.Flags().BoolVar(&demodRaw, "raw", false, "Treat the input as raw interleaved int16 I/Q even if it has a WAV header")
	demodCmd.Flags().IntVarP(&iqRate, "sample-rate", "s", 0, "I/Q sample rate in Hz (overrides configuration)")
	rootCmd.AddCommand(demodCmd)
}

func demodulateFile(cfg *config.Config, in, out string) error {
	if err := applyIQRate(cfg); err != nil {
		return err
	}

	file, err := os.Open(in)
	if err != nil {
		return xerrors.New(err)
	}
	defer file.Close()

	var sink audioSink
	if demodPlay {
		logger.Info("Setting up audio playback.", slog.Int("sampleRate", cfg.OutputSampleRate))
		sink, err = newPlayerSink(cfg.OutputSampleRate)
	} else {
		sink, err = newWavSink(out, cfg.OutputSampleRate, 1)
	}
	if err != nil {
		return err
	}

	rb := ringbuffer.New[complex128](cfg.RingBufferSize)
	readErr := make(chan error, 1)
	go func() { readErr <- readIQ(file, demodRaw, cfg.ChunkSize, rb) }()

	procErr := processIQ(rb, sink, cfg)
	if procErr != nil {
		// unblock the reader
		rb.Close()
	}
	closeErr := sink.Close()
	if err := <-readErr; err != nil && !errors.Is(err, ringbuffer.ErrClosed) {
		return err
	}
	if procErr != nil {
		return procErr
	}
	return closeErr
}

// inputScale keeps |I+jQ| below 1 so full-scale I and Q fit the sample
// format.
const inputScale = 1 / math.Sqrt2

func processIQ(rb *ringbuffer.RingBuffer[complex128], sink audioSink, cfg *config.Config) error {
	// --- Stage 1: Channel Selection Filter ---
	channelTaps, err := dsp.DesignFIRLowPass(cfg.FilterTaps, cfg.ChannelFilterCutoff)
	if err != nil {
		return err
	}
	channelFilter := dsp.NewFIRFilter[complex128](channelTaps)

	// --- Stage 2: Fixed-point FM Demodulator ---
	demodCfg := dsp.DefaultDemodulatorConfig()
	demodCfg.Gain = cfg.DemodGain
	demodCfg.NormalizedOutput = cfg.NormalizedOutput
	demod, err := dsp.NewQuadratureDemodulator(demodCfg)
	if err != nil {
		return err
	}
	logger.Debug("Demodulator ready.", slog.Int("delay", demod.Delay()), slog.Float64("gain", demodCfg.Gain))

	// --- Stage 3: Audio Filtering and De-emphasis ---
	audioTaps, err := dsp.DesignFIRLowPass(cfg.FilterTaps, cfg.AudioFilterCutoff)
	if err != nil {
		return err
	}
	audioFilter := dsp.NewFIRFilter[float64](audioTaps)
	deemph, err := dsp.NewDeemphasis(cfg.OutputSampleRate, cfg.DeemphTau)
	if err != nil {
		return err
	}

	ratioStage1 := float64(cfg.IntermediateRate) / float64(cfg.IQSampleRate)
	ratioStage2 := float64(cfg.OutputSampleRate) / float64(cfg.IntermediateRate)

	var blocks, clipped, written int64
	for {
		raw := rb.Read(cfg.SampleBlockSize)
		if raw == nil {
			logger.Info("End of stream.",
				slog.Int64("blocks", blocks),
				slog.Int64("samples", written),
				slog.Int64("clipped", clipped))
			return nil
		}
		blocks++

		// === STAGE 1: Channel Filtering and Decimation ===
		intermediate := channelFilter.Process(raw, ratioStage1)
		if intermediate == nil {
			continue
		}

		// === STAGE 2: FM Demodulation ===
		phaseDiffs := make([]float64, len(intermediate))
		for i, c := range intermediate {
			phaseDiffs[i] = demod.Step(fixed.NewComplex(c*inputScale, dsp.SampleFormat)).Float()
		}

		// === STAGE 3: Audio Filtering and Final Resampling ===
		audio := audioFilter.Process(phaseDiffs, ratioStage2)
		if audio == nil {
			continue
		}
		deemph.Process(audio)

		pcm := make([]int, len(audio))
		for i, v := range audio {
			s, clip := clipPCM(v * cfg.Volume)
			if clip {
				clipped++
			}
			pcm[i] = s
		}
		if err := sink.Write(pcm); err != nil {
			return xerrors.New(err)
		}
		written += int64(len(pcm))

		if blocks%100 == 0 && clipped > 0 {
			logger.Warn("Clipping audio.", slog.Int64("clipped", clipped), slog.Int64("blocks", blocks))
		}
	}
}
