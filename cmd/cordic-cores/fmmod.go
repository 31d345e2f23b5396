package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/go-audio/wav"
	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"

	"go-cordic-cores/internal/config"
	"go-cordic-cores/internal/cordic"
	"go-cordic-cores/internal/dsp"
	"go-cordic-cores/internal/fixed"
)

func init() {
	modCmd := &cobra.Command{
		Use:   "fmmod [flags] input.wav output.wav",
		Short: "FM modulate audio to 16-bit I/Q with the fixed-point NCO",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return modulateFile(cfg, args[0], args[1])
		},
	}
	modCmd.Flags().IntVarP(&iqRate, "sample-rate", "s", 0, "I/Q sample rate in Hz (overrides configuration)")
	rootCmd.AddCommand(modCmd)
}

// readAudio returns the first channel of a PCM WAV file scaled to [-1, 1).
func readAudio(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, xerrors.New(err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, xerrors.New(fmt.Errorf("%s: not a valid WAV file", path))
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, xerrors.New(err)
	}

	channels := buf.Format.NumChannels
	scale := math.Ldexp(1, int(decoder.BitDepth)-1)
	mono := make([]float64, len(buf.Data)/channels)
	for i := range mono {
		mono[i] = float64(buf.Data[i*channels]) / scale
	}
	logger.Info("Read audio.",
		slog.String("file", path),
		slog.Int("sampleRate", buf.Format.SampleRate),
		slog.Int("channels", channels),
		slog.Int("samples", len(mono)))
	return mono, buf.Format.SampleRate, nil
}

func modulateFile(cfg *config.Config, in, out string) error {
	if err := applyIQRate(cfg); err != nil {
		return err
	}

	audio, rate, err := readAudio(in)
	if err != nil {
		return err
	}
	audio = dsp.Resample(audio, float64(cfg.IQSampleRate)/float64(rate))

	sink, err := newWavSink(out, cfg.IQSampleRate, 2)
	if err != nil {
		return err
	}

	nco := cordic.NewNCO()
	// Full-scale audio swings the phase by ±deviation per second, in units
	// of π rad per sample.
	sensitivity := cfg.Deviation / (float64(cfg.IQSampleRate) / 2)
	delay := nco.Delay()
	logger.Debug("Modulator ready.",
		slog.Int("delay", delay),
		slog.Float64("sensitivity", sensitivity),
		slog.Int("iqSamples", len(audio)))

	iq := make([]int, 0, 2*cfg.ChunkSize)
	var clipped, written int64
	emit := func(c fixed.Complex) error {
		for _, v := range [2]float64{c.Re.Float(), c.Im.Float()} {
			s, clip := clipPCM(v * pcmScale)
			if clip {
				clipped++
			}
			iq = append(iq, s)
		}
		if len(iq) < cap(iq) {
			return nil
		}
		written += int64(len(iq) / 2)
		err := sink.Write(iq)
		iq = iq[:0]
		return err
	}

	step := 0
	feed := func(inc fixed.Fixed) error {
		c := nco.Step(inc)
		step++
		if step <= delay {
			return nil
		}
		return emit(c)
	}

	for _, a := range audio {
		if err := feed(fixed.New(a*sensitivity, cordic.AccumulatorFormat)); err != nil {
			sink.Close()
			return xerrors.New(err)
		}
	}
	for range delay {
		if err := feed(fixed.Zero(cordic.AccumulatorFormat)); err != nil {
			sink.Close()
			return xerrors.New(err)
		}
	}
	if len(iq) > 0 {
		written += int64(len(iq) / 2)
		if err := sink.Write(iq); err != nil {
			sink.Close()
			return xerrors.New(err)
		}
	}

	logger.Info("Wrote I/Q.",
		slog.String("file", out),
		slog.Int("sampleRate", cfg.IQSampleRate),
		slog.Int64("samples", written),
		slog.Int64("clipped", clipped))
	return sink.Close()
}
