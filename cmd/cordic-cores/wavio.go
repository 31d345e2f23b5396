package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mdobak/go-xerrors"

	"go-cordic-cores/internal/ringbuffer"
)

const pcmScale = 32768.0

// audioSink receives interleaved 16-bit PCM samples.
type audioSink interface {
	Write(samples []int) error
	Close() error
}

// wavSink writes PCM to a WAV file.
type wavSink struct {
	file    *os.File
	encoder *wav.Encoder
	format  *audio.Format
}

func newWavSink(path string, sampleRate, channels int) (*wavSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, xerrors.New(err)
	}
	return &wavSink{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, 16, channels, 1),
		format:  &audio.Format{NumChannels: channels, SampleRate: sampleRate},
	}, nil
}

func (s *wavSink) Write(samples []int) error {
	return s.encoder.Write(&audio.IntBuffer{Format: s.format, Data: samples, SourceBitDepth: 16})
}

func (s *wavSink) Close() error {
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return xerrors.New(err)
	}
	return s.file.Close()
}

// playerSink streams mono PCM to the default audio device.
type playerSink struct {
	writer *io.PipeWriter
	player *oto.Player
}

func newPlayerSink(sampleRate int) (*playerSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, xerrors.New(err)
	}
	<-ready

	reader, writer := io.Pipe()
	player := ctx.NewPlayer(reader)
	player.Play()
	return &playerSink{writer: writer, player: player}, nil
}

func (s *playerSink) Write(samples []int) error {
	buf := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(v)))
	}
	_, err := s.writer.Write(buf)
	return err
}

func (s *playerSink) Close() error {
	s.writer.Close()
	for s.player.IsPlaying() {
		time.Sleep(100 * time.Millisecond)
	}
	return s.player.Close()
}

// readIQ fills rb with complex samples from a 16-bit stereo WAV file or, if
// the file has no WAV header (or raw is set), from interleaved little-endian
// int16 I/Q pairs. It closes rb when done.
func readIQ(file *os.File, raw bool, chunkSize int, rb *ringbuffer.RingBuffer[complex128]) error {
	defer rb.Close()

	decoder := wav.NewDecoder(file)
	if raw || !decoder.IsValidFile() {
		logger.Info("Reading raw IQ.", slog.String("file", file.Name()))
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return xerrors.New(err)
		}
		return readRawIQ(file, chunkSize, rb)
	}

	if err := decoder.FwdToPCM(); err != nil {
		return xerrors.New(err)
	}
	logger.Info("Reading IQ from WAV file.",
		slog.Int("bitDepth", int(decoder.BitDepth)),
		slog.Int("sampleRate", int(decoder.SampleRate)),
		slog.Int("channels", int(decoder.NumChans)))
	if decoder.BitDepth != 16 || decoder.NumChans != 2 {
		return xerrors.New(fmt.Errorf("expected 16-bit stereo I/Q, got %d-bit with %d channels",
			decoder.BitDepth, decoder.NumChans))
	}

	buf := &audio.IntBuffer{
		Format: decoder.Format(),
		Data:   make([]int, chunkSize*2), // I+Q
	}
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return xerrors.New(err)
		}
		if n == 0 {
			logger.Debug("End of WAV file reached.")
			return nil
		}
		samples := make([]complex128, n/2)
		for i := range samples {
			samples[i] = complex(float64(buf.Data[2*i])/pcmScale, float64(buf.Data[2*i+1])/pcmScale)
		}
		if err := rb.Write(samples); err != nil {
			return xerrors.New(err)
		}
	}
}

func readRawIQ(r io.Reader, chunkSize int, rb *ringbuffer.RingBuffer[complex128]) error {
	buf := make([]byte, chunkSize*4) // int16 I + int16 Q
	for {
		n, err := io.ReadFull(r, buf)
		if n >= 4 {
			samples := make([]complex128, n/4)
			for i := range samples {
				iv := int16(binary.LittleEndian.Uint16(buf[4*i:]))
				qv := int16(binary.LittleEndian.Uint16(buf[4*i+2:]))
				samples[i] = complex(float64(iv)/pcmScale, float64(qv)/pcmScale)
			}
			if werr := rb.Write(samples); werr != nil {
				return xerrors.New(werr)
			}
		}
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		case err != nil:
			return xerrors.New(err)
		}
	}
}

// clipPCM clamps v to int16 range, reporting whether it had to.
func clipPCM(v float64) (int, bool) {
	switch {
	case v > 32767:
		return 32767, true
	case v < -32768:
		return -32768, true
	}
	return int(v), false
}
