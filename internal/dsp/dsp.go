// Package dsp holds the demodulation chain: fixed-point complex stages and
// the quadrature demodulator, plus the floating-point filters that sit
// around it (channel selection, resampling, de-emphasis).
package dsp

import (
	"fmt"
	"math"

	"github.com/mdobak/go-xerrors"
)

// DesignFIRLowPass creates a low-pass FIR filter using the windowed-sinc
// method. cutoff is relative to the sample rate and must be below 0.5.
func DesignFIRLowPass(numTaps int, cutoff float64) ([]float64, error) {
	if numTaps < 2 {
		return nil, xerrors.New(fmt.Errorf("%w: need at least 2 taps, got %d", ErrInvalidConfig, numTaps))
	}
	if !(cutoff > 0 && cutoff < 0.5) {
		return nil, xerrors.New(fmt.Errorf("%w: cutoff %v outside (0, 0.5)", ErrInvalidConfig, cutoff))
	}

	taps := make([]float64, numTaps)
	M := float64(numTaps - 1)
	// normalized to Nyquist
	fc := cutoff * 2
	for n := range taps {
		x := float64(n) - M/2
		if x == 0 {
			taps[n] = fc
		} else {
			taps[n] = fc * math.Sin(math.Pi*fc*x) / (math.Pi * fc * x)
		}
		// Hamming
		taps[n] *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(n)/M)
	}

	sum := 0.0
	for _, t := range taps {
		sum += t
	}
	for i := range taps {
		taps[i] /= sum
	}
	return taps, nil
}

// Resample changes the sample rate of a block by ratio (output / input)
// using a Hamming-windowed sinc kernel.
func Resample(input []float64, ratio float64) []float64 {
	const windowSize = 16 // taps on each side

	outputLen := int(float64(len(input)) * ratio)
	if outputLen == 0 {
		return nil
	}
	output := make([]float64, outputLen)
	invRatio := 1.0 / ratio
	// Widen the kernel when decimating so it also band-limits.
	scale := min(1.0, ratio)
	reach := int(math.Ceil(windowSize / scale))

	for i := range output {
		inPos := float64(i) * invRatio
		center := int(math.Round(inPos))

		var acc, sumTaps float64
		for j := -reach; j < reach; j++ {
			idx := center + j
			if idx < 0 || idx >= len(input) {
				continue
			}

			d := (inPos - float64(idx)) * scale
			sinc := 1.0
			if d != 0 {
				sinc = math.Sin(math.Pi*d) / (math.Pi * d)
			}
			window := 0.54 - 0.46*math.Cos(2*math.Pi*float64(j+reach)/float64(2*reach))
			tap := sinc * window

			acc += input[idx] * tap
			sumTaps += tap
		}
		if sumTaps != 0 {
			output[i] = acc / sumTaps
		}
	}
	return output
}
