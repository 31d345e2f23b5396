package dsp

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"go-cordic-cores/internal/fixed"
	"go-cordic-cores/internal/sim"
)

// demodThreshold bounds the fixed-point error of one demodulated sample in
// radians at unity gain.
const demodThreshold = 2e-3

const amplitude = 0.9

// generateTestSignal creates a signal whose phase advances by phaseIncrements[n]
// radians at sample n.
func generateTestSignal(phaseIncrements []float64) ([]complex128, []fixed.Complex) {
	samples := make([]complex128, len(phaseIncrements))
	quantized := make([]fixed.Complex, len(phaseIncrements))
	var phase float64
	for i, inc := range phaseIncrements {
		phase += inc
		samples[i] = cmplx.Rect(amplitude, phase)
		quantized[i] = fixed.NewComplex(samples[i], SampleFormat)
	}
	return samples, quantized
}

func constantIncrements(n int, inc float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = inc
	}
	return out
}

func newDemodulator(t *testing.T, gain float64, normalized bool) *QuadratureDemodulator {
	t.Helper()
	cfg := DefaultDemodulatorConfig()
	cfg.Gain = gain
	cfg.NormalizedOutput = normalized
	d, err := NewQuadratureDemodulator(cfg)
	if err != nil {
		t.Fatalf("NewQuadratureDemodulator: %v", err)
	}
	return d
}

func demodulate(d *QuadratureDemodulator, in []fixed.Complex) []float64 {
	out := sim.Run[fixed.Complex, fixed.Fixed](d, in, fixed.ZeroComplex(SampleFormat))
	res := make([]float64, len(out))
	for i, v := range out {
		res[i] = v.Float()
	}
	return res
}

func TestDemodulator_Delay(t *testing.T) {
	d := newDemodulator(t, 1, false)
	if d.Delay() != 18 {
		t.Fatalf("Expected delay 18, got %d", d.Delay())
	}
}

func TestDemodulator_ConstantFrequency(t *testing.T) {
	d := newDemodulator(t, 1, false)

	const numSamples = 128
	const phaseIncrement = math.Pi / 16

	samples, quantized := generateTestSignal(constantIncrements(numSamples, phaseIncrement))
	output := demodulate(d, quantized)
	reference := d.Reference(samples)

	if len(reference) != numSamples-1 {
		t.Fatalf("Expected reference length %d, got %d", numSamples-1, len(reference))
	}
	for i := range reference {
		if math.Abs(reference[i]-phaseIncrement) > 1e-9 {
			t.Fatalf("Reference sample %d: expected %f, got %f", i, phaseIncrement, reference[i])
		}
		if math.Abs(output[i]-phaseIncrement) > demodThreshold {
			t.Errorf("Sample %d: expected phase difference of %f, but got %f", i, phaseIncrement, output[i])
		}
	}
}

func TestDemodulator_PhaseWrapAround(t *testing.T) {
	// A jump from +0.75π to -0.75π is a change of -1.5π, which wraps to
	// +0.5π. Normalized output reports it as 0.5.
	d := newDemodulator(t, 1, true)

	samples := []complex128{
		cmplx.Rect(amplitude, 0),
		cmplx.Rect(amplitude, 0.75*math.Pi),
		cmplx.Rect(amplitude, -0.75*math.Pi),
	}
	quantized := make([]fixed.Complex, len(samples))
	for i, c := range samples {
		quantized[i] = fixed.NewComplex(c, SampleFormat)
	}

	output := demodulate(d, quantized)
	reference := d.Reference(samples)

	want := []float64{0.75, 0.5}
	for i, w := range want {
		if math.Abs(reference[i]-w) > 1e-9 {
			t.Errorf("Reference %d: expected %f, got %f", i, w, reference[i])
		}
		if math.Abs(output[i]-w) > demodThreshold {
			t.Errorf("Output %d: expected %f, got %f", i, w, output[i])
		}
	}
}

func TestDemodulator_HalfCycleJumps(t *testing.T) {
	// Alternating real samples advance by exactly π every step, which puts
	// every product on the negative real axis.
	d := newDemodulator(t, 1, true)

	samples := make([]complex128, 40)
	quantized := make([]fixed.Complex, len(samples))
	for i := range samples {
		samples[i] = complex(amplitude, 0)
		if i%2 == 1 {
			samples[i] = complex(-amplitude, 0)
		}
		quantized[i] = fixed.NewComplex(samples[i], SampleFormat)
	}

	output := demodulate(d, quantized)
	reference := d.Reference(samples)
	for i, ref := range reference {
		if math.Abs(math.Abs(ref)-1) > 1e-9 {
			t.Fatalf("Reference %d: expected ±1, got %f", i, ref)
		}
		if diff := sim.WrappedDiff(ref, output[i]); diff > demodThreshold {
			t.Errorf("Output %d: expected ±1, got %f (diff %g)", i, output[i], diff)
		}
	}
}

func TestDemodulator_Statefulness(t *testing.T) {
	const numSamples = 256
	const chunkSize = 48

	_, fullSignal := generateTestSignal(constantIncrements(numSamples, -math.Pi/8))

	referenceOutput := newDemodulator(t, 1, false).Process(fullSignal)

	chunked := newDemodulator(t, 1, false)
	chunkedOutput := make([]fixed.Fixed, 0, numSamples)
	for i := 0; i < numSamples; i += chunkSize {
		end := min(i+chunkSize, numSamples)
		chunkedOutput = append(chunkedOutput, chunked.Process(fullSignal[i:end])...)
	}

	if len(referenceOutput) != len(chunkedOutput) {
		t.Fatalf("Mismatched output lengths: reference=%d, chunked=%d", len(referenceOutput), len(chunkedOutput))
	}
	for i := range referenceOutput {
		if referenceOutput[i].Raw() != chunkedOutput[i].Raw() {
			t.Fatalf("Mismatch at sample %d: reference=%v, chunked=%v", i, referenceOutput[i], chunkedOutput[i])
		}
	}
}

func TestDemodulator_TracksPhaseIncrementForGains(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	normalized := make([]float64, 400)
	radians := make([]float64, len(normalized))
	for i := range normalized {
		normalized[i] = rng.Float64()*0.2 - 0.1
		radians[i] = math.Pi * normalized[i]
	}
	samples, quantized := generateTestSignal(radians)

	for _, gain := range []float64{1.0, 0.5, 1.7} {
		d := newDemodulator(t, gain, false)
		output := demodulate(d, quantized)
		reference := d.Reference(samples)
		threshold := demodThreshold * max(1, gain)

		if diff := sim.MaxAbsDiff(reference, output); diff > threshold {
			t.Errorf("gain %v: max deviation from reference %g exceeds %g", gain, diff, threshold)
		}
		for i := range reference {
			// reference[i] pairs samples i and i+1, whose phase step is radians[i+1]
			if math.Abs(output[i]-gain*radians[i+1]) > threshold {
				t.Fatalf("gain %v sample %d: expected %f, got %f", gain, i, gain*radians[i+1], output[i])
			}
		}
	}
}

func TestDemodulator_Reset(t *testing.T) {
	d := newDemodulator(t, 1, false)
	_, signal := generateTestSignal(constantIncrements(40, 0.3))
	first := d.Process(signal)
	d.Reset()
	second := d.Process(signal)
	for i := range first {
		if first[i].Raw() != second[i].Raw() {
			t.Fatalf("Sample %d differs after reset: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestDemodulatorConfig_Validate(t *testing.T) {
	tests := []struct {
		name       string
		gain       float64
		normalized bool
		format     fixed.Format
		wantErr    bool
	}{
		{"Default", 1, false, DefaultDemodulatorConfig().OutputFormat, false},
		{"Large normalized gain", 3, true, DefaultDemodulatorConfig().OutputFormat, false},
		{"Gain constant out of range", 3, false, DefaultDemodulatorConfig().OutputFormat, true},
		{"NaN gain", math.NaN(), false, DefaultDemodulatorConfig().OutputFormat, true},
		{"Infinite gain", math.Inf(1), true, DefaultDemodulatorConfig().OutputFormat, true},
		{"Bad output format", 1, false, fixed.Format{Int: -1, Frac: 17}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DemodulatorConfig{Gain: tt.gain, NormalizedOutput: tt.normalized, OutputFormat: tt.format}
			_, err := NewQuadratureDemodulator(cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestDemodulator_ReferenceShortInput(t *testing.T) {
	d := newDemodulator(t, 1, false)
	if out := d.Reference([]complex128{1}); out != nil {
		t.Errorf("Expected nil reference for a single sample, got %v", out)
	}
}
