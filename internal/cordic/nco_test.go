package cordic

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/mjibson/go-dsp/fft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cordic-cores/internal/fixed"
	"go-cordic-cores/internal/sim"
)

// ncoTolerance bounds the per-component error of the 16-iteration rotation
// with a 17-bit output.
const ncoTolerance = 2e-3

// phaseIncrements quantizes increments to the accumulator format and returns
// both the fixed and the exactly-representable float values.
func phaseIncrements(values []float64) ([]fixed.Fixed, []float64) {
	fx := make([]fixed.Fixed, len(values))
	fl := make([]float64, len(values))
	for i, v := range values {
		fx[i] = fixed.New(v, AccumulatorFormat)
		fl[i] = fx[i].Float()
	}
	return fx, fl
}

func runNCO(n *NCO, inc []fixed.Fixed) []complex128 {
	out := sim.Run[fixed.Fixed, fixed.Complex](n, inc, fixed.Zero(AccumulatorFormat))
	res := make([]complex128, len(out))
	for i, c := range out {
		res[i] = c.Complex128()
	}
	return res
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNCO_UnitMagnitudeAndReference(t *testing.T) {
	for _, inc := range []float64{0.01, -0.037, 0.3, 0.9} {
		fx, fl := phaseIncrements(constant(inc, 300))

		n := NewNCO()
		got := runNCO(n, fx)
		want := n.Reference(fl)
		require.Len(t, got, len(want))

		for i := range want {
			assert.InDelta(t, 1.0, cmplx.Abs(got[i]), ncoTolerance, "inc %v sample %d", inc, i)
			assert.InDelta(t, real(want[i]), real(got[i]), ncoTolerance, "inc %v sample %d", inc, i)
			assert.InDelta(t, imag(want[i]), imag(got[i]), ncoTolerance, "inc %v sample %d", inc, i)
		}
	}
}

func TestNCO_AccumulatorWraps(t *testing.T) {
	n := NewNCO()
	inc := fixed.New(0.75, AccumulatorFormat)
	n.Step(inc)
	n.Step(inc)
	// 1.5 wraps to -0.5
	assert.Equal(t, -0.5, n.Phase().Float())
	n.Step(inc)
	assert.Equal(t, 0.25, n.Phase().Float())

	n.Reset()
	assert.Equal(t, 0.0, n.Phase().Float())
}

func TestNCO_SpectralPeak(t *testing.T) {
	const size = 256
	// π/16 rad per sample lands in bin size/32
	fx, _ := phaseIncrements(constant(1.0/16, size))
	got := runNCO(NewNCO(), fx)

	spectrum := fft.FFT(got)
	peak := 0
	for k := range spectrum {
		if cmplx.Abs(spectrum[k]) > cmplx.Abs(spectrum[peak]) {
			peak = k
		}
	}
	assert.Equal(t, size/32, peak)
	assert.InDelta(t, size, cmplx.Abs(spectrum[peak]), 1)
}

func TestAngleOfNCO_TracksAccumulatedPhase(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 500)
	for i := range values {
		values[i] = rng.Float64()*0.4 - 0.2
	}
	fx, fl := phaseIncrements(values)

	tone := sim.Run[fixed.Fixed, fixed.Complex](NewNCO(), fx, fixed.Zero(AccumulatorFormat))
	angles := sim.Run[fixed.Complex, fixed.Fixed](NewAngle(), tone, fixed.ZeroComplex(NCOFormat))
	require.Len(t, angles, len(values))

	var acc float64
	for i, a := range angles {
		acc += fl[i]
		want := sim.Wrap(acc)
		assert.LessOrEqual(t, sim.WrappedDiff(want, a.Float()), angleTolerance, "sample %d want %v", i, want)
	}
}

func TestNCO_ProcessMatchesReferenceAfterDelay(t *testing.T) {
	fx, fl := phaseIncrements(constant(0.125, 64))
	n := NewNCO()
	raw := n.Process(fx)
	want := n.Reference(fl)

	for i := 0; i < n.Delay()-1; i++ {
		// the pipeline still holds its reset state
		assert.Equal(t, 0.0, raw[i].Re.Float())
	}
	for i := n.Delay(); i < len(raw); i++ {
		got := raw[i].Complex128()
		ref := want[i-n.Delay()]
		assert.InDelta(t, 0, cmplx.Abs(got-ref), math.Sqrt2*ncoTolerance, "sample %d", i)
	}
}
