package cordic

import (
	"math"
	"math/cmplx"

	"go-cordic-cores/internal/fixed"
)

// NCOIterations is the number of micro-rotations used by NCO.
const NCOIterations = 16

var (
	// AccumulatorFormat is the phase accumulator. Wrap overflow makes the
	// accumulated angle cyclic over [-1, 1).
	AccumulatorFormat = fixed.Format{Int: 0, Frac: 24, Overflow: fixed.Wrap, Round: fixed.Truncate}
	// NCOFormat is the format of the generated I/Q samples.
	NCOFormat = fixed.Format{Int: 0, Frac: 17, Overflow: fixed.Saturate, Round: fixed.Truncate}

	// The start vector is pre-scaled by 1/Gain so the output has unit
	// magnitude.
	ncoStartX = fixed.New(1/Gain, fixed.Format{Int: 0, Frac: 17, Overflow: fixed.Saturate, Round: fixed.RoundNearest})
	ncoStartY = fixed.Zero(fixed.Format{Int: 0, Frac: 17, Overflow: fixed.Saturate, Round: fixed.Truncate})
)

// NCO is a numerically controlled oscillator. Each step adds a phase
// increment (normalized, 1.0 = π rad) to an accumulator and emits
// exp(iπ·accumulator).
type NCO struct {
	core *Cordic
	acc  fixed.Fixed
}

// NewNCO returns an oscillator with a zeroed accumulator.
func NewNCO() *NCO {
	n := &NCO{core: mustNew(NCOIterations, Rotation)}
	n.Reset()
	return n
}

// Reset zeroes the accumulator and clears the pipeline.
func (n *NCO) Reset() {
	n.core.Reset()
	n.acc = fixed.Zero(AccumulatorFormat)
}

// Delay is the engine's delay plus the accumulator register.
func (n *NCO) Delay() int {
	return n.core.Delay() + 1
}

// Phase returns the current accumulator value.
func (n *NCO) Phase() fixed.Fixed { return n.acc }

// Step accumulates phaseInc and returns the oscillator output for the
// increment supplied Delay steps earlier.
func (n *NCO) Step(phaseInc fixed.Fixed) fixed.Complex {
	phase := n.acc
	n.acc = n.acc.Add(phaseInc).Resize(AccumulatorFormat)

	x, y, _ := n.core.Step(ncoStartX, ncoStartY, phase)
	return fixed.Complex{Re: x.Resize(NCOFormat), Im: y.Resize(NCOFormat)}
}

// Process runs Step over a block.
func (n *NCO) Process(phaseInc []fixed.Fixed) []fixed.Complex {
	out := make([]fixed.Complex, len(phaseInc))
	for i, p := range phaseInc {
		out[i] = n.Step(p)
	}
	return out
}

// Reference returns exp(iπ·cumsum(phaseInc)).
func (n *NCO) Reference(phaseInc []float64) []complex128 {
	out := make([]complex128, len(phaseInc))
	var acc float64
	for i, p := range phaseInc {
		acc += p
		out[i] = cmplx.Exp(complex(0, math.Pi*acc))
	}
	return out
}
