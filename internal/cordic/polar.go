package cordic

import (
	"math"
	"math/cmplx"

	"go-cordic-cores/internal/fixed"
)

// PolarIterations is the number of micro-rotations used by ToPolar.
const PolarIterations = 13

var (
	// PolarFormat is the format of ToPolar's magnitude and angle outputs.
	PolarFormat = fixed.Format{Int: 0, Frac: 17, Overflow: fixed.Saturate, Round: fixed.Truncate}

	// polarPhase is the zero phase fed to the engine. Quadrant II inputs seed
	// the phase with +1.0 in this format, which saturates to 1-2^-24.
	polarPhase = fixed.Zero(fixed.Format{Int: 0, Frac: 24, Overflow: fixed.Saturate, Round: fixed.Truncate})

	invGain = fixed.New(1/Gain, fixed.Format{Int: 1, Frac: 17, Overflow: fixed.Saturate, Round: fixed.RoundNearest})
)

// Polar is a magnitude and a normalized angle in [-1, 1).
type Polar struct {
	Abs   fixed.Fixed
	Angle fixed.Fixed
}

// ToPolar converts complex samples to gain-corrected magnitude and angle/π.
type ToPolar struct {
	core *Cordic
	out  Polar
}

// NewToPolar returns a converter with cleared registers.
func NewToPolar() *ToPolar {
	p := &ToPolar{core: mustNew(PolarIterations, Vectoring)}
	p.Reset()
	return p
}

// Reset clears all registers.
func (p *ToPolar) Reset() {
	p.core.Reset()
	p.out = Polar{Abs: fixed.Zero(PolarFormat), Angle: fixed.Zero(PolarFormat)}
}

// Delay is the engine's delay plus the output register.
func (p *ToPolar) Delay() int {
	return p.core.Delay() + 1
}

// Step consumes one sample and returns the result for the sample supplied
// Delay steps earlier.
func (p *ToPolar) Step(c fixed.Complex) Polar {
	out := p.out
	x, _, phase := p.core.Step(c.Re, c.Im, polarPhase)
	p.out = Polar{
		Abs:   x.Mul(invGain).Resize(PolarFormat),
		Angle: phase.Resize(PolarFormat),
	}
	return out
}

// Process runs Step over a block.
func (p *ToPolar) Process(in []fixed.Complex) []Polar {
	out := make([]Polar, len(in))
	for i, c := range in {
		out[i] = p.Step(c)
	}
	return out
}

// Reference returns |c| and angle(c)/π for every sample.
func (p *ToPolar) Reference(in []complex128) (abs, angle []float64) {
	abs = make([]float64, len(in))
	angle = make([]float64, len(in))
	for i, c := range in {
		abs[i] = cmplx.Abs(c)
		angle[i] = cmplx.Phase(c) / math.Pi
	}
	return abs, angle
}

// Angle is the angle half of ToPolar: angle(c)/π.
type Angle struct {
	core *ToPolar
}

// NewAngle returns an Angle owning its own converter.
func NewAngle() *Angle {
	return &Angle{core: NewToPolar()}
}

// Delay returns the converter's delay.
func (a *Angle) Delay() int { return a.core.Delay() }

// Reset clears all registers.
func (a *Angle) Reset() { a.core.Reset() }

// Step consumes one sample.
func (a *Angle) Step(c fixed.Complex) fixed.Fixed {
	return a.core.Step(c).Angle
}

// Process runs Step over a block.
func (a *Angle) Process(in []fixed.Complex) []fixed.Fixed {
	out := make([]fixed.Fixed, len(in))
	for i, c := range in {
		out[i] = a.Step(c)
	}
	return out
}

// Reference returns angle(c)/π for every sample.
func (a *Angle) Reference(in []complex128) []float64 {
	_, angle := a.core.Reference(in)
	return angle
}

// Abs is the magnitude half of ToPolar.
type Abs struct {
	core *ToPolar
}

// NewAbs returns an Abs owning its own converter.
func NewAbs() *Abs {
	return &Abs{core: NewToPolar()}
}

// Delay returns the converter's delay.
func (a *Abs) Delay() int { return a.core.Delay() }

// Reset clears all registers.
func (a *Abs) Reset() { a.core.Reset() }

// Step consumes one sample.
func (a *Abs) Step(c fixed.Complex) fixed.Fixed {
	return a.core.Step(c).Abs
}

// Process runs Step over a block.
func (a *Abs) Process(in []fixed.Complex) []fixed.Fixed {
	out := make([]fixed.Fixed, len(in))
	for i, c := range in {
		out[i] = a.Step(c)
	}
	return out
}

// Reference returns |c| for every sample.
func (a *Abs) Reference(in []complex128) []float64 {
	abs, _ := a.core.Reference(in)
	return abs
}
