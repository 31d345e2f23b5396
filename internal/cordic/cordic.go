// Package cordic implements a pipelined fixed-point CORDIC engine and the
// components built on it: rectangular-to-polar conversion, angle and
// magnitude selectors and a numerically controlled oscillator.
//
// Every component consumes one sample per Step and returns the sample that
// entered Delay steps earlier. Angles are normalized so that [-1, 1) spans
// [-π, π).
package cordic

import (
	"errors"
	"fmt"
	"math"

	"github.com/mdobak/go-xerrors"

	"go-cordic-cores/internal/fixed"
)

// Gain is the magnitude growth of the shift-add rotation sequence.
const Gain = 1.646760

var (
	// ErrInvalidIterations is returned for a negative iteration count.
	ErrInvalidIterations = errors.New("cordic: invalid iteration count")
	// ErrInvalidMode is returned for an unknown Mode.
	ErrInvalidMode = errors.New("cordic: invalid mode")
)

var (
	// DataFormat holds x and y. The extra integer bit absorbs the CORDIC gain.
	DataFormat = fixed.Format{Int: 1, Frac: 17, Overflow: fixed.Wrap, Round: fixed.Truncate}
	// PhaseFormat holds the residual/accumulated angle.
	PhaseFormat = fixed.Format{Int: 1, Frac: 24, Overflow: fixed.Wrap, Round: fixed.Truncate}
	// TableFormat holds the elementary angles atan(2^-i)/π.
	TableFormat = fixed.Format{Int: 0, Frac: 24, Overflow: fixed.Saturate, Round: fixed.RoundNearest}
)

// Mode selects what the engine drives toward zero.
type Mode int

const (
	// Vectoring rotates (x, y) onto the x axis and accumulates the angle.
	Vectoring Mode = iota
	// Rotation rotates (x, y) by the input phase.
	Rotation
)

func (m Mode) String() string {
	switch m {
	case Vectoring:
		return "vectoring"
	case Rotation:
		return "rotation"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

var (
	half = fixed.New(0.5, PhaseFormat)
	one  = fixed.New(1.0, PhaseFormat)
)

// stage is the state held by one column of pipeline registers.
type stage struct {
	x, y, phase fixed.Fixed
}

// Cordic is a pipelined CORDIC engine. Register i+1 holds the result of
// micro-rotation i applied to register i's previous contents; register 0
// holds the quadrant-corrected input.
type Cordic struct {
	mode       Mode
	iterations int
	table      []fixed.Fixed
	regs       []stage

	// chosen once from mode
	initial          func(x, y, phase fixed.Fixed) stage
	counterClockwise func(s stage) bool
}

// New returns an engine running iterations micro-rotations in the given mode.
func New(iterations int, mode Mode) (*Cordic, error) {
	if iterations < 0 {
		return nil, xerrors.New(fmt.Errorf("%w: %d", ErrInvalidIterations, iterations))
	}

	c := &Cordic{
		mode:       mode,
		iterations: iterations,
		table:      make([]fixed.Fixed, iterations+1),
		regs:       make([]stage, iterations+1),
	}
	switch mode {
	case Rotation:
		c.initial = rotationInitial
		c.counterClockwise = func(s stage) bool { return s.phase.Sign() > 0 }
	case Vectoring:
		c.initial = vectoringInitial
		c.counterClockwise = func(s stage) bool { return s.y.Sign() < 0 }
	default:
		return nil, xerrors.New(fmt.Errorf("%w: %v", ErrInvalidMode, mode))
	}

	for i := range c.table {
		c.table[i] = fixed.New(math.Atan(math.Ldexp(1, -i))/math.Pi, TableFormat)
	}
	c.Reset()
	return c, nil
}

// mustNew is for components whose parameters are constants.
func mustNew(iterations int, mode Mode) *Cordic {
	c, err := New(iterations, mode)
	if err != nil {
		panic(err)
	}
	return c
}

// Reset clears every pipeline register.
func (c *Cordic) Reset() {
	for i := range c.regs {
		c.regs[i] = stage{
			x:     fixed.Zero(DataFormat),
			y:     fixed.Zero(DataFormat),
			phase: fixed.Zero(PhaseFormat),
		}
	}
}

// Mode returns the engine's mode.
func (c *Cordic) Mode() Mode { return c.mode }

// Iterations returns the number of micro-rotations.
func (c *Cordic) Iterations() int { return c.iterations }

// Delay returns the number of steps between input and output.
func (c *Cordic) Delay() int { return c.iterations + 1 }

// Table returns a copy of the elementary angle table.
func (c *Cordic) Table() []fixed.Fixed {
	return append([]fixed.Fixed(nil), c.table...)
}

// rotationInitial folds phases beyond ±π/2 back into the convergence range by
// mirroring x and shifting the phase by π.
func rotationInitial(x, y, phase fixed.Fixed) stage {
	switch {
	case phase.Greater(half):
		x = x.Neg()
		phase = phase.Sub(one)
	case phase.Less(half.Neg()):
		x = x.Neg()
		phase = phase.Add(one)
	}
	return stage{x: x, y: y, phase: phase}
}

// vectoringInitial mirrors quadrant II and III vectors through the origin and
// seeds the phase with ±π. The negative real axis counts as quadrant II; left
// alone it would never converge. The ±1.0 literal is quantized in the
// incoming phase's format.
func vectoringInitial(x, y, phase fixed.Fixed) stage {
	if x.Sign() < 0 {
		switch {
		case y.Sign() >= 0:
			return stage{x: x.Neg(), y: y.Neg(), phase: fixed.New(1.0, phase.Format())}
		case y.Sign() < 0:
			return stage{x: x.Neg(), y: y.Neg(), phase: fixed.New(-1.0, phase.Format())}
		}
	}
	return stage{x: x, y: y, phase: phase}
}

// rotate performs micro-rotation i.
func (c *Cordic) rotate(i int, s stage) stage {
	dx, dy := s.y.Rsh(i), s.x.Rsh(i)
	if c.counterClockwise(s) {
		return stage{
			x:     s.x.Sub(dx).Resize(DataFormat),
			y:     s.y.Add(dy).Resize(DataFormat),
			phase: s.phase.Sub(c.table[i]).Resize(PhaseFormat),
		}
	}
	return stage{
		x:     s.x.Add(dx).Resize(DataFormat),
		y:     s.y.Sub(dy).Resize(DataFormat),
		phase: s.phase.Add(c.table[i]).Resize(PhaseFormat),
	}
}

// Step clocks the pipeline once. It returns the final register contents as
// they were before the clock edge, so a sample appears Delay steps after it
// was supplied.
func (c *Cordic) Step(x, y, phase fixed.Fixed) (fixed.Fixed, fixed.Fixed, fixed.Fixed) {
	out := c.regs[c.iterations]

	// Walk backwards so each register reads its predecessor's old value.
	for i := c.iterations - 1; i >= 0; i-- {
		c.regs[i+1] = c.rotate(i, c.regs[i])
	}
	s := c.initial(x, y, phase)
	c.regs[0] = stage{
		x:     s.x.Resize(DataFormat),
		y:     s.y.Resize(DataFormat),
		phase: s.phase.Resize(PhaseFormat),
	}
	return out.x, out.y, out.phase
}

// Vector is an (x, y, phase) triple flowing through the engine.
type Vector struct {
	X, Y, Phase fixed.Fixed
}

// Process runs Step over a block of inputs.
func (c *Cordic) Process(in []Vector) []Vector {
	out := make([]Vector, len(in))
	for i, v := range in {
		out[i].X, out[i].Y, out[i].Phase = c.Step(v.X, v.Y, v.Phase)
	}
	return out
}

// Reference is the ideal floating-point result of the engine, including the
// CORDIC gain. In rotation mode it assumes y = 0 beyond ±π/2, where the
// initial step only mirrors x. In vectoring mode the input phase is added to
// the vector's angle.
func (c *Cordic) Reference(x, y, phase float64) (float64, float64, float64) {
	if c.mode == Rotation {
		sin, cos := math.Sincos(math.Pi * phase)
		return Gain * (x*cos - y*sin), Gain * (x*sin + y*cos), 0
	}
	return Gain * math.Hypot(x, y), 0, phase + math.Atan2(y, x)/math.Pi
}
