package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mdobak/go-xerrors"

	"go-cordic-cores/internal/cordic"
	"go-cordic-cores/internal/fixed"
)

// ErrInvalidConfig is returned for unusable stage parameters.
var ErrInvalidConfig = errors.New("dsp: invalid configuration")

// GainFormat holds the demodulator's gain constant.
var GainFormat = fixed.Format{Int: 3, Frac: 14, Overflow: fixed.Saturate, Round: fixed.RoundNearest}

// DemodulatorConfig defines how the quadrature demodulator scales its output.
type DemodulatorConfig struct {
	// Gain is the inverse of the transmitter's sensitivity.
	Gain float64

	// NormalizedOutput keeps the output in angle/π units. Otherwise the
	// output is in radians.
	NormalizedOutput bool

	// OutputFormat is the format of the output register.
	OutputFormat fixed.Format
}

// DefaultDemodulatorConfig returns unity gain with radian output.
func DefaultDemodulatorConfig() DemodulatorConfig {
	return DemodulatorConfig{
		Gain:         1.0,
		OutputFormat: fixed.Format{Int: 0, Frac: 17, Overflow: fixed.Saturate, Round: fixed.Truncate},
	}
}

// constant returns the multiplier applied to Angle's output.
func (c DemodulatorConfig) constant() float64 {
	if c.NormalizedOutput {
		return c.Gain
	}
	// Angle's output is angle/π; this brings it back to radians.
	return c.Gain * math.Pi
}

// Validate checks that the gain constant and output format are usable.
func (c DemodulatorConfig) Validate() error {
	k := c.constant()
	if math.IsNaN(k) || math.IsInf(k, 0) {
		return xerrors.New(fmt.Errorf("%w: gain %v is not finite", ErrInvalidConfig, c.Gain))
	}
	if k < GainFormat.Min() || k > GainFormat.Max() {
		return xerrors.New(fmt.Errorf("%w: gain constant %v outside [%v, %v]",
			ErrInvalidConfig, k, GainFormat.Min(), GainFormat.Max()))
	}
	if err := c.OutputFormat.Validate(); err != nil {
		return xerrors.New(fmt.Errorf("%w: output format: %w", ErrInvalidConfig, err))
	}
	return nil
}

// QuadratureDemodulator recovers instantaneous frequency from complex
// samples: the angle of c[n]·conj(c[n-1]) is the phase advance between
// consecutive samples.
type QuadratureDemodulator struct {
	config DemodulatorConfig
	gain   fixed.Fixed

	conjugate *Conjugate
	multiply  *ComplexMultiply
	angle     *cordic.Angle
	y         fixed.Fixed
}

// NewQuadratureDemodulator creates a demodulator with cleared registers.
func NewQuadratureDemodulator(config DemodulatorConfig) (*QuadratureDemodulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	d := &QuadratureDemodulator{
		config:    config,
		gain:      fixed.New(config.constant(), GainFormat),
		conjugate: NewConjugate(SampleFormat),
		multiply:  NewComplexMultiply(SampleFormat),
		angle:     cordic.NewAngle(),
	}
	d.y = fixed.Zero(config.OutputFormat)
	return d, nil
}

// Config returns the configuration the demodulator was built with.
func (d *QuadratureDemodulator) Config() DemodulatorConfig { return d.config }

// Delay is the sum of the stage delays plus the output register.
func (d *QuadratureDemodulator) Delay() int {
	return d.conjugate.Delay() + d.multiply.Delay() + d.angle.Delay() + 1
}

// Reset clears every register in the chain.
func (d *QuadratureDemodulator) Reset() {
	d.conjugate.Reset()
	d.multiply.Reset()
	d.angle.Reset()
	d.y = fixed.Zero(d.config.OutputFormat)
}

// Step consumes one sample and returns the demodulated value that belongs to
// Reference index n when called at step n+Delay.
func (d *QuadratureDemodulator) Step(c fixed.Complex) fixed.Fixed {
	out := d.y
	conj := d.conjugate.Step(c)
	mult := d.multiply.Step(c, conj)
	angle := d.angle.Step(mult)
	d.y = d.gain.Mul(angle).Resize(d.config.OutputFormat)
	return out
}

// Process demodulates a block of samples. State carries across calls, so a
// stream can be processed in arbitrary chunks.
func (d *QuadratureDemodulator) Process(samples []fixed.Complex) []fixed.Fixed {
	output := make([]fixed.Fixed, len(samples))
	for i, c := range samples {
		output[i] = d.Step(c)
	}
	return output
}

// Reference returns gain·angle(c[n+1]·conj(c[n])) for every consecutive
// pair, so the result is one sample shorter than the input.
func (d *QuadratureDemodulator) Reference(samples []complex128) []float64 {
	if len(samples) < 2 {
		return nil
	}
	scale := d.config.Gain
	if d.config.NormalizedOutput {
		scale /= math.Pi
	}
	output := make([]float64, len(samples)-1)
	for i := range output {
		p := samples[i+1] * cmplx.Conj(samples[i])
		output[i] = scale * cmplx.Phase(p)
	}
	return output
}
