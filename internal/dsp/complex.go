package dsp

import "go-cordic-cores/internal/fixed"

// SampleFormat is the default format of registered complex samples.
var SampleFormat = fixed.Format{Int: 0, Frac: 17, Overflow: fixed.Saturate, Round: fixed.Truncate}

// Conjugate registers the complex conjugate of its input.
type Conjugate struct {
	format fixed.Format
	y      fixed.Complex
}

// NewConjugate returns a Conjugate whose register holds values in f.
func NewConjugate(f fixed.Format) *Conjugate {
	c := &Conjugate{format: f}
	c.Reset()
	return c
}

// Reset clears the register.
func (c *Conjugate) Reset() { c.y = fixed.ZeroComplex(c.format) }

// Delay is one register.
func (c *Conjugate) Delay() int { return 1 }

// Step returns conj of the previous input.
func (c *Conjugate) Step(in fixed.Complex) fixed.Complex {
	out := c.y
	c.y = in.Conj().Resize(c.format)
	return out
}

// ComplexMultiply registers the product of its two inputs.
type ComplexMultiply struct {
	format fixed.Format
	y      fixed.Complex
}

// NewComplexMultiply returns a multiplier whose register holds values in f.
func NewComplexMultiply(f fixed.Format) *ComplexMultiply {
	m := &ComplexMultiply{format: f}
	m.Reset()
	return m
}

// Reset clears the register.
func (m *ComplexMultiply) Reset() { m.y = fixed.ZeroComplex(m.format) }

// Delay is one register.
func (m *ComplexMultiply) Delay() int { return 1 }

// Step returns the product of the previous inputs.
func (m *ComplexMultiply) Step(a, b fixed.Complex) fixed.Complex {
	out := m.y
	m.y = a.Mul(b).Resize(m.format)
	return out
}
