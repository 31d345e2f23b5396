package fixed

import "fmt"

// Complex is a pair of fixed-point scalars.
type Complex struct {
	Re, Im Fixed
}

// NewComplex quantizes both parts of c into f.
func NewComplex(c complex128, f Format) Complex {
	return Complex{Re: New(real(c), f), Im: New(imag(c), f)}
}

// ZeroComplex returns 0+0i in format f.
func ZeroComplex(f Format) Complex {
	return Complex{Re: Zero(f), Im: Zero(f)}
}

// Conj returns the complex conjugate.
func (c Complex) Conj() Complex {
	return Complex{Re: c.Re, Im: c.Im.Neg()}
}

// Mul returns the full-precision product c*d.
func (c Complex) Mul(d Complex) Complex {
	return Complex{
		Re: c.Re.Mul(d.Re).Sub(c.Im.Mul(d.Im)),
		Im: c.Re.Mul(d.Im).Add(c.Im.Mul(d.Re)),
	}
}

// Resize converts both parts into f.
func (c Complex) Resize(f Format) Complex {
	return Complex{Re: c.Re.Resize(f), Im: c.Im.Resize(f)}
}

// Complex128 returns the exact floating-point value.
func (c Complex) Complex128() complex128 {
	return complex(c.Re.Float(), c.Im.Float())
}

func (c Complex) String() string {
	return fmt.Sprint(c.Complex128())
}
