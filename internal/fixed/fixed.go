// Package fixed implements signed fixed-point scalars and complex pairs with
// an explicit format: integer bits, fraction bits, overflow policy and
// rounding policy.
//
// Arithmetic (Add, Sub, Neg, Mul) never loses information; results come back
// in a widened format. Values only lose precision or range when they are
// stored into a register with Resize, which applies the target format's
// rounding and overflow policies.
package fixed

import (
	"errors"
	"fmt"
	"math"

	"github.com/mdobak/go-xerrors"
)

// ErrInvalidFormat is returned when a Format cannot be represented.
var ErrInvalidFormat = errors.New("fixed: invalid format")

// maxBits is the widest format supported, leaving headroom in int64 for
// products and alignment shifts.
const maxBits = 62

// Overflow selects how out-of-range values are brought back into range.
type Overflow int

const (
	// Wrap discards high bits (two's complement modulo arithmetic).
	Wrap Overflow = iota
	// Saturate clamps to the nearest representable value.
	Saturate
)

func (o Overflow) String() string {
	switch o {
	case Wrap:
		return "wrap"
	case Saturate:
		return "saturate"
	}
	return fmt.Sprintf("Overflow(%d)", int(o))
}

// Rounding selects how extra fraction bits are discarded.
type Rounding int

const (
	// Truncate rounds toward negative infinity.
	Truncate Rounding = iota
	// RoundNearest rounds to the nearest step, ties toward positive infinity.
	RoundNearest
)

func (r Rounding) String() string {
	switch r {
	case Truncate:
		return "truncate"
	case RoundNearest:
		return "round"
	}
	return fmt.Sprintf("Rounding(%d)", int(r))
}

// Format describes a signed fixed-point representation covering
// [-2^Int, 2^Int) in steps of 2^-Frac.
type Format struct {
	Int      int
	Frac     int
	Overflow Overflow
	Round    Rounding
}

// Validate reports whether the format can be represented.
func (f Format) Validate() error {
	if f.Int < 0 || f.Frac < 0 {
		return xerrors.New(fmt.Errorf("%w: negative bit count in %v", ErrInvalidFormat, f))
	}
	if f.Bits() > maxBits {
		return xerrors.New(fmt.Errorf("%w: %d bits exceeds %d", ErrInvalidFormat, f.Bits(), maxBits))
	}
	if f.Overflow != Wrap && f.Overflow != Saturate {
		return xerrors.New(fmt.Errorf("%w: unknown overflow policy %v", ErrInvalidFormat, f.Overflow))
	}
	if f.Round != Truncate && f.Round != RoundNearest {
		return xerrors.New(fmt.Errorf("%w: unknown rounding policy %v", ErrInvalidFormat, f.Round))
	}
	return nil
}

// Bits returns the total width including the sign bit.
func (f Format) Bits() int {
	return 1 + f.Int + f.Frac
}

// Step returns the value of one least significant bit.
func (f Format) Step() float64 {
	return math.Ldexp(1, -f.Frac)
}

// Min returns the most negative representable value.
func (f Format) Min() float64 {
	return -math.Ldexp(1, f.Int)
}

// Max returns the most positive representable value.
func (f Format) Max() float64 {
	return math.Ldexp(1, f.Int) - f.Step()
}

func (f Format) String() string {
	return fmt.Sprintf("sfix(%d,%d,%v,%v)", f.Int, -f.Frac, f.Overflow, f.Round)
}

// width is Bits limited to what an int64 register can hold. Formats that
// fail Validate still get a usable width instead of an invalid shift.
func (f Format) width() int {
	return min(max(f.Bits(), 1), 64)
}

func (f Format) rawMin() int64 {
	return -(int64(1) << (f.width() - 1))
}

func (f Format) rawMax() int64 {
	return int64(1)<<(f.width()-1) - 1
}

// fit applies the overflow policy of f to raw. A 64-bit or wider format
// cannot overflow an int64 and is left alone.
func (f Format) fit(raw int64) int64 {
	if f.width() == 64 {
		return raw
	}
	if f.Overflow == Saturate {
		if raw > f.rawMax() {
			return f.rawMax()
		}
		if raw < f.rawMin() {
			return f.rawMin()
		}
		return raw
	}
	shift := 64 - f.width()
	return raw << shift >> shift
}

// widen returns a format with room for the result of combining a and b.
func widen(a, b Format, extraInt int) Format {
	return Format{
		Int:      max(a.Int, b.Int) + extraInt,
		Frac:     max(a.Frac, b.Frac),
		Overflow: a.Overflow,
		Round:    a.Round,
	}
}

// Fixed is a signed fixed-point value. The zero value is 0 in a 1-bit format;
// use Zero to obtain a zero in a specific format.
type Fixed struct {
	raw int64
	f   Format
}

// New quantizes v into f using f's rounding and overflow policies. f should
// pass Validate; wider formats are clamped to 64 bits.
func New(v float64, f Format) Fixed {
	scaled := math.Ldexp(v, f.Frac)
	if f.Round == RoundNearest {
		scaled = math.Floor(scaled + 0.5)
	} else {
		scaled = math.Floor(scaled)
	}
	// Keep the conversion defined; anything this large is out of range for
	// every supported format anyway.
	limit := math.Ldexp(1, maxBits)
	switch {
	case math.IsNaN(scaled):
		scaled = 0
	case scaled >= limit:
		scaled = limit - 1
	case scaled <= -limit:
		scaled = -limit
	}
	return Fixed{raw: f.fit(int64(scaled)), f: f}
}

// Zero returns 0 in format f.
func Zero(f Format) Fixed {
	return Fixed{f: f}
}

// FromRaw interprets raw as an integer count of f's steps.
func FromRaw(raw int64, f Format) Fixed {
	return Fixed{raw: f.fit(raw), f: f}
}

// Raw returns the underlying integer.
func (x Fixed) Raw() int64 { return x.raw }

// Format returns the value's format.
func (x Fixed) Format() Format { return x.f }

// Float returns the value as a float64. The conversion is exact.
func (x Fixed) Float() float64 {
	return math.Ldexp(float64(x.raw), -x.f.Frac)
}

func (x Fixed) String() string {
	return fmt.Sprintf("%g", x.Float())
}

// align returns the raw values of x and y scaled to the same fraction width.
func align(x, y Fixed) (int64, int64) {
	a, b := x.raw, y.raw
	if d := y.f.Frac - x.f.Frac; d > 0 {
		a <<= d
	} else if d < 0 {
		b <<= -d
	}
	return a, b
}

// Add returns x+y in a format one integer bit wider than either operand.
func (x Fixed) Add(y Fixed) Fixed {
	a, b := align(x, y)
	return Fixed{raw: a + b, f: widen(x.f, y.f, 1)}
}

// Sub returns x-y in a format one integer bit wider than either operand.
func (x Fixed) Sub(y Fixed) Fixed {
	a, b := align(x, y)
	return Fixed{raw: a - b, f: widen(x.f, y.f, 1)}
}

// Neg returns -x. The format grows by one integer bit so that negating the
// most negative value is exact.
func (x Fixed) Neg() Fixed {
	f := x.f
	f.Int++
	return Fixed{raw: -x.raw, f: f}
}

// Mul returns the full-precision product x*y.
func (x Fixed) Mul(y Fixed) Fixed {
	f := Format{
		Int:      x.f.Int + y.f.Int + 1,
		Frac:     x.f.Frac + y.f.Frac,
		Overflow: x.f.Overflow,
		Round:    x.f.Round,
	}
	return Fixed{raw: x.raw * y.raw, f: f}
}

// Rsh is an arithmetic right shift by n bits within x's own format, i.e.
// x*2^-n rounded toward negative infinity.
func (x Fixed) Rsh(n int) Fixed {
	return Fixed{raw: x.raw >> uint(n), f: x.f}
}

// Resize converts x into f, applying f's rounding and then its overflow
// policy. As with New, f should pass Validate.
func (x Fixed) Resize(f Format) Fixed {
	raw := x.raw
	if d := f.Frac - x.f.Frac; d > 0 {
		raw <<= d
	} else if d < 0 {
		s := uint(-d)
		if f.Round == RoundNearest {
			raw += int64(1) << (s - 1)
		}
		raw >>= s
	}
	return Fixed{raw: f.fit(raw), f: f}
}

// Cmp compares x and y by value: -1 if x<y, 0 if equal, +1 if x>y.
func (x Fixed) Cmp(y Fixed) int {
	a, b := align(x, y)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Less reports x < y.
func (x Fixed) Less(y Fixed) bool { return x.Cmp(y) < 0 }

// Greater reports x > y.
func (x Fixed) Greater(y Fixed) bool { return x.Cmp(y) > 0 }

// Sign returns -1, 0 or +1.
func (x Fixed) Sign() int {
	switch {
	case x.raw < 0:
		return -1
	case x.raw > 0:
		return 1
	}
	return 0
}
