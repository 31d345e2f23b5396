// Package sim runs fixed-point pipeline components over whole streams and
// lines their output up with floating-point reference models.
package sim

import "math"

// Stepper is a pipelined component: one input and one output per step, with
// a fixed latency.
type Stepper[I, O any] interface {
	Step(in I) O
	Delay() int
}

// Run feeds in to s followed by Delay copies of flush, and returns the
// outputs with the pipeline latency removed, so out[i] belongs to in[i].
func Run[I, O any](s Stepper[I, O], in []I, flush I) []O {
	delay := s.Delay()
	raw := make([]O, 0, len(in)+delay)
	for _, v := range in {
		raw = append(raw, s.Step(v))
	}
	for i := 0; i < delay; i++ {
		raw = append(raw, s.Step(flush))
	}
	return Align(raw, delay)
}

// Align drops the first delay samples of a raw output stream.
func Align[O any](raw []O, delay int) []O {
	if delay >= len(raw) {
		return nil
	}
	return raw[delay:]
}

// Tolerance is the comparison bound used against reference models for a
// data path carrying fracBits fraction bits: two LSBs short of full
// precision.
func Tolerance(fracBits int) float64 {
	return math.Ldexp(1, -(fracBits - 2))
}

// MaxAbsDiff returns the largest |a[i]-b[i]| over the common length.
func MaxAbsDiff(a, b []float64) float64 {
	var worst float64
	for i := 0; i < min(len(a), len(b)); i++ {
		worst = max(worst, math.Abs(a[i]-b[i]))
	}
	return worst
}

// WrappedDiff returns the distance between two normalized angles on the
// circle [-1, 1).
func WrappedDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2)
	switch {
	case d >= 1:
		d -= 2
	case d < -1:
		d += 2
	}
	return math.Abs(d)
}

// Wrap maps a normalized angle into [-1, 1).
func Wrap(a float64) float64 {
	a = math.Mod(a+1, 2)
	if a < 0 {
		a += 2
	}
	return a - 1
}
