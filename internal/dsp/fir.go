package dsp

// Sample is a real or complex floating-point sample.
type Sample interface {
	float64 | complex128
}

func fromReal[T Sample](v float64) T {
	var s T
	switch p := any(&s).(type) {
	case *float64:
		*p = v
	case *complex128:
		*p = complex(v, 0)
	}
	return s
}

// FIRFilter is a stateful, block-based FIR filter with fractional-ratio
// decimation. The read position carries across blocks, so chunked and
// one-shot processing produce the same output.
type FIRFilter[T Sample] struct {
	taps  []T
	state []T
	pos   float64
}

// NewFIRFilter creates a new FIR filter with the given taps.
func NewFIRFilter[T Sample](taps []float64) *FIRFilter[T] {
	f := &FIRFilter[T]{taps: make([]T, len(taps))}
	for i, t := range taps {
		f.taps[i] = fromReal[T](t)
	}
	f.Reset()
	return f
}

// Reset clears the filter history.
func (f *FIRFilter[T]) Reset() {
	f.state = make([]T, len(f.taps)-1)
	f.pos = 0
}

// Process filters a block and resamples it by ratio (output rate / input
// rate, at most 1). It returns nil when the block does not complete an
// output sample.
func (f *FIRFilter[T]) Process(input []T, ratio float64) []T {
	step := 1.0 / ratio

	buffer := make([]T, len(f.state)+len(input))
	copy(buffer, f.state)
	copy(buffer[len(f.state):], input)

	var output []T
	for ; int(f.pos)+len(f.taps) <= len(buffer); f.pos += step {
		start := int(f.pos)
		var acc T
		for j, tap := range f.taps {
			acc += buffer[start+j] * tap
		}
		output = append(output, acc)
	}

	drop := min(int(f.pos), len(buffer))
	f.state = append(f.state[:0:0], buffer[drop:]...)
	f.pos -= float64(drop)
	return output
}
