// Package ringbuffer connects a sample producer goroutine to a consumer.
package ringbuffer

import (
	"errors"
	"sync"
)

// ErrClosed is returned when writing to a closed buffer.
var ErrClosed = errors.New("ringbuffer: write to closed buffer")

// RingBuffer is a concurrent-safe, blocking ring buffer of samples.
type RingBuffer[T any] struct {
	buf        []T
	size       int
	readIndex  int
	writeIndex int
	closed     bool
	mu         sync.Mutex
	cond       *sync.Cond
}

// New creates a RingBuffer holding up to size-1 samples.
func New[T any](size int) *RingBuffer[T] {
	rb := &RingBuffer[T]{
		buf:  make([]T, size),
		size: size,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// AvailableWrite returns the number of samples that can be written without
// blocking.
func (rb *RingBuffer[T]) AvailableWrite() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.availableWrite()
}

// AvailableRead returns the number of samples waiting to be read.
func (rb *RingBuffer[T]) AvailableRead() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.availableRead()
}

func (rb *RingBuffer[T]) availableWrite() int {
	if rb.writeIndex >= rb.readIndex {
		return rb.size - (rb.writeIndex - rb.readIndex) - 1
	}
	return rb.readIndex - rb.writeIndex - 1
}

func (rb *RingBuffer[T]) availableRead() int {
	if rb.writeIndex >= rb.readIndex {
		return rb.writeIndex - rb.readIndex
	}
	return rb.size - rb.readIndex + rb.writeIndex
}

// Close marks the end of the stream and wakes every waiting reader.
func (rb *RingBuffer[T]) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}

// Write adds data to the buffer, blocking until space is available.
func (rb *RingBuffer[T]) Write(data []T) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i := 0; i < len(data); {
		for !rb.closed && rb.availableWrite() == 0 {
			rb.cond.Wait()
		}
		if rb.closed {
			return ErrClosed
		}

		// At most two contiguous regions per lap.
		end := rb.size
		if rb.writeIndex < rb.readIndex {
			end = rb.readIndex - 1
		} else if rb.readIndex == 0 {
			end = rb.size - 1
		}
		written := copy(rb.buf[rb.writeIndex:end], data[i:])
		rb.writeIndex = (rb.writeIndex + written) % rb.size
		i += written
		rb.cond.Broadcast()
	}
	return nil
}

// Read returns up to n samples, blocking until n are available or the buffer
// is closed. It returns nil once the buffer is closed and drained.
func (rb *RingBuffer[T]) Read(n int) []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for !rb.closed && rb.availableRead() < n {
		rb.cond.Wait()
	}

	readSize := min(n, rb.availableRead())
	if readSize == 0 {
		return nil
	}

	data := make([]T, readSize)
	if rb.readIndex+readSize <= rb.size {
		copy(data, rb.buf[rb.readIndex:rb.readIndex+readSize])
	} else {
		part1 := rb.size - rb.readIndex
		copy(data, rb.buf[rb.readIndex:])
		copy(data[part1:], rb.buf[:readSize-part1])
	}
	rb.readIndex = (rb.readIndex + readSize) % rb.size
	rb.cond.Broadcast()
	return data
}
