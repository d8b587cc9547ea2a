// Package arena provides growable scratch memory for host calls whose
// payload size is only known after the host reports it.
package arena

import (
	"github.com/ocwasm/ocsafe/domain/errors"
)

// Buffer is a byte buffer whose capacity only grows, up to a fixed maximum.
// A Buffer is not safe for concurrent use.
type Buffer struct {
	buf   []byte
	max   int
	grows int
}

// New creates a buffer with the given initial capacity and maximum.
// A maximum below the initial capacity is raised to it.
func New(initial, maximum int) *Buffer {
	if initial < 0 {
		initial = 0
	}
	if maximum < initial {
		maximum = initial
	}
	return &Buffer{
		buf: make([]byte, 0, initial),
		max: maximum,
	}
}

// Ensure grows the capacity to at least n. Growth doubles the capacity,
// clamped to the maximum, and falls back to exactly n when doubling is not
// enough. A request above the maximum fails with BufferTooLarge and leaves
// the buffer untouched. Existing contents survive growth.
func (b *Buffer) Ensure(n int) error {
	if n <= cap(b.buf) {
		return nil
	}
	if n > b.max {
		return errors.BufferTooLarge("ensure", n, b.max)
	}
	newCap := 2 * cap(b.buf)
	if newCap > b.max {
		newCap = b.max
	}
	if newCap < n {
		newCap = n
	}
	grown := make([]byte, len(b.buf), newCap)
	copy(grown, b.buf)
	b.buf = grown
	b.grows++
	return nil
}

// Cap returns the current capacity.
func (b *Buffer) Cap() int { return cap(b.buf) }

// Len returns the number of valid bytes.
func (b *Buffer) Len() int { return len(b.buf) }

// Max returns the configured maximum capacity.
func (b *Buffer) Max() int { return b.max }

// Grows returns how many times the buffer has been reallocated.
func (b *Buffer) Grows() int { return b.grows }

// Bytes returns the valid bytes. The slice aliases the buffer until the
// next mutation.
func (b *Buffer) Bytes() []byte { return b.buf }

// Scratch returns the whole capacity as a writable slice for the host.
func (b *Buffer) Scratch() []byte { return b.buf[:cap(b.buf)] }

// SetLen marks the first n bytes as valid. n must not exceed the capacity.
func (b *Buffer) SetLen(n int) {
	b.buf = b.buf[:n]
}

// Reset empties the buffer and keeps its capacity.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
}

// Append appends p, growing as Ensure does.
func (b *Buffer) Append(p []byte) error {
	if err := b.Ensure(len(b.buf) + len(p)); err != nil {
		return err
	}
	b.buf = append(b.buf, p...)
	return nil
}
