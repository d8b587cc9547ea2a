package hostfuncs

// DefaultSignalCapacity is the default number of signals the host buffers
// before dropping new ones.
const DefaultSignalCapacity = 256

// DefaultMaxRequestSize limits the size of incoming requests (1MB).
// This prevents guest modules from triggering OOM by claiming huge request sizes.
const DefaultMaxRequestSize = 1 * 1024 * 1024

// SignalBuffer is a bounded FIFO of encoded signal entries.
// When full, new entries are discarded and Dropped is set until the next
// successful delivery.
type SignalBuffer struct {
	entries [][]byte
	limit   int
	Dropped bool
}

// NewSignalBuffer creates a new SignalBuffer with the specified limit.
func NewSignalBuffer(limit int) *SignalBuffer {
	if limit < 1 {
		limit = 1
	}
	return &SignalBuffer{limit: limit}
}

// Push appends an entry. It reports false when the entry was dropped.
func (b *SignalBuffer) Push(entry []byte) bool {
	if len(b.entries) >= b.limit {
		b.Dropped = true
		return false
	}
	b.entries = append(b.entries, entry)
	return true
}

// Peek returns up to max entries from the front without removing them.
func (b *SignalBuffer) Peek(max int) [][]byte {
	if max > len(b.entries) || max < 0 {
		max = len(b.entries)
	}
	return b.entries[:max]
}

// Pop removes n entries from the front and clears Dropped.
func (b *SignalBuffer) Pop(n int) {
	if n > len(b.entries) {
		n = len(b.entries)
	}
	clear(b.entries[:n])
	b.entries = b.entries[n:]
	b.Dropped = false
}

// Len returns the number of buffered entries.
func (b *SignalBuffer) Len() int {
	return len(b.entries)
}

// Limit returns the buffer capacity.
func (b *SignalBuffer) Limit() int {
	return b.limit
}
