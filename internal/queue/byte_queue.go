// Package queue provides the pending-byte queue used by the serial engine's
// write path.
package queue

// ByteQueue accumulates outgoing bytes until they are drained into a single
// in-flight write buffer.
//
// ByteQueue is not safe for concurrent use; callers serialize access with
// their own lock. This keeps the locking visible at the call site, where the
// append/drain protocol lives.
type ByteQueue struct {
	buf []byte
}

// NewByteQueue creates a ByteQueue with the given preallocated capacity.
func NewByteQueue(prealloc int) *ByteQueue {
	return &ByteQueue{buf: make([]byte, 0, prealloc)}
}

// Append copies p onto the tail of the queue. The caller retains ownership
// of p and may reuse it after Append returns.
func (q *ByteQueue) Append(p []byte) {
	q.buf = append(q.buf, p...)
}

// AppendString copies the bytes of s onto the tail of the queue without an
// intermediate []byte conversion on the caller side.
func (q *ByteQueue) AppendString(s string) {
	q.buf = append(q.buf, s...)
}

// TakeAll removes and returns every queued byte in append order.
//
// Ownership of the returned slice transfers to the caller; the queue starts
// a fresh backing array so subsequent Appends never alias a buffer that is
// being transmitted.
func (q *ByteQueue) TakeAll() []byte {
	b := q.buf
	q.buf = nil

	return b
}

// Len returns the number of queued bytes.
func (q *ByteQueue) Len() int {
	return len(q.buf)
}

// IsEmpty returns true if no bytes are queued.
func (q *ByteQueue) IsEmpty() bool {
	return len(q.buf) == 0
}

// Reset discards all queued bytes.
func (q *ByteQueue) Reset() {
	q.buf = nil
}
