package frame

import "bytes"

// Buffer is a cursor over a byte slice used to read and write frame bodies.
// Read errors are sticky: once set, all further reads are no-ops that keep
// returning zero values so callers can chain a sequence of reads and check
// Error once at the end, the same convention the teacher's frame package
// uses.
type Buffer struct {
	buf    bytes.Buffer
	rdErr  error
}

// NewBuffer wraps an existing byte slice for reading.
func NewBuffer(b []byte) *Buffer {
	buf := &Buffer{}
	buf.buf.Write(b)
	return buf
}

func (b *Buffer) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *Buffer) Reset() {
	b.buf.Reset()
	b.rdErr = nil
}

func (b *Buffer) Error() error {
	return b.rdErr
}

func (b *Buffer) Len() int {
	return b.buf.Len()
}
