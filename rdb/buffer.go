package rdb

import (
	"math"
)

// Bytes already consumed are only dropped once at least this many have piled up.
const compactSize = 64 * 1024

// Buffer accumulates stream bytes and tracks the read position.
//
// Every read either takes the whole field it asks for or returns ErrNeedMoreData
// leaving the position untouched. Slices returned by Slice alias the buffer's
// memory; that memory is never written again, compaction moves the unread tail
// into a new array instead of shifting it in place.
type Buffer struct {
	data  []byte
	index int
	base  int64 // stream offset of data[0]
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{
		data: data,
	}
}

// Write appends p to the unread bytes. It never fails.
func (buf *Buffer) Write(p []byte) (int, error) {
	if buf.index >= compactSize && buf.index*2 >= len(buf.data) {
		rest := len(buf.data) - buf.index
		data := make([]byte, rest, rest+len(p))
		copy(data, buf.data[buf.index:])
		buf.base += int64(buf.index)
		buf.data = data
		buf.index = 0
	}
	buf.data = append(buf.data, p...)
	return len(p), nil
}

// Len returns the number of unread bytes.
func (buf *Buffer) Len() int {
	return len(buf.data) - buf.index
}

// Offset returns the absolute stream offset of the next unread byte.
func (buf *Buffer) Offset() int64 {
	return buf.base + int64(buf.index)
}

// Rewind moves the read position back to an offset previously returned by Offset.
func (buf *Buffer) Rewind(offset int64) {
	idx := offset - buf.base
	if idx < 0 || idx > int64(len(buf.data)) {
		panic("rdb: rewind outside of buffered data")
	}
	buf.index = int(idx)
}

func (buf *Buffer) Peek(n int) ([]byte, error) {
	if n < 0 || buf.index+n > len(buf.data) {
		return nil, ErrNeedMoreData
	}
	return buf.data[buf.index : buf.index+n : buf.index+n], nil
}

func (buf *Buffer) Slice(n int) ([]byte, error) {
	b, err := buf.Peek(n)
	if err != nil {
		return nil, err
	}
	buf.index += n
	return b, nil
}

func (buf *Buffer) ReadByte() (byte, error) {
	if buf.index >= len(buf.data) {
		return 0, ErrNeedMoreData
	}
	b := buf.data[buf.index]
	buf.index++
	return b, nil
}

// since returns the bytes between offset and the read position.
func (buf *Buffer) since(offset int64) []byte {
	return buf.data[offset-buf.base : buf.index]
}

// sliceLen is Slice for lengths decoded from the stream.
func (buf *Buffer) sliceLen(length uint64) ([]byte, error) {
	if length > math.MaxInt32 {
		return nil, errorf(KindMalformed, "string length %d out of range", length)
	}
	return buf.Slice(int(length))
}
