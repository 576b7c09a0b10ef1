package rdb

import (
	"encoding/binary"
)

// input reads the inside of a compact encoding (ziplist, zipmap, intset) that
// has already been loaded as one string. Running off its end means the
// encoding is corrupt, so errors here are always KindMalformed.
type input struct {
	data   []byte
	index  int
	format string
}

func newInput(data []byte, format string) *input {
	return &input{
		data:   data,
		format: format,
	}
}

func (in *input) truncated() error {
	return errorf(KindMalformed, "%s: unexpected end at byte %d of %d", in.format, in.index, len(in.data))
}

func (in *input) Slice(n int) ([]byte, error) {
	if n < 0 || in.index+n > len(in.data) {
		return nil, in.truncated()
	}
	b := in.data[in.index : in.index+n : in.index+n]
	in.index += n
	return b, nil
}

func (in *input) ReadByte() (byte, error) {
	if in.index >= len(in.data) {
		return 0, in.truncated()
	}
	b := in.data[in.index]
	in.index++
	return b, nil
}

func (in *input) PeekByte() (byte, error) {
	if in.index >= len(in.data) {
		return 0, in.truncated()
	}
	return in.data[in.index], nil
}

func (in *input) Skip(n int) error {
	_, err := in.Slice(n)
	return err
}

func (in *input) Uint16() (uint16, error) {
	b, err := in.Slice(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (in *input) Uint32() (uint32, error) {
	b, err := in.Slice(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (in *input) Uint64() (uint64, error) {
	b, err := in.Slice(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
