package rdb

import (
	"encoding/binary"
	"strconv"

	"github.com/8090Lambert/tree-new-bee/protocol"
)

// Raw is a plain string value.
type Raw []byte

func (Raw) Type() protocol.DataType { return protocol.String }

func (r Raw) Len() int { return 1 }

func (r Raw) ConcreteSize() uint64 { return uint64(len(r)) }

func (Raw) value() {}

// LoadLen reads a length field. When encoded is true the field was a special
// string encoding selector and length holds its low 6 bits instead of a length.
//
//	00xxxxxx                  6 bit length
//	01xxxxxx xxxxxxxx         14 bit length
//	10000000 + 4 bytes        32 bit big endian length
//	10000001 + 8 bytes        64 bit big endian length
//	11xxxxxx                  encoding selector
func LoadLen(buf *Buffer) (length uint64, encoded bool, err error) {
	head, err := buf.Peek(1)
	if err != nil {
		return 0, false, err
	}
	b := head[0]
	switch (b & 0xc0) >> 6 {
	case Type6Bit:
		buf.index++
		return uint64(b & 0x3f), false, nil
	case Type14Bit:
		p, err := buf.Slice(2)
		if err != nil {
			return 0, false, err
		}
		return uint64(p[0]&0x3f)<<8 | uint64(p[1]), false, nil
	case TypeEncVal:
		buf.index++
		return uint64(b & 0x3f), true, nil
	}

	switch b {
	case Type32Bit:
		p, err := buf.Slice(5)
		if err != nil {
			return 0, false, err
		}
		return uint64(binary.BigEndian.Uint32(p[1:])), false, nil
	case Type64Bit:
		p, err := buf.Slice(9)
		if err != nil {
			return 0, false, err
		}
		return binary.BigEndian.Uint64(p[1:]), false, nil
	}
	return 0, false, errorf(KindMalformed, "unknown length encoding 0x%02x", b)
}

// loadCount reads a length that must not be a string encoding selector.
func loadCount(buf *Buffer) (uint64, error) {
	length, encoded, err := LoadLen(buf)
	if err != nil {
		return 0, err
	}
	if encoded {
		return 0, errorf(KindMalformed, "expected a length, got string encoding %d", length)
	}
	return length, nil
}

// LoadString reads a string in any of its encodings. Integer encodings come
// back as their decimal text. On ErrNeedMoreData the buffer is left where it was.
func LoadString(buf *Buffer) ([]byte, error) {
	mark := buf.Offset()
	s, err := loadString(buf)
	if err == ErrNeedMoreData {
		buf.Rewind(mark)
	}
	return s, err
}

func loadString(buf *Buffer) ([]byte, error) {
	length, needEncode, err := LoadLen(buf)
	if err != nil {
		return nil, err
	}
	if !needEncode {
		return buf.sliceLen(length)
	}

	switch length {
	case EncodeInt8:
		b, err := buf.ReadByte()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(int8(b)), 10), nil
	case EncodeInt16:
		p, err := buf.Slice(2)
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(int16(binary.LittleEndian.Uint16(p))), 10), nil
	case EncodeInt32:
		p, err := buf.Slice(4)
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(int32(binary.LittleEndian.Uint32(p))), 10), nil
	case EncodeLZF:
		return loadLZF(buf)
	}
	return nil, errorf(KindInvalidEncoding, "unknown string encoding %d", length)
}

// Compressed length comes first, then the uncompressed length, then the payload.
func loadLZF(buf *Buffer) ([]byte, error) {
	clen, err := loadCount(buf)
	if err != nil {
		return nil, err
	}
	ulen, err := loadCount(buf)
	if err != nil {
		return nil, err
	}
	if ulen > maxLZFLength {
		return nil, errorf(KindCompression, "uncompressed length %d too big", ulen)
	}
	val, err := buf.sliceLen(clen)
	if err != nil {
		return nil, err
	}
	out, err := lzfDecompress(val, int(ulen))
	if err != nil {
		return nil, wrapKind(KindCompression, err, "lzf string")
	}
	return out, nil
}
