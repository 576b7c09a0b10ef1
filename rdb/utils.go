package rdb

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Redis refuses to compress strings above 512MB, anything larger is corrupt.
const maxLZFLength = 512 << 20

func lzfDecompress(in []byte, outLen int) ([]byte, error) {
	out := make([]byte, outLen)
	o := 0
	for i := 0; i < len(in); {
		ctrl := int(in[i])
		i++
		if ctrl < 1<<5 {
			run := ctrl + 1
			if i+run > len(in) {
				return nil, errors.New("literal run past end of input")
			}
			if o+run > outLen {
				return nil, errors.New("output overflow")
			}
			copy(out[o:], in[i:i+run])
			i += run
			o += run
			continue
		}

		length := ctrl >> 5
		if length == 7 {
			if i >= len(in) {
				return nil, errors.New("missing extended length")
			}
			length += int(in[i])
			i++
		}
		length += 2
		if i >= len(in) {
			return nil, errors.New("missing back reference offset")
		}
		ref := o - ((ctrl & 0x1f) << 8) - int(in[i]) - 1
		i++
		if ref < 0 {
			return nil, errors.New("back reference before start of output")
		}
		if o+length > outLen {
			return nil, errors.New("output overflow")
		}
		// The source may overlap the bytes being written.
		for x := 0; x < length; x++ {
			out[o] = out[ref]
			ref++
			o++
		}
	}
	if o != outLen {
		return nil, errors.Errorf("decompressed %d bytes, expected %d", o, outLen)
	}
	return out, nil
}

// loadFloat reads a score stored as text: one length byte, where 253, 254
// and 255 stand for NaN, +inf and -inf.
func loadFloat(buf *Buffer) (float64, error) {
	head, err := buf.Peek(1)
	if err != nil {
		return 0, err
	}
	switch head[0] {
	case 0xff:
		buf.index++
		return NegInf, nil
	case 0xfe:
		buf.index++
		return PosInf, nil
	case 0xfd:
		buf.index++
		return Nan, nil
	}
	p, err := buf.Slice(1 + int(head[0]))
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(string(p[1:]), 64)
	if err != nil {
		return 0, wrapKind(KindMalformed, err, "zset score")
	}
	return f, nil
}

// 8 bytes float64, follow IEEE754 float64 stddef (standard definitions)
func loadBinaryFloat(buf *Buffer) (float64, error) {
	p, err := buf.Slice(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
}

// loadZiplist walks a ziplist and returns its entries.
// <zlbytes:4><zltail:4><zllen:2><entry>...<entry><zlend:0xff>
func loadZiplist(b []byte) ([][]byte, error) {
	in := newInput(b, "ziplist")
	if err := in.Skip(8); err != nil {
		return nil, err
	}
	zllen, err := in.Uint16()
	if err != nil {
		return nil, err
	}

	// zllen saturates at 65535, the list has to be walked to find the end then.
	items := make([][]byte, 0, int(zllen))
	for {
		next, err := in.PeekByte()
		if err != nil {
			return nil, err
		}
		if next == zipEnd {
			break
		}
		entry, err := loadZiplistEntry(in)
		if err != nil {
			return nil, err
		}
		items = append(items, entry)
	}
	if zllen != zipBigLen && int(zllen) != len(items) {
		return nil, errorf(KindMalformed, "ziplist: header says %d entries, found %d", zllen, len(items))
	}
	return items, nil
}

func loadZiplistEntry(in *input) ([]byte, error) {
	prevLen, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	if prevLen == ZipBigPrevLen {
		if err := in.Skip(4); err != nil {
			return nil, err
		}
	}

	header, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	switch {
	case header>>6 == ZipStr06B:
		return in.Slice(int(header & 0x3f))
	case header>>6 == ZipStr14B:
		b, err := in.ReadByte()
		if err != nil {
			return nil, err
		}
		return in.Slice(int(header&0x3f)<<8 | int(b))
	case header>>6 == ZipStr32B:
		lenBytes, err := in.Slice(4)
		if err != nil {
			return nil, err
		}
		return in.Slice(int(binary.BigEndian.Uint32(lenBytes)))
	case header == ZipInt16B:
		v, err := in.Uint16()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(int16(v)), 10), nil
	case header == ZipInt32B:
		v, err := in.Uint32()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(int32(v)), 10), nil
	case header == ZipInt64B:
		v, err := in.Uint64()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(v), 10), nil
	case header == ZipInt24B:
		p, err := in.Slice(3)
		if err != nil {
			return nil, err
		}
		v := int32(uint32(p[0])<<8|uint32(p[1])<<16|uint32(p[2])<<24) >> 8
		return strconv.AppendInt(nil, int64(v), 10), nil
	case header == ZipInt08B:
		b, err := in.ReadByte()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(int8(b)), 10), nil
	case header>>4 == ZipInt04B && header != zipEnd:
		return strconv.AppendInt(nil, int64(header&0x0f)-1, 10), nil
	}
	return nil, errorf(KindMalformed, "ziplist: unknown entry header 0x%02x", header)
}

// loadZipmap returns the fields and values of a zipmap in order.
// <zmlen:1><len>field<len><free>value<free bytes>...<zmend:0xff>
func loadZipmap(b []byte) ([][]byte, error) {
	in := newInput(b, "zipmap")
	zmlen, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	items := make([][]byte, 0, 2*int(zmlen))
	for {
		field, ok, err := loadZipmapItem(in, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		value, ok, err := loadZipmapItem(in, true)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errorf(KindMalformed, "zipmap: field %q without value", field)
		}
		items = append(items, field, value)
	}
	if zmlen < zipmapBigLen && int(zmlen) != len(items)/2 {
		return nil, errorf(KindMalformed, "zipmap: header says %d pairs, found %d", zmlen, len(items)/2)
	}
	return items, nil
}

func loadZipmapItem(in *input, readFree bool) ([]byte, bool, error) {
	b, err := in.ReadByte()
	if err != nil {
		return nil, false, err
	}
	length := int(b)
	switch b {
	case zipEnd:
		return nil, false, nil
	case zipmapBigLen:
		v, err := in.Uint32()
		if err != nil {
			return nil, false, err
		}
		length = int(v)
	}
	var free byte
	if readFree {
		if free, err = in.ReadByte(); err != nil {
			return nil, false, err
		}
	}
	value, err := in.Slice(length)
	if err != nil {
		return nil, false, err
	}
	return value, true, in.Skip(int(free))
}

// loadIntset returns the members of an intset as decimal text, in stored order.
// <encoding:4><length:4><contents>
func loadIntset(b []byte) ([][]byte, error) {
	in := newInput(b, "intset")
	intSize, err := in.Uint32()
	if err != nil {
		return nil, err
	}
	if intSize != 2 && intSize != 4 && intSize != 8 {
		return nil, errorf(KindMalformed, "intset: unknown encoding %d", intSize)
	}
	cardinality, err := in.Uint32()
	if err != nil {
		return nil, err
	}
	if uint64(cardinality)*uint64(intSize) > uint64(len(b)) {
		return nil, errorf(KindMalformed, "intset: %d members of %d bytes do not fit in %d bytes", cardinality, intSize, len(b))
	}

	members := make([][]byte, 0, cardinality)
	for i := uint32(0); i < cardinality; i++ {
		var v int64
		switch intSize {
		case 2:
			u, err := in.Uint16()
			if err != nil {
				return nil, err
			}
			v = int64(int16(u))
		case 4:
			u, err := in.Uint32()
			if err != nil {
				return nil, err
			}
			v = int64(int32(u))
		case 8:
			u, err := in.Uint64()
			if err != nil {
				return nil, err
			}
			v = int64(u)
		}
		members = append(members, strconv.AppendInt(nil, v, 10))
	}
	return members, nil
}
