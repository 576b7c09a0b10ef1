package rdb

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
)

// encLen writes n with the smallest length class that holds it.
func encLen(n uint64) []byte {
	switch {
	case n < 1<<6:
		return []byte{byte(n)}
	case n < 1<<14:
		return []byte{0x40 | byte(n>>8), byte(n)}
	case n <= math.MaxUint32:
		b := []byte{Type32Bit, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(b[1:], uint32(n))
		return b
	}
	b := []byte{Type64Bit, 0, 0, 0, 0, 0, 0, 0, 0}
	binary.BigEndian.PutUint64(b[1:], n)
	return b
}

func encString(s string) []byte {
	return append(encLen(uint64(len(s))), s...)
}

func encInt(v int64) []byte {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return []byte{0xc0 | EncodeInt8, byte(int8(v))}
	case v >= math.MinInt16 && v <= math.MaxInt16:
		b := []byte{0xc0 | EncodeInt16, 0, 0}
		binary.LittleEndian.PutUint16(b[1:], uint16(int16(v)))
		return b
	}
	b := []byte{0xc0 | EncodeInt32, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(b[1:], uint32(int32(v)))
	return b
}

func encLZF(s string) []byte {
	compressed := lzfCompress([]byte(s))
	b := []byte{0xc0 | EncodeLZF}
	b = append(b, encLen(uint64(len(compressed)))...)
	b = append(b, encLen(uint64(len(s)))...)
	return append(b, compressed...)
}

// lzfCompress is a greedy LZF compressor, good enough to produce back references.
func lzfCompress(in []byte) []byte {
	var out, lit []byte
	flush := func() {
		for len(lit) > 0 {
			n := len(lit)
			if n > 32 {
				n = 32
			}
			out = append(out, byte(n-1))
			out = append(out, lit[:n]...)
			lit = lit[n:]
		}
	}

	seen := make(map[[3]byte]int)
	for i := 0; i < len(in); {
		if i+3 <= len(in) {
			var k [3]byte
			copy(k[:], in[i:i+3])
			ref, ok := seen[k]
			seen[k] = i
			if ok && i-ref-1 < 8192 {
				n := 3
				for i+n < len(in) && n < 264 && in[ref+n] == in[i+n] {
					n++
				}
				flush()
				off, l := i-ref-1, n-2
				if l < 7 {
					out = append(out, byte(l<<5|off>>8))
				} else {
					out = append(out, byte(7<<5|off>>8), byte(l-7))
				}
				out = append(out, byte(off))
				i += n
				continue
			}
		}
		lit = append(lit, in[i])
		i++
	}
	flush()
	return out
}

func encDouble(f float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(f))
	return b
}

func encTextScore(f float64) []byte {
	switch {
	case math.IsNaN(f):
		return []byte{0xfd}
	case math.IsInf(f, 1):
		return []byte{0xfe}
	case math.IsInf(f, -1):
		return []byte{0xff}
	}
	s := strconv.FormatFloat(f, 'g', 17, 64)
	return append([]byte{byte(len(s))}, s...)
}

// ziplist wraps already encoded entry bodies (encoding header + data) into a
// ziplist, adding the prevlen fields.
func ziplist(entries ...[]byte) []byte {
	var body []byte
	prev := 0
	for _, e := range entries {
		start := len(body)
		if prev < ZipBigPrevLen {
			body = append(body, byte(prev))
		} else {
			body = append(body, ZipBigPrevLen, 0, 0, 0, 0)
			binary.LittleEndian.PutUint32(body[len(body)-4:], uint32(prev))
		}
		body = append(body, e...)
		prev = len(body) - start
	}
	zl := make([]byte, 10, 10+len(body)+1)
	binary.LittleEndian.PutUint32(zl[0:], uint32(10+len(body)+1))
	binary.LittleEndian.PutUint32(zl[4:], uint32(10+len(body)-prev))
	count := len(entries)
	if count > zipBigLen {
		count = zipBigLen
	}
	binary.LittleEndian.PutUint16(zl[8:], uint16(count))
	zl = append(zl, body...)
	return append(zl, zipEnd)
}

func zlStr(s string) []byte {
	switch {
	case len(s) < 1<<6:
		return append([]byte{byte(len(s))}, s...)
	case len(s) < 1<<14:
		return append([]byte{0x40 | byte(len(s)>>8), byte(len(s))}, s...)
	}
	b := []byte{0x80, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(b[1:], uint32(len(s)))
	return append(b, s...)
}

func zlInt(header byte, payload ...byte) []byte {
	return append([]byte{header}, payload...)
}

func intset(width int, values ...int64) []byte {
	b := make([]byte, 8, 8+width*len(values))
	binary.LittleEndian.PutUint32(b[0:], uint32(width))
	binary.LittleEndian.PutUint32(b[4:], uint32(len(values)))
	for _, v := range values {
		p := make([]byte, 8)
		binary.LittleEndian.PutUint64(p, uint64(v))
		b = append(b, p[:width]...)
	}
	return b
}

// zipmap encodes field/value pairs with no free space.
func zipmap(kv ...string) []byte {
	b := []byte{byte(len(kv) / 2)}
	for i, s := range kv {
		if len(s) < zipmapBigLen {
			b = append(b, byte(len(s)))
		} else {
			b = append(b, zipmapBigLen, 0, 0, 0, 0)
			binary.LittleEndian.PutUint32(b[len(b)-4:], uint32(len(s)))
		}
		if i%2 == 1 {
			b = append(b, 0)
		}
		b = append(b, s...)
	}
	return append(b, zipEnd)
}

// rdbFile builds a whole stream.
type rdbFile struct {
	bytes.Buffer
	version int
}

func newRDB(version int) *rdbFile {
	f := &rdbFile{version: version}
	f.WriteString(REDIS + leftPad(version))
	return f
}

func leftPad(v int) string {
	s := strconv.Itoa(v)
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

func (f *rdbFile) op(code byte, payload ...[]byte) *rdbFile {
	f.WriteByte(code)
	for _, p := range payload {
		f.Write(p)
	}
	return f
}

func (f *rdbFile) selectDB(db uint64) *rdbFile {
	return f.op(FlagOpcodeSelectDB, encLen(db))
}

func (f *rdbFile) expireMs(ms uint64) *rdbFile {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, ms)
	return f.op(FlagOpcodeExpireTimeMs, b)
}

func (f *rdbFile) set(key, value string) *rdbFile {
	return f.op(TypeString, encString(key), encString(value))
}

// eof appends the EOF opcode and, from version 5, the checksum of everything before it.
func (f *rdbFile) eof() []byte {
	f.WriteByte(FlagOpcodeEOF)
	if f.version >= checksumVersion {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, Checksum(f.Bytes()))
		f.Write(b)
	}
	return f.Bytes()
}

// eofNoChecksum appends the EOF opcode and a zero checksum.
func (f *rdbFile) eofNoChecksum() []byte {
	f.WriteByte(FlagOpcodeEOF)
	f.Write(make([]byte, 8))
	return f.Bytes()
}

func concat(parts ...[]byte) []byte {
	var b []byte
	for _, p := range parts {
		b = append(b, p...)
	}
	return b
}

// decodeAll feeds data in chunks of size n and collects every event.
func decodeAll(data []byte, n int, opts Options) ([]Event, error) {
	buf := NewBuffer(nil)
	d := NewDecoder(buf, opts)
	var events []Event
	for off := 0; ; {
		e, err := d.Next()
		switch {
		case err == ErrNeedMoreData:
			if off >= len(data) {
				return events, err
			}
			end := off + n
			if end > len(data) {
				end = len(data)
			}
			buf.Write(data[off:end])
			off = end
		case err != nil:
			return events, err
		default:
			events = append(events, e)
		}
	}
}
