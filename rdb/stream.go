package rdb

import (
	"encoding/binary"
	"strconv"

	"github.com/8090Lambert/tree-new-bee/protocol"
)

// StreamDecoder reads a TypeStreamListPacks value: the listpacks, the stream
// length and last id, and the consumer groups. Like ModuleDecoder it must
// consume exactly the bytes of the value and may return ErrNeedMoreData.
type StreamDecoder func(buf *Buffer) (Value, error)

const (
	StreamItemFlagNone       = 0      /* No special flags. */
	StreamItemFlagDeleted    = 1 << 0 /* Entry was deleted. Skip it. */
	StreamItemFlagSameFields = 1 << 1 /* Same fields as master entry. */

	lpEnd = 0xff
)

type StreamID struct {
	Ms       uint64
	Sequence uint64
}

func (id StreamID) String() string {
	return strconv.FormatUint(id.Ms, 10) + "-" + strconv.FormatUint(id.Sequence, 10)
}

// Entry ids inside a listpack are stored as deltas from the master id.
func (id StreamID) buildOn(ms, seq uint64) StreamID {
	return StreamID{Ms: id.Ms + ms, Sequence: id.Sequence + seq}
}

type StreamField struct {
	Field []byte
	Value []byte
}

type StreamEntry struct {
	ID     StreamID
	Fields []StreamField
}

// StreamNACK is a message delivered to a consumer and not acknowledged yet.
type StreamNACK struct {
	ID StreamID
	// DeliveryTime is the last delivery in unix milliseconds.
	DeliveryTime  int64
	DeliveryCount uint64
}

type StreamConsumer struct {
	Name     []byte
	SeenTime int64
	// Pending holds the ids this consumer owns in the group's pending list.
	Pending []StreamID
}

type StreamGroup struct {
	Name      []byte
	LastID    StreamID
	Pending   []StreamNACK
	Consumers []StreamConsumer
}

// Stream keeps the live entries in id order. Entries flagged as deleted in
// the listpacks are dropped.
type Stream struct {
	Entries []StreamEntry
	Length  uint64
	LastID  StreamID
	Groups  []StreamGroup
}

func (Stream) Type() protocol.DataType { return protocol.Stream }

func (s Stream) Len() int { return len(s.Entries) }

func (s Stream) ConcreteSize() uint64 {
	var size uint64
	for _, e := range s.Entries {
		for _, f := range e.Fields {
			size += uint64(len(f.Field) + len(f.Value))
		}
	}
	return size
}

func (Stream) value() {}

func (d *Decoder) readStream() (Value, error) {
	if d.opts.Streams == nil {
		return nil, errorf(KindUnsupported, "stream values have no registered decoder")
	}
	return d.opts.Streams(d.buf)
}

// DecodeStream is the StreamDecoder for the listpack stream encoding.
func DecodeStream(buf *Buffer) (Value, error) {
	entries, err := loadStreamEntries(buf)
	if err != nil {
		return nil, err
	}
	length, err := loadCount(buf)
	if err != nil {
		return nil, err
	}
	lastID, err := loadStreamID(buf)
	if err != nil {
		return nil, err
	}
	groups, err := loadStreamGroups(buf)
	if err != nil {
		return nil, err
	}
	return Stream{Entries: entries, Length: length, LastID: lastID, Groups: groups}, nil
}

func loadStreamID(buf *Buffer) (StreamID, error) {
	ms, err := loadCount(buf)
	if err != nil {
		return StreamID{}, err
	}
	seq, err := loadCount(buf)
	if err != nil {
		return StreamID{}, err
	}
	return StreamID{Ms: ms, Sequence: seq}, nil
}

// Raw ids are 128 bit big endian, ms first.
func loadRawStreamID(buf *Buffer) (StreamID, error) {
	b, err := buf.Slice(16)
	if err != nil {
		return StreamID{}, err
	}
	return StreamID{Ms: binary.BigEndian.Uint64(b[:8]), Sequence: binary.BigEndian.Uint64(b[8:])}, nil
}

func loadMillis(buf *Buffer) (int64, error) {
	b, err := buf.Slice(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func countHint(n uint64) int {
	if n > 1024 {
		return 1024
	}
	return int(n)
}

func loadStreamEntries(buf *Buffer) ([]StreamEntry, error) {
	nodes, err := loadCount(buf)
	if err != nil {
		return nil, err
	}
	entries := []StreamEntry{}
	for i := uint64(0); i < nodes; i++ {
		key, err := LoadString(buf)
		if err != nil {
			return nil, err
		}
		if len(key) != 16 {
			return nil, errorf(KindMalformed, "stream node key is %d bytes, want 16", len(key))
		}
		master := StreamID{Ms: binary.BigEndian.Uint64(key[:8]), Sequence: binary.BigEndian.Uint64(key[8:])}
		lp, err := LoadString(buf)
		if err != nil {
			return nil, err
		}
		entries, err = loadStreamListpack(lp, master, entries)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func loadStreamGroups(buf *Buffer) ([]StreamGroup, error) {
	count, err := loadCount(buf)
	if err != nil {
		return nil, err
	}
	groups := make([]StreamGroup, 0, countHint(count))
	for i := uint64(0); i < count; i++ {
		name, err := LoadString(buf)
		if err != nil {
			return nil, err
		}
		lastID, err := loadStreamID(buf)
		if err != nil {
			return nil, err
		}
		group := StreamGroup{Name: name, LastID: lastID}

		// Global pending entries list
		pel, err := loadCount(buf)
		if err != nil {
			return nil, err
		}
		pending := make(map[StreamID]bool, countHint(pel))
		for j := uint64(0); j < pel; j++ {
			id, err := loadRawStreamID(buf)
			if err != nil {
				return nil, err
			}
			at, err := loadMillis(buf)
			if err != nil {
				return nil, err
			}
			n, err := loadCount(buf)
			if err != nil {
				return nil, err
			}
			pending[id] = true
			group.Pending = append(group.Pending, StreamNACK{ID: id, DeliveryTime: at, DeliveryCount: n})
		}

		consumers, err := loadCount(buf)
		if err != nil {
			return nil, err
		}
		for j := uint64(0); j < consumers; j++ {
			cname, err := LoadString(buf)
			if err != nil {
				return nil, err
			}
			seen, err := loadMillis(buf)
			if err != nil {
				return nil, err
			}
			consumer := StreamConsumer{Name: cname, SeenTime: seen}
			owned, err := loadCount(buf)
			if err != nil {
				return nil, err
			}
			for k := uint64(0); k < owned; k++ {
				id, err := loadRawStreamID(buf)
				if err != nil {
					return nil, err
				}
				if !pending[id] {
					return nil, errorf(KindMalformed, "consumer %q owns %s, which is not in the group pending list", cname, id)
				}
				consumer.Pending = append(consumer.Pending, id)
			}
			group.Consumers = append(group.Consumers, consumer)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// loadStreamListpack appends the live entries of one listpack node.
//
// Master entry: | count | deleted | num-fields | field_1 | ... | field_N | 0 |
// Then per entry: | flags | ms-diff | seq-diff | [num-fields field_1 ...] value_1 ... | lp-count |
func loadStreamListpack(b []byte, master StreamID, entries []StreamEntry) ([]StreamEntry, error) {
	lp := newInput(b, "listpack")
	// 4 bytes total-bytes, 2 bytes num-elements
	if err := lp.Skip(6); err != nil {
		return nil, err
	}
	count, err := loadListpackInt(lp)
	if err != nil {
		return nil, err
	}
	deleted, err := loadListpackInt(lp)
	if err != nil {
		return nil, err
	}
	masterFields, err := loadListpackInt(lp)
	if err != nil {
		return nil, err
	}
	if count < 0 || deleted < 0 || masterFields < 0 {
		return nil, errorf(KindMalformed, "listpack: negative master counters")
	}
	fields := make([][]byte, 0, countHint(uint64(masterFields)))
	for i := int64(0); i < masterFields; i++ {
		f, err := loadListpackEntry(lp)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if _, err := loadListpackEntry(lp); err != nil {
		return nil, err
	}

	for i := int64(0); i < count+deleted; i++ {
		flags, err := loadListpackInt(lp)
		if err != nil {
			return nil, err
		}
		ms, err := loadListpackInt(lp)
		if err != nil {
			return nil, err
		}
		seq, err := loadListpackInt(lp)
		if err != nil {
			return nil, err
		}
		entry := StreamEntry{ID: master.buildOn(uint64(ms), uint64(seq))}

		if flags&StreamItemFlagSameFields != 0 {
			for _, f := range fields {
				v, err := loadListpackEntry(lp)
				if err != nil {
					return nil, err
				}
				entry.Fields = append(entry.Fields, StreamField{Field: f, Value: v})
			}
		} else {
			n, err := loadListpackInt(lp)
			if err != nil {
				return nil, err
			}
			for j := int64(0); j < n; j++ {
				f, err := loadListpackEntry(lp)
				if err != nil {
					return nil, err
				}
				v, err := loadListpackEntry(lp)
				if err != nil {
					return nil, err
				}
				entry.Fields = append(entry.Fields, StreamField{Field: f, Value: v})
			}
		}
		// lp-count
		if _, err := loadListpackEntry(lp); err != nil {
			return nil, err
		}
		if flags&StreamItemFlagDeleted == 0 {
			entries = append(entries, entry)
		}
	}

	end, err := lp.ReadByte()
	if err != nil {
		return nil, err
	}
	if end != lpEnd {
		return nil, errorf(KindMalformed, "listpack: expected end byte, got 0x%02x", end)
	}
	return entries, nil
}

func loadListpackInt(lp *input) (int64, error) {
	b, err := loadListpackEntry(lp)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, wrapKind(KindMalformed, err, "listpack: integer entry")
	}
	return n, nil
}

// loadListpackEntry reads one element and its trailing back length. Integers
// come back as their decimal text.
func loadListpackEntry(lp *input) ([]byte, error) {
	special, err := lp.ReadByte()
	if err != nil {
		return nil, err
	}

	var (
		res  []byte
		size int // encoding byte(s) plus data, which is what the back length covers
	)
	switch {
	case special&0x80 == 0: // 7 bit uint
		size = 1
		res = []byte(strconv.FormatInt(int64(special&0x7f), 10))
	case special&0xc0 == 0x80: // 6 bit string length
		length := int(special & 0x3f)
		size = 1 + length
		if res, err = lp.Slice(length); err != nil {
			return nil, err
		}
	case special&0xe0 == 0xc0: // 13 bit int
		next, err := lp.ReadByte()
		if err != nil {
			return nil, err
		}
		size = 2
		res = []byte(strconv.FormatInt(int64(int32(uint32(special&0x1f)<<8|uint32(next))<<19>>19), 10))
	case special&0xf0 == 0xe0: // 12 bit string length
		next, err := lp.ReadByte()
		if err != nil {
			return nil, err
		}
		length := int(special&0x0f)<<8 | int(next)
		size = 2 + length
		if res, err = lp.Slice(length); err != nil {
			return nil, err
		}
	case special == 0xf0: // 32 bit string length
		length, err := lp.Uint32()
		if err != nil {
			return nil, err
		}
		size = 5 + int(length)
		if res, err = lp.Slice(int(length)); err != nil {
			return nil, err
		}
	case special == 0xf1:
		v, err := lp.Uint16()
		if err != nil {
			return nil, err
		}
		size = 3
		res = []byte(strconv.FormatInt(int64(int16(v)), 10))
	case special == 0xf2:
		b, err := lp.Slice(3)
		if err != nil {
			return nil, err
		}
		size = 4
		v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
		res = []byte(strconv.FormatInt(int64(v), 10))
	case special == 0xf3:
		v, err := lp.Uint32()
		if err != nil {
			return nil, err
		}
		size = 5
		res = []byte(strconv.FormatInt(int64(int32(v)), 10))
	case special == 0xf4:
		v, err := lp.Uint64()
		if err != nil {
			return nil, err
		}
		size = 9
		res = []byte(strconv.FormatInt(int64(v), 10))
	default:
		return nil, errorf(KindMalformed, "listpack: unknown encoding 0x%02x", special)
	}

	if err := lp.Skip(listpackBacklen(size)); err != nil {
		return nil, err
	}
	return res, nil
}

func listpackBacklen(size int) int {
	switch {
	case size <= 127:
		return 1
	case size < 16383:
		return 2
	case size < 2097151:
		return 3
	case size < 268435455:
		return 4
	}
	return 5
}
