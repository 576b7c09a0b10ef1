package rdb

import (
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/8090Lambert/tree-new-bee/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lpBacklen(b []byte) []byte {
	return append(b, make([]byte, listpackBacklen(len(b)))...)
}

// lpStr writes a 6 or 12 bit length string element.
func lpStr(s string) []byte {
	if len(s) < 64 {
		return lpBacklen(append([]byte{0x80 | byte(len(s))}, s...))
	}
	return lpBacklen(append([]byte{0xe0 | byte(len(s)>>8), byte(len(s))}, s...))
}

// lpUint writes a 7 bit unsigned element.
func lpUint(n byte) []byte {
	return lpBacklen([]byte{n & 0x7f})
}

func listpack(items ...[]byte) []byte {
	body := concat(items...)
	b := make([]byte, 6)
	binary.LittleEndian.PutUint32(b, uint32(6+len(body)+1))
	binary.LittleEndian.PutUint16(b[4:], uint16(len(items)))
	return append(append(b, body...), lpEnd)
}

func rawID(ms, seq uint64) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b, ms)
	binary.BigEndian.PutUint64(b[8:], seq)
	return b
}

func millis(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

const streamMs = 1700000000000

// streamPayload is one node with a live entry on the master fields, a deleted
// one, and one with its own fields; plus a group with a single pending message.
func streamPayload(owned []byte) []byte {
	color := strings.Repeat("b", 100)
	lp := listpack(
		// master: count, deleted, num-fields, fields, terminator
		lpUint(2), lpUint(1), lpUint(2), lpStr("name"), lpStr("age"), lpUint(0),
		lpUint(StreamItemFlagSameFields), lpUint(0), lpUint(0), lpStr("bee"), lpUint(3), lpUint(4),
		lpUint(StreamItemFlagSameFields|StreamItemFlagDeleted), lpUint(1), lpUint(0), lpStr("gone"), lpUint(9), lpUint(4),
		lpUint(StreamItemFlagNone), lpUint(2), lpUint(5), lpUint(1), lpStr("color"), lpStr(color), lpUint(5),
	)
	return concat(
		encLen(1), encString(string(rawID(streamMs, 0))), encString(string(lp)),
		encLen(2), encLen(streamMs+2), encLen(5),
		encLen(1),
		encString("g"), encLen(streamMs), encLen(0),
		encLen(1), rawID(streamMs, 0), millis(streamMs+10), encLen(2),
		encLen(1), encString("alice"), millis(streamMs+20), encLen(1), owned,
	)
}

func TestDecodeStream(t *testing.T) {
	data := newRDB(9).op(TypeStreamListPacks, encString("s"), streamPayload(rawID(streamMs, 0))).eof()
	for _, n := range []int{1, 7, len(data)} {
		events, err := decodeAll(data, n, Options{Streams: DecodeStream})
		require.Equal(t, io.EOF, err, "chunk %d", n)
		require.Len(t, events, 1)

		e := events[0].(*Entry)
		assert.Equal(t, protocol.Stream, e.Type())
		s := e.Value.(Stream)
		assert.Equal(t, uint64(2), s.Length)
		assert.Equal(t, "1700000000002-5", s.LastID.String())
		require.Len(t, s.Entries, 2)
		assert.Equal(t, StreamEntry{
			ID: StreamID{Ms: streamMs},
			Fields: []StreamField{
				{Field: []byte("name"), Value: []byte("bee")},
				{Field: []byte("age"), Value: []byte("3")},
			},
		}, s.Entries[0])
		assert.Equal(t, StreamID{Ms: streamMs + 2, Sequence: 5}, s.Entries[1].ID)
		assert.Equal(t, []StreamField{{Field: []byte("color"), Value: []byte(strings.Repeat("b", 100))}}, s.Entries[1].Fields)
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, uint64(4+3+3+1+5+100), s.ConcreteSize())

		require.Len(t, s.Groups, 1)
		g := s.Groups[0]
		assert.Equal(t, "g", string(g.Name))
		assert.Equal(t, StreamID{Ms: streamMs}, g.LastID)
		assert.Equal(t, []StreamNACK{{ID: StreamID{Ms: streamMs}, DeliveryTime: streamMs + 10, DeliveryCount: 2}}, g.Pending)
		require.Len(t, g.Consumers, 1)
		assert.Equal(t, "alice", string(g.Consumers[0].Name))
		assert.Equal(t, int64(streamMs+20), g.Consumers[0].SeenTime)
		assert.Equal(t, []StreamID{{Ms: streamMs}}, g.Consumers[0].Pending)
	}
}

func TestDecodeStreamEmpty(t *testing.T) {
	payload := concat(encLen(0), encLen(0), encLen(0), encLen(0), encLen(0))
	data := newRDB(9).op(TypeStreamListPacks, encString("s"), payload).eof()
	events, err := decodeAll(data, 3, Options{Streams: DecodeStream})
	require.Equal(t, io.EOF, err)
	require.Len(t, events, 1)
	assert.Equal(t, Stream{Entries: []StreamEntry{}, Groups: []StreamGroup{}}, events[0].(*Entry).Value)
}

func TestDecodeStreamUnknownConsumerPending(t *testing.T) {
	data := newRDB(9).op(TypeStreamListPacks, encString("s"), streamPayload(rawID(streamMs, 1))).eof()
	_, err := decodeAll(data, len(data), Options{Streams: DecodeStream})
	assert.True(t, IsKind(err, KindMalformed), "got %v", err)
}

func TestDecodeStreamBadNodeKey(t *testing.T) {
	payload := concat(encLen(1), encString("short"), encString(string(listpack())))
	data := newRDB(9).op(TypeStreamListPacks, encString("s"), payload).eof()
	_, err := decodeAll(data, len(data), Options{Streams: DecodeStream})
	assert.True(t, IsKind(err, KindMalformed), "got %v", err)
}

func TestListpackTruncatedIsMalformed(t *testing.T) {
	lp := listpack(lpUint(1), lpUint(0), lpUint(1), lpStr("f"), lpUint(0),
		lpUint(StreamItemFlagSameFields), lpUint(0), lpUint(0), lpStr("v"), lpUint(3))
	for cut := 0; cut < len(lp); cut++ {
		_, err := loadStreamListpack(lp[:cut], StreamID{}, nil)
		require.True(t, IsKind(err, KindMalformed), "cut at %d: got %v", cut, err)
	}
	entries, err := loadStreamListpack(lp, StreamID{Ms: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []StreamEntry{{ID: StreamID{Ms: 1}, Fields: []StreamField{{Field: []byte("f"), Value: []byte("v")}}}}, entries)
}

func TestListpackEntryEncodings(t *testing.T) {
	long := strings.Repeat("x", 5000)
	long32 := append([]byte{0xf0, 0, 0, 0, 0}, long...)
	binary.LittleEndian.PutUint32(long32[1:], uint32(len(long)))

	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"uint7", []byte{100}, "100"},
		{"str6", append([]byte{0x83}, "abc"...), "abc"},
		{"int13", []byte{0xdf, 0xff}, "-1"},
		{"int13-pos", []byte{0xc1, 0x00}, "256"},
		{"str12", append([]byte{0xe0 | 1, 0x2c}, strings.Repeat("y", 300)...), strings.Repeat("y", 300)},
		{"str32", long32, long},
		{"int16", []byte{0xf1, 0xd4, 0xfe}, "-300"},
		{"int24", []byte{0xf2, 0x00, 0x00, 0x80}, "-8388608"},
		{"int32", []byte{0xf3, 0xff, 0xff, 0xff, 0x7f}, "2147483647"},
		{"int64", []byte{0xf4, 0, 0, 0, 0, 0, 0, 0, 0x80}, "-9223372036854775808"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lp := newInput(append(lpBacklen(tt.raw), lpEnd), "listpack")
			got, err := loadListpackEntry(lp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
			end, err := lp.ReadByte()
			require.NoError(t, err)
			assert.Equal(t, byte(lpEnd), end)
		})
	}

	_, err := loadListpackEntry(newInput([]byte{0xf5, 0}, "listpack"))
	assert.True(t, IsKind(err, KindMalformed), "got %v", err)
}
