package rdb

import (
	"fmt"
	"time"

	"github.com/8090Lambert/tree-new-bee/protocol"
)

// Value is the decoded payload of an entry: Raw, List, Set, SortedSet, Hash or Stream.
type Value interface {
	Type() protocol.DataType
	// Len is the number of elements (1 for a string).
	Len() int
	// ConcreteSize is the number of data bytes, metadata excluded.
	ConcreteSize() uint64
	value()
}

// Entry is one key decoded from the stream. It shares no state with the
// decoder once returned.
type Entry struct {
	DB  uint64
	Key []byte
	// Expire is the absolute expiry in unix milliseconds, -1 when the key does not expire.
	Expire int64
	Value  Value
	// Idle (LRU seconds) and Freq (LFU counter) are -1 unless requested and present.
	Idle int64
	Freq int
}

func (e *Entry) Type() protocol.DataType { return e.Value.Type() }

func (*Entry) event() {}

func (e *Entry) ExpireAt() (time.Time, bool) {
	if e.Expire < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(e.Expire).UTC(), true
}

// Whether the key has expired at now.
func (e *Entry) Expired(now time.Time) bool {
	at, ok := e.ExpireAt()
	return ok && !at.After(now)
}

func (e *Entry) String() string {
	if at, ok := e.ExpireAt(); ok {
		return fmt.Sprintf("{DB: %d, ExpiryTime: %s, Key: %s, %s: %d}", e.DB, at.Format(time.RFC3339Nano), e.Key, e.Type(), e.Value.Len())
	}
	return fmt.Sprintf("{DB: %d, Key: %s, %s: %d}", e.DB, e.Key, e.Type(), e.Value.Len())
}
