package rdb

import (
	"github.com/8090Lambert/tree-new-bee/protocol"
)

// Hash keeps the field/value pairs in stored order.
type Hash []HashEntry

// HashTable entry.
type HashEntry struct {
	Field []byte
	Value []byte
}

func (Hash) Type() protocol.DataType { return protocol.Hash }

func (h Hash) Len() int { return len(h) }

func (h Hash) ConcreteSize() uint64 {
	var size uint64
	for _, e := range h {
		size += uint64(len(e.Field) + len(e.Value))
	}
	return size
}

func (Hash) value() {}

func (d *Decoder) readHashMap() (Value, error) {
	length, err := loadCount(d.buf)
	if err != nil {
		return nil, err
	}
	hashTable := make(Hash, 0, d.capHint(length))
	for i := uint64(0); i < length; i++ {
		field, err := LoadString(d.buf)
		if err != nil {
			return nil, err
		}
		value, err := LoadString(d.buf)
		if err != nil {
			return nil, err
		}
		hashTable = append(hashTable, HashEntry{Field: field, Value: value})
	}
	return hashTable, nil
}

func (d *Decoder) readHashMapWithZipmap() (Value, error) {
	b, err := LoadString(d.buf)
	if err != nil {
		return nil, err
	}
	items, err := loadZipmap(b)
	if err != nil {
		return nil, err
	}
	return pairs(items), nil
}

func (d *Decoder) readHashMapZiplist() (Value, error) {
	b, err := LoadString(d.buf)
	if err != nil {
		return nil, err
	}
	items, err := loadZiplist(b)
	if err != nil {
		return nil, err
	}
	if len(items)%2 != 0 {
		return nil, errorf(KindMalformed, "hash ziplist has odd number of entries %d", len(items))
	}
	return pairs(items), nil
}

func pairs(items [][]byte) Hash {
	hashTable := make(Hash, 0, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		hashTable = append(hashTable, HashEntry{Field: items[i], Value: items[i+1]})
	}
	return hashTable
}
