package rdb

import (
	"github.com/8090Lambert/tree-new-bee/protocol"
)

// List keeps the elements in list order.
type List [][]byte

func (List) Type() protocol.DataType { return protocol.List }

func (l List) Len() int { return len(l) }

func (l List) ConcreteSize() uint64 { return sumSize(l) }

func (List) value() {}

func (d *Decoder) readList() (Value, error) {
	length, err := loadCount(d.buf)
	if err != nil {
		return nil, err
	}
	list := make(List, 0, d.capHint(length))
	for i := uint64(0); i < length; i++ {
		val, err := LoadString(d.buf)
		if err != nil {
			return nil, err
		}
		list = append(list, val)
	}
	return list, nil
}

// quicklist: a linked list of ziplists, each node stored as one string.
func (d *Decoder) readListWithQuickList() (Value, error) {
	length, err := loadCount(d.buf)
	if err != nil {
		return nil, err
	}
	var list List
	for i := uint64(0); i < length; i++ {
		b, err := LoadString(d.buf)
		if err != nil {
			return nil, err
		}
		items, err := loadZiplist(b)
		if err != nil {
			return nil, err
		}
		list = append(list, items...)
	}
	if list == nil {
		list = List{}
	}
	return list, nil
}

func (d *Decoder) readListWithZipList() (Value, error) {
	b, err := LoadString(d.buf)
	if err != nil {
		return nil, err
	}
	items, err := loadZiplist(b)
	if err != nil {
		return nil, err
	}
	return List(items), nil
}

// capHint bounds preallocation by what the buffer could possibly hold,
// every element takes at least one byte.
func (d *Decoder) capHint(length uint64) int {
	if n := uint64(d.buf.Len()); length > n {
		return int(n)
	}
	return int(length)
}

func sumSize(items [][]byte) uint64 {
	var size uint64
	for _, item := range items {
		size += uint64(len(item))
	}
	return size
}
