package rdb

import (
	"github.com/8090Lambert/tree-new-bee/protocol"
)

// Set holds the members as they were stored. Duplicates are kept.
type Set [][]byte

func (Set) Type() protocol.DataType { return protocol.Set }

func (s Set) Len() int { return len(s) }

func (s Set) ConcreteSize() uint64 { return sumSize(s) }

func (Set) value() {}

func (d *Decoder) readSet() (Value, error) {
	length, err := loadCount(d.buf)
	if err != nil {
		return nil, err
	}
	set := make(Set, 0, d.capHint(length))
	for i := uint64(0); i < length; i++ {
		member, err := LoadString(d.buf)
		if err != nil {
			return nil, err
		}
		set = append(set, member)
	}
	return set, nil
}

func (d *Decoder) readIntSet() (Value, error) {
	b, err := LoadString(d.buf)
	if err != nil {
		return nil, err
	}
	members, err := loadIntset(b)
	if err != nil {
		return nil, err
	}
	return Set(members), nil
}
