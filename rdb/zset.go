package rdb

import (
	"strconv"

	"github.com/8090Lambert/tree-new-bee/protocol"
)

// SortedSet keeps members in stored order (ascending score for the compact encoding).
type SortedSet []SortedSetEntry

type SortedSetEntry struct {
	Member []byte
	Score  float64
}

func (SortedSet) Type() protocol.DataType { return protocol.SortedSet }

func (zs SortedSet) Len() int { return len(zs) }

func (zs SortedSet) ConcreteSize() uint64 {
	var size uint64
	for _, e := range zs {
		size += uint64(len(e.Member)) + 8
	}
	return size
}

func (SortedSet) value() {}

func (d *Decoder) readZSet(t byte) (Value, error) {
	length, err := loadCount(d.buf)
	if err != nil {
		return nil, err
	}
	sortedSet := make(SortedSet, 0, d.capHint(length))
	for i := uint64(0); i < length; i++ {
		member, err := LoadString(d.buf)
		if err != nil {
			return nil, err
		}
		var score float64
		if t == TypeZset2 {
			score, err = loadBinaryFloat(d.buf)
		} else {
			score, err = loadFloat(d.buf)
		}
		if err != nil {
			return nil, err
		}
		sortedSet = append(sortedSet, SortedSetEntry{Member: member, Score: score})
	}
	return sortedSet, nil
}

// Members and scores alternate in the ziplist, scores as decimal text or integers.
func (d *Decoder) readZipListSortSet() (Value, error) {
	b, err := LoadString(d.buf)
	if err != nil {
		return nil, err
	}
	items, err := loadZiplist(b)
	if err != nil {
		return nil, err
	}
	if len(items)%2 != 0 {
		return nil, errorf(KindMalformed, "zset ziplist has odd number of entries %d", len(items))
	}

	sortedSet := make(SortedSet, 0, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		score, err := strconv.ParseFloat(string(items[i+1]), 64)
		if err != nil {
			return nil, wrapKind(KindMalformed, err, "zset ziplist score")
		}
		sortedSet = append(sortedSet, SortedSetEntry{Member: items[i], Score: score})
	}
	return sortedSet, nil
}
