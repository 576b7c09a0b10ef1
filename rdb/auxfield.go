package rdb

import (
	"fmt"

	"github.com/8090Lambert/tree-new-bee/protocol"
)

// AuxField is a metadata pair from an AUX opcode, such as redis-ver or ctime.
type AuxField struct {
	Key   []byte
	Value []byte
}

func (af *AuxField) Type() protocol.DataType { return protocol.Aux }

func (*AuxField) event() {}

func (af *AuxField) String() string {
	return fmt.Sprintf("{Aux: {Key: %s, Value: %s}}", af.Key, af.Value)
}

func (d *Decoder) auxField() (Event, error) {
	key, err := LoadString(d.buf)
	if err != nil {
		return nil, err
	}
	val, err := LoadString(d.buf)
	if err != nil {
		return nil, err
	}
	return &AuxField{Key: key, Value: val}, nil
}
