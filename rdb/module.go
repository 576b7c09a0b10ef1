package rdb

import (
	"strings"

	"github.com/pkg/errors"
)

const moduleNameCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Module value opcodes (TypeModule2 payloads).
const (
	ModuleOpcodeEOF    = 0
	ModuleOpcodeSInt   = 1
	ModuleOpcodeUInt   = 2
	ModuleOpcodeFloat  = 3
	ModuleOpcodeDouble = 4
	ModuleOpcodeString = 5
)

// ModuleDecoder reads the payload of a module value that follows the module id.
// It has to consume exactly the bytes of the value. encver is the module's
// encoding version taken from the low 10 bits of the id.
//
// Returning ErrNeedMoreData is fine, the record is retried from its start.
type ModuleDecoder func(buf *Buffer, encver uint64) (Value, error)

// ModuleName returns the 9 character type name packed in a module id.
func ModuleName(id uint64) string {
	name := make([]byte, 9)
	id >>= 10
	for j := 8; j >= 0; j-- {
		name[j] = moduleNameCharset[id&63]
		id >>= 6
	}
	return string(name)
}

// ModuleID packs a module type name and encoding version into a module id.
func ModuleID(name string, encver uint64) (uint64, error) {
	if len(name) != 9 {
		return 0, errors.Errorf("module name %q must be 9 characters", name)
	}
	if encver > 1023 {
		return 0, errors.Errorf("module encoding version %d out of range", encver)
	}
	var id uint64
	for i := 0; i < len(name); i++ {
		p := strings.IndexByte(moduleNameCharset, name[i])
		if p < 0 {
			return 0, errors.Errorf("module name %q has invalid character %q", name, name[i])
		}
		id = id<<6 | uint64(p)
	}
	return id<<10 | encver, nil
}

// Module payloads have no length prefix, so without a decoder for the module
// there is no way to step over them.
func (d *Decoder) readModule(t byte) (Value, error) {
	id, err := loadCount(d.buf)
	if err != nil {
		return nil, err
	}
	name := ModuleName(id)
	decode, ok := d.opts.Modules[name]
	if !ok {
		return nil, errorf(KindUnsupported, "module %s (type %d) has no registered decoder", name, t)
	}
	return decode(d.buf, id&1023)
}

// LoadModuleOpcode reads one opcode of a TypeModule2 payload.
func LoadModuleOpcode(buf *Buffer) (uint64, error) {
	return loadCount(buf)
}
