package rdb

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNeedMoreData is returned when the buffered bytes end inside a field.
// Nothing has been consumed; append more bytes and call again.
var ErrNeedMoreData = errors.New("rdb: need more data")

type Kind int

const (
	KindMalformed Kind = iota + 1
	KindBadMagic
	KindBadVersion
	KindInvalidEncoding
	KindCompression
	KindUnsupported
	KindChecksum
)

var kindNames = map[Kind]string{
	KindMalformed:       "malformed",
	KindBadMagic:        "bad magic string",
	KindBadVersion:      "bad version",
	KindInvalidEncoding: "invalid encoding",
	KindCompression:     "compression failure",
	KindUnsupported:     "unsupported",
	KindChecksum:        "checksum mismatch",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DecodeError is a fatal decoding failure. The stream cannot be resumed after it.
type DecodeError struct {
	Kind Kind
	// Offset is the stream offset of the record (or header/footer) being decoded, -1 if unknown.
	Offset int64
	// Tag is the leading byte of the record: an opcode or a value type. -1 outside the body.
	Tag int
	Err error
}

func (e *DecodeError) Error() string {
	msg := "rdb: " + e.Kind.String()
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Tag >= 0 {
		msg += fmt.Sprintf(" (tag %d)", e.Tag)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Cause() error { return e.Err }

func errorf(kind Kind, format string, args ...interface{}) error {
	return &DecodeError{Kind: kind, Offset: -1, Tag: -1, Err: errors.Errorf(format, args...)}
}

func wrapKind(kind Kind, err error, msg string) error {
	return &DecodeError{Kind: kind, Offset: -1, Tag: -1, Err: errors.Wrap(err, msg)}
}

// IsKind reports whether err is a DecodeError of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Kind == kind
}

// locate fills in the position of a decode error that does not have one yet.
func locate(err error, offset int64, tag int) error {
	var de *DecodeError
	if !errors.As(err, &de) {
		return &DecodeError{Kind: KindMalformed, Offset: offset, Tag: tag, Err: err}
	}
	if de.Offset < 0 {
		de.Offset = offset
	}
	if de.Tag < 0 {
		de.Tag = tag
	}
	return err
}
