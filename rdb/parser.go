package rdb

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/8090Lambert/tree-new-bee/protocol"
)

const (
	// Redis Object type
	TypeString = iota
	TypeList
	TypeSet
	TypeZset
	TypeHash
	TypeZset2 /* ZSET version 2 with doubles stored in binary. */
	TypeModule
	TypeModule2
	_
	TypeHashZipMap
	TypeListZipList
	TypeSetIntSet
	TypeZsetZipList
	TypeHashZipList
	TypeListQuickList
	TypeStreamListPacks

	// Redis RDB protocol
	FlagOpcodeModuleAux    = 247 /* Module auxiliary data. */
	FlagOpcodeIdle         = 248 /* LRU idle time. */
	FlagOpcodeFreq         = 249 /* LFU frequency. */
	FlagOpcodeAux          = 250 /* RDB aux field. */
	FlagOpcodeResizeDB     = 251 /* Hash table resize hint. */
	FlagOpcodeExpireTimeMs = 252 /* Expire time in milliseconds. */
	FlagOpcodeExpireTime   = 253 /* Old expire time in seconds. */
	FlagOpcodeSelectDB     = 254 /* DB number of the following keys. */
	FlagOpcodeEOF          = 255

	// Redis length type
	Type6Bit   = 0
	Type14Bit  = 1
	Type32Bit  = 0x80
	Type64Bit  = 0x81
	TypeEncVal = 3

	// Redis ziplist types
	ZipStr06B = 0
	ZipStr14B = 1
	ZipStr32B = 2

	// Redis ziplist entry
	ZipInt04B = 15
	ZipInt08B = 0xfe        // 11111110
	ZipInt16B = 0xc0 | 0<<4 // 11000000
	ZipInt24B = 0xc0 | 3<<4 // 11110000
	ZipInt32B = 0xc0 | 1<<4 // 11010000
	ZipInt64B = 0xc0 | 2<<4 //11100000

	ZipBigPrevLen = 0xfe

	zipEnd       = 0xff
	zipBigLen    = 0xffff
	zipmapBigLen = 0xfe
)

const (
	EncodeInt8 = iota
	EncodeInt16
	EncodeInt32
	EncodeLZF

	REDIS      = "REDIS"
	VersionMin = 1
	VersionMax = 9

	// First version that ends with a CRC64 of everything before it.
	checksumVersion = 5
)

var (
	PosInf = math.Inf(1)
	NegInf = math.Inf(-1)
	Nan    = math.NaN()
)

type State int

const (
	AwaitingHeader State = iota
	AwaitingBody
	AwaitingFooter
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingHeader:
		return "awaiting header"
	case AwaitingBody:
		return "awaiting body"
	case AwaitingFooter:
		return "awaiting footer"
	case Done:
		return "done"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Event is what Next hands back: an *Entry or an *AuxField.
type Event interface {
	Type() protocol.DataType
	event()
}

type Options struct {
	// KeepAccessInfo fills Entry.Idle and Entry.Freq from the IDLE/FREQ opcodes.
	KeepAccessInfo bool
	// SkipChecksum disables the CRC64 check of the footer.
	SkipChecksum bool
	// Modules decodes module values, keyed by the 9 character module type name.
	Modules map[string]ModuleDecoder
	// Streams decodes stream values. Without it streams are unsupported.
	Streams StreamDecoder
}

// Decoder turns the bytes accumulated in a Buffer into entries, one per Next
// call. It is not safe for concurrent use; run one Decoder per stream.
type Decoder struct {
	buf  *Buffer
	opts Options

	state   State
	version int
	db      uint64
	resize  ResizeDB

	// per record scratch, reset after each entry and on SELECTDB
	expire int64
	idle   int64
	freq   int

	tag    int
	crc    uint64
	hashed int64
	err    error
}

func NewDecoder(buf *Buffer, opts Options) *Decoder {
	d := &Decoder{buf: buf, opts: opts, tag: -1, hashed: buf.Offset()}
	d.resetScratch()
	return d
}

func (d *Decoder) State() State { return d.state }

// Version is the format version from the header, 0 before the header is read.
func (d *Decoder) Version() int { return d.version }

// DB is the database currently selected by the stream.
func (d *Decoder) DB() uint64 { return d.db }

// Next decodes up to the next entry or aux field.
//
// It returns ErrNeedMoreData when the buffer runs out before the next event is
// complete, io.EOF once the footer has been consumed, and a *DecodeError when
// the stream is corrupt or uses something unsupported. Decode errors are final:
// every later call returns the same error.
func (d *Decoder) Next() (Event, error) {
	if d.err != nil {
		return nil, d.err
	}
	for {
		switch d.state {
		case AwaitingHeader:
			if err := d.readHeader(); err != nil {
				return nil, d.fail(err, -1)
			}
		case AwaitingBody:
			e, err := d.readBody()
			if err != nil {
				return nil, err
			}
			if e != nil {
				return e, nil
			}
		case AwaitingFooter:
			if err := d.readFooter(); err != nil {
				return nil, d.fail(err, -1)
			}
		case Done:
			return nil, io.EOF
		}
	}
}

func (d *Decoder) fail(err error, tag int) error {
	if err == ErrNeedMoreData {
		return err
	}
	d.err = locate(err, d.buf.Offset(), tag)
	return d.err
}

// 9 bytes length include: 5 bytes "REDIS" and 4 bytes version in rdb.file
func (d *Decoder) readHeader() error {
	header, err := d.buf.Peek(9)
	if err != nil {
		return err
	}
	if !bytes.Equal(header[:5], []byte(REDIS)) {
		return errorf(KindBadMagic, "invalid magic string %q", header[:5])
	}
	version := 0
	for _, c := range header[5:] {
		if c < '0' || c > '9' {
			return errorf(KindBadVersion, "invalid version %q", header[5:])
		}
		version = version*10 + int(c-'0')
	}
	if version < VersionMin || version > VersionMax {
		return errorf(KindBadVersion, "unsupported version %d", version)
	}
	d.version = version
	d.buf.index += 9
	d.commit()
	d.state = AwaitingBody
	return nil
}

// readBody runs control opcodes until an event is ready or the EOF opcode is
// reached. Each opcode is committed on its own; a record cut short by the end
// of the buffer is rewound to its first byte.
func (d *Decoder) readBody() (Event, error) {
	for d.state == AwaitingBody {
		mark := d.buf.Offset()
		e, err := d.readRecord()
		if err != nil {
			d.buf.Rewind(mark)
			if err == ErrNeedMoreData {
				return nil, err
			}
			d.err = locate(err, mark, d.tag)
			return nil, d.err
		}
		d.commit()
		if e != nil {
			return e, nil
		}
	}
	return nil, nil
}

func (d *Decoder) readRecord() (Event, error) {
	t, err := d.buf.ReadByte()
	if err != nil {
		return nil, err
	}
	d.tag = int(t)

	switch t {
	case FlagOpcodeExpireTime:
		b, err := d.buf.Slice(4)
		if err != nil {
			return nil, err
		}
		d.expire = int64(binary.LittleEndian.Uint32(b)) * 1000
	case FlagOpcodeExpireTimeMs:
		b, err := d.buf.Slice(8)
		if err != nil {
			return nil, err
		}
		d.expire = int64(binary.LittleEndian.Uint64(b))
	case FlagOpcodeIdle:
		idle, err := loadCount(d.buf)
		if err != nil {
			return nil, err
		}
		d.idle = int64(idle)
	case FlagOpcodeFreq:
		freq, err := d.buf.ReadByte()
		if err != nil {
			return nil, err
		}
		d.freq = int(freq)
	case FlagOpcodeSelectDB:
		return nil, d.selectDB()
	case FlagOpcodeAux:
		return d.auxField()
	case FlagOpcodeResizeDB:
		return nil, d.resizeDB()
	case FlagOpcodeModuleAux:
		return nil, errorf(KindUnsupported, "module auxiliary data")
	case FlagOpcodeEOF:
		d.state = AwaitingFooter
	default:
		return d.readEntry(t)
	}
	return nil, nil
}

func (d *Decoder) readEntry(t byte) (Event, error) {
	key, err := LoadString(d.buf)
	if err != nil {
		return nil, err
	}
	value, err := d.loadObject(t)
	if err != nil {
		return nil, err
	}
	e := &Entry{DB: d.db, Key: key, Expire: d.expire, Value: value, Idle: -1, Freq: -1}
	if d.opts.KeepAccessInfo {
		e.Idle, e.Freq = d.idle, d.freq
	}
	d.resetScratch()
	return e, nil
}

func (d *Decoder) loadObject(t byte) (Value, error) {
	switch t {
	case TypeString:
		s, err := LoadString(d.buf)
		if err != nil {
			return nil, err
		}
		return Raw(s), nil
	case TypeList:
		return d.readList()
	case TypeListZipList:
		return d.readListWithZipList()
	case TypeListQuickList:
		return d.readListWithQuickList()
	case TypeSet:
		return d.readSet()
	case TypeSetIntSet:
		return d.readIntSet()
	case TypeZset, TypeZset2:
		return d.readZSet(t)
	case TypeZsetZipList:
		return d.readZipListSortSet()
	case TypeHash:
		return d.readHashMap()
	case TypeHashZipMap:
		return d.readHashMapWithZipmap()
	case TypeHashZipList:
		return d.readHashMapZiplist()
	case TypeModule, TypeModule2:
		return d.readModule(t)
	case TypeStreamListPacks:
		return d.readStream()
	}
	return nil, errorf(KindUnsupported, "unknown value type %d", t)
}

// An 8 byte CRC64 follows the EOF opcode from version 5 on. Zero means the
// writer had checksums turned off.
func (d *Decoder) readFooter() error {
	if d.version >= checksumVersion {
		b, err := d.buf.Peek(8)
		if err != nil {
			return err
		}
		sum := binary.LittleEndian.Uint64(b)
		if sum != 0 && !d.opts.SkipChecksum && sum != d.crc {
			return errorf(KindChecksum, "stream says %016x, computed %016x", sum, d.crc)
		}
		d.buf.index += 8
	}
	d.state = Done
	return nil
}

func (d *Decoder) commit() {
	if d.opts.SkipChecksum {
		return
	}
	d.crc = crc64Update(d.crc, d.buf.since(d.hashed))
	d.hashed = d.buf.Offset()
}

func (d *Decoder) resetScratch() {
	d.expire = -1
	d.idle = -1
	d.freq = -1
}
