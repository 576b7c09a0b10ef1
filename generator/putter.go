package generator

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"sync"

	"github.com/8090Lambert/tree-new-bee/rdb"
	"github.com/pkg/errors"
)

const (
	beginning = 1
)

var csvHeader = []string{"DataType", "DB", "Key", "Value", "Size(bytes)", "ExpireAt"}

// Putter writes every entry of a source to w as json lines or csv rows.
type Putter struct {
	format Format
	flag   uint32

	jsonHandler *bufio.Writer
	csvHandler  *csv.Writer
	mu          sync.Mutex
}

type jsonEntry struct {
	DB       uint64      `json:"db"`
	Type     string      `json:"type"`
	Key      text        `json:"key"`
	Value    interface{} `json:"value"`
	Size     uint64      `json:"size"`
	ExpireAt string      `json:"expire_at,omitempty"`
}

func NewPutter(format Format, w io.Writer) (*Putter, error) {
	p := &Putter{format: format}
	switch format {
	case FormatJSON:
		p.jsonHandler = bufio.NewWriter(w)
	case FormatCSV:
		p.csvHandler = csv.NewWriter(w)
	default:
		return nil, errors.Errorf("unknown format %q", format)
	}
	return p, nil
}

func (p *Putter) Begin(source string, version int) {}

func (p *Putter) AuxField(key, value []byte) {}

func (p *Putter) Entry(e *rdb.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.jsonHandler != nil {
		line, err := json.Marshal(jsonEntry{
			DB:       e.DB,
			Type:     string(e.Type()),
			Key:      e.Key,
			Value:    plain(e.Value),
			Size:     e.Value.ConcreteSize(),
			ExpireAt: expireText(e),
		})
		if err != nil {
			return errors.Wrapf(err, "encode key %q", e.Key)
		}
		p.jsonHandler.Write(line)
		_, err = p.jsonHandler.WriteString(CRLF)
		return err
	}

	if p.flag&beginning == 0 {
		if err := p.csvHandler.Write(csvHeader); err != nil {
			return err
		}
		p.flag ^= beginning
	}
	var value string
	if raw, ok := e.Value.(rdb.Raw); ok {
		value = string(raw)
	} else {
		b, err := json.Marshal(plain(e.Value))
		if err != nil {
			return errors.Wrapf(err, "encode key %q", e.Key)
		}
		value = string(b)
	}
	return p.csvHandler.Write([]string{
		string(e.Type()),
		strconv.FormatUint(e.DB, 10),
		string(e.Key),
		value,
		strconv.FormatUint(e.Value.ConcreteSize(), 10),
		expireText(e),
	})
}

// End flushes buffered output.
func (p *Putter) End() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.jsonHandler != nil {
		return p.jsonHandler.Flush()
	}
	p.csvHandler.Flush()
	return p.csvHandler.Error()
}
