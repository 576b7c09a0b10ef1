package parse

import (
	"io"

	"github.com/8090Lambert/tree-new-bee/generator"
	"github.com/8090Lambert/tree-new-bee/metrics"
	"github.com/8090Lambert/tree-new-bee/protocol"
	"github.com/8090Lambert/tree-new-bee/rdb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	KindRDB = "rdb"

	DefaultChunkSize = 64 * 1024
)

type Options struct {
	Decode    rdb.Options
	Log       logrus.FieldLogger
	Metrics   *metrics.Metrics
	ChunkSize int
}

type Factory func(source string, r io.Reader, gen generator.Gen, opts Options) protocol.Parser

// NewParserFactory returns the constructor for a kind of source.
func NewParserFactory(kind string) (Factory, error) {
	switch kind {
	case KindRDB, "":
		return func(source string, r io.Reader, gen generator.Gen, opts Options) protocol.Parser {
			return NewRDBParser(source, r, gen, opts)
		}, nil
	}
	return nil, errors.Errorf("unknown source kind %q", kind)
}
