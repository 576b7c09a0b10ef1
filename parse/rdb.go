package parse

import (
	"context"
	"io"
	"time"

	"github.com/8090Lambert/tree-new-bee/generator"
	"github.com/8090Lambert/tree-new-bee/metrics"
	"github.com/8090Lambert/tree-new-bee/rdb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RDBParser feeds an RDB byte stream to a decoder chunk by chunk and hands
// the decoded events to a generator.
type RDBParser struct {
	source  string
	handler io.Reader
	gen     generator.Gen
	opts    Options
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

func NewRDBParser(source string, r io.Reader, gen generator.Gen, opts Options) *RDBParser {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &RDBParser{
		source:  source,
		handler: r,
		gen:     gen,
		opts:    opts,
		log:     log.WithField("source", source),
		metrics: opts.Metrics,
	}
}

func (r *RDBParser) Parse(ctx context.Context) error {
	buf := rdb.NewBuffer(nil)
	decoder := rdb.NewDecoder(buf, r.opts.Decode)
	chunk := make([]byte, r.opts.ChunkSize)
	start := time.Now()

	var (
		events  int
		begun   bool
		drained bool
		stalled int64 = -1
	)
	for {
		event, err := decoder.Next()
		if !begun && decoder.State() != rdb.AwaitingHeader {
			begun = true
			r.gen.Begin(r.source, decoder.Version())
			r.log.WithField("version", decoder.Version()).Debug("rdb header")
		}

		switch {
		case err == nil:
			if err := r.emit(event); err != nil {
				return err
			}
			events++

		case err == io.EOF:
			if buf.Len() > 0 {
				r.log.WithField("bytes", buf.Len()).Warn("trailing bytes after the checksum")
			}
			r.log.WithFields(logrus.Fields{
				"events":  events,
				"offset":  buf.Offset(),
				"elapsed": time.Since(start),
			}).Info("rdb parsed")
			return r.gen.End()

		case err == rdb.ErrNeedMoreData:
			if drained {
				r.metrics.Error("truncated")
				return errors.Wrapf(io.ErrUnexpectedEOF, "%s: stream ends at offset %d while %s", r.source, buf.Offset()+int64(buf.Len()), decoder.State())
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			// A record still cut short at the same offset is retried only
			// after the buffered bytes have doubled, so a big key costs a
			// logarithmic number of decode attempts.
			want := buf.Len() + 1
			if buf.Offset() != stalled {
				stalled = buf.Offset()
			} else if 2*buf.Len() > want {
				want = 2 * buf.Len()
			}
			r.metrics.Retry()
			for buf.Len() < want && !drained {
				n, rerr := r.handler.Read(chunk)
				if n > 0 {
					buf.Write(chunk[:n])
					r.metrics.Bytes(n)
				}
				if rerr == io.EOF {
					drained = true
				} else if rerr != nil {
					r.metrics.Error("read")
					return errors.Wrapf(rerr, "read %s", r.source)
				}
			}

		default:
			var de *rdb.DecodeError
			if errors.As(err, &de) {
				r.metrics.Error(de.Kind.String())
			}
			r.log.WithFields(logrus.Fields{
				"db":     decoder.DB(),
				"offset": buf.Offset(),
			}).WithError(err).Error("rdb decode failed")
			return errors.Wrap(err, r.source)
		}
	}
}

func (r *RDBParser) emit(event rdb.Event) error {
	switch e := event.(type) {
	case *rdb.AuxField:
		r.metrics.Aux()
		r.gen.AuxField(e.Key, e.Value)
	case *rdb.Entry:
		r.metrics.Entry(string(e.Type()))
		if err := r.gen.Entry(e); err != nil {
			return errors.Wrapf(err, "%s: db %d", r.source, e.DB)
		}
	}
	return nil
}
