package boot

import (
	"context"
	"io"
	"os"

	"github.com/8090Lambert/tree-new-bee/config"
	"github.com/8090Lambert/tree-new-bee/generator"
	"github.com/8090Lambert/tree-new-bee/metrics"
	"github.com/8090Lambert/tree-new-bee/parse"
	"github.com/8090Lambert/tree-new-bee/rdb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Migrate replays every source of cfg on its target. Sources are decoded by
// cfg.Worker.Thread workers; the first failure cancels the others.
func Migrate(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, m *metrics.Metrics) error {
	log.WithFields(logrus.Fields{
		"sources": len(cfg.Source.Servers),
		"target":  cfg.Target.Kind,
		"thread":  cfg.Worker.Thread,
	}).Info("tree-new-bee is starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Listen, log); err != nil {
				log.WithError(err).Error("metrics endpoint stopped")
			}
		}()
	}

	sink := generator.NewRedisSink(cfg.Target, cfg.Replay.BatchSize, log, m)
	defer sink.Close()
	return Run(ctx, cfg, sink, log, m)
}

// Run decodes the sources of cfg into gen with a bounded worker pool.
func Run(ctx context.Context, cfg *config.Config, gen generator.Gen, log logrus.FieldLogger, m *metrics.Metrics) error {
	factory, err := parse.NewParserFactory(parse.KindRDB)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Worker.Thread)
	if s, ok := gen.(*generator.RedisSink); ok {
		s.SetContext(ctx)
	}

	opts := parse.Options{
		Decode:  rdb.Options{SkipChecksum: cfg.Replay.SkipChecksum, Streams: rdb.DecodeStream},
		Log:     log,
		Metrics: m,
	}
	for _, source := range cfg.Source.Servers {
		source := source
		g.Go(func() error {
			return parseFile(ctx, factory, source, gen, opts)
		})
	}
	return g.Wait()
}

func parseFile(ctx context.Context, factory parse.Factory, path string, gen generator.Gen, opts parse.Options) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open source %s", path)
	}
	defer f.Close()
	return factory(path, f, gen, opts).Parse(ctx)
}

type DumpOptions struct {
	File   string
	Format generator.Format
	// Out receives the entries, nil to skip them.
	Out io.Writer
	// Report receives the biggest keys summary, nil to skip it.
	Report io.Writer

	SkipChecksum bool
}

// Dump decodes one file into a json/csv putter and optionally prints the
// biggest keys summary.
func Dump(ctx context.Context, opts DumpOptions, log logrus.FieldLogger, m *metrics.Metrics) error {
	var gens []generator.Gen
	if opts.Out != nil {
		putter, err := generator.NewPutter(opts.Format, opts.Out)
		if err != nil {
			return err
		}
		gens = append(gens, putter)
	}
	var summary *generator.Summary
	if opts.Report != nil {
		summary = generator.NewSummary()
		gens = append(gens, summary)
	}

	factory, err := parse.NewParserFactory(parse.KindRDB)
	if err != nil {
		return err
	}
	err = parseFile(ctx, factory, opts.File, generator.Tee(gens...), parse.Options{
		Decode:  rdb.Options{SkipChecksum: opts.SkipChecksum, Streams: rdb.DecodeStream},
		Log:     log,
		Metrics: m,
	})
	if err != nil {
		return err
	}
	if summary != nil {
		summary.Render(opts.Report)
	}
	return nil
}
