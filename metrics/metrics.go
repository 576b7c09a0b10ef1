package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the migration counters. The zero value is not usable, use New.
type Metrics struct {
	registry *prometheus.Registry

	entriesTotal   *prometheus.CounterVec
	auxTotal       prometheus.Counter
	bytesTotal     prometheus.Counter
	retriesTotal   prometheus.Counter
	errorsTotal    *prometheus.CounterVec
	skippedExpired prometheus.Counter
	replaySeconds  prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		entriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bee_entries_total",
				Help: "Entries decoded, by data type",
			},
			[]string{"type"},
		),
		auxTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bee_aux_total",
			Help: "Aux fields decoded",
		}),
		bytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bee_bytes_total",
			Help: "Source bytes fed to decoders",
		}),
		retriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bee_decode_retries_total",
			Help: "Times a decoder ran out of buffered bytes and waited for more input",
		}),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bee_errors_total",
				Help: "Failures, by kind",
			},
			[]string{"kind"},
		),
		skippedExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "bee_skipped_expired_total",
			Help: "Entries not replayed because they had already expired",
		}),
		replaySeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bee_replay_seconds",
			Help:    "Time spent replaying one entry on the target",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Entry(dataType string) { m.entriesTotal.WithLabelValues(dataType).Inc() }

func (m *Metrics) Aux() { m.auxTotal.Inc() }

func (m *Metrics) Bytes(n int) { m.bytesTotal.Add(float64(n)) }

func (m *Metrics) Retry() { m.retriesTotal.Inc() }

func (m *Metrics) Error(kind string) { m.errorsTotal.WithLabelValues(kind).Inc() }

func (m *Metrics) SkippedExpired() { m.skippedExpired.Inc() }

func (m *Metrics) ObserveReplay(d time.Duration) { m.replaySeconds.Observe(d.Seconds()) }

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
