package psf

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an optional prometheus.Collector a caller registers to observe
// decode health across one or many opened files. A nil *Metrics is a safe
// no-op everywhere in this package, so WithMetrics is the only place callers
// need to think about it.
type Metrics struct {
	sectionsParsed prometheus.Counter
	signalsDecoded prometheus.Counter
	truncatedReads prometheus.Counter
	decodeDuration prometheus.Histogram
}

// NewMetrics builds a Metrics ready to register with a prometheus.Registry.
func NewMetrics() *Metrics {
	return &Metrics{
		sectionsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "psf",
			Name:      "sections_parsed_total",
			Help:      "Number of PSF sections successfully dispatched and parsed.",
		}),
		signalsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "psf",
			Name:      "signals_decoded_total",
			Help:      "Number of output signal columns produced across all opened files.",
		}),
		truncatedReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "psf",
			Name:      "truncated_reads_total",
			Help:      "Number of value-section decodes that ended before the declared sweep point count.",
		}),
		decodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "psf",
			Name:      "decode_duration_seconds",
			Help:      "Wall-clock time spent decoding a file's value section.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	if m == nil {
		return
	}
	m.sectionsParsed.Describe(ch)
	m.signalsDecoded.Describe(ch)
	m.truncatedReads.Describe(ch)
	m.decodeDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	if m == nil {
		return
	}
	m.sectionsParsed.Collect(ch)
	m.signalsDecoded.Collect(ch)
	m.truncatedReads.Collect(ch)
	m.decodeDuration.Collect(ch)
}

func (m *Metrics) recordSection() {
	if m == nil {
		return
	}
	m.sectionsParsed.Inc()
}

func (m *Metrics) recordSignals(n int) {
	if m == nil {
		return
	}
	m.signalsDecoded.Add(float64(n))
}

func (m *Metrics) recordTruncated() {
	if m == nil {
		return
	}
	m.truncatedReads.Inc()
}

func (m *Metrics) recordDecodeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.decodeDuration.Observe(d.Seconds())
}
