package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lexsync"

const (
	UploadSucceeded       = "succeeded"
	UploadFailed          = "failed"
	UploadPreflightFailed = "preflight_failed"
)

// Metrics is nil safe: a nil *Metrics records nothing.
type Metrics struct {
	MessagesFetched   prometheus.Counter
	StrategyCommitted *prometheus.CounterVec
	PdfsPersisted     prometheus.Counter
	PdfDuplicates     prometheus.Counter
	Uploads           *prometheus.CounterVec
	UploadDuration    prometheus.Histogram
	Cycles            *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_fetched_total",
			Help:      "Messages returned by the IMAP fetcher",
		}),
		StrategyCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_strategy_committed_total",
			Help:      "Messages whose attachments came from the given extraction strategy",
		}, []string{"strategy"}),
		PdfsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdfs_persisted_total",
			Help:      "New PDF records staged for insert",
		}),
		PdfDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_duplicates_total",
			Help:      "PDF attachments resolved to an existing record by content hash",
		}),
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Voucher upload attempts by outcome",
		}, []string{"outcome"}),
		UploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Duration of a voucher upload including retries",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_cycles_total",
			Help:      "Import cycles by result",
		}, []string{"result"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_cycle_duration_seconds",
			Help:      "Duration of one import cycle",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) MessageFetched() {
	if m != nil {
		m.MessagesFetched.Inc()
	}
}

func (m *Metrics) Strategy(name string) {
	if m != nil {
		m.StrategyCommitted.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) PdfPersisted(duplicate bool) {
	if m == nil {
		return
	}
	if duplicate {
		m.PdfDuplicates.Inc()
		return
	}
	m.PdfsPersisted.Inc()
}

func (m *Metrics) Upload(outcome string, started time.Time) {
	if m != nil {
		m.Uploads.WithLabelValues(outcome).Inc()
		m.UploadDuration.Observe(time.Since(started).Seconds())
	}
}

func (m *Metrics) Cycle(err error, started time.Time) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Cycles.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(time.Since(started).Seconds())
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
