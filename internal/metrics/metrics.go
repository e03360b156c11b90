package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cv_scorer"

// Recorder collects per-run counters. A nil Recorder is valid and records nothing.
type Recorder struct {
	registry  *prometheus.Registry
	processed prometheus.Counter
	skipped   prometheus.Counter
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		processed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents scored and persisted",
		}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_skipped_total",
			Help:      "Documents skipped because a record already exists",
		}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_failed_total",
			Help:      "Documents that failed, by error kind",
		}, []string{"kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Time spent on one document from extraction to outcome",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"outcome"}),
	}
}

func (r *Recorder) Processed(d time.Duration) {
	if r == nil {
		return
	}
	r.processed.Inc()
	r.duration.WithLabelValues("processed").Observe(d.Seconds())
}

func (r *Recorder) Failed(kind string, d time.Duration) {
	if r == nil {
		return
	}
	r.failed.WithLabelValues(kind).Inc()
	r.duration.WithLabelValues("failed").Observe(d.Seconds())
}

func (r *Recorder) Skipped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.skipped.Add(float64(n))
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
