// Package metrics records the outcome of an orchestration as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	MetricPrefix = "loadgate_"
	// JobName is the Pushgateway job metrics are pushed under.
	JobName = "loadgate"
)

// Recorder holds the metrics of one orchestration in its own registry.
type Recorder struct {
	registry      *prometheus.Registry
	runID         string
	testRuns      *prometheus.CounterVec
	resultErrors  *prometheus.GaugeVec
	resultFailure *prometheus.GaugeVec
	runDuration   *prometheus.HistogramVec
	buildFailed   prometheus.Gauge
	totals        *prometheus.GaugeVec
}

func NewRecorder(runID string) *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		runID:    runID,
		testRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "test_runs_total",
				Help: "Number of engine runs, by target kind and outcome",
			},
			[]string{"target_kind", "outcome"},
		),
		resultErrors: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricPrefix + "result_errors",
				Help: "Number of errors found in the result artifact of a target",
			},
			[]string{"test"},
		),
		resultFailure: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricPrefix + "result_failures",
				Help: "Number of failures found in the result artifact of a target",
			},
			[]string{"test"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricPrefix + "run_duration_seconds",
				Help:    "Time from engine start to the end of the exit check pause",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			},
			[]string{"target_kind"},
		),
		buildFailed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricPrefix + "build_failed",
				Help: "1 if the orchestration failed, 0 otherwise",
			},
		),
		totals: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricPrefix + "totals",
				Help: "Totals over all result artifacts",
			},
			[]string{"kind"},
		),
	}
}

// RecordRun records a finished engine run.
func (r *Recorder) RecordRun(kind string, succeeded bool, duration time.Duration) {
	outcome := "succeeded"
	if !succeeded {
		outcome = "failed"
	}
	r.testRuns.WithLabelValues(kind, outcome).Inc()
	if duration > 0 {
		r.runDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// RecordResult records the scan result of one target.
func (r *Recorder) RecordResult(test string, errorCount, failureCount int) {
	r.resultErrors.WithLabelValues(test).Set(float64(errorCount))
	r.resultFailure.WithLabelValues(test).Set(float64(failureCount))
}

// RecordVerdict records the totals and the verdict of the orchestration.
func (r *Recorder) RecordVerdict(totalErrors, totalFailures int, failed bool) {
	r.totals.WithLabelValues("errors").Set(float64(totalErrors))
	r.totals.WithLabelValues("failures").Set(float64(totalFailures))
	if failed {
		r.buildFailed.Set(1)
	} else {
		r.buildFailed.Set(0)
	}
}

// Gatherer returns the recorded metrics together with those of the default registry,
// which holds the log message counters.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{r.registry, prometheus.DefaultGatherer}
}

// WriteTextfile writes the metrics in the text exposition format, e.g., for node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return errors.WithStack(prometheus.WriteToTextfile(path, r.Gatherer()))
}

// Push sends the metrics to a Pushgateway, grouped by run id.
func (r *Recorder) Push(url string) error {
	err := push.New(url, JobName).
		Gatherer(r.registry).
		Grouping("run_id", r.runID).
		Push()
	return errors.WithMessagef(err, "pushing metrics to %s", url)
}
