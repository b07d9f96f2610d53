// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Pipelines are short-lived batch jobs, so collected metrics are pushed to a
// Pushgateway on Flush instead of being exposed on a scrape endpoint. The job
// label becomes the Pushgateway grouping key.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"herbot/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec
	stepDuration *prometheus.SummaryVec

	rowCounter     *prometheus.CounterVec
	batchCounter   prometheus.Counter
	mergeCounter   *prometheus.CounterVec
	warningCounter *prometheus.CounterVec
}

// NewBackend constructs a Pushgateway backend. gatewayURL is required;
// jobName defaults to "herbot".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "herbot"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline step executions by step and status.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Duration of pipeline steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
		rowCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Row counts by kind (loaded, bad_width, written, ...).",
		}, []string{"kind"}),
		batchCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Bulk insert batches flushed.",
		}),
		mergeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.MergeRowsTotal,
			Help: "Joined rows by join name and provenance indicator.",
		}, []string{"join", "indicator"}),
		warningCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.WarningsTotal,
			Help: "Data warnings raised, by kind.",
		}, []string{"kind"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":    b.stepCounter,
		"step summary":    b.stepDuration,
		"row counter":     b.rowCounter,
		"batch counter":   b.batchCounter,
		"merge counter":   b.mergeCounter,
		"warning counter": b.warningCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RowsTotal:
		if b.rowCounter != nil {
			b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
		}
	case metrics.BatchesTotal:
		if b.batchCounter != nil {
			b.batchCounter.Add(delta)
		}
	case metrics.MergeRowsTotal:
		if b.mergeCounter != nil {
			b.mergeCounter.WithLabelValues(labels["join"], labels["indicator"]).Add(delta)
		}
	case metrics.WarningsTotal:
		if b.warningCounter != nil {
			b.warningCounter.WithLabelValues(labels["kind"]).Add(delta)
		}
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
