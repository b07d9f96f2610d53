package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"herbot/internal/metrics"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{name: "missing gateway URL", jobName: "j", wantErr: true},
		{name: "default job name", gatewayURL: "http://pushgateway:9091", wantJobName: "herbot"},
		{name: "explicit job name", jobName: "nightly", gatewayURL: "http://pushgateway:9091", wantJobName: "nightly"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				if err == nil || b != nil {
					t.Fatalf("NewBackend(%q, %q) = %v, %v; want nil, error", tt.jobName, tt.gatewayURL, b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend() error = %v", err)
			}
			if b.jobName != tt.wantJobName {
				t.Fatalf("jobName = %q, want %q", b.jobName, tt.wantJobName)
			}
		})
	}
}

func TestIncCounterRoutesByName(t *testing.T) {
	t.Parallel()
	b, err := NewBackend("j", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	b.IncCounter(metrics.StepTotal, 3, metrics.Labels{"step": "load", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 5, metrics.Labels{"kind": "loaded"})
	b.IncCounter(metrics.BatchesTotal, 2, nil)
	b.IncCounter(metrics.MergeRowsTotal, 1, metrics.Labels{"join": "orders", "indicator": "left_only"})
	b.IncCounter(metrics.WarningsTotal, 1, metrics.Labels{"kind": "MergeWarning"})
	b.IncCounter("unknown", 10, nil)

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"step", b.stepCounter.WithLabelValues("load", "success"), 3},
		{"rows", b.rowCounter.WithLabelValues("loaded"), 5},
		{"batches", b.batchCounter, 2},
		{"merge", b.mergeCounter.WithLabelValues("orders", "left_only"), 1},
		{"warnings", b.warningCounter.WithLabelValues("MergeWarning"), 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Fatalf("%s counter = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestZeroBackendIsSafe(t *testing.T) {
	t.Parallel()
	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.BatchesTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.MergeRowsTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.WarningsTotal, 1, metrics.Labels{})
	b.ObserveHistogram(metrics.StepDuration, 1, metrics.Labels{})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()
	b, err := NewBackend("j", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.ObserveHistogram(metrics.StepDuration, 1.5, metrics.Labels{"step": "join", "status": "success"})
	b.ObserveHistogram("other", 2, metrics.Labels{"step": "join", "status": "success"})

	if n := testutil.CollectAndCount(b.stepDuration); n != 1 {
		t.Fatalf("summary series = %d, want 1", n)
	}
}

func TestFlushPushesToGateway(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method  string
		path    string
		bodyLen int
	}
	reqCh := make(chan pushed, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushed{method: r.Method, path: r.URL.Path, bodyLen: len(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("nightly", server.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "load", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	select {
	case got := <-reqCh:
		if got.method != http.MethodPut {
			t.Fatalf("push method = %q, want PUT", got.method)
		}
		if got.path != "/metrics/job/nightly" {
			t.Fatalf("push path = %q", got.path)
		}
		if got.bodyLen == 0 {
			t.Fatalf("push body is empty")
		}
	default:
		t.Fatalf("Flush() did not reach the gateway")
	}
}
