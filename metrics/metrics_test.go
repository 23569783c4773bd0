package metrics

import (
	"PoolServer/pool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"testing"
	"time"
)

var _ pool.Observer = (*Metrics)(nil)

func TestObserverCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.JobSubmitted()
	m.JobSubmitted()
	m.JobStarted(0)
	m.JobStarted(1)

	if got := testutil.ToFloat64(m.BusyWorkers); got != 2 {
		t.Errorf("expected 2 busy workers, got %v", got)
	}

	m.JobFinished(0, 10*time.Millisecond, false)
	m.JobFinished(1, 20*time.Millisecond, true)
	m.WorkerExited(1)

	tests := []struct {
		name      string
		collector prometheus.Collector
		expected  float64
	}{
		{"submitted", m.JobsSubmitted, 2},
		{"completed", m.JobsCompleted, 1},
		{"failed", m.JobsFailed, 1},
		{"busy", m.BusyWorkers, 0},
		{"worker 1 exits", m.WorkerExits.WithLabelValues("1"), 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.collector); got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, got)
		}
	}
	if got := testutil.CollectAndCount(m.JobDuration); got != 1 {
		t.Errorf("expected one duration histogram, got %d", got)
	}
}

func TestServerCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ConnectionAccepted()
	m.ResponseWritten(200)
	m.ResponseWritten(200)
	m.ResponseWritten(405)

	if got := testutil.ToFloat64(m.ConnectionsAccepted); got != 1 {
		t.Errorf("expected 1 accepted connection, got %v", got)
	}
	if got := testutil.ToFloat64(m.ResponsesWritten.WithLabelValues("200")); got != 2 {
		t.Errorf("expected 2 responses with code 200, got %v", got)
	}
	if got := testutil.ToFloat64(m.ResponsesWritten.WithLabelValues("405")); got != 1 {
		t.Errorf("expected 1 response with code 405, got %v", got)
	}
}

func TestMetricsWithPool(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)
	p := pool.NewDefaultWorkerPool(2, pool.WithObserver(m))

	for range 5 {
		p.Submit(func() {})
	}
	p.Submit(func() { panic("boom") })
	p.Close()

	if got := testutil.ToFloat64(m.JobsSubmitted); got != 6 {
		t.Errorf("expected 6 submitted, got %v", got)
	}
	if got := testutil.ToFloat64(m.JobsCompleted); got != 5 {
		t.Errorf("expected 5 completed, got %v", got)
	}
	if got := testutil.ToFloat64(m.JobsFailed); got != 1 {
		t.Errorf("expected 1 failed, got %v", got)
	}
	if got := testutil.CollectAndCount(m.WorkerExits); got != 2 {
		t.Errorf("expected exits recorded for 2 workers, got %d", got)
	}
}
