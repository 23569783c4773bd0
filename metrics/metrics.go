// Package metrics exposes worker pool activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"strconv"
	"time"
)

const namespace = "pool_server"

// Metrics implements pool.Observer and records connection counters for the server.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	BusyWorkers   prometheus.Gauge
	WorkerExits   *prometheus.CounterVec
	JobDuration   prometheus.Histogram

	ConnectionsAccepted prometheus.Counter
	ResponsesWritten    *prometheus.CounterVec
}

// New creates the collectors and registers them with registerer.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs submitted to the pool",
		}),
		JobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs that returned normally",
		}),
		JobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_failed_total",
			Help:      "Total number of jobs that panicked",
		}),
		BusyWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "busy_workers",
			Help:      "Number of workers currently running a job",
		}),
		WorkerExits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "worker_exits_total",
			Help:      "Number of worker goroutines that exited, by worker ID",
		}, []string{"worker"}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "job_duration_seconds",
			Help:      "Histogram of job execution time",
			Buckets:   prometheus.DefBuckets,
		}),
		ConnectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted TCP connections",
		}),
		ResponsesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "responses_total",
			Help:      "Number of responses written, by status code",
		}, []string{"code"}),
	}
}

func (m *Metrics) JobSubmitted() {
	m.JobsSubmitted.Inc()
}

func (m *Metrics) JobStarted(int) {
	m.BusyWorkers.Inc()
}

func (m *Metrics) JobFinished(_ int, duration time.Duration, failed bool) {
	m.BusyWorkers.Dec()
	m.JobDuration.Observe(duration.Seconds())
	if failed {
		m.JobsFailed.Inc()
	} else {
		m.JobsCompleted.Inc()
	}
}

func (m *Metrics) WorkerExited(workerID int) {
	m.WorkerExits.WithLabelValues(strconv.Itoa(workerID)).Inc()
}

func (m *Metrics) ConnectionAccepted() {
	m.ConnectionsAccepted.Inc()
}

func (m *Metrics) ResponseWritten(code int) {
	m.ResponsesWritten.WithLabelValues(strconv.Itoa(code)).Inc()
}
