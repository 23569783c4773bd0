package pool

import (
	"context"
	"errors"
	"github.com/google/uuid"
	"time"
)

var (
	// ErrPoolClosed is returned by Submit once teardown has started.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrNoWorkers is returned by Submit once every worker has retired.
	ErrNoWorkers = errors.New("worker pool has no workers left")
)

// Job is a one-shot unit of work. It runs exactly once, on exactly one worker,
// and reports its outcome only through its own side effects.
type Job func()

// PanicPolicy decides what a worker does when a job panics.
type PanicPolicy uint

const (
	// PanicPolicyRecover logs the panic and keeps the worker running.
	PanicPolicyRecover PanicPolicy = iota
	// PanicPolicyRetire logs the panic and terminates the worker, shrinking the pool by one.
	PanicPolicyRetire
)

func (p PanicPolicy) String() string {
	switch p {
	case PanicPolicyRecover:
		return "recover"
	case PanicPolicyRetire:
		return "retire"
	default:
		return "unknown"
	}
}

// ParsePanicPolicy maps a configuration string to a PanicPolicy.
func ParsePanicPolicy(s string) (PanicPolicy, error) {
	switch s {
	case "", "recover":
		return PanicPolicyRecover, nil
	case "retire":
		return PanicPolicyRetire, nil
	default:
		return 0, errors.New("unknown panic policy: " + s)
	}
}

// Observer receives pool lifecycle events. Methods are called from submitter
// and worker goroutines and must be safe for concurrent use.
type Observer interface {
	JobSubmitted()
	JobStarted(workerID int)
	JobFinished(workerID int, duration time.Duration, failed bool)
	WorkerExited(workerID int)
}

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Workers   int    `json:"workers"`   // size requested at construction
	Alive     int    `json:"alive"`     // workers whose goroutine has not exited
	Busy      int    `json:"busy"`      // workers currently running a job
	Queued    int    `json:"queued"`    // jobs waiting in the queue
	Submitted uint64 `json:"submitted"` // jobs accepted by Submit
	Completed uint64 `json:"completed"` // jobs that returned normally
	Failed    uint64 `json:"failed"`    // jobs that panicked
}

type WorkerPool interface {
	// Submit enqueues job and returns its ID. It never blocks. It fails with ErrPoolClosed
	// once teardown has started and with ErrNoWorkers once every worker has retired.
	Submit(job Job) (uuid.UUID, error)
	// Close stops accepting jobs, lets queued and in-flight jobs finish and joins every worker.
	Close()
	// Shutdown is Close bounded by ctx. Teardown keeps going in the background if ctx expires.
	Shutdown(ctx context.Context) error
	Size() int
	Stats() Stats
}

// Option configures a worker pool at construction.
type Option func(*options)

type options struct {
	panicPolicy PanicPolicy
	observer    Observer
}

// WithPanicPolicy sets how workers react to panicking jobs.
func WithPanicPolicy(policy PanicPolicy) Option {
	return func(o *options) {
		o.panicPolicy = policy
	}
}

// WithObserver attaches an Observer.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

type nopObserver struct{}

func (nopObserver) JobSubmitted()                        {}
func (nopObserver) JobStarted(int)                       {}
func (nopObserver) JobFinished(int, time.Duration, bool) {}
func (nopObserver) WorkerExited(int)                     {}
