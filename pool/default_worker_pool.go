package pool

import (
	"PoolServer/log"
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"sync"
	"sync/atomic"
	"time"
)

var errNilJob = errors.New("cannot submit a nil job")

type worker struct {
	id   int
	done chan struct{}
}

type defaultWorkerPool struct {
	workers []*worker
	queue   *workQueue
	options options

	teardownOnce sync.Once
	teardownDone chan struct{}

	alive     atomic.Int64
	busy      atomic.Int64
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

// NewDefaultWorkerPool starts workerCount workers consuming from one shared queue.
// It panics if workerCount is not positive.
func NewDefaultWorkerPool(workerCount int, opts ...Option) WorkerPool {
	if workerCount <= 0 {
		panic(fmt.Sprintf("pool: worker count must be positive, got %d", workerCount))
	}

	o := options{
		panicPolicy: PanicPolicyRecover,
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	w := &defaultWorkerPool{
		workers:      make([]*worker, 0, workerCount),
		queue:        newWorkQueue(workerCount),
		options:      o,
		teardownDone: make(chan struct{}),
	}

	for id := range workerCount {
		wk := &worker{id: id, done: make(chan struct{})}
		w.workers = append(w.workers, wk)
		w.alive.Add(1)
		go w.worker(wk)
	}

	log.L().Info("Started worker pool", zap.Int("workerCount", workerCount), zap.Stringer("panicPolicy", o.panicPolicy))
	return w
}

func (w *defaultWorkerPool) Submit(job Job) (uuid.UUID, error) {
	if job == nil {
		return uuid.Nil, errNilJob
	}

	t := &task{
		ID:        uuid.New(),
		Job:       job,
		Submitted: time.Now(),
	}

	// Counted before the send so a fast worker never reports more completions than submissions.
	w.submitted.Add(1)
	if err := w.queue.send(t); err != nil {
		w.submitted.Add(^uint64(0))
		return uuid.Nil, err
	}
	w.options.observer.JobSubmitted()

	log.L().Debug("Submitted job", zap.Stringer("jobID", t.ID))
	return t.ID, nil
}

// Close must not be called from inside a job: it waits for that job's worker.
func (w *defaultWorkerPool) Close() {
	w.startTeardown()
	<-w.teardownDone
}

func (w *defaultWorkerPool) Shutdown(ctx context.Context) error {
	w.startTeardown()

	select {
	case <-w.teardownDone:
		return nil
	case <-ctx.Done():
		log.L().Warn("Worker pool shutdown interrupted before all workers exited", zap.Error(ctx.Err()), zap.Int64("alive", w.alive.Load()))
		return ctx.Err()
	}
}

func (w *defaultWorkerPool) Size() int {
	return len(w.workers)
}

func (w *defaultWorkerPool) Stats() Stats {
	return Stats{
		Workers:   len(w.workers),
		Alive:     int(w.alive.Load()),
		Busy:      int(w.busy.Load()),
		Queued:    w.queue.len(),
		Submitted: w.submitted.Load(),
		Completed: w.completed.Load(),
		Failed:    w.failed.Load(),
	}
}

// startTeardown closes the queue once and joins the workers in index order in the background.
func (w *defaultWorkerPool) startTeardown() {
	w.teardownOnce.Do(func() {
		log.L().Info("Stopping worker pool", zap.Int("queued", w.queue.len()), zap.Int("busy", int(w.busy.Load())))
		w.queue.close()

		go func() {
			for _, wk := range w.workers {
				<-wk.done
				log.L().Debug("Joined worker", zap.Int("workerID", wk.id))
			}
			if stranded := w.queue.len(); stranded > 0 {
				log.L().Warn("Worker pool stopped with jobs that will never run", zap.Int("stranded", stranded))
			}
			log.L().Info("Worker pool stopped", zap.Uint64("completed", w.completed.Load()), zap.Uint64("failed", w.failed.Load()))
			close(w.teardownDone)
		}()
	})
}

func (w *defaultWorkerPool) worker(wk *worker) {
	defer func() {
		if stranded := w.queue.detach(); stranded > 0 {
			log.L().Warn("Last worker exited with jobs still queued", zap.Int("workerID", wk.id), zap.Int("stranded", stranded))
		}
		w.alive.Add(-1)
		w.options.observer.WorkerExited(wk.id)
		close(wk.done)
	}()

	for {
		t, ok := w.queue.recv()
		if !ok {
			log.L().Debug("Worker observed closed queue", zap.Int("workerID", wk.id))
			return
		}

		if !w.execute(wk.id, t) && w.options.panicPolicy == PanicPolicyRetire {
			log.L().Warn("Retiring worker after failed job", zap.Int("workerID", wk.id), zap.Stringer("jobID", t.ID))
			return
		}
	}
}

// execute runs one job and reports whether it returned normally.
func (w *defaultWorkerPool) execute(workerID int, t *task) (ok bool) {
	w.busy.Add(1)
	w.options.observer.JobStarted(workerID)
	log.L().Debug("Running job", zap.Stringer("jobID", t.ID), zap.Int("workerID", workerID), zap.Duration("queued", time.Since(t.Submitted)))
	start := time.Now()

	defer func() {
		duration := time.Since(start)
		w.busy.Add(-1)

		if r := recover(); r != nil {
			log.L().Error("Job panicked", zap.Stringer("jobID", t.ID), zap.Int("workerID", workerID), zap.Any("panic", r), zap.Stack("stack"))
		}
		if ok {
			w.completed.Add(1)
		} else {
			w.failed.Add(1)
		}
		w.options.observer.JobFinished(workerID, duration, !ok)
	}()

	t.Job()
	return true
}
