package jobworker

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/domonda/go-errs"

	"github.com/domonda/go-jobgraph"
)

type worker struct {
	// index is unique for the lifetime of the Manager,
	// removed workers don't pass theirs on
	index   int
	manager *Manager
	desc    jobgraph.WorkerThreadDesc
	// quit is closed to make the worker return
	// after its current job
	quit chan struct{}

	current  atomic.Pointer[jobgraph.Job]
	numJobs  atomic.Int64
	execTime atomic.Int64
}

func (w *worker) runJob(ctx context.Context, job jobgraph.Job) {
	prev := w.current.Swap(&job)
	defer w.current.Store(prev)

	start := time.Now()
	jobgraph.RunJob(ctx, job)
	w.execTime.Add(int64(time.Since(start)))
	w.numJobs.Add(1)
}

func (w *worker) stats() jobgraph.WorkerStats {
	return jobgraph.WorkerStats{
		WorkerIndex:     w.index,
		CPUID:           w.desc.CPUID,
		NumJobsExecuted: w.numJobs.Load(),
		ExecutionTime:   time.Duration(w.execTime.Load()),
	}
}

func (w *worker) clearStats() {
	w.numJobs.Store(0)
	w.execTime.Store(0)
}

var workerKey int

func contextWithWorker(ctx context.Context, w *worker) context.Context {
	ctx = jobgraph.ContextWithWorkerIndex(ctx, w.index)
	return context.WithValue(ctx, &workerKey, w)
}

// workerFrom returns the worker running with ctx,
// also if it was removed by SetMaxThreadCount
// and is finishing its current job.
func workerFrom(ctx context.Context) *worker {
	w, _ := ctx.Value(&workerKey).(*worker)
	return w
}

func (m *Manager) storeWorkersLocked() {
	workers := append([]*worker(nil), m.workers...)
	m.workersSnapshot.Store(&workers)
}

// startWorkerLocked starts a worker and waits until it
// applied its descriptor.
func (m *Manager) startWorkerLocked(desc jobgraph.WorkerThreadDesc) error {
	w := &worker{
		index:   m.nextWorkerIndex,
		manager: m,
		desc:    desc,
		quit:    make(chan struct{}),
	}
	started := make(chan error, 1)

	m.workerWaitGroup.Add(1)
	go m.runWorker(w, started)

	err := <-started
	if err != nil {
		return err
	}
	m.nextWorkerIndex++
	m.workers = append(m.workers, w)
	m.lastDesc = desc
	m.storeWorkersLocked()
	return nil
}

// stopWorkersLocked stops all workers without
// applying the ShutdownPolicy, used if New fails.
func (m *Manager) stopWorkersLocked() {
	m.queueMtx.Lock()
	if !m.exited {
		m.exited = true
		close(m.exit)
	}
	m.queueMtx.Unlock()

	m.workerWaitGroup.Wait()
	m.workers = nil
	m.storeWorkersLocked()
}

func (m *Manager) runWorker(w *worker, started chan<- error) {
	defer m.workerWaitGroup.Done()

	if w.desc.NeedsOSThread() {
		// Not unlocked, the thread exits with the goroutine
		// and is not reused with a changed affinity or priority.
		runtime.LockOSThread()

		err := applyWorkerThreadDesc(w.desc)
		if err != nil {
			started <- errs.Errorf("worker %d with %s: %w", w.index, w.desc, err)
			return
		}
	}
	started <- nil

	ctx := contextWithWorker(context.Background(), w)

	log, ctx := log.With().
		Int("workerIndex", w.index).
		SubLoggerContext(ctx)

	log.Debug("Starting the worker").Str("desc", w.desc.String()).Log()

	defer log.Debug("Worker ended").Log()

	for job := m.nextJob(w); job != nil; job = m.nextJob(w) {
		w.runJob(ctx, job)
	}
}

// nextJob returns the next job from the queue
// or blocks until there is one.
// Returns nil if the worker should return.
func (m *Manager) nextJob(w *worker) jobgraph.Job {
	for {
		select {
		case <-w.quit:
			m.signalIfQueued()
			return nil
		default:
		}

		if job := m.popJob(); job != nil {
			return job
		}

		select {
		case <-m.checkJobSignal:
		case <-m.exit:
			return nil
		case <-w.quit:
			m.signalIfQueued()
			return nil
		}
	}
}

// SetMaxThreadCount changes the number of workers.
// New workers use the descriptor of the last started worker.
// Removed workers return after finishing their current job.
func (m *Manager) SetMaxThreadCount(numWorkers int) (err error) {
	defer errs.WrapWithFuncParams(&err, numWorkers)

	if numWorkers < 1 {
		return errs.Errorf("%w: need at least 1 worker thread", jobgraph.ErrInvalidDesc)
	}

	m.setupMtx.Lock()
	defer m.setupMtx.Unlock()

	if m.closed {
		return jobgraph.ErrClosed
	}
	if numWorkers == len(m.workers) {
		return nil
	}

	for len(m.workers) < numWorkers {
		err = m.startWorkerLocked(m.lastDesc)
		if err != nil {
			return err
		}
	}
	for len(m.workers) > numWorkers {
		last := len(m.workers) - 1
		close(m.workers[last].quit)
		m.workers[last] = nil
		m.workers = m.workers[:last]
	}
	m.storeWorkersLocked()

	log.Info("Changed number of workers").Int("numWorkers", numWorkers).Log()
	return nil
}
