package jobworker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/domonda/go-errs"

	"github.com/domonda/go-jobgraph"
)

var _ jobgraph.Manager = (*Manager)(nil)

// Manager runs jobs on a pool of worker goroutines.
type Manager struct {
	policy jobgraph.ShutdownPolicy

	// queueMtx guards queue, exited and the closing of exit
	queueMtx sync.Mutex
	queue    *jobgraph.JobQueue
	exited   bool
	// checkJobSignal is a dummy signal notifying the workers
	// that there is a new job in the queue
	checkJobSignal chan struct{}
	// exit is closed when the workers should return
	exit chan struct{}

	// outstanding counts jobs that were added
	// to the queue and are not Done yet
	outstanding atomic.Int64
	stopping    atomic.Bool

	// setupMtx guards workers, nextWorkerIndex, lastDesc and closed
	setupMtx        sync.Mutex
	workers         []*worker
	nextWorkerIndex int
	lastDesc        jobgraph.WorkerThreadDesc
	closed          bool
	workerWaitGroup sync.WaitGroup
	// workersSnapshot is a copy of workers for readers
	// that must not block on setupMtx
	workersSnapshot atomic.Pointer[[]*worker]

	// lateMtx guards late and lateDraining,
	// late holds jobs that became ready after the workers exited
	lateMtx      sync.Mutex
	late         *jobgraph.JobQueue
	lateDraining bool

	pinnedMtx sync.Mutex
	pinned    map[jobgraph.Job]chan jobgraph.Job
	numPinned atomic.Int32

	filterMtx sync.RWMutex
	filter    map[string]struct{}
	enabled   atomic.Bool

	numAssisted    atomic.Int64
	numFallback    atomic.Int64
	numSuspensions atomic.Int64
	since          atomic.Int64
}

// New validates desc and starts one worker per WorkerThreadDesc.
// If a worker can't apply its CPU affinity or priority
// all started workers are stopped and the error is returned.
func New(desc jobgraph.JobManagerDesc) (m *Manager, err error) {
	defer errs.WrapWithFuncParams(&err, desc)

	err = desc.Validate(runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	m = &Manager{
		policy:         desc.ShutdownPolicy,
		queue:          jobgraph.NewJobQueue(true),
		late:           jobgraph.NewJobQueue(false),
		checkJobSignal: make(chan struct{}, 1024),
		exit:           make(chan struct{}),
		pinned:         make(map[jobgraph.Job]chan jobgraph.Job),
	}
	m.enabled.Store(true)
	m.since.Store(time.Now().UnixNano())
	m.SetJobFilter(desc.JobFilter...)

	m.setupMtx.Lock()
	defer m.setupMtx.Unlock()

	for _, workerDesc := range desc.WorkerThreads {
		err = m.startWorkerLocked(workerDesc)
		if err != nil {
			m.stopWorkersLocked()
			return nil, err
		}
	}

	log.Info("Job manager started").
		Int("numWorkers", len(m.workers)).
		Str("shutdownPolicy", m.policy.String()).
		Log()

	return m, nil
}

func (m *Manager) IsAsynchronous() bool { return true }

func (m *Manager) NumWorkerThreads() int {
	m.setupMtx.Lock()
	defer m.setupMtx.Unlock()

	return len(m.workers)
}

func (m *Manager) signalCheckJob() {
	// Non-blocking send, if the buffer is full
	// there are already enough pending signals.
	select {
	case m.checkJobSignal <- struct{}{}:
	default:
	}
}

func (m *Manager) signalIfQueued() {
	m.queueMtx.Lock()
	queued := m.queue.Len() > 0
	m.queueMtx.Unlock()

	if queued {
		m.signalCheckJob()
	}
}

// deliverPinned hands job to a goroutine waiting for it
// in StartJobAndAssistUntilComplete.
func (m *Manager) deliverPinned(job jobgraph.Job) bool {
	if m.numPinned.Load() == 0 {
		return false
	}
	m.pinnedMtx.Lock()
	ch, ok := m.pinned[job]
	m.pinnedMtx.Unlock()

	if !ok {
		return false
	}
	// Buffered, a job is never in more than one queue
	ch <- job
	return true
}

func (m *Manager) AddPendingJob(job jobgraph.Job) {
	m.queueMtx.Lock()
	if m.exited {
		m.queueMtx.Unlock()
		m.addAfterExit(job, true)
		return
	}
	m.outstanding.Add(1)
	if m.deliverPinned(job) {
		m.queueMtx.Unlock()
		return
	}
	m.queue.Push(job)
	m.queueMtx.Unlock()

	m.signalCheckJob()
}

// addAfterExit handles a job that became ready after the workers exited.
// With ShutdownDrain the first goroutine getting here runs all late
// jobs in FIFO order, including the dependents they make ready,
// so late dependency chains don't nest on the stack.
func (m *Manager) addAfterExit(job jobgraph.Job, isNew bool) {
	if m.policy == jobgraph.ShutdownDiscard {
		log.Warn("Discarding job added after close").Str("job", job.String()).Log()
		if !isNew {
			// Was outstanding before the exit
			m.outstanding.Add(-1)
		}
		return
	}
	if isNew {
		m.outstanding.Add(1)
	}

	m.lateMtx.Lock()
	m.late.Push(job)
	if m.lateDraining {
		m.lateMtx.Unlock()
		return
	}
	m.lateDraining = true
	m.lateMtx.Unlock()

	for {
		m.lateMtx.Lock()
		next := m.late.Pop()
		if next == nil {
			m.lateDraining = false
			m.lateMtx.Unlock()
			return
		}
		m.lateMtx.Unlock()

		m.runLateJob(context.Background(), next)
	}
}

func (m *Manager) popLateJob() jobgraph.Job {
	m.lateMtx.Lock()
	defer m.lateMtx.Unlock()

	return m.late.Pop()
}

func (m *Manager) runLateJob(ctx context.Context, job jobgraph.Job) {
	log.Warn("Running job added after close on the calling goroutine").Str("job", job.String()).Log()
	m.numFallback.Add(1)
	jobgraph.RunJob(ctx, job)
}

func (m *Manager) SuspendJobUntilReady(job jobgraph.Job) {
	m.numSuspensions.Add(1)
}

func (m *Manager) NotifySuspendedJobReady(job jobgraph.Job) {
	m.queueMtx.Lock()
	if m.exited {
		m.queueMtx.Unlock()
		m.addAfterExit(job, false)
		return
	}
	if m.deliverPinned(job) {
		m.queueMtx.Unlock()
		return
	}
	m.queue.Push(job)
	m.queueMtx.Unlock()

	m.signalCheckJob()
}

func (m *Manager) NotifyJobDone(job jobgraph.Job) {
	if m.outstanding.Add(-1) == 0 && m.stopping.Load() {
		m.exitIfDrained()
	}
}

func (m *Manager) exitIfDrained() {
	m.queueMtx.Lock()
	defer m.queueMtx.Unlock()

	if !m.exited && m.outstanding.Load() == 0 {
		m.exited = true
		close(m.exit)
	}
}

func (m *Manager) popJob() jobgraph.Job {
	m.queueMtx.Lock()
	defer m.queueMtx.Unlock()

	return m.queue.Pop()
}

// StartJobAndAssistUntilComplete starts job and runs ready jobs
// on the calling goroutine until job is Done.
// Jobs that InvokeAsJob rejects are only run by the calling goroutine.
// After Close with ShutdownDiscard it returns
// without job being Done.
func (m *Manager) StartJobAndAssistUntilComplete(ctx context.Context, job jobgraph.Job) {
	done := job.Done()

	var pinned chan jobgraph.Job
	if !m.InvokeAsJob(job) {
		pinned = make(chan jobgraph.Job, 1)
		m.pinnedMtx.Lock()
		m.pinned[job] = pinned
		m.pinnedMtx.Unlock()
		m.numPinned.Add(1)

		defer func() {
			m.pinnedMtx.Lock()
			delete(m.pinned, job)
			m.pinnedMtx.Unlock()
			m.numPinned.Add(-1)
		}()
	}
	// A consumed signal might have been meant for a worker
	defer m.signalIfQueued()

	jobgraph.Submit(job)

	for {
		select {
		case <-done:
			return
		case next := <-pinned:
			m.runAssistedJob(ctx, next, true)
			continue
		default:
		}

		if next := m.popJob(); next != nil {
			m.runAssistedJob(ctx, next, false)
			continue
		}
		// Jobs started by a late job while it runs
		if next := m.popLateJob(); next != nil {
			m.runLateJob(ctx, next)
			continue
		}

		select {
		case <-done:
			return
		case next := <-pinned:
			m.runAssistedJob(ctx, next, true)
		case <-m.checkJobSignal:
		case <-m.exit:
			select {
			case <-done:
			default:
				log.Warn("Job manager closed while assisting, job not Done").Str("job", job.String()).Log()
			}
			return
		}
	}
}

func (m *Manager) runAssistedJob(ctx context.Context, job jobgraph.Job, fallback bool) {
	if fallback {
		m.numFallback.Add(1)
	} else {
		m.numAssisted.Add(1)
	}
	if w := m.workerOf(ctx); w != nil {
		w.runJob(ctx, job)
		return
	}
	jobgraph.RunJob(ctx, job)
}

// InvokeAsJob returns false if the job system is disabled
// or the name of job is in the job filter.
func (m *Manager) InvokeAsJob(job jobgraph.Job) bool {
	if !m.enabled.Load() {
		return false
	}
	m.filterMtx.RLock()
	defer m.filterMtx.RUnlock()

	if len(m.filter) == 0 {
		return true
	}
	_, filtered := m.filter[job.Name()]
	return !filtered
}

// SetJobFilter sets the names of jobs that are not run
// by workers when started but on the starting goroutine.
// Calling it without names clears the filter.
func (m *Manager) SetJobFilter(names ...string) {
	filter := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name != "" {
			filter[name] = struct{}{}
		}
	}

	m.filterMtx.Lock()
	m.filter = filter
	m.filterMtx.Unlock()

	if len(names) > 0 {
		log.Debug("Job filter set").Strs("names", names).Log()
	}
}

// JobFilter returns the names of the job filter.
func (m *Manager) JobFilter() []string {
	m.filterMtx.RLock()
	defer m.filterMtx.RUnlock()

	names := make([]string, 0, len(m.filter))
	for name := range m.filter {
		names = append(names, name)
	}
	return names
}

// SetJobSystemEnabled with false makes all started jobs run
// on the starting goroutine.
func (m *Manager) SetJobSystemEnabled(enabled bool) {
	m.enabled.Store(enabled)
	log.Info("Job system enabled changed").Any("enabled", enabled).Log()
}

func (m *Manager) JobSystemEnabled() bool {
	return m.enabled.Load()
}

// CurrentJob returns the job of ctx, or the job running
// on the worker identified by ctx, or nil.
func (m *Manager) CurrentJob(ctx context.Context) jobgraph.Job {
	if job := jobgraph.CurrentJob(ctx); job != nil {
		return job
	}
	w := m.workerOf(ctx)
	if w == nil {
		return nil
	}
	if job := w.current.Load(); job != nil {
		return *job
	}
	return nil
}

// workerOf returns the worker of m running with ctx
// or the current worker with the index of ctx.
func (m *Manager) workerOf(ctx context.Context) *worker {
	if w := workerFrom(ctx); w != nil {
		if w.manager != m {
			return nil
		}
		return w
	}
	index, ok := jobgraph.WorkerIndex(ctx)
	if !ok {
		return nil
	}
	for _, w := range m.loadWorkers() {
		if w.index == index {
			return w
		}
	}
	return nil
}

func (m *Manager) loadWorkers() []*worker {
	if workers := m.workersSnapshot.Load(); workers != nil {
		return *workers
	}
	return nil
}

func (m *Manager) CollectGarbage() {
	m.queueMtx.Lock()
	defer m.queueMtx.Unlock()

	m.queue.Compact()
}

// Close stops the workers according to the ShutdownPolicy
// and waits until they returned.
// With ShutdownDrain it waits until all outstanding jobs are Done.
// Must not be called from a job of the Manager.
func (m *Manager) Close() error {
	m.setupMtx.Lock()
	defer m.setupMtx.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	log.Debug("Closing job manager").Str("shutdownPolicy", m.policy.String()).Log()

	m.stopping.Store(true)
	switch m.policy {
	case jobgraph.ShutdownDiscard:
		m.queueMtx.Lock()
		discarded := m.queue.PopAll()
		m.outstanding.Add(-int64(len(discarded)))
		if !m.exited {
			m.exited = true
			close(m.exit)
		}
		m.queueMtx.Unlock()

		for _, job := range discarded {
			log.Warn("Discarding queued job").Str("job", job.String()).Log()
		}

	default:
		if m.outstanding.Load() == 0 {
			m.exitIfDrained()
		}
	}

	// Workers don't acquire setupMtx
	m.workerWaitGroup.Wait()
	m.workers = nil
	m.storeWorkersLocked()

	log.Info("Job manager closed").Log()
	return nil
}
