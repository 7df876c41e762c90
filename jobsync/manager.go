package jobsync

import (
	"context"
	"time"

	"github.com/domonda/go-errs"

	"github.com/domonda/go-jobgraph"
)

var _ jobgraph.Manager = (*Manager)(nil)

// Manager runs all jobs on the goroutine that starts them.
//
// It has no locks and must only be used from one goroutine.
// Ready jobs are run in FIFO order, priorities are ignored.
type Manager struct {
	queue   *jobgraph.JobQueue
	policy  jobgraph.ShutdownPolicy
	current jobgraph.Job
	depth   int
	closed  bool

	outstanding    int64
	numJobs        int64
	execTime       time.Duration
	numAssisted    int64
	numFallback    int64
	numSuspensions int64
	since          time.Time
}

// New returns a synchronous Manager.
// Only the ShutdownPolicy of desc is used.
func New(desc jobgraph.JobManagerDesc) *Manager {
	return &Manager{
		queue:  jobgraph.NewJobQueue(false),
		policy: desc.ShutdownPolicy,
		since:  time.Now(),
	}
}

func (m *Manager) IsAsynchronous() bool { return false }

func (m *Manager) NumWorkerThreads() int { return 1 }

func (m *Manager) InvokeAsJob(jobgraph.Job) bool { return true }

// AddPendingJob appends job to the ready queue.
// Called from outside of a running job it runs
// all ready jobs before returning.
func (m *Manager) AddPendingJob(job jobgraph.Job) {
	if m.closed {
		if m.policy == jobgraph.ShutdownDiscard {
			log.Warn("Discarding job added after close").Str("job", job.String()).Log()
			return
		}
		log.Warn("Running job added after close").Str("job", job.String()).Log()
		m.numFallback++
	}
	m.outstanding++
	m.queue.Push(job)
	if m.depth == 0 {
		m.drain(context.Background())
	}
}

// StartJobAndAssistUntilComplete starts job and runs ready jobs
// until it is Done. Called from a running job this is a nested drain
// of the same queue.
// Panics with ErrDeadlock if no ready job is left
// while job is not Done.
// After Close with ShutdownDiscard it returns
// without job being Done.
func (m *Manager) StartJobAndAssistUntilComplete(ctx context.Context, job jobgraph.Job) {
	done := job.Done()
	name := job.String()

	m.depth++
	defer func() { m.depth-- }()

	jobgraph.Submit(job)
	for {
		select {
		case <-done:
			return
		default:
		}
		next := m.queue.Pop()
		if next == nil && m.closed && m.policy == jobgraph.ShutdownDiscard {
			log.Warn("Job manager closed while assisting, job not Done").Str("job", name).Log()
			return
		}
		if next == nil {
			panic(errs.Errorf("%w: %s", jobgraph.ErrDeadlock, name))
		}
		m.numAssisted++
		m.runJob(ctx, next)
	}
}

func (m *Manager) drain(ctx context.Context) {
	for job := m.queue.Pop(); job != nil; job = m.queue.Pop() {
		m.runJob(ctx, job)
	}
}

func (m *Manager) runJob(ctx context.Context, job jobgraph.Job) {
	prev := m.current
	m.current = job
	m.depth++
	defer func() {
		m.depth--
		m.current = prev
	}()

	start := time.Now()
	jobgraph.RunJob(jobgraph.ContextWithWorkerIndex(ctx, 0), job)
	m.execTime += time.Since(start)
	m.numJobs++
}

func (m *Manager) SuspendJobUntilReady(job jobgraph.Job) {
	m.numSuspensions++
}

func (m *Manager) NotifySuspendedJobReady(job jobgraph.Job) {
	m.queue.Push(job)
	if m.depth == 0 {
		m.drain(context.Background())
	}
}

func (m *Manager) NotifyJobDone(job jobgraph.Job) {
	m.outstanding--
}

// CurrentJob returns the job of ctx
// or the innermost job that is running.
func (m *Manager) CurrentJob(ctx context.Context) jobgraph.Job {
	if job := jobgraph.CurrentJob(ctx); job != nil {
		return job
	}
	return m.current
}

func (m *Manager) Stats() jobgraph.Stats {
	return jobgraph.Stats{
		Workers: []jobgraph.WorkerStats{{
			WorkerIndex:     0,
			CPUID:           jobgraph.AnyCPU,
			NumJobsExecuted: m.numJobs,
			ExecutionTime:   m.execTime,
		}},
		NumAssistedJobs: m.numAssisted,
		NumFallbackJobs: m.numFallback,
		NumSuspensions:  m.numSuspensions,
		NumQueued:       m.queue.Len(),
		NumOutstanding:  m.outstanding,
		Since:           m.since,
	}
}

func (m *Manager) ClearStats() {
	m.numJobs = 0
	m.execTime = 0
	m.numAssisted = 0
	m.numFallback = 0
	m.numSuspensions = 0
	m.since = time.Now()
}

func (m *Manager) PrintStats() {
	stats := m.Stats()
	log.Info("Synchronous job manager stats").
		Int("numJobsExecuted", int(stats.NumJobsExecuted())).
		Duration("executionTime", m.execTime).
		Int("numAssistedJobs", int(stats.NumAssistedJobs)).
		Int("numFallbackJobs", int(stats.NumFallbackJobs)).
		Int("numSuspensions", int(stats.NumSuspensions)).
		Int("numQueued", stats.NumQueued).
		Duration("since", time.Since(stats.Since)).
		Log()
}

func (m *Manager) CollectGarbage() {
	m.queue.Compact()
}

// Close applies the ShutdownPolicy to the jobs still queued.
// Jobs added later are run or discarded according
// to the same policy.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	switch m.policy {
	case jobgraph.ShutdownDiscard:
		for _, job := range m.queue.PopAll() {
			log.Warn("Discarding queued job").Str("job", job.String()).Log()
		}
	default:
		m.drain(context.Background())
	}
	log.Debug("Synchronous job manager closed").Log()
	return nil
}
