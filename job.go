package jobgraph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/domonda/go-errs"
)

// Job is a unit of schedulable work.
//
// Implementations embed JobBase and call JobBase.Init
// with themselves before the job is used:
//
//	type resizeJob struct {
//		jobgraph.JobBase
//		img *Image
//	}
//
//	func newResizeJob(img *Image) *resizeJob {
//		j := &resizeJob{img: img}
//		j.Init(j, false, nil)
//		return j
//	}
//
//	func (j *resizeJob) Process(ctx context.Context) { j.img.Resize() }
//
// Process is called exactly once on whatever worker the manager
// picks, after all prerequisites of the job are Done.
// It has no error result: payload errors have to be stored
// by the job itself for later collection.
//
// All methods except Process are implemented by JobBase.
type Job interface {
	Process(ctx context.Context)

	Name() string
	Priority() Priority
	State() State
	Done() <-chan struct{}
	String() string

	jobBase() *JobBase
}

// JobBase holds the scheduling state of a Job.
// It must be embedded in every Job implementation
// and must not be copied after Init.
type JobBase struct {
	self     Job
	jc       *JobContext
	name     string
	priority Priority

	state     atomic.Int32
	ownership atomic.Int32
	started   atomic.Bool

	// Number of prerequisites that are not Done yet
	// plus one start token consumed by Start.
	pending atomic.Int32

	// Number of child jobs that are not Done yet
	// plus one while Process or a continuation is running.
	activity atomic.Int32

	// processed is only accessed by the goroutine running the job
	processed bool

	mtx          sync.Mutex
	dependents   []Job
	parent       Job
	continuation func(ctx context.Context)

	done chan struct{}
}

func (b *JobBase) jobBase() *JobBase { return b }

// Init binds the JobBase to the job that embeds it.
// If isAutoDelete is true, the job is owned by the job system
// and released to the Allocator of its JobContext once it is Done.
// A nil jc means the global JobContext at the time the job is started.
func (b *JobBase) Init(self Job, isAutoDelete bool, jc *JobContext) {
	if self == nil || self.jobBase() != b {
		panic(errs.New("JobBase.Init must be called with the job embedding the JobBase"))
	}
	if b.self != nil {
		panic(errs.Errorf("job %s initialized twice", b))
	}
	b.self = self
	b.jc = jc
	b.priority = PriorityRegular
	b.pending.Store(1)
	b.done = make(chan struct{})
	if isAutoDelete {
		b.ownership.Store(int32(OwnedBySystem))
	}
}

// check panics if the job can't be used anymore
func (b *JobBase) check() *JobBase {
	if b.self == nil {
		panic(ErrNotInitialized)
	}
	if Ownership(b.ownership.Load()) == Released {
		panic(ErrJobReleased)
	}
	return b
}

func (b *JobBase) checkNotStarted() {
	if b.started.Load() {
		panic(errs.Errorf("%w: %s", ErrAlreadyStarted, b))
	}
}

// JobContext returns the context the job will be or was submitted to.
// Before Start this can be nil if the job uses the global JobContext
// and none is set.
func (b *JobBase) JobContext() *JobContext {
	b.check()
	if b.jc != nil {
		return b.jc
	}
	return GlobalContext()
}

// resolveContext fixes the JobContext of the job,
// must only be called before the job becomes visible
// to other goroutines through a ready queue.
func (b *JobBase) resolveContext() *JobContext {
	if b.jc == nil {
		b.jc = GlobalContext()
		if b.jc == nil {
			panic(errs.Errorf("%w: %s", ErrNoJobContext, b))
		}
	}
	return b.jc
}

func (b *JobBase) Name() string {
	return b.name
}

// SetName sets a name used for logging, stats and the job filter.
func (b *JobBase) SetName(name string) {
	b.check().checkNotStarted()
	b.name = name
}

func (b *JobBase) Priority() Priority {
	return b.priority
}

func (b *JobBase) SetPriority(priority Priority) {
	b.check().checkNotStarted()
	if int(priority) >= NumPriorities {
		panic(errs.Errorf("invalid job priority %d", priority))
	}
	b.priority = priority
}

// IsAutoDelete returns true if the job system
// owns the job and releases it when it is Done.
func (b *JobBase) IsAutoDelete() bool {
	return Ownership(b.check().ownership.Load()) == OwnedBySystem
}

// SetAutoDelete changes the ownership of the job.
// Must be called before Start.
func (b *JobBase) SetAutoDelete(isAutoDelete bool) {
	b.check()
	if b.started.Load() {
		panic(errs.Errorf("%w: %s", ErrAutoDeleteAfterStart, b))
	}
	if isAutoDelete {
		b.ownership.Store(int32(OwnedBySystem))
	} else {
		b.ownership.Store(int32(OwnedByCaller))
	}
}

// Ownership returns the current ownership state.
// Unlike the other methods this is valid to call on
// a released job, but only as long as the caller
// keeps its own reference to the object.
func (b *JobBase) Ownership() Ownership {
	return Ownership(b.ownership.Load())
}

func (b *JobBase) State() State {
	return State(b.check().state.Load())
}

// Done returns a channel that is closed when the job is Done.
// For auto-delete jobs the channel has to be requested before Start.
func (b *JobBase) Done() <-chan struct{} {
	return b.check().done
}

// SetDependent registers dependent as a job that can't start
// before this job is Done.
// Both jobs must not have been started yet.
func (b *JobBase) SetDependent(dependent Job) {
	b.check()
	if b.started.Load() {
		panic(errs.Errorf("%w: %s", ErrDependentAfterStart, b))
	}
	if dependent == nil {
		panic(errs.New("nil dependent"))
	}
	d := dependent.jobBase().check()
	if d == b {
		panic(errs.Errorf("job %s can't depend on itself", b))
	}
	d.checkNotStarted()

	d.pending.Add(1)

	b.mtx.Lock()
	b.dependents = append(b.dependents, dependent)
	b.mtx.Unlock()
}

// Start submits the job to the manager of its JobContext.
// The job is queued as soon as all its prerequisites are Done.
//
// With a synchronous manager Start returns after the job and
// everything it made ready has run.
// With an asynchronous manager whose job filter matches the job
// and no outstanding prerequisites, the job runs on the calling
// goroutine as with StartAndAssistUntilComplete.
// A filtered job that still waits for prerequisites is queued
// like any other job once they are Done, because the calling
// goroutine is not waiting for it.
//
// For auto-delete jobs the job must not be touched after Start.
func (b *JobBase) Start() {
	b.check().checkNotStarted()
	m := b.resolveContext().Manager()
	if !m.InvokeAsJob(b.self) && b.isReadyToStart() {
		m.StartJobAndAssistUntilComplete(context.Background(), b.self)
		return
	}
	Submit(b.self)
}

// isReadyToStart returns true if only the start token is pending.
// Prerequisites can't be added to a job that is being started,
// so the result can only become stale towards readiness.
func (b *JobBase) isReadyToStart() bool {
	return b.pending.Load() == 1
}

// StartAndAssistUntilComplete starts the job and runs ready jobs
// on the calling goroutine until the job is Done.
func (b *JobBase) StartAndAssistUntilComplete(ctx context.Context) {
	b.check().checkNotStarted()
	b.resolveContext().Manager().StartJobAndAssistUntilComplete(ctx, b.self)
}

// StartAsChild starts child as a child of this job.
// Must be called while this job is running.
// This job will not be Done before child is Done.
// A child without a JobContext inherits the one of its parent.
func (b *JobBase) StartAsChild(child Job) {
	b.check()
	if State(b.state.Load()) != StateRunning {
		panic(errs.Errorf("%w: can't start child of %s", ErrNotRunning, b))
	}
	if child == nil {
		panic(errs.New("nil child job"))
	}
	c := child.jobBase().check()
	c.checkNotStarted()

	c.mtx.Lock()
	c.parent = b.self
	c.mtx.Unlock()
	if c.jc == nil {
		c.jc = b.jc
	}

	b.activity.Add(1)
	Submit(child)
}

// SuspendUntilReady parks the job after the currently running
// Process or continuation returns, until all children started
// with StartAsChild are Done. Then the job is queued again
// and continuation is called, possibly on another worker.
//
// The continuation may start more children and suspend again.
// Nothing from the goroutine that suspended is available
// in the continuation except what is stored in the job.
func (b *JobBase) SuspendUntilReady(continuation func(ctx context.Context)) {
	b.check()
	if State(b.state.Load()) != StateRunning {
		panic(errs.Errorf("%w: can't suspend %s", ErrNotRunning, b))
	}
	if continuation == nil {
		// Waiting for children without continuation
		// is what happens anyway when Process returns.
		return
	}
	b.mtx.Lock()
	b.continuation = continuation
	b.mtx.Unlock()
}

// String implements the fmt.Stringer interface.
// Valid to call on a released job.
func (b *JobBase) String() string {
	if b.self == nil {
		return "uninitialized Job"
	}
	if b.name != "" {
		return fmt.Sprintf("Job %q (%T, %s)", b.name, b.self, State(b.state.Load()))
	}
	return fmt.Sprintf("Job %T %p (%s)", b.self, b.self, State(b.state.Load()))
}
