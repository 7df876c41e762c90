package jobgraph

import (
	"context"

	"github.com/domonda/go-errs"
)

// The functions in this file implement the dependency and
// completion protocol shared by all Manager implementations.
// Application code uses JobBase.Start instead.

// Submit consumes the start token of job.
// If no prerequisites are outstanding the job is
// handed to Manager.AddPendingJob of its JobContext.
// Submitting a job twice panics with ErrAlreadyStarted.
func Submit(job Job) {
	b := job.jobBase().check()
	if !b.started.CompareAndSwap(false, true) {
		panic(errs.Errorf("%w: %s", ErrAlreadyStarted, b))
	}
	if b.pending.Add(-1) == 0 {
		b.enqueue()
	}
}

func (b *JobBase) enqueue() {
	m := b.resolveContext().Manager()
	if !b.state.CompareAndSwap(int32(StatePending), int32(StateQueued)) {
		panic(errs.Errorf("%w: %s", ErrAlreadyStarted, b))
	}
	m.AddPendingJob(b.self)
}

// RunJob runs a queued job on the calling goroutine.
// It calls Process, or the continuation if the job is resumed,
// and then either parks the job until its children are Done
// or runs the completion protocol:
// all dependents get their prerequisite count decremented,
// those reaching zero are handed to Manager.AddPendingJob,
// never run inline.
//
// Manager implementations call RunJob for jobs popped from
// their ready queue. The passed ctx should identify the
// worker that runs the job, see ContextWithWorkerIndex.
func RunJob(ctx context.Context, job Job) {
	b := job.jobBase().check()
	if !b.state.CompareAndSwap(int32(StateQueued), int32(StateRunning)) {
		panic(errs.Errorf("%w: %s", ErrNotQueued, b))
	}

	b.mtx.Lock()
	continuation := b.continuation
	b.continuation = nil
	b.mtx.Unlock()

	b.activity.Store(1)
	b.runPayload(ContextWithCurrentJob(ctx, job), continuation)
	b.afterRun()
}

func (b *JobBase) runPayload(ctx context.Context, continuation func(context.Context)) {
	defer func() {
		if p := recover(); p != nil {
			err := errs.Errorf("job panic: %w", errs.AsErrorWithDebugStack(p))
			OnError(err)
			log.ErrorCtx(ctx, "Job panic, completing job anyway").
				Str("job", b.String()).
				Err(err).
				Log()
		}
	}()

	switch {
	case continuation != nil:
		continuation(ctx)
	case !b.processed:
		b.processed = true
		b.self.Process(ctx)
	}
}

func (b *JobBase) hasContinuation() bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.continuation != nil
}

func (b *JobBase) afterRun() {
	// Only the running job starts children of itself,
	// so with an activity of 1 no child is outstanding
	// and none can be added anymore.
	if b.activity.Load() == 1 && !b.hasContinuation() {
		b.activity.Store(0)
		complete(b)
		return
	}

	// Must be Suspended before the activity is released,
	// because the last child decrementing to zero resumes the job.
	b.state.Store(int32(StateSuspended))
	b.jc.Manager().SuspendJobUntilReady(b.self)
	if b.activity.Add(-1) == 0 {
		if next := b.resume(); next != nil {
			complete(next)
		}
	}
}

// resume is called for a Suspended job whose children are all Done.
// Jobs with a continuation are queued again, the others
// are returned to be completed by the caller.
func (b *JobBase) resume() *JobBase {
	if !b.hasContinuation() {
		return b
	}
	if !b.state.CompareAndSwap(int32(StateSuspended), int32(StateQueued)) {
		panic(errs.Errorf("%w: can't resume %s", ErrNotRunning, b))
	}
	b.jc.Manager().NotifySuspendedJobReady(b.self)
	return nil
}

// complete marks b and every parent that becomes complete
// through it as Done. Iterative so that deep job trees
// don't grow the stack.
func complete(b *JobBase) {
	for b != nil {
		b.mtx.Lock()
		dependents := b.dependents
		parent := b.parent
		b.dependents = nil
		b.parent = nil
		b.mtx.Unlock()

		self := b.self
		jc := b.jc
		b.state.Store(int32(StateDone))

		for _, dependent := range dependents {
			d := dependent.jobBase()
			if d.pending.Add(-1) == 0 {
				d.enqueue()
			}
		}

		notifyJobStopped(self)
		close(b.done)
		jc.Manager().NotifyJobDone(self)

		if b.ownership.CompareAndSwap(int32(OwnedBySystem), int32(Released)) {
			// b must not be used after this point
			jc.Allocator().Release(self)
		}

		b = nil
		if parent != nil {
			p := parent.jobBase()
			if p.activity.Add(-1) == 0 {
				b = p.resume()
			}
		}
	}
}
