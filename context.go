package jobgraph

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/domonda/go-errs"
)

// JobContext groups jobs under one Manager.
// Multiple JobContexts can share the workers of one Manager,
// like a context for frame jobs and one for tool jobs.
// A JobContext must not outlive its Manager.
type JobContext struct {
	name      string
	manager   Manager
	parent    *JobContext
	allocator Allocator
}

type JobContextOption func(*JobContext)

// WithAllocator sets the Allocator that receives
// auto-delete jobs of the context once they are Done.
func WithAllocator(allocator Allocator) JobContextOption {
	return func(jc *JobContext) {
		jc.allocator = allocator
	}
}

// WithParent links the context to a parent context,
// typically the global one.
func WithParent(parent *JobContext) JobContextOption {
	return func(jc *JobContext) {
		jc.parent = parent
	}
}

func NewJobContext(name string, manager Manager, options ...JobContextOption) *JobContext {
	if manager == nil {
		panic(errs.Errorf("nil Manager for JobContext %q", name))
	}
	jc := &JobContext{
		name:      name,
		manager:   manager,
		allocator: GCAllocator{},
	}
	for _, option := range options {
		option(jc)
	}
	return jc
}

func (jc *JobContext) Name() string { return jc.name }

func (jc *JobContext) Manager() Manager { return jc.manager }

func (jc *JobContext) Parent() *JobContext { return jc.parent }

func (jc *JobContext) Allocator() Allocator { return jc.allocator }

// String implements the fmt.Stringer interface.
// Valid to call on a nil receiver.
func (jc *JobContext) String() string {
	if jc == nil {
		return "nil JobContext"
	}
	return fmt.Sprintf("JobContext %q (asynchronous: %t)", jc.name, jc.manager.IsAsynchronous())
}

var globalContext atomic.Pointer[JobContext]

// SetGlobalContext sets the JobContext used by jobs
// that are initialized without one.
// It must be set once at startup before such jobs are started
// and cleared by passing nil at shutdown before the Manager is closed.
// Setting a different context while one is set
// returns ErrGlobalContextAlreadySet.
func SetGlobalContext(jc *JobContext) error {
	if jc == nil {
		globalContext.Store(nil)
		return nil
	}
	if !globalContext.CompareAndSwap(nil, jc) && globalContext.Load() != jc {
		return ErrGlobalContextAlreadySet
	}
	return nil
}

// GlobalContext returns the global JobContext or nil.
func GlobalContext() *JobContext {
	return globalContext.Load()
}

var jobContextKey int

// ContextWithJobContext returns a context.Context
// that carries jc for call sites that start jobs
// without knowing their JobContext.
func ContextWithJobContext(ctx context.Context, jc *JobContext) context.Context {
	return context.WithValue(ctx, &jobContextKey, jc)
}

// JobContextFrom returns the JobContext added with ContextWithJobContext
// or the global JobContext if there is none.
func JobContextFrom(ctx context.Context) *JobContext {
	if jc, ok := ctx.Value(&jobContextKey).(*JobContext); ok && jc != nil {
		return jc
	}
	return GlobalContext()
}

var currentJobKey int

// ContextWithCurrentJob returns a context.Context
// that carries the job currently running on the goroutine.
// RunJob passes such a context to Process.
func ContextWithCurrentJob(ctx context.Context, job Job) context.Context {
	return context.WithValue(ctx, &currentJobKey, job)
}

// CurrentJob returns the job that is running with ctx or nil.
func CurrentJob(ctx context.Context) Job {
	job, _ := ctx.Value(&currentJobKey).(Job)
	return job
}

var workerIndexKey int

// ContextWithWorkerIndex returns a context.Context
// identifying the worker of a Manager that uses it.
func ContextWithWorkerIndex(ctx context.Context, workerIndex int) context.Context {
	return context.WithValue(ctx, &workerIndexKey, workerIndex)
}

// WorkerIndex returns the worker index added with
// ContextWithWorkerIndex and true, or -1 and false
// if ctx does not belong to a worker.
func WorkerIndex(ctx context.Context) (int, bool) {
	if workerIndex, ok := ctx.Value(&workerIndexKey).(int); ok {
		return workerIndex, true
	}
	return -1, false
}
