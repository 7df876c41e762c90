package jobgraph

import (
	"context"

	"github.com/domonda/go-errs"
)

// JobFunction is a Job that calls a function.
// It lets call sites start closures instead of
// implementing Job types.
type JobFunction struct {
	JobBase

	fn func(ctx context.Context)
}

// NewJobFunction returns a JobFunction calling fn.
// A nil jc means the global JobContext.
func NewJobFunction(fn func(ctx context.Context), isAutoDelete bool, jc *JobContext) *JobFunction {
	if fn == nil {
		panic(errs.New("nil JobFunction func"))
	}
	j := &JobFunction{fn: fn}
	j.Init(j, isAutoDelete, jc)
	return j
}

// NewJobFunc returns a JobFunction calling
// a function without context argument.
func NewJobFunc(fn func(), isAutoDelete bool, jc *JobContext) *JobFunction {
	if fn == nil {
		panic(errs.New("nil JobFunction func"))
	}
	return NewJobFunction(func(context.Context) { fn() }, isAutoDelete, jc)
}

// NewNamedJobFunction returns a named JobFunction,
// see JobBase.SetName.
func NewNamedJobFunction(name string, fn func(ctx context.Context), isAutoDelete bool, jc *JobContext) *JobFunction {
	j := NewJobFunction(fn, isAutoDelete, jc)
	j.SetName(name)
	return j
}

func (j *JobFunction) Process(ctx context.Context) {
	j.fn(ctx)
}
