package jobgraph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domonda/go-jobgraph"
	"github.com/domonda/go-jobgraph/jobsync"
)

func TestGlobalContext(t *testing.T) {
	// given
	manager := jobsync.New(jobgraph.JobManagerDesc{})
	jc := jobgraph.NewJobContext("global", manager)
	other := jobgraph.NewJobContext("other", manager)
	t.Cleanup(func() { jobgraph.SetGlobalContext(nil) })

	// when
	err := jobgraph.SetGlobalContext(jc)

	// then
	require.NoError(t, err)
	assert.Same(t, jc, jobgraph.GlobalContext())
	assert.NoError(t, jobgraph.SetGlobalContext(jc), "setting the same context again")
	assert.ErrorIs(t, jobgraph.SetGlobalContext(other), jobgraph.ErrGlobalContextAlreadySet)
	assert.Same(t, jc, jobgraph.GlobalContext())

	t.Run("Job without context uses global context", func(t *testing.T) {
		// given
		var ran bool
		job := jobgraph.NewJobFunc(func() { ran = true }, false, nil)

		// when
		job.Start()

		// then
		assert.True(t, ran)
		assert.Same(t, jc, job.JobContext())
	})

	// when
	err = jobgraph.SetGlobalContext(nil)

	// then
	require.NoError(t, err)
	assert.Nil(t, jobgraph.GlobalContext())
	assert.NoError(t, jobgraph.SetGlobalContext(other))
}

func TestStartWithoutJobContext(t *testing.T) {
	// given
	require.Nil(t, jobgraph.GlobalContext())
	job := jobgraph.NewJobFunc(func() {}, false, nil)

	// when
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		job.Start()
	}()

	// then
	err, _ := recovered.(error)
	assert.ErrorIs(t, err, jobgraph.ErrNoJobContext)
}

func TestContextValues(t *testing.T) {
	t.Run("JobContextFrom", func(t *testing.T) {
		// given
		jc := jobgraph.NewJobContext("ctx", jobsync.New(jobgraph.JobManagerDesc{}))

		// then
		assert.Nil(t, jobgraph.JobContextFrom(context.Background()))
		assert.Same(t, jc, jobgraph.JobContextFrom(jobgraph.ContextWithJobContext(context.Background(), jc)))
	})

	t.Run("WorkerIndex", func(t *testing.T) {
		index, ok := jobgraph.WorkerIndex(context.Background())
		assert.False(t, ok)
		assert.Equal(t, -1, index)

		index, ok = jobgraph.WorkerIndex(jobgraph.ContextWithWorkerIndex(context.Background(), 3))
		assert.True(t, ok)
		assert.Equal(t, 3, index)
	})

	t.Run("CurrentJob is passed to Process", func(t *testing.T) {
		// given
		jc := jobgraph.NewJobContext("ctx", jobsync.New(jobgraph.JobManagerDesc{}))
		var current jobgraph.Job
		job := jobgraph.NewJobFunction(func(ctx context.Context) { current = jobgraph.CurrentJob(ctx) }, false, jc)

		// when
		job.Start()

		// then
		assert.Same(t, job, current)
		assert.Nil(t, jobgraph.CurrentJob(context.Background()))
	})

	t.Run("NewJobContext with nil manager", func(t *testing.T) {
		assert.Panics(t, func() { jobgraph.NewJobContext("nil", nil) })
	})
}
