package jobgraph_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/domonda/go-jobgraph"
	"github.com/domonda/go-jobgraph/jobsync"
)

func TestJobStoppedListener(t *testing.T) {
	// given
	jc := jobgraph.NewJobContext(t.Name(), jobsync.New(jobgraph.JobManagerDesc{}))
	var (
		mtx     sync.Mutex
		stopped []string
		states  []jobgraph.State
	)
	remove := jobgraph.AddJobStoppedListener(jobgraph.JobStoppedListenerFunc(func(job jobgraph.Job) {
		mtx.Lock()
		defer mtx.Unlock()
		stopped = append(stopped, job.Name())
		states = append(states, job.State())
	}))

	// when
	first := jobgraph.NewNamedJobFunction("first", func(context.Context) {}, false, jc)
	first.Start()

	// then
	assert.Equal(t, []string{"first"}, stopped)
	assert.Equal(t, []jobgraph.State{jobgraph.StateDone}, states)

	// when
	remove()
	remove()
	jobgraph.NewNamedJobFunction("second", func(context.Context) {}, false, jc).Start()

	// then
	assert.Equal(t, []string{"first"}, stopped)
}
