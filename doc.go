/*
Package jobgraph provides jobs with dependencies that are run by
a synchronous or an asynchronous job manager.

# Overview

A job is a unit of work with a Process method. Jobs can depend on
other jobs, start child jobs while they are running and park
themselves until those children are done. The scheduling state of
a job lives in an embedded JobBase, the Manager of the job's
JobContext decides where and when Process is called.

There are two Manager implementations:
  - package jobsync runs all jobs on the calling goroutine
  - package jobworker runs jobs on a pool of worker goroutines

# Basic Usage

	import (
		"context"
		"github.com/domonda/go-jobgraph"
		"github.com/domonda/go-jobgraph/jobworker"
	)

	func main() {
		manager, err := jobworker.New(jobgraph.NewJobManagerDesc(4))
		if err != nil {
			panic(err)
		}
		defer manager.Close()

		jc := jobgraph.NewJobContext("main", manager)
		err = jobgraph.SetGlobalContext(jc)
		if err != nil {
			panic(err)
		}
		defer jobgraph.SetGlobalContext(nil)

		load := jobgraph.NewJobFunc(loadAssets, false, nil)
		build := jobgraph.NewJobFunc(buildScene, false, nil)
		load.SetDependent(build)

		build.Start()
		load.StartAndAssistUntilComplete(context.Background())
		<-build.Done()
	}

# Job Lifecycle

1. Pending - the job was created and may have prerequisites registered
2. Queued - all prerequisites are Done and the job was started
3. Running - a worker calls Process or a continuation
4. Suspended - the job waits for its children, see SuspendUntilReady
5. Done - dependents are notified and auto-delete jobs are released

# Dependencies

SetDependent must be called before both jobs are started.
A job is queued when it was started and all its prerequisites are Done.
A Done job never runs its dependents inline, they are handed to the
ready queue of the manager.

# Auto-Delete

Jobs initialized with isAutoDelete true are owned by the job system.
After they are Done they are passed to the Allocator of their JobContext
and every further use panics with ErrJobReleased.

# Error Handling

Misuse of the API panics with one of the sentinel errors of this package.
Panics inside Process are recovered, passed to OnError and logged,
the job is completed anyway.
*/
package jobgraph
