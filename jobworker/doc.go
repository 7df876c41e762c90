/*
Package jobworker implements a jobgraph.Manager that runs
jobs on a pool of worker goroutines.

# Overview

The Manager owns a ready queue with one FIFO per jobgraph.Priority.
Idle workers block on a signal channel until a job is queued,
they don't poll or spin.

	desc := jobgraph.NewJobManagerDesc(runtime.NumCPU() - 1)
	desc.WorkerThreads[0].CPUID = 1

	manager, err := jobworker.New(desc)
	if err != nil {
		return err
	}
	defer manager.Close()

# Worker Threads

A worker whose WorkerThreadDesc sets a CPU id or priority
is locked to its OS thread. On Linux the thread is pinned to the CPU
and gets the priority as nice value, on other systems the
descriptor is only logged. New fails if a descriptor can't be applied.

The number of workers can be changed at runtime:

	err := manager.SetMaxThreadCount(2)

# Assisting

StartJobAndAssistUntilComplete lets any goroutine run queued jobs
until a job is Done. Jobs whose name is in the job filter,
or all jobs after SetJobSystemEnabled(false), are run only by the
goroutine that starts them if they are ready when started:

	manager.SetJobFilter("LoadLevel")

A filtered job that still waits for prerequisites when started
is queued for the workers once they are Done, so Start never blocks
on jobs that were not started yet.

Worker indexes are unique for the lifetime of a Manager,
workers added by SetMaxThreadCount don't reuse the indexes
of removed workers.

# Shutdown

Close applies the jobgraph.ShutdownPolicy of the descriptor:
jobgraph.ShutdownDrain waits until all queued jobs and the
jobs they made ready are Done, jobgraph.ShutdownDiscard drops
queued jobs that did not start. Jobs added after the workers
returned are run on the adding goroutine or dropped,
depending on the same policy.

# Statistics

Stats returns per worker counts and execution times,
PrintStats logs them and ClearStats resets them.
*/
package jobworker
