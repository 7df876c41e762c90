/*
Package jobsync implements a jobgraph.Manager without worker goroutines.

Every job runs on the goroutine that starts it. JobBase.Start returns
after the started job and all jobs it made ready are Done:

	manager := jobsync.New(jobgraph.JobManagerDesc{})
	jc := jobgraph.NewJobContext("tool", manager)

	job := jobgraph.NewJobFunc(convertTextures, false, jc)
	job.Start()
	// job.State() == jobgraph.StateDone

Dependents and children of a job are appended to a FIFO queue
and run after the current job returns, never nested inside it.
The Manager is not safe for concurrent use.
*/
package jobsync
