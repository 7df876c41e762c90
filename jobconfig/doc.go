/*
Package jobconfig reads the configuration of a job manager from a TOML file.

	asynchronous = true
	num_worker_threads = 6
	shutdown_policy = "drain"
	job_filter = ["LoadLevel"]

	[[worker_threads]]
	cpu_id = 1
	priority = -5

	[[worker_threads]]
	cpu_id = 2

Worker threads without cpu_id are not pinned. If num_worker_threads
is greater than the number of [[worker_threads]] tables, the remaining
workers are not pinned either. Without both there is one worker
per CPU minus one for the goroutine that starts the jobs.

Watch reloads the file when it changes and applies the worker count,
the job filter and job_system_disabled to a running manager.
*/
package jobconfig
