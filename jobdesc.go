package jobgraph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/domonda/go-errs"
)

// AnyCPU as WorkerThreadDesc.CPUID lets the OS schedule the worker on any CPU.
const AnyCPU = -1

// WorkerThreadDesc describes one worker of an asynchronous Manager.
type WorkerThreadDesc struct {
	// CPUID is the CPU the worker is pinned to, or AnyCPU.
	CPUID int `toml:"cpu_id"`
	// Priority is the OS scheduling priority (nice value on Linux)
	// of the worker thread. Zero keeps the priority of the process.
	Priority int `toml:"priority"`
	// StackSizeBytes is recorded for diagnostics.
	// Goroutine stacks grow on demand, so it is not applied.
	StackSizeBytes int `toml:"stack_size_bytes"`
}

// NeedsOSThread returns true if the worker has to be locked
// to an OS thread to apply the descriptor.
func (d WorkerThreadDesc) NeedsOSThread() bool {
	return d.CPUID != AnyCPU || d.Priority != 0
}

// String implements the fmt.Stringer interface.
func (d WorkerThreadDesc) String() string {
	cpu := "any"
	if d.CPUID != AnyCPU {
		cpu = fmt.Sprint(d.CPUID)
	}
	return fmt.Sprintf("WorkerThreadDesc{CPU: %s, Priority: %d, StackSizeBytes: %d}", cpu, d.Priority, d.StackSizeBytes)
}

// Validate checks the descriptor against the number of CPUs.
func (d WorkerThreadDesc) Validate(numCPU int) error {
	if d.CPUID < AnyCPU || d.CPUID >= numCPU {
		return errs.Errorf("%w: cpu id %d out of range for %d CPUs", ErrInvalidDesc, d.CPUID, numCPU)
	}
	if d.StackSizeBytes < 0 {
		return errs.Errorf("%w: negative stack size %d", ErrInvalidDesc, d.StackSizeBytes)
	}
	return nil
}

// JobManagerDesc configures a Manager.
// It is created once at startup and not changed afterwards.
type JobManagerDesc struct {
	WorkerThreads  []WorkerThreadDesc
	ShutdownPolicy ShutdownPolicy
	// JobFilter lists names of jobs that are not handed
	// to worker threads but run on the goroutine that starts them.
	JobFilter []string
}

// NewJobManagerDesc returns a descriptor with numWorkers
// unpinned workers of default priority.
func NewJobManagerDesc(numWorkers int) JobManagerDesc {
	desc := JobManagerDesc{WorkerThreads: make([]WorkerThreadDesc, numWorkers)}
	for i := range desc.WorkerThreads {
		desc.WorkerThreads[i].CPUID = AnyCPU
	}
	return desc
}

// Validate checks all worker descriptors against the number of CPUs.
func (d *JobManagerDesc) Validate(numCPU int) error {
	if len(d.WorkerThreads) == 0 {
		return errs.Errorf("%w: need at least 1 worker thread", ErrInvalidDesc)
	}
	var errList []error
	for i, w := range d.WorkerThreads {
		if err := w.Validate(numCPU); err != nil {
			errList = append(errList, fmt.Errorf("worker %d: %w", i, err))
		}
	}
	if _, err := ParseShutdownPolicy(d.ShutdownPolicy.String()); err != nil {
		errList = append(errList, err)
	}
	return errors.Join(errList...)
}

// Clone returns a deep copy.
func (d *JobManagerDesc) Clone() JobManagerDesc {
	return JobManagerDesc{
		WorkerThreads:  slices.Clone(d.WorkerThreads),
		ShutdownPolicy: d.ShutdownPolicy,
		JobFilter:      slices.Clone(d.JobFilter),
	}
}

// String implements the fmt.Stringer interface.
// Valid to call on a nil receiver.
func (d *JobManagerDesc) String() string {
	if d == nil {
		return "nil JobManagerDesc"
	}
	return fmt.Sprintf("JobManagerDesc{WorkerThreads: %d, ShutdownPolicy: %s, JobFilter: %v}", len(d.WorkerThreads), d.ShutdownPolicy, d.JobFilter)
}
