//go:build linux

package jobworker

import (
	"golang.org/x/sys/unix"

	"github.com/domonda/go-errs"

	"github.com/domonda/go-jobgraph"
)

// applyWorkerThreadDesc pins the calling OS thread to desc.CPUID
// and sets its nice value to desc.Priority.
// The calling goroutine must be locked to its OS thread.
func applyWorkerThreadDesc(desc jobgraph.WorkerThreadDesc) error {
	if desc.CPUID != jobgraph.AnyCPU {
		var set unix.CPUSet
		set.Zero()
		set.Set(desc.CPUID)
		// pid 0 is the calling thread
		err := unix.SchedSetaffinity(0, &set)
		if err != nil {
			return errs.Errorf("can't set affinity to CPU %d: %w", desc.CPUID, err)
		}
	}
	if desc.Priority != 0 {
		err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), desc.Priority)
		if err != nil {
			return errs.Errorf("can't set thread priority %d: %w", desc.Priority, err)
		}
	}
	return nil
}
