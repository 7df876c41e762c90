package jobgraph

import (
	"fmt"
	"time"
)

// WorkerStats holds the utilization of one worker.
type WorkerStats struct {
	WorkerIndex     int
	CPUID           int
	NumJobsExecuted int64
	ExecutionTime   time.Duration
}

// String implements the fmt.Stringer interface.
func (s WorkerStats) String() string {
	return fmt.Sprintf("Worker %d (CPU %d): %d jobs in %s", s.WorkerIndex, s.CPUID, s.NumJobsExecuted, s.ExecutionTime)
}

// Stats is a snapshot of the statistics of a Manager
// since it was created or ClearStats was called.
type Stats struct {
	Workers []WorkerStats

	// NumAssistedJobs counts jobs run by goroutines
	// that assisted while waiting for a job.
	NumAssistedJobs int64
	// NumFallbackJobs counts jobs run inline on the starting
	// goroutine because of the job filter or after shutdown.
	NumFallbackJobs int64
	// NumSuspensions counts how often jobs were parked
	// waiting for children.
	NumSuspensions int64

	// NumQueued is the number of jobs in the ready queue
	// at the time of the snapshot.
	NumQueued int
	// NumOutstanding is the number of jobs queued, running
	// or suspended at the time of the snapshot.
	NumOutstanding int64

	Since time.Time
}

// NumJobsExecuted sums up the jobs executed by all workers.
func (s *Stats) NumJobsExecuted() int64 {
	var n int64
	for _, w := range s.Workers {
		n += w.NumJobsExecuted
	}
	return n
}

// IsZero returns true if the receiver is nil
// or no job was executed.
// Valid to call on a nil receiver.
func (s *Stats) IsZero() bool {
	return s == nil || (s.NumJobsExecuted() == 0 && s.NumAssistedJobs == 0 && s.NumFallbackJobs == 0)
}

// String implements the fmt.Stringer interface.
// Valid to call on a nil receiver.
func (s *Stats) String() string {
	if s == nil {
		return "nil Stats"
	}
	return fmt.Sprintf(
		"Stats{Workers: %d, NumJobsExecuted: %d, NumAssistedJobs: %d, NumFallbackJobs: %d, NumSuspensions: %d, NumQueued: %d, NumOutstanding: %d}",
		len(s.Workers),
		s.NumJobsExecuted(),
		s.NumAssistedJobs,
		s.NumFallbackJobs,
		s.NumSuspensions,
		s.NumQueued,
		s.NumOutstanding,
	)
}
