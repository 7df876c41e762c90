package jobgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/domonda/go-errs"
)

// Manager owns the ready queue of jobs and the workers running them.
//
// There are two implementations, the synchronous one in package jobsync
// running everything on the calling goroutine and the asynchronous one
// in package jobworker with a pool of worker goroutines.
type Manager interface {
	// IsAsynchronous returns true if jobs run on worker goroutines.
	IsAsynchronous() bool

	// AddPendingJob puts a job whose prerequisites are all Done
	// into the ready queue.
	AddPendingJob(job Job)

	// StartJobAndAssistUntilComplete starts job and runs ready jobs
	// on the calling goroutine until job is Done.
	StartJobAndAssistUntilComplete(ctx context.Context, job Job)

	// SuspendJobUntilReady is called when a running job got parked
	// waiting for its children.
	SuspendJobUntilReady(job Job)

	// NotifySuspendedJobReady puts a parked job whose
	// children are all Done back into the ready queue.
	NotifySuspendedJobReady(job Job)

	// NotifyJobDone is called after a job and its
	// notifications are Done. The job must not be retained.
	NotifyJobDone(job Job)

	// InvokeAsJob returns false if a started job should
	// run on the starting goroutine instead of being queued.
	InvokeAsJob(job Job) bool

	// CurrentJob returns the job running on the worker identified
	// by ctx, see ContextWithWorkerIndex, or the job of ctx.
	CurrentJob(ctx context.Context) Job

	NumWorkerThreads() int

	Stats() Stats
	ClearStats()
	PrintStats()
	CollectGarbage()

	// Close shuts the manager down according to its ShutdownPolicy.
	Close() error
}

// ShutdownPolicy decides what happens with jobs that are
// queued but not started when a Manager is closed.
type ShutdownPolicy int

const (
	// ShutdownDrain runs all queued jobs and the jobs
	// they make ready before the workers exit.
	ShutdownDrain ShutdownPolicy = iota
	// ShutdownDiscard drops jobs that did not start yet.
	// Their dependents will never run.
	ShutdownDiscard
)

// String implements the fmt.Stringer interface.
func (p ShutdownPolicy) String() string {
	switch p {
	case ShutdownDrain:
		return "drain"
	case ShutdownDiscard:
		return "discard"
	}
	return fmt.Sprintf("ShutdownPolicy(%d)", int(p))
}

// ParseShutdownPolicy parses "drain" or "discard".
// An empty string is ShutdownDrain.
func ParseShutdownPolicy(s string) (ShutdownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drain":
		return ShutdownDrain, nil
	case "discard":
		return ShutdownDiscard, nil
	}
	return 0, errs.Errorf("%w: unknown shutdown policy %q", ErrInvalidDesc, s)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (p ShutdownPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (p *ShutdownPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseShutdownPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
