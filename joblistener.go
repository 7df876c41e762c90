package jobgraph

import (
	"sync"
)

// JobStoppedListener is notified when a job is Done,
// before an auto-delete job is released.
// Listeners run on the goroutine that completed the job
// and must not start, wait for or retain the job.
type JobStoppedListener interface {
	OnJobStopped(job Job)
}

type JobStoppedListenerFunc func(job Job)

func (f JobStoppedListenerFunc) OnJobStopped(job Job) {
	f(job)
}

type jobStoppedListenerEntry struct {
	listener JobStoppedListener
}

var (
	jobStoppedListeners    []*jobStoppedListenerEntry
	jobStoppedListenersMtx sync.RWMutex
)

// AddJobStoppedListener adds a listener for all jobs
// and returns a function that removes it again.
func AddJobStoppedListener(listener JobStoppedListener) (remove func()) {
	entry := &jobStoppedListenerEntry{listener: listener}

	jobStoppedListenersMtx.Lock()
	defer jobStoppedListenersMtx.Unlock()

	jobStoppedListeners = append(jobStoppedListeners, entry)

	return func() {
		jobStoppedListenersMtx.Lock()
		defer jobStoppedListenersMtx.Unlock()

		for i := range jobStoppedListeners {
			if jobStoppedListeners[i] == entry {
				jobStoppedListeners = append(jobStoppedListeners[:i:i], jobStoppedListeners[i+1:]...)
				return
			}
		}
	}
}

func notifyJobStopped(job Job) {
	jobStoppedListenersMtx.RLock()
	listeners := jobStoppedListeners
	jobStoppedListenersMtx.RUnlock()

	for _, entry := range listeners {
		entry.listener.OnJobStopped(job)
	}
}
