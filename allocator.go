package jobgraph

// Allocator receives auto-delete jobs when they are Done.
// Release is the last time the job system touches the job.
type Allocator interface {
	Release(job Job)
}

// AllocatorFunc implements Allocator with a function.
type AllocatorFunc func(job Job)

func (f AllocatorFunc) Release(job Job) { f(job) }

// GCAllocator drops released jobs and leaves them to the garbage collector.
type GCAllocator struct{}

func (GCAllocator) Release(Job) {}
