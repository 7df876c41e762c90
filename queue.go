package jobgraph

// JobQueue is a FIFO of ready jobs, optionally split into
// one FIFO per Priority where higher priorities are popped first.
// It is not safe for concurrent use.
type JobQueue struct {
	fifos       [NumPriorities]jobFIFO
	prioritized bool
	len         int
}

func NewJobQueue(prioritized bool) *JobQueue {
	return &JobQueue{prioritized: prioritized}
}

func (q *JobQueue) Len() int {
	return q.len
}

func (q *JobQueue) Push(job Job) {
	level := 0
	if q.prioritized {
		level = int(job.jobBase().priority)
	}
	q.fifos[level].push(job)
	q.len++
}

// Pop returns the next job or nil if the queue is empty.
func (q *JobQueue) Pop() Job {
	if q.len == 0 {
		return nil
	}
	for i := range q.fifos {
		if job := q.fifos[i].pop(); job != nil {
			q.len--
			return job
		}
	}
	return nil
}

// PopAll removes and returns all jobs in pop order.
func (q *JobQueue) PopAll() []Job {
	jobs := make([]Job, 0, q.len)
	for job := q.Pop(); job != nil; job = q.Pop() {
		jobs = append(jobs, job)
	}
	return jobs
}

// Compact releases unused storage.
func (q *JobQueue) Compact() {
	for i := range q.fifos {
		q.fifos[i].compact()
	}
}

type jobFIFO struct {
	jobs []Job
	head int
}

func (f *jobFIFO) push(job Job) {
	f.jobs = append(f.jobs, job)
}

func (f *jobFIFO) pop() Job {
	if f.head == len(f.jobs) {
		return nil
	}
	job := f.jobs[f.head]
	f.jobs[f.head] = nil
	f.head++
	if f.head == len(f.jobs) {
		f.jobs = f.jobs[:0]
		f.head = 0
	}
	return job
}

func (f *jobFIFO) compact() {
	remaining := len(f.jobs) - f.head
	if remaining == 0 {
		f.jobs = nil
		f.head = 0
		return
	}
	jobs := make([]Job, remaining)
	copy(jobs, f.jobs[f.head:])
	f.jobs = jobs
	f.head = 0
}
