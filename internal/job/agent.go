package job

import "sync"

// JobAgent is the shared handle threaded through one dispatch pipeline. A
// middleware stage (the bundled retry example, for instance) mutates the
// underlying Job through Mutate rather than copying the whole graph.
//
// Every stage of one dispatch runs sequentially on a single worker
// goroutine, so the mutex here guards against accidental reuse across
// dispatches rather than real concurrent access within one.
type JobAgent struct {
	mu  sync.Mutex
	job *Job
}

// NewAgent wraps a Job for one dispatch.
func NewAgent(j *Job) *JobAgent {
	return &JobAgent{job: j}
}

// Job returns the underlying job. Callers within a single dispatch pipeline
// may read and write fields directly; Mutate exists for call sites that want
// the critical section made explicit.
func (a *JobAgent) Job() *Job {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.job
}

// Class is a convenience accessor used throughout the dispatcher.
func (a *JobAgent) Class() string {
	return a.Job().Class
}

// Mutate runs fn with exclusive access to the underlying Job.
func (a *JobAgent) Mutate(fn func(*Job)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.job)
}
