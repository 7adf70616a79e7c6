package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	diploma "github.com/porticus-lab/go-diploma"
)

// jobRegistry keeps background exports addressable by id. Finished jobs
// are dropped ttl after they were started.
type jobRegistry struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	jobs map[string]*jobEntry
}

type jobEntry struct {
	job     *diploma.Job
	started time.Time
}

func newJobRegistry(ttl time.Duration) *jobRegistry {
	return &jobRegistry{ttl: ttl, now: time.Now, jobs: make(map[string]*jobEntry)}
}

func (r *jobRegistry) add(j *diploma.Job) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.jobs[id] = &jobEntry{job: j, started: r.now()}
	return id
}

func (r *jobRegistry) get(id string) (*diploma.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	e, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	return e.job, true
}

// cancelAll stops every running job.
func (r *jobRegistry) cancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.jobs {
		e.job.Cancel()
	}
}

func (r *jobRegistry) sweepLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for id, e := range r.jobs {
		if e.started.Before(cutoff) && e.job.State().Done() {
			delete(r.jobs, id)
		}
	}
}
