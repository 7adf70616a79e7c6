package diploma

import (
	"context"
	"errors"
	"sync"
)

// State is the lifecycle state of a [Job].
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

var stateNames = [...]string{"idle", "running", "completed", "failed", "cancelled"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Done reports whether s is a final state.
func (s State) Done() bool {
	return s >= StateCompleted
}

// Job is an export running in the background. All methods are safe for
// concurrent use.
type Job struct {
	mode   Mode
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	current int
	total   int
	result  *Result
	err     error
}

// Start runs req in a new goroutine and returns immediately. The job stops
// when ctx is cancelled or [Job.Cancel] is called.
func (e *Exporter) Start(ctx context.Context, req Request) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{
		mode:   req.Mode,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateRunning,
	}

	go func() {
		defer cancel()
		res, err := e.export(ctx, req, func(current, total int) {
			j.setProgress(current, total)
			if e.cfg.progress != nil {
				e.cfg.progress(current, total)
			}
		})
		j.finish(res, err)
	}()
	return j
}

func (j *Job) setProgress(current, total int) {
	j.mu.Lock()
	j.current, j.total = current, total
	j.mu.Unlock()
}

func (j *Job) finish(res *Result, err error) {
	j.mu.Lock()
	switch {
	case err == nil:
		j.state = StateCompleted
		j.result = res
	case errors.Is(err, ErrCancelled):
		j.state = StateCancelled
		j.err = err
	default:
		j.state = StateFailed
		j.err = err
	}
	j.mu.Unlock()
	close(j.done)
}

// Mode returns the export mode.
func (j *Job) Mode() Mode { return j.mode }

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Progress returns the number of students processed and the total.
func (j *Job) Progress() (current, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.current, j.total
}

// Result returns the output of a completed job, or nil.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Err returns the error of a failed or cancelled job, or nil.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done is closed when the job reaches a final state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes and returns its outcome.
func (j *Job) Wait() (*Result, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Cancel asks the job to stop before its next student. It does not wait.
func (j *Job) Cancel() {
	j.cancel()
}
