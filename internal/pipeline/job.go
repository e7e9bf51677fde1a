package pipeline

import (
	"context"
	"sync"
	"time"

	"image-collage/internal/history"
	"image-collage/internal/logging"

	"github.com/google/uuid"
)

// StatusRunning is reported by a Job that has not finished.
const StatusRunning history.Status = "running"

// State is a point-in-time view of a job.
type State struct {
	ID         string         `json:"id"`
	Status     history.Status `json:"status"`
	Percent    int            `json:"percent"`
	Message    string         `json:"message"`
	StartedAt  time.Time      `json:"startedAt"`
	OutputPath string         `json:"outputPath,omitempty"`
	Error      string         `json:"error,omitempty"`
	Loaded     int            `json:"loaded,omitempty"`
	Failed     int            `json:"failed,omitempty"`
	Survivors  int            `json:"survivors,omitempty"`
}

// Job is a run executing in the background.
type Job struct {
	ID string

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	state   State
	outcome Outcome
}

// Start launches a run on its own goroutine. obs may be nil.
func (p *Pipeline) Start(ctx context.Context, req Request, obs Observer) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{
		ID:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	j.state = State{ID: j.ID, Status: StatusRunning, StartedAt: time.Now()}

	var target Observer = j
	if obs != nil {
		target = fanout{j, obs}
	}

	go func() {
		defer close(j.done)
		defer cancel()
		j.finish(p.run(ctx, j.ID, req, target))
	}()
	return j
}

// Cancel asks the run to stop. Calling it more than once, or after the run
// finished, has no further effect.
func (j *Job) Cancel() {
	select {
	case <-j.done:
		return
	default:
	}
	logging.Debug("Job %s: cancel requested", j.ID)
	j.cancel()
}

// Wait blocks until the run finishes.
func (j *Job) Wait() Outcome {
	<-j.done
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.outcome
}

// Done is closed when the run finishes.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// State returns the current progress.
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// OnProgress implements Observer.
func (j *Job) OnProgress(percent int, message string) {
	j.mu.Lock()
	j.state.Percent = percent
	j.state.Message = message
	j.mu.Unlock()
}

// OnDone implements Observer.
func (j *Job) OnDone(path string) {
	j.mu.Lock()
	j.state.OutputPath = path
	j.mu.Unlock()
}

// OnError implements Observer.
func (j *Job) OnError(message string) {
	j.mu.Lock()
	j.state.Error = message
	j.mu.Unlock()
}

func (j *Job) finish(out Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcome = out
	j.state.Status = out.Status
	j.state.OutputPath = out.OutputPath
	j.state.Error = out.Message
	j.state.Loaded = out.Loaded
	j.state.Failed = out.Failed
	j.state.Survivors = out.Survivors
	if out.Status == history.StatusStopped {
		j.state.Message = "Stopped"
	}
}
