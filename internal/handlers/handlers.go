package handlers

import (
	"context"
	"sync"
	"time"

	"image-collage/internal/history"
	"image-collage/internal/metrics"
	"image-collage/internal/pipeline"
)

// maxFinishedJobs bounds how many finished jobs stay queryable by ID.
// Older finished jobs are still available through the history endpoints.
const maxFinishedJobs = 256

// Runner starts collage jobs. *pipeline.Pipeline satisfies it.
type Runner interface {
	Start(ctx context.Context, req pipeline.Request, obs pipeline.Observer) *pipeline.Job
}

// HistoryReader is the read side of the run log.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, id string) (*history.Run, error)
}

type Handlers struct {
	runner    Runner
	history   HistoryReader
	baseCtx   context.Context
	startTime time.Time

	mu    sync.RWMutex
	jobs  map[string]*pipeline.Job
	order []string
}

// New creates handlers. Jobs are derived from ctx, so cancelling it stops
// every running job. hist may be nil when history is disabled.
func New(ctx context.Context, runner Runner, hist HistoryReader) *Handlers {
	return &Handlers{
		runner:    runner,
		history:   hist,
		baseCtx:   ctx,
		startTime: time.Now(),
		jobs:      make(map[string]*pipeline.Job),
	}
}

func (h *Handlers) track(job *pipeline.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs[job.ID] = job
	h.order = append(h.order, job.ID)
	h.pruneLocked()

	metrics.JobsActive.Inc()
	go func() {
		<-job.Done()
		metrics.JobsActive.Dec()
	}()
}

// pruneLocked forgets the oldest finished jobs beyond maxFinishedJobs.
func (h *Handlers) pruneLocked() {
	finished := 0
	for _, id := range h.order {
		if isDone(h.jobs[id]) {
			finished++
		}
	}

	kept := h.order[:0]
	for _, id := range h.order {
		if finished > maxFinishedJobs && isDone(h.jobs[id]) {
			delete(h.jobs, id)
			finished--
			continue
		}
		kept = append(kept, id)
	}
	h.order = kept
}

func (h *Handlers) job(id string) (*pipeline.Job, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	job, ok := h.jobs[id]
	return job, ok
}

func (h *Handlers) snapshot() []pipeline.State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	states := make([]pipeline.State, 0, len(h.order))
	for i := len(h.order) - 1; i >= 0; i-- {
		states = append(states, h.jobs[h.order[i]].State())
	}
	return states
}

// Running reports how many tracked jobs have not finished.
func (h *Handlers) Running() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, job := range h.jobs {
		if !isDone(job) {
			n++
		}
	}
	return n
}

// Shutdown cancels running jobs and waits for them to finish or for ctx to
// expire.
func (h *Handlers) Shutdown(ctx context.Context) error {
	h.mu.RLock()
	jobs := make([]*pipeline.Job, 0, len(h.jobs))
	for _, job := range h.jobs {
		jobs = append(jobs, job)
	}
	h.mu.RUnlock()

	for _, job := range jobs {
		job.Cancel()
	}
	for _, job := range jobs {
		select {
		case <-job.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func isDone(job *pipeline.Job) bool {
	select {
	case <-job.Done():
		return true
	default:
		return false
	}
}
