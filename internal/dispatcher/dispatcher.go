// Package dispatcher loads a batch of images on a bounded worker pool.
//
// Results are collected as workers finish and re-sorted by submission index,
// so completion order never leaks into later stages. Per-image failures are
// counted and skipped; only a batch where nothing loads is an error.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"image-collage/internal/logging"
	"image-collage/internal/media"
	"image-collage/internal/metrics"
	"image-collage/internal/workers"

	"golang.org/x/sync/errgroup"
)

// LoadShare is the part of overall pipeline progress the load stage covers.
const LoadShare = 55

// progressEvery is how many completions pass between progress reports.
const progressEvery = 5

// ErrAllImagesFailed is returned when no input produced a record.
var ErrAllImagesFailed = errors.New("no image could be processed")

// Loader produces a record for one path.
type Loader interface {
	Load(path string) (*media.Record, error)
}

// Throttle blocks scheduling while memory is under pressure. WaitIfPaused
// returns false if ctx ends while waiting.
//
// Records already loaded stay live until the run ends, so pressure may never
// clear on its own. Once no load is in flight the dispatcher waits at most
// Config.Grace and then schedules the next image anyway, so a run under
// pressure degrades to one load at a time instead of stalling.
type Throttle interface {
	WaitIfPaused(ctx context.Context) bool
}

// ProgressFunc receives overall pipeline percentages with a status line.
type ProgressFunc func(percent int, message string)

// DefaultGrace is how long an idle dispatcher waits for memory pressure to
// clear before loading the next image regardless.
const DefaultGrace = 2 * time.Second

// Config tunes the dispatcher. Zero Workers sizes the pool from the CPU
// budget and the batch size. Zero Grace means DefaultGrace.
type Config struct {
	Workers  int
	Throttle Throttle
	Grace    time.Duration
}

// Failure describes one input that did not load.
type Failure struct {
	Index int
	Path  string
	Err   error
}

// Result is the outcome of a batch load.
type Result struct {
	// Records holds successful loads in submission order.
	Records  []*media.Record
	Failures []Failure
	Total    int
}

// Errors returns the number of inputs that failed.
func (r Result) Errors() int {
	return len(r.Failures)
}

// Dispatcher runs a Loader over many paths.
type Dispatcher struct {
	loader Loader
	config Config
}

// New creates a dispatcher.
func New(loader Loader, config Config) *Dispatcher {
	return &Dispatcher{loader: loader, config: config}
}

// batch is the mutex-guarded accumulator shared by the workers of one Run.
type batch struct {
	mu        sync.Mutex
	total     int
	completed int
	records   []*media.Record
	failures  []Failure

	inFlight atomic.Int32
	drained  chan struct{}
}

// finish marks one load done and signals when none are left in flight.
func (b *batch) finish() {
	if b.inFlight.Add(-1) == 0 {
		select {
		case b.drained <- struct{}{}:
		default:
		}
	}
}

// add records one completion and calls report while still holding the lock,
// so reports arrive in completion order.
func (b *batch) add(index int, path string, rec *media.Record, err error, report func(completed, errs int)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures = append(b.failures, Failure{Index: index, Path: path, Err: err})
	} else {
		rec.Index = index
		b.records = append(b.records, rec)
	}
	b.completed++
	report(b.completed, len(b.failures))
}

// ProgressMessage formats the load-stage status line.
func ProgressMessage(completed, total, errs int) string {
	msg := fmt.Sprintf("Processing: %d/%d", completed, total)
	if errs > 0 {
		msg += fmt.Sprintf(" (%d errors)", errs)
	}
	return msg
}

// LoadPercent maps load completions onto the first LoadShare percent.
func LoadPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return completed * LoadShare / total
}

// Run loads every path. It returns ctx.Err() if the context is cancelled
// before all work is done; loads already in flight are allowed to finish but
// their results are discarded.
func (d *Dispatcher) Run(ctx context.Context, paths []string, progress ProgressFunc) (Result, error) {
	if len(paths) == 0 {
		return Result{}, ErrAllImagesFailed
	}

	n := d.config.Workers
	if n <= 0 {
		n = workers.ForInputs(len(paths))
	}
	if n > len(paths) {
		n = len(paths)
	}
	metrics.DispatcherWorkers.Set(float64(n))
	defer metrics.DispatcherWorkers.Set(0)

	logging.Debug("Dispatching %d images on %d workers", len(paths), n)

	b := &batch{total: len(paths), drained: make(chan struct{}, 1)}
	var g errgroup.Group
	g.SetLimit(n)

	start := time.Now()
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		if d.config.Throttle != nil && !d.wait(ctx, b) {
			break
		}

		b.inFlight.Add(1)
		g.Go(func() error {
			defer b.finish()
			if ctx.Err() != nil {
				return nil
			}
			rec, err := d.load(path)
			if err != nil {
				logging.Warn("Skipping %s: %v", filepath.Base(path), err)
			}
			b.add(i, path, rec, err, func(completed, errs int) {
				if progress == nil || ctx.Err() != nil {
					return
				}
				if completed%progressEvery == 0 || completed == b.total {
					progress(LoadPercent(completed, b.total), ProgressMessage(completed, b.total, errs))
				}
			})
			return nil
		})
	}
	_ = g.Wait()
	metrics.StageDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		logging.Debug("Dispatch cancelled after %d/%d completions", b.completed, b.total)
		return Result{}, err
	}

	sort.Slice(b.records, func(i, j int) bool { return b.records[i].Index < b.records[j].Index })
	sort.Slice(b.failures, func(i, j int) bool { return b.failures[i].Index < b.failures[j].Index })

	result := Result{Records: b.records, Failures: b.failures, Total: b.total}
	if len(result.Records) == 0 {
		return result, fmt.Errorf("%w (%d errors)", ErrAllImagesFailed, result.Errors())
	}
	if result.Errors() > 0 {
		logging.Warn("Failed to process %d of %d images", result.Errors(), result.Total)
	}
	return result, nil
}

// wait blocks on the throttle until it resumes, or until no load is in
// flight and Grace has passed without relief. It returns false only when ctx
// is done.
func (d *Dispatcher) wait(ctx context.Context, b *batch) bool {
	select {
	case <-b.drained:
	default:
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if b.inFlight.Load() > 0 {
			select {
			case <-b.drained:
			case <-waitCtx.Done():
				return
			}
		}
		timer := time.NewTimer(d.grace())
		defer timer.Stop()
		select {
		case <-timer.C:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if d.config.Throttle.WaitIfPaused(waitCtx) {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	logging.Warn("Memory still under pressure with no loads in flight, scheduling next image anyway")
	metrics.DispatcherPressureBypass.Inc()
	return true
}

func (d *Dispatcher) grace() time.Duration {
	if d.config.Grace > 0 {
		return d.config.Grace
	}
	return DefaultGrace
}

// load calls the loader, turning a panic into a decode failure for that
// image alone.
func (d *Dispatcher) load(path string) (rec *media.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("panic loading %s: %v\n%s", filepath.Base(path), r, debug.Stack())
			rec = nil
			err = fmt.Errorf("%w: %s: panic: %v", media.ErrDecodeFailed, filepath.Base(path), r)
		}
	}()
	return d.loader.Load(path)
}
