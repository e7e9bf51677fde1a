package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"image-collage/internal/compositor"
	"image-collage/internal/dedupe"
	"image-collage/internal/dispatcher"
	"image-collage/internal/filesystem"
	"image-collage/internal/history"
	"image-collage/internal/layout"
	"image-collage/internal/logging"
	"image-collage/internal/media"
	"image-collage/internal/metrics"
	"image-collage/internal/persist"

	"github.com/google/uuid"
)

// Stage boundaries on the 0-100 progress scale.
const (
	percentFilter   = dispatcher.LoadShare
	percentFiltered = 60
	percentLayout   = 65
	percentCanvas   = compositor.ProgressStart
	percentSave     = compositor.ProgressStart + compositor.ProgressSpan
	percentDone     = 100
)

// Request is one collage job.
type Request struct {
	// Paths are image files in the order they should appear.
	Paths []string `json:"paths"`
	// OutputDir receives the collage. Empty means the pipeline default.
	OutputDir string `json:"outputDir,omitempty"`
}

// Outcome summarizes a finished run.
type Outcome struct {
	ID         string
	Status     history.Status
	OutputPath string
	// Err and Message are set only for StatusFailed.
	Err        error
	Message    string
	StartedAt  time.Time
	Duration   time.Duration
	Inputs     int
	Loaded     int
	Failed     int
	Survivors  int
	Duplicates int
	Grid       layout.Grid
	Width      int
	Height     int
}

// Run converts the outcome to a history entry.
func (o Outcome) Run() history.Run {
	return history.Run{
		ID:         o.ID,
		StartedAt:  o.StartedAt,
		Duration:   o.Duration,
		Status:     o.Status,
		Inputs:     o.Inputs,
		Loaded:     o.Loaded,
		Failed:     o.Failed,
		Survivors:  o.Survivors,
		Duplicates: o.Duplicates,
		Cols:       o.Grid.Cols,
		Rows:       o.Grid.Rows,
		Width:      o.Width,
		Height:     o.Height,
		OutputPath: o.OutputPath,
		Error:      o.Message,
	}
}

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Deps wires the stages together. Loader is required; everything else has a
// usable default.
type Deps struct {
	Loader     dispatcher.Loader
	Dispatcher dispatcher.Config
	Policy     dedupe.Policy
	Compositor compositor.Config
	Writer     *persist.Writer
	History    Recorder
	// OutputDir is used when a Request leaves it empty.
	OutputDir string
}

// Pipeline runs collage jobs. Runs share no mutable state, so one Pipeline
// can serve concurrent jobs.
type Pipeline struct {
	dispatcher *dispatcher.Dispatcher
	policy     dedupe.Policy
	compositor *compositor.Compositor
	writer     *persist.Writer
	history    Recorder
	outputDir  string
}

// New creates a pipeline.
func New(deps Deps) *Pipeline {
	if deps.Loader == nil {
		deps.Loader = media.NewLoader(media.DefaultLoaderConfig())
	}
	writer := deps.Writer
	if writer == nil {
		writer = persist.NewWriter(filesystem.DefaultRetryConfig())
	}
	outputDir := deps.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	return &Pipeline{
		dispatcher: dispatcher.New(deps.Loader, deps.Dispatcher),
		policy:     deps.Policy,
		compositor: compositor.New(deps.Compositor),
		writer:     writer,
		history:    deps.History,
		outputDir:  outputDir,
	}
}

// Run executes a job to completion on the calling goroutine.
func (p *Pipeline) Run(ctx context.Context, req Request, obs Observer) Outcome {
	return p.run(ctx, uuid.NewString(), req, obs)
}

func (p *Pipeline) run(ctx context.Context, id string, req Request, obs Observer) Outcome {
	if obs == nil {
		obs = Funcs{}
	}
	start := time.Now()
	metrics.RunsInProgress.Inc()
	defer metrics.RunsInProgress.Dec()

	out := Outcome{ID: id, StartedAt: start, Inputs: len(req.Paths)}
	if req.OutputDir == "" {
		req.OutputDir = p.outputDir
	}

	logging.Info("Run %s: %d images -> %s", id, len(req.Paths), req.OutputDir)
	err := p.execute(ctx, req, &stageReporter{ctx: ctx, obs: obs}, &out)
	out.Duration = time.Since(start)

	switch {
	case err == nil:
		out.Status = history.StatusSuccess
		obs.OnProgress(percentDone, fmt.Sprintf("Collage saved! (%.2fs)", out.Duration.Seconds()))
		obs.OnDone(out.OutputPath)
		logging.Info("Run %s: saved %s in %v", id, out.OutputPath, out.Duration)
	case ctx.Err() != nil:
		out.Status = history.StatusStopped
		logging.Info("Run %s: stopped after %v", id, out.Duration)
	default:
		out.Status = history.StatusFailed
		out.Err = err
		out.Message = Message(err)
		metrics.RunFailures.WithLabelValues(failureKind(err)).Inc()
		obs.OnError(out.Message)
		logging.Error("Run %s failed: %v", id, err)
	}

	metrics.RunsTotal.WithLabelValues(string(out.Status)).Inc()
	metrics.RunDuration.Observe(out.Duration.Seconds())
	p.record(ctx, out)
	return out
}

func (p *Pipeline) record(ctx context.Context, out Outcome) {
	if p.history == nil {
		return
	}
	if err := p.history.Record(context.WithoutCancel(ctx), out.Run()); err != nil {
		logging.Warn("Run %s: failed to record history: %v", out.ID, err)
	}
}

// stageReporter forwards progress until the run is cancelled.
type stageReporter struct {
	ctx context.Context
	obs Observer
}

func (r *stageReporter) progress(percent int, message string) {
	if r.ctx.Err() != nil {
		return
	}
	r.obs.OnProgress(percent, message)
}

func (p *Pipeline) execute(ctx context.Context, req Request, r *stageReporter, out *Outcome) error {
	r.progress(0, fmt.Sprintf("Starting processing of %d images...", len(req.Paths)))

	loaded, err := p.dispatcher.Run(ctx, req.Paths, r.progress)
	out.Loaded = len(loaded.Records)
	out.Failed = loaded.Errors()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.progress(percentFilter, fmt.Sprintf("Filtering duplicates of %d images...", out.Loaded))
	stageStart := time.Now()
	survivors := p.policy.Select(loaded.Records)
	releaseDropped(loaded.Records, survivors)
	metrics.StageDuration.WithLabelValues("filter").Observe(time.Since(stageStart).Seconds())

	out.Survivors = len(survivors)
	out.Duplicates = out.Loaded - out.Survivors
	metrics.DuplicatesRemovedTotal.Add(float64(out.Duplicates))
	msg := fmt.Sprintf("Filtering complete. %d unique images.", out.Survivors)
	if out.Duplicates > 0 {
		msg += fmt.Sprintf(" (%d duplicates removed).", out.Duplicates)
	}
	logging.Info("%s", msg)
	r.progress(percentFiltered, msg)

	if len(survivors) == 0 {
		return ErrNoSurvivors
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.progress(percentLayout, "Calculating grid layout...")
	stageStart = time.Now()
	sizes := make([]image.Point, len(survivors))
	for i, rec := range survivors {
		sizes[i] = rec.Size()
	}
	grid, err := layout.Plan(sizes)
	metrics.StageDuration.WithLabelValues("layout").Observe(time.Since(stageStart).Seconds())
	if err != nil {
		return err
	}
	out.Grid = grid
	logging.Debug("Layout: %s", grid)
	if err := ctx.Err(); err != nil {
		return err
	}

	r.progress(percentCanvas, fmt.Sprintf("Creating collage canvas (%dx%d)...", grid.Cols, grid.Rows))
	stageStart = time.Now()
	canvas, err := p.compositor.Compose(ctx, grid, survivors, r.progress)
	metrics.StageDuration.WithLabelValues("compose").Observe(time.Since(stageStart).Seconds())
	if err != nil {
		return err
	}
	out.Width, out.Height = canvas.Bounds().Dx(), canvas.Bounds().Dy()
	if err := ctx.Err(); err != nil {
		return err
	}

	r.progress(percentSave, "Saving collage to disk...")
	stageStart = time.Now()
	path, err := p.writer.Save(canvas, req.OutputDir)
	metrics.StageDuration.WithLabelValues("save").Observe(time.Since(stageStart).Seconds())
	if err != nil {
		return err
	}
	out.OutputPath = path
	return nil
}

// releaseDropped frees the pixels of records that did not survive filtering
// so only the survivor generation stays resident during compositing.
func releaseDropped(all, kept []*media.Record) {
	keep := make(map[*media.Record]struct{}, len(kept))
	for _, rec := range kept {
		keep[rec] = struct{}{}
	}
	for _, rec := range all {
		if _, ok := keep[rec]; !ok {
			rec.Release()
		}
	}
}
