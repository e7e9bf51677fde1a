package main

import (
	"context"
	"time"

	"image-collage/internal/compositor"
	"image-collage/internal/dedupe"
	"image-collage/internal/dispatcher"
	"image-collage/internal/filesystem"
	"image-collage/internal/history"
	"image-collage/internal/logging"
	"image-collage/internal/media"
	"image-collage/internal/memory"
	"image-collage/internal/metrics"
	"image-collage/internal/pipeline"
	"image-collage/internal/startup"

	"github.com/spf13/pflag"
)

// commonFlags holds flags shared by build and serve that do not map
// directly onto a startup.Config field.
type commonFlags struct {
	dedupe  string
	verbose bool
}

// bindConfigFlags registers flags whose defaults come from the environment.
func bindConfigFlags(fs *pflag.FlagSet, cfg *startup.Config) *commonFlags {
	cf := &commonFlags{dedupe: cfg.Dedupe.String()}
	fs.StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "directory the collage is written to")
	fs.Float64VarP(&cfg.Scale, "scale", "s", cfg.Scale, "resize factor applied to every image, in (0, 1]")
	fs.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "image loading workers (0 = 2 per CPU)")
	fs.IntVar(&cfg.MaxDimension, "max-dimension", cfg.MaxDimension, "largest allowed canvas side in pixels")
	fs.Int64Var(&cfg.MaxPixels, "max-pixels", cfg.MaxPixels, "largest allowed canvas area (0 = no limit)")
	fs.StringVar(&cf.dedupe, "dedupe", cf.dedupe, "duplicate policy: union or strict")
	fs.StringVar(&cfg.DatabaseDir, "database-dir", cfg.DatabaseDir, "directory for the run history database")
	fs.BoolVar(&cfg.VipsEnabled, "vips", cfg.VipsEnabled, "decode files Go cannot read with libvips")
	fs.BoolVarP(&cf.verbose, "verbose", "v", false, "debug logging")
	return cf
}

// apply folds the parsed flags back into cfg.
func (cf *commonFlags) apply(cfg *startup.Config) error {
	if cf.verbose {
		logging.SetLevel(logging.LevelDebug)
	}
	policy, err := dedupe.ParsePolicy(cf.dedupe)
	if err != nil {
		return err
	}
	cfg.Dedupe = policy
	return nil
}

// services are the process-wide collaborators shared by every run.
type services struct {
	monitor *memory.Monitor
	store   *history.Store
	vips    bool
}

// startServices configures memory, metrics, libvips and history. Failures of
// optional parts are logged and the part is left disabled.
func startServices(ctx context.Context, cfg *startup.Config) *services {
	memory.ConfigureFromEnv()
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()

	s := &services{monitor: monitor}

	if cfg.VipsEnabled {
		err := media.InitVips()
		startup.LogVipsInit(true, err)
		s.vips = err == nil
	}

	if cfg.HistoryEnabled {
		start := time.Now()
		store, err := history.Open(ctx, cfg.DatabasePath)
		startup.LogHistoryInit(time.Since(start), err)
		if err == nil {
			s.store = store
		} else {
			cfg.HistoryEnabled = false
		}
	}
	return s
}

func (s *services) stop() {
	s.monitor.Stop()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logging.Warn("failed to close history database: %v", err)
		}
	}
	if s.vips {
		media.ShutdownVips()
	}
}

// newPipeline builds the stage chain from cfg.
func (s *services) newPipeline(cfg *startup.Config) *pipeline.Pipeline {
	loaderCfg := media.DefaultLoaderConfig()
	loaderCfg.ScaleFactor = cfg.Scale
	loaderCfg.MaxSourcePixels = cfg.MaxSourcePixels
	loaderCfg.VipsFallback = s.vips

	deps := pipeline.Deps{
		Loader:     media.NewLoader(loaderCfg),
		Dispatcher: dispatcher.Config{Workers: cfg.Workers, Throttle: s.monitor},
		Policy:     cfg.Dedupe,
		Compositor: compositor.Config{MaxDimension: cfg.MaxDimension, MaxPixels: cfg.MaxPixels},
		OutputDir:  cfg.OutputDir,
	}
	if s.store != nil {
		deps.History = s.store
	}
	return pipeline.New(deps)
}
