package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"image-collage/internal/history"
	"image-collage/internal/logging"
	"image-collage/internal/mediatypes"
	"image-collage/internal/pipeline"
	"image-collage/internal/startup"

	"github.com/spf13/pflag"
	"golang.org/x/term"
	"gopkg.in/cheggaaa/pb.v1"
)

func runBuild(args []string, stdout, stderr io.Writer) int {
	cfg := startup.LoadConfig()

	fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: image-collage build [flags] <image|dir>...")
		fs.PrintDefaults()
	}
	cf := bindConfigFlags(fs, cfg)
	noProgress := fs.Bool("no-progress", false, "log progress lines instead of drawing a bar")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := cf.apply(cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration:\n%v\n", err)
		return exitUsage
	}

	if logging.IsDebugEnabled() {
		cfg.Log()
	}
	if err := cfg.Prepare(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	paths, err := expandInputs(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	paths, skipped := mediatypes.FilterSupported(paths)
	for _, p := range skipped {
		logging.Warn("Skipping unsupported file: %s", filepath.Base(p))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := startServices(ctx, cfg)
	defer svc.stop()

	view := newProgressView(stderr, !*noProgress && isTerminal(stderr))
	out := svc.newPipeline(cfg).Run(ctx, pipeline.Request{Paths: paths}, view)
	view.Close()

	switch out.Status {
	case history.StatusSuccess:
		fmt.Fprintln(stdout, out.OutputPath)
		return exitOK
	case history.StatusStopped:
		fmt.Fprintln(stderr, "Stopped.")
		return exitStopped
	default:
		fmt.Fprintf(stderr, "Error: %s\n", out.Message)
		return exitFailure
	}
}

// expandInputs replaces each directory argument with the files directly
// inside it, in name order. Files are passed through even if they do not
// exist so that the run reports them as failures.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			paths = append(paths, filepath.Join(arg, e.Name()))
		}
	}
	return paths, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// progressView renders pipeline progress for the build command.
type progressView interface {
	pipeline.Observer
	Close()
}

func newProgressView(w io.Writer, bar bool) progressView {
	if !bar {
		return &lineView{last: -1}
	}
	b := pb.New(100)
	b.Output = w
	b.ShowCounters = false
	b.ShowSpeed = false
	b.ShowTimeLeft = false
	b.SetMaxWidth(100)
	return &barView{bar: b.Start()}
}

// barView draws a terminal progress bar with the current stage as postfix.
type barView struct {
	bar  *pb.ProgressBar
	once sync.Once
}

func (v *barView) OnProgress(percent int, message string) {
	v.bar.Postfix(" " + message)
	v.bar.Set(percent)
}

func (v *barView) OnDone(string) {
	v.bar.Set(100)
	v.Close()
}

func (v *barView) OnError(string) {
	v.Close()
}

func (v *barView) Close() {
	v.once.Do(v.bar.Finish)
}

// lineView logs each stage change, for pipes and CI logs.
type lineView struct {
	mu      sync.Mutex
	last    int
	message string
}

func (v *lineView) OnProgress(percent int, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if percent == v.last && message == v.message {
		return
	}
	v.last, v.message = percent, message
	logging.Info("[%3d%%] %s", percent, message)
}

func (v *lineView) OnDone(path string) {
	logging.Info("Collage written to %s", path)
}

func (v *lineView) OnError(message string) {
	logging.Error("%s", message)
}

func (v *lineView) Close() {}
