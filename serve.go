package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-collage/internal/handlers"
	"image-collage/internal/logging"
	"image-collage/internal/metrics"
	"image-collage/internal/middleware"
	"image-collage/internal/startup"

	"github.com/spf13/pflag"
)

const shutdownTimeout = 30 * time.Second

func runServe(args []string, stderr io.Writer) int {
	startTime := time.Now()
	cfg := startup.LoadConfig()

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := bindConfigFlags(fs, cfg)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "HTTP listen host (the API can read and write any local path)")
	fs.StringVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	fs.BoolVar(&cfg.MetricsEnabled, "metrics", cfg.MetricsEnabled, "serve Prometheus metrics on /metrics")
	fs.BoolVar(&cfg.LogHealthChecks, "log-health-checks", cfg.LogHealthChecks, "include health checks in the access log")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := cf.apply(cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration:\n%v\n", err)
		return exitUsage
	}

	startup.PrintBanner()
	startup.LogSystemInfo()
	cfg.Log()
	cfg.LogServer()

	if err := cfg.Prepare(); err != nil {
		logging.Error("Startup failed: %v", err)
		return exitFailure
	}

	svc := startServices(context.Background(), cfg)
	cfg.LogFeatures()

	var collector *metrics.Collector
	if svc.store != nil && cfg.MetricsEnabled {
		collector = metrics.NewCollector(svc.store, time.Minute)
		collector.Start()
	}

	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	var h *handlers.Handlers
	if svc.store != nil {
		h = handlers.New(jobsCtx, svc.newPipeline(cfg), svc.store)
	} else {
		h = handlers.New(jobsCtx, svc.newPipeline(cfg), nil)
	}

	router := h.Router(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}
	startup.LogHTTPRoutes(router, cfg.LogHealthChecks)

	logCfg := middleware.DefaultLoggingConfig()
	logCfg.LogHealthChecks = cfg.LogHealthChecks

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.Logger(logCfg)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sig, ok := <-sigChan
		if !ok {
			return
		}
		startup.LogShutdownInitiated(sig.String())
		shutdown(srv, h, collector, svc)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Addr:            cfg.Addr(),
		MetricsEnabled:  cfg.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logging.Error("Server failed: %v", err)
		signal.Stop(sigChan)
		close(sigChan)
		<-done
		cancelJobs()
		if collector != nil {
			collector.Stop()
		}
		svc.stop()
		return exitFailure
	}
	<-done
	return exitOK
}

// shutdown stops accepting requests, then stops running jobs, then
// releases the shared services.
func shutdown(srv *http.Server, h *handlers.Handlers, collector *metrics.Collector, svc *services) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping collage jobs")
	if err := h.Shutdown(ctx); err != nil {
		logging.Warn("Jobs did not stop in time: %v", err)
	} else {
		startup.LogShutdownStepComplete("Collage jobs stopped")
	}

	if collector != nil {
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	startup.LogShutdownStep("Releasing services")
	svc.stop()
	startup.LogShutdownStepComplete("Services released")

	startup.LogShutdownComplete()
}
