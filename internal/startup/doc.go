// Package startup handles configuration loading and the startup/shutdown
// log blocks shared by the build and serve commands.
//
// # Configuration
//
// [LoadConfig] reads environment variables; invalid values fall back to their
// defaults with a warning. Command-line flags are applied on top by main,
// then [Config.Validate] and [Config.Prepare] run.
//
//   - COLLAGE_OUTPUT_DIR: Directory collages are written to (default: ./collages)
//   - COLLAGE_SCALE: Resize factor applied to every image, in (0, 1] (default: 0.5)
//   - COLLAGE_WORKERS: Loader pool size (default: 2 per CPU, capped by input count)
//   - COLLAGE_MAX_DIMENSION: Largest allowed canvas side (default: 65500)
//   - COLLAGE_MAX_PIXELS: Largest allowed canvas area, 0 for no limit (default: 0)
//   - COLLAGE_MAX_SOURCE_PIXELS: Largest source image accepted before decoding
//   - COLLAGE_DEDUPE: Duplicate policy, union or strict (default: union)
//   - DATABASE_DIR: Run history location; history is off when unset
//   - VIPS_ENABLED: Use libvips for files the Go decoders reject (default: false)
//   - PORT: HTTP port for the serve command (default: 8080)
//   - METRICS_ENABLED: Expose /metrics from the serve command (default: true)
//   - LOG_HEALTH_CHECKS: Log /health requests (default: false)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: Heap limit, see package memory
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X image-collage/internal/startup.Version=1.2.0"
package startup
