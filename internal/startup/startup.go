package startup

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"image-collage/internal/dedupe"
	"image-collage/internal/logging"
	"image-collage/internal/media"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HistoryFile is the SQLite file created inside DATABASE_DIR.
const HistoryFile = "history.db"

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	OutputDir       string
	Scale           float64
	Workers         int
	MaxDimension    int
	MaxPixels       int64
	MaxSourcePixels int
	Dedupe          dedupe.Policy
	DatabaseDir     string
	VipsEnabled     bool
	Host            string
	Port            string
	MetricsEnabled  bool
	LogHealthChecks bool

	// Derived by Prepare
	DatabasePath   string
	HistoryEnabled bool
}

// LoadConfig reads configuration from environment variables. Invalid values
// are logged and replaced by their defaults. It touches no directories, so
// the CLI can override fields before calling Prepare.
func LoadConfig() *Config {
	policy, err := dedupe.ParsePolicy(getEnv("COLLAGE_DEDUPE", "union"))
	if err != nil {
		logging.Warn("Invalid COLLAGE_DEDUPE, using default: union (%v)", err)
	}

	return &Config{
		OutputDir:       getEnv("COLLAGE_OUTPUT_DIR", "./collages"),
		Scale:           getEnvFloat("COLLAGE_SCALE", media.DefaultScaleFactor),
		Workers:         getEnvInt("COLLAGE_WORKERS", 0),
		MaxDimension:    getEnvInt("COLLAGE_MAX_DIMENSION", 65500),
		MaxPixels:       int64(getEnvInt("COLLAGE_MAX_PIXELS", 0)),
		MaxSourcePixels: getEnvInt("COLLAGE_MAX_SOURCE_PIXELS", media.DefaultMaxSourcePixels),
		Dedupe:          policy,
		DatabaseDir:     getEnv("DATABASE_DIR", ""),
		VipsEnabled:     getEnvBool("VIPS_ENABLED", false),
		Host:            getEnv("HOST", "127.0.0.1"),
		Port:            getEnv("PORT", "8080"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", false),
	}
}

// Validate rejects values no run could succeed with.
func (c *Config) Validate() error {
	var errs []error
	if c.Scale <= 0 || c.Scale > 1 {
		errs = append(errs, fmt.Errorf("scale must be in (0, 1], got %g", c.Scale))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.MaxDimension <= 0 {
		errs = append(errs, fmt.Errorf("max dimension must be positive, got %d", c.MaxDimension))
	}
	if c.MaxPixels < 0 {
		errs = append(errs, fmt.Errorf("max pixels must not be negative, got %d", c.MaxPixels))
	}
	if c.MaxSourcePixels < 0 {
		errs = append(errs, fmt.Errorf("max source pixels must not be negative, got %d", c.MaxSourcePixels))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory must not be empty"))
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	return errors.Join(errs...)
}

// Prepare resolves directories to absolute paths and decides whether run
// history can be kept. The output directory is created by the first save.
func (c *Config) Prepare() error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	outputDir, err := filepath.Abs(c.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory path: %w", err)
	}
	c.OutputDir = outputDir
	logging.Info("  Output directory (absolute): %s", outputDir)

	if err := checkDirectory(outputDir, "output"); err != nil {
		return fmt.Errorf("output directory error: %w", err)
	}

	if c.DatabaseDir == "" {
		logging.Info("  DATABASE_DIR not set, run history disabled")
		c.HistoryEnabled = false
		return nil
	}

	databaseDir, err := filepath.Abs(c.DatabaseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	c.DatabaseDir = databaseDir
	c.DatabasePath = filepath.Join(databaseDir, HistoryFile)
	logging.Info("  Database directory (absolute): %s", databaseDir)

	c.HistoryEnabled = setupOptionalDir(databaseDir, "history")
	return nil
}

// Log prints the effective configuration block.
func (c *Config) Log() {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  COLLAGE_OUTPUT_DIR:    %s", c.OutputDir)
	logging.Info("  COLLAGE_SCALE:         %.2f", c.Scale)
	if c.Workers > 0 {
		logging.Info("  COLLAGE_WORKERS:       %d", c.Workers)
	} else {
		logging.Info("  COLLAGE_WORKERS:       auto (GOMAXPROCS=%d)", runtime.GOMAXPROCS(0))
	}
	logging.Info("  COLLAGE_MAX_DIMENSION: %d", c.MaxDimension)
	if c.MaxPixels > 0 {
		logging.Info("  COLLAGE_MAX_PIXELS:    %d", c.MaxPixels)
	}
	logging.Info("  COLLAGE_DEDUPE:        %s", c.Dedupe)
	logging.Info("  DATABASE_DIR:          %s", orNone(c.DatabaseDir))
	logging.Info("  VIPS_ENABLED:          %v", c.VipsEnabled)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())
}

// Addr is the HTTP listen address. The API reads and writes any path the
// process can reach, so the default host is loopback; binding a public
// interface exposes that to every client on the network.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// LogServer prints the settings only the HTTP server uses.
func (c *Config) LogServer() {
	logging.Info("  HOST:                  %s", c.Host)
	logging.Info("  PORT:                  %s", c.Port)
	logging.Info("  METRICS_ENABLED:       %v", c.MetricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:     %v", c.LogHealthChecks)
}

// LogFeatures summarizes what the environment allowed.
func (c *Config) LogFeatures() {
	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    History:     %s", enabledString(c.HistoryEnabled))
	logging.Info("    libvips:     %s", enabledString(c.VipsEnabled && media.IsVipsAvailable()))
	logging.Info("    Metrics:     %s", enabledString(c.MetricsEnabled))
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// LogHistoryInit logs history database initialization
func LogHistoryInit(duration time.Duration, err error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HISTORY INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if err != nil {
		logging.Warn("  History disabled: %v", err)
		return
	}
	logging.Info("  [OK] History database initialized in %v", duration)
}

// LogVipsInit logs the outcome of starting libvips.
func LogVipsInit(enabled bool, err error) {
	if !enabled {
		logging.Debug("  libvips fallback disabled (set VIPS_ENABLED=true to enable)")
		return
	}
	if err != nil {
		logging.Warn("  libvips unavailable: %v", err)
		logging.Warn("  Truncated files will be reported as decode failures")
		return
	}
	logging.Info("  [OK] libvips fallback decoder ready")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// e.g. /metrics, registered without a method matcher
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Addr            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://%s/api/collages", config.Addr)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://%s/metrics", config.Addr)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// PrintBanner writes the banner to stderr followed by build details.
func PrintBanner() {
	banner := `
------------------------------------------------------------
  ___                              ___     _ _
 |_ _|_ __  __ _ __ _ ___   ___   / __|___| | |__ _ __ _ ___
  | || '  \/ _' / _' / -_) |___| | (__/ _ \ | / _' / _' / -_)
 |___|_|_|_\__,_\__, \___|        \___\___/_|_\__,_\__, \___|
                |___/                              |___/
------------------------------------------------------------`
	fmt.Fprintln(logging.Writer(), banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

// LogSystemInfo logs the CPU budget the worker pool will size itself from.
func LogSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

// checkDirectory fails only when path exists and is not a directory.
func checkDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist yet, it will be created on first save")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		logging.Warn("Invalid number value for %s: %q, using default: %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
