package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"image-collage/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit handed to the Go heap.
// The remainder covers libvips and goroutine stacks.
const DefaultMemoryRatio = 0.85

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether a heap limit is in effect
	Configured bool

	// Source is "GOMEMLIMIT", "MEMORY_LIMIT", or "none"
	Source string

	// ContainerLimit is the container memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the heap limit in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// ConfigureFromEnv sets the Go heap limit from the container environment.
// Call this early in main() before decoding any images.
//
// Environment variables:
//   - GOMEMLIMIT: If set, the runtime already applied it and it wins
//   - MEMORY_LIMIT: Container memory limit in bytes (e.g. Kubernetes Downward API)
//   - MEMORY_RATIO: Share of MEMORY_LIMIT for the heap (default: 0.85)
func ConfigureFromEnv() ConfigResult {
	result := resolveLimit(os.Getenv)

	switch result.Source {
	case "GOMEMLIMIT":
		logging.Info("GOMEMLIMIT set via environment: %s", formatBytes(result.GoMemLimit))
	case "MEMORY_LIMIT":
		debug.SetMemoryLimit(result.GoMemLimit)
		logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
			formatBytes(result.GoMemLimit), result.Ratio*100, formatBytes(result.ContainerLimit))
	default:
		logging.Debug("MEMORY_LIMIT not set, heap limit left at runtime default")
	}

	return result
}

// resolveLimit decides the heap limit without applying it.
func resolveLimit(getenv func(string) string) ConfigResult {
	if getenv("GOMEMLIMIT") != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			return ConfigResult{Configured: true, Source: "GOMEMLIMIT", GoMemLimit: limit}
		}
		return ConfigResult{Source: "GOMEMLIMIT"}
	}

	memLimitStr := getenv("MEMORY_LIMIT")
	if memLimitStr == "" {
		return ConfigResult{Source: "none"}
	}

	memLimit, err := strconv.ParseInt(memLimitStr, 10, 64)
	if err != nil || memLimit <= 0 {
		logging.Warn("Ignoring invalid MEMORY_LIMIT %q", memLimitStr)
		return ConfigResult{Source: "none"}
	}

	ratio := DefaultMemoryRatio
	if ratioStr := getenv("MEMORY_RATIO"); ratioStr != "" {
		parsed, err := strconv.ParseFloat(ratioStr, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", ratioStr, err, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1.0:
			logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", ratioStr, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}

	return ConfigResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: memLimit,
		GoMemLimit:     int64(float64(memLimit) * ratio),
		Ratio:          ratio,
	}
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
