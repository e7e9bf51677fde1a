package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"image-collage/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// ErrVipsUnavailable is returned by DecodeWithVips before InitVips.
var ErrVipsUnavailable = errors.New("libvips not available")

// vipsThreshold maps the application log level to the quietest libvips
// level that is still forwarded.
func vipsThreshold(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelInfo:
		return vips.LogLevelWarning
	case logging.LevelWarn:
		return vips.LogLevelError
	default:
		return vips.LogLevelCritical
	}
}

func forwardVipsLog(threshold vips.LogLevel) func(string, vips.LogLevel, string) {
	return func(domain string, level vips.LogLevel, msg string) {
		// vips levels grow more severe as the value decreases
		if level > threshold {
			return
		}
		switch level {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
}

// InitVips initializes the libvips library
// This should be called once at startup
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() to respect LOG_LEVEL
	threshold := vipsThreshold(logging.GetLevel())
	vips.LoggingSettings(forwardVipsLog(threshold), threshold)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources. libvips cannot be started again
// in the same process afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// DecodeWithVips decodes path with libvips, tolerating truncated data, and
// returns the pixels at full resolution.
func DecodeWithVips(path string) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, ErrVipsUnavailable
	}

	params := vips.NewImportParams()
	params.FailOnError.Set(false)
	ref, err := vips.LoadImageFromFile(path, params)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	logging.Debug("Vips loaded %s: %dx%d", filepath.Base(path), ref.Width(), ref.Height())

	// PNG round-trip keeps the alpha channel and is lossless.
	buf, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}
	return img, nil
}
