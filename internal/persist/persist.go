// Package persist writes finished collages to disk as PNG.
package persist

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"image-collage/internal/filesystem"
	"image-collage/internal/logging"
	"image-collage/internal/metrics"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// FilePrefix starts every generated collage name.
const FilePrefix = "collage_"

// nameAttempts bounds retries when a generated name is already taken.
const nameAttempts = 3

var (
	// ErrDirectoryCreateFailed is returned when the target directory cannot
	// be created.
	ErrDirectoryCreateFailed = errors.New("failed to create output directory")
	// ErrWriteFailed is returned when the image cannot be encoded or written.
	ErrWriteFailed = errors.New("failed to write collage")
)

// UniqueName builds collage_<unix millis>_<8 hex>.png.
func UniqueName(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d_%s.png", FilePrefix, now.UnixMilli(), suffix)
}

// Writer saves collages. The zero value is not usable; call NewWriter.
type Writer struct {
	retry filesystem.RetryConfig
	now   func() time.Time
	name  func(time.Time) string
}

// NewWriter creates a writer that retries directory creation on stale NFS
// handles.
func NewWriter(retry filesystem.RetryConfig) *Writer {
	return &Writer{retry: retry, now: time.Now, name: UniqueName}
}

// Save writes img under dir with DefaultRetryConfig.
func Save(img image.Image, dir string) (string, error) {
	return NewWriter(filesystem.DefaultRetryConfig()).Save(img, dir)
}

// Save creates dir if needed and writes img to a new file in it, returning
// the file's path. An existing file is never overwritten.
func (w *Writer) Save(img image.Image, dir string) (string, error) {
	if err := filesystem.MkdirAllWithRetry(dir, 0o755, w.retry); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDirectoryCreateFailed, dir, err)
	}

	var (
		file *os.File
		path string
		err  error
	)
	for attempt := 0; attempt < nameAttempts; attempt++ {
		path = filepath.Join(dir, w.name(w.now()))
		file, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil || !errors.Is(err, os.ErrExist) {
			break
		}
		logging.Debug("Collage name %s already taken, generating another", filepath.Base(path))
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if err := encode(file, img); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			logging.Warn("failed to close %s: %v", path, closeErr)
		}
		if rmErr := os.Remove(path); rmErr != nil {
			logging.Warn("failed to remove partial collage %s: %v", path, rmErr)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrWriteFailed, filepath.Base(path), err)
	}

	info, statErr := file.Stat()
	if err := file.Close(); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			logging.Warn("failed to remove partial collage %s: %v", path, rmErr)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrWriteFailed, filepath.Base(path), err)
	}
	if statErr == nil {
		metrics.CollageBytesWritten.Add(float64(info.Size()))
		logging.Debug("Wrote %s (%d bytes)", path, info.Size())
	}

	return path, nil
}

func encode(file *os.File, img image.Image) error {
	buf := bufio.NewWriterSize(file, 1<<20)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return err
	}
	return buf.Flush()
}
