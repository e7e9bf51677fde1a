package media

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"image-collage/internal/filesystem"
	"image-collage/internal/logging"
	"image-collage/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoaderConfig controls how images are decoded and scaled.
type LoaderConfig struct {
	// ScaleFactor multiplies both dimensions. Zero means DefaultScaleFactor.
	ScaleFactor float64
	// MaxSourcePixels rejects images whose header reports more pixels.
	// Zero disables the check.
	MaxSourcePixels int
	// VipsFallback retries files the Go decoders reject with libvips, when
	// it has been initialized.
	VipsFallback bool
	Retry        filesystem.RetryConfig
}

// DefaultLoaderConfig returns the configuration used by the CLI and server.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		ScaleFactor:     DefaultScaleFactor,
		MaxSourcePixels: DefaultMaxSourcePixels,
		VipsFallback:    true,
		Retry:           filesystem.DefaultRetryConfig(),
	}
}

// Loader turns image paths into Records. It holds no per-call state and is
// safe for concurrent use.
type Loader struct {
	config LoaderConfig

	stat       func(path string) (os.FileInfo, error)
	created    func(info os.FileInfo) (time.Time, bool)
	vipsDecode func(path string) (image.Image, error)
}

// NewLoader creates a loader with the given configuration.
func NewLoader(config LoaderConfig) *Loader {
	if config.ScaleFactor <= 0 {
		config.ScaleFactor = DefaultScaleFactor
	}
	return &Loader{
		config: config,
		stat: func(path string) (os.FileInfo, error) {
			return filesystem.StatWithRetry(path, config.Retry)
		},
		created:    filesystem.CreationTime,
		vipsDecode: DecodeWithVips,
	}
}

// Load reads one image file. It fails with ErrMetadataUnavailable when the
// creation time cannot be determined and ErrDecodeFailed when the file cannot
// be read or decoded.
func (l *Loader) Load(path string) (*Record, error) {
	name := filepath.Base(path)

	info, err := l.stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			metrics.ImagesLoadedTotal.WithLabelValues("decode_failed").Inc()
			return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, name, err)
		}
		metrics.ImagesLoadedTotal.WithLabelValues("metadata_unavailable").Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrMetadataUnavailable, name, err)
	}
	created, ok := l.created(info)
	if !ok {
		metrics.ImagesLoadedTotal.WithLabelValues("metadata_unavailable").Inc()
		return nil, fmt.Errorf("%w: %s", ErrMetadataUnavailable, name)
	}

	start := time.Now()
	decoded, format, err := l.decode(path)
	if err != nil {
		metrics.ImagesLoadedTotal.WithLabelValues("decode_failed").Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, name, err)
	}
	metrics.ImageLoadDuration.WithLabelValues("decode").Observe(time.Since(start).Seconds())
	metrics.ImageDecodeByFormat.WithLabelValues(format).Inc()

	sourceMode := DetectMode(decoded)
	bounds := decoded.Bounds()
	if bounds.Empty() {
		metrics.ImagesLoadedTotal.WithLabelValues("decode_failed").Inc()
		return nil, fmt.Errorf("%w: %s: empty image", ErrDecodeFailed, name)
	}

	// The canonical buffer is hashed before it is converted in place; the
	// decoder's own buffer is unreachable from here on.
	start = time.Now()
	canon := canonicalize(decoded)
	fp := fingerprintNRGBA(canon)
	metrics.ImageLoadDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())

	mode := NormalizeMode(canon, sourceMode)

	start = time.Now()
	w, h := ScaledSize(bounds.Dx(), bounds.Dy(), l.config.ScaleFactor)
	scaled := canon
	if w != bounds.Dx() || h != bounds.Dy() {
		scaled = imaging.Resize(canon, w, h, imaging.Lanczos)
		if mode == ModeRGB {
			setOpaque(scaled)
		}
	}
	metrics.ImageLoadDuration.WithLabelValues("resize").Observe(time.Since(start).Seconds())
	metrics.ImagesLoadedTotal.WithLabelValues("success").Inc()

	logging.Debug("Loaded %s (%s, %s->%s) %dx%d -> %dx%d fp=%s",
		name, format, sourceMode, mode, bounds.Dx(), bounds.Dy(), w, h, fp.Short())

	return &Record{
		Path:        path,
		Name:        name,
		Created:     created,
		Fingerprint: fp,
		SourceMode:  sourceMode,
		Mode:        mode,
		Format:      format,
		Width:       w,
		Height:      h,
		Image:       scaled,
	}, nil
}

// decode tries the registered Go decoders, then libvips, then a partial
// decode of whatever data the file holds.
func (l *Loader) decode(path string) (image.Image, string, error) {
	img, format, err := l.decodeNative(path)
	if err == nil {
		return img, format, nil
	}
	if errors.Is(err, errTooLarge) || errors.Is(err, fs.ErrNotExist) {
		return nil, "", err
	}

	if l.config.VipsFallback && IsVipsAvailable() {
		logging.Debug("Go decoder rejected %s (%v), trying libvips", filepath.Base(path), err)
		img, vipsErr := l.vipsDecode(path)
		if vipsErr == nil {
			metrics.VipsFallbackTotal.WithLabelValues("success").Inc()
			return img, "vips", nil
		}
		metrics.VipsFallbackTotal.WithLabelValues("error").Inc()
		err = fmt.Errorf("%w (libvips: %v)", err, vipsErr)
	}

	img, format, partialErr := l.decodePartial(path)
	if partialErr != nil {
		logging.Debug("Partial decode of %s failed: %v", filepath.Base(path), partialErr)
		return nil, "", err
	}
	metrics.PartialDecodesTotal.WithLabelValues(format).Inc()
	logging.Warn("Image %s is truncated or damaged (%v), using the data present", filepath.Base(path), err)
	return img, format, nil
}

var errTooLarge = errors.New("image exceeds pixel limit")

func (l *Loader) decodeNative(path string) (image.Image, string, error) {
	file, err := filesystem.OpenWithRetry(path, l.config.Retry)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	if l.config.MaxSourcePixels > 0 {
		config, _, err := image.DecodeConfig(bufio.NewReader(file))
		if err != nil {
			return nil, "", err
		}
		if pixels := config.Width * config.Height; pixels > l.config.MaxSourcePixels {
			return nil, "", fmt.Errorf("%w: %dx%d", errTooLarge, config.Width, config.Height)
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, "", err
		}
	}

	return image.Decode(bufio.NewReader(file))
}
