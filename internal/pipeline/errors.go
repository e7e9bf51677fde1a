package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"image-collage/internal/compositor"
	"image-collage/internal/dispatcher"
	"image-collage/internal/layout"
	"image-collage/internal/persist"
)

// ErrNoSurvivors is returned when filtering leaves nothing to paste.
var ErrNoSurvivors = errors.New("no images left after filtering duplicates")

// failureKind labels a terminal error for metrics.
func failureKind(err error) string {
	switch {
	case errors.Is(err, dispatcher.ErrAllImagesFailed):
		return "all_images_failed"
	case errors.Is(err, ErrNoSurvivors):
		return "no_survivors"
	case errors.Is(err, layout.ErrInvalidDimensions):
		return "invalid_dimensions"
	case errors.Is(err, compositor.ErrDimensionLimitExceeded):
		return "dimension_limit"
	case errors.Is(err, persist.ErrDirectoryCreateFailed):
		return "directory_create"
	case errors.Is(err, persist.ErrWriteFailed):
		return "write"
	default:
		return "internal"
	}
}

// Message turns a terminal error into the line shown to the user.
func Message(err error) string {
	var dimErr *compositor.DimensionError
	switch {
	case errors.As(err, &dimErr):
		return fmt.Sprintf("Collage dimensions (%dx%d) exceed the limit. Too many images or images too large.",
			dimErr.Width, dimErr.Height)
	case errors.Is(err, dispatcher.ErrAllImagesFailed):
		return sentence(err)
	case errors.Is(err, ErrNoSurvivors):
		return sentence(err)
	case errors.Is(err, layout.ErrInvalidDimensions):
		return fmt.Sprintf("Internal error computing the grid: %v.", err)
	case errors.Is(err, persist.ErrDirectoryCreateFailed), errors.Is(err, persist.ErrWriteFailed):
		return fmt.Sprintf("Could not save the collage: %v.", err)
	default:
		return fmt.Sprintf("Unexpected error: %v", err)
	}
}

// sentence capitalizes err's text and ends it with a period.
func sentence(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
