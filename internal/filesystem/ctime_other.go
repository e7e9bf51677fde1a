//go:build !linux && !darwin && !freebsd && !windows

package filesystem

import (
	"os"
	"time"
)

func platformCreationTime(info os.FileInfo) (time.Time, bool) {
	if info.Sys() == nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
