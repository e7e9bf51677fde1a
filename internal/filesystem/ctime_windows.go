//go:build windows

package filesystem

import (
	"os"
	"syscall"
	"time"
)

func platformCreationTime(info os.FileInfo) (time.Time, bool) {
	attrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok || attrs == nil {
		return time.Time{}, false
	}
	return time.Unix(0, attrs.CreationTime.Nanoseconds()), true
}
