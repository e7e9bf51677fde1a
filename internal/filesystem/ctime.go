package filesystem

import (
	"os"
	"time"
)

// CreationTime returns the platform's notion of when a file was created.
//
// Linux exposes no reliable birth time through stat(2), so the inode change
// time is used there. macOS and FreeBSD report the birth time and Windows
// its creation time. Other platforms fall back to the modification time.
// The second return value is false when info carries no platform stat data.
func CreationTime(info os.FileInfo) (time.Time, bool) {
	if info == nil {
		return time.Time{}, false
	}
	return platformCreationTime(info)
}
