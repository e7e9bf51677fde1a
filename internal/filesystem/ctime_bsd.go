//go:build darwin || freebsd

package filesystem

import (
	"os"
	"syscall"
	"time"
)

func platformCreationTime(info os.FileInfo) (time.Time, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return time.Time{}, false
	}
	sec, nsec := st.Birthtimespec.Unix()
	return time.Unix(sec, nsec), true
}
