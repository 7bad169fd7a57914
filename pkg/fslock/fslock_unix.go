//go:build unix

package fslock

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes a blocking advisory lock on f and returns the matching
// unlock function. StylePOSIX uses fcntl record locks (F_SETLKW); StyleBSD
// uses flock. Both block indefinitely until the lock is granted.
func lockFile(f *os.File, style Style, exclusive bool) (func() error, error) {
	fd := int(f.Fd())

	if style == StyleBSD {
		how := unix.LOCK_SH
		if exclusive {
			how = unix.LOCK_EX
		}
		if err := unix.Flock(fd, how); err != nil {
			return nil, err
		}
		return func() error { return unix.Flock(fd, unix.LOCK_UN) }, nil
	}

	lockType := int16(unix.F_RDLCK)
	if exclusive {
		lockType = unix.F_WRLCK
	}
	flock := unix.Flock_t{
		Type:   lockType,
		Whence: int16(io.SeekStart),
	}
	if err := unix.FcntlFlock(f.Fd(), unix.F_SETLKW, &flock); err != nil {
		return nil, err
	}
	return func() error {
		unlock := unix.Flock_t{
			Type:   unix.F_UNLCK,
			Whence: int16(io.SeekStart),
		}
		return unix.FcntlFlock(f.Fd(), unix.F_SETLK, &unlock)
	}, nil
}
