//go:build windows

package fslock

import (
	"os"

	"golang.org/x/sys/windows"
)

// lockFile takes a blocking byte-range lock on the first byte of f via
// LockFileEx. Both lock styles map to the same primitive on Windows.
// LockFileEx blocks until the lock is granted when LOCKFILE_FAIL_IMMEDIATELY
// is not set, so no retry loop is needed.
func lockFile(f *os.File, _ Style, exclusive bool) (func() error, error) {
	handle := windows.Handle(f.Fd())

	var flags uint32
	if exclusive {
		flags = windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	ol := new(windows.Overlapped)
	if err := windows.LockFileEx(handle, flags, 0, 1, 0, ol); err != nil {
		return nil, err
	}
	return func() error {
		return windows.UnlockFileEx(handle, 0, 1, 0, new(windows.Overlapped))
	}, nil
}
