// Package fslock provides blocking, cross-platform advisory file locks. Locks
// coordinate independent processes sharing an on-disk cache; the lockfile
// itself is only ever created and closed, never deleted, so repeated
// acquire/release cycles never race its own creation.
package fslock

import (
	"fmt"
	"os"
)

// Style selects the POSIX locking primitive backing the lock. The two styles
// are interchangeable for mutual exclusion but differ in behavior across
// forked subprocesses and some network filesystems.
type Style string

const (
	// StylePOSIX uses an fcntl record lock. This is the default.
	StylePOSIX Style = "posix"
	// StyleBSD uses a whole-file flock.
	StyleBSD Style = "bsd"
)

// FileLock is a held advisory lock on an open file descriptor.
type FileLock struct {
	file   *os.File
	unlock func() error
}

// Release unlocks and closes the locked descriptor. The descriptor is closed
// even if unlocking fails.
func (l *FileLock) Release() error {
	defer l.file.Close()
	return l.unlock()
}

// Acquire opens (creating if needed) the lockfile at path and takes a
// blocking, indefinite, exclusive lock on it.
func Acquire(path string, style Style) (*FileLock, error) {
	return acquire(path, style, true)
}

// AcquireShared opens (creating if needed) the lockfile at path and takes a
// blocking, indefinite, shared lock on it.
func AcquireShared(path string, style Style) (*FileLock, error) {
	return acquire(path, style, false)
}

func acquire(path string, style Style, exclusive bool) (*FileLock, error) {
	switch style {
	case StylePOSIX, StyleBSD:
	case "":
		style = StylePOSIX
	default:
		return nil, fmt.Errorf("unknown file lock style %q", style)
	}

	// Nothing is ever written to the lockfile, but record locks require a
	// descriptor opened for reading or writing depending on the lock type.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lockfile %s: %w", path, err)
	}

	unlock, err := lockFile(f, style, exclusive)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return &FileLock{file: f, unlock: unlock}, nil
}
