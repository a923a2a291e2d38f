//go:build unix

package datafile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Lock places a non-blocking advisory lock on f. A conflicting lock held by
// another handle fails immediately with FILE_LOCKED.
func Lock(f *os.File, path string, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	if err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			mode := "shared"
			if exclusive {
				mode = "exclusive"
			}
			e := newError(ErrCodeFileLocked, path, "cannot take %s lock, another handle holds the file", mode)
			e.Err = err
			return e
		}
		return fmt.Errorf("flock %s: %w", path, err)
	}
	return nil
}

// Unlock releases a lock taken with Lock.
func Unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
