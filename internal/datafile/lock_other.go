//go:build !unix

package datafile

import "os"

// Lock is a no-op on platforms without flock.
func Lock(f *os.File, path string, exclusive bool) error {
	return nil
}

// Unlock is a no-op on platforms without flock.
func Unlock(f *os.File) error {
	return nil
}
