package datafile

import (
	"errors"
	"io/fs"
	"os"
)

// OpenFile opens and locks a data file: shared and read-only by default,
// exclusive and read-write when readWrite is set. A missing file yields
// FILE_NOT_FOUND and a lock conflict FILE_LOCKED; in both cases no handle
// is left open.
func OpenFile(path string, readWrite bool) (*os.File, error) {
	flag := os.O_RDONLY
	if readWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e := newError(ErrCodeFileNotFound, path, "data file does not exist")
			e.Err = err
			return nil, e
		}
		return nil, err
	}
	if err := Lock(f, path, readWrite); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// ScanFile builds the index of an open data file by scanning its body.
func ScanFile(f *os.File, path string) (*Index, Header, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, Header{}, err
	}
	return build(path, f, info.Size())
}
