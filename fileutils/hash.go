package fileutils

import (
	"errors"
	"io"

	"github.com/cespare/xxhash"
	"github.com/spf13/afero"
)

// ComputeHash returns the xxHash64 of everything left in r. r is not closed.
func ComputeHash(r io.Reader) (uint64, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// ComputeFileHash returns the xxHash64 of the file at path in afs.
func ComputeFileHash(afs afero.Fs, path string) (hash uint64, err error) {
	f, err := afs.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return ComputeHash(f)
}
