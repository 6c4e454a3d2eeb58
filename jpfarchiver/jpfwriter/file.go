package jpfwriter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/stupid-simple/jpf/fileutils"
)

var ErrExists = errors.New("file or directory already exists with this name")

// Sink persists a finished archive. A write either fully succeeds or leaves
// nothing behind.
type Sink interface {
	Path() string
	Write(data []byte) error
	// StoredHash returns the xxHash64 of the archive currently at the
	// destination, ok is false when there is none.
	StoredHash() (hash uint64, ok bool)
}

// Returns a Sink writing to path. The archive is written to a temporary file
// in the same directory and renamed into place once complete.
func NewFileSink(path string, overwrite bool) *FileSink {
	return &FileSink{
		path:      path,
		overwrite: overwrite,
	}
}

// Returns a Sink that writes to the null device.
func NewNullSink() *NullSink {
	return &NullSink{}
}

type FileSink struct {
	path      string
	overwrite bool
}

func (f *FileSink) Path() string {
	return f.path
}

// Write implements Sink.
func (f *FileSink) Write(data []byte) (err error) {
	if fileutils.Exists(f.path) && !f.overwrite {
		return fmt.Errorf("%w: %s", ErrExists, f.path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(tmp.Name()))
		}
	}()

	if err = tmp.Chmod(0644); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if _, err = tmp.Write(data); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err = tmp.Sync(); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}

// StoredHash implements Sink.
func (f *FileSink) StoredHash() (uint64, bool) {
	hash, err := fileutils.ComputeFileHash(afero.NewOsFs(), f.path)
	if err != nil {
		return 0, false
	}
	return hash, true
}

type NullSink struct{}

func (n *NullSink) Path() string {
	return os.DevNull
}

// StoredHash implements Sink. The null device never holds an archive.
func (n *NullSink) StoredHash() (uint64, bool) {
	return 0, false
}

// Write implements Sink.
func (n *NullSink) Write(data []byte) error {
	file, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	return errors.Join(err, file.Close())
}
