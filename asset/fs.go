package asset

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/spf13/afero"
)

// Largest payload a record size field can describe.
const maxRecordBytes = math.MaxUint32

var (
	ErrMaxSizeExceeded = errors.New("max size exceeded")
	ErrNotRegular      = errors.New("not a regular file")
)

// Loader reads an asset fully or fails. A partially read file is never
// returned as a success.
type Loader interface {
	Load(ctx context.Context, path string) (*Asset, error)
}

type LoaderOption func(l *FSLoader)

// Reject files larger than maxBytes. Zero keeps the format limit.
func WithMaxBytes(maxBytes int64) LoaderOption {
	return func(l *FSLoader) {
		if maxBytes > 0 && maxBytes < l.maxBytes {
			l.maxBytes = maxBytes
		}
	}
}

func NewFSLoader(fs afero.Fs, opts ...LoaderOption) *FSLoader {
	l := &FSLoader{fs: fs, maxBytes: maxRecordBytes}
	for _, applyOpt := range opts {
		applyOpt(l)
	}
	return l
}

// Returns a loader reading from the operating system file system.
func NewOSLoader(opts ...LoaderOption) *FSLoader {
	return NewFSLoader(afero.NewOsFs(), opts...)
}

type FSLoader struct {
	fs       afero.Fs
	maxBytes int64
}

// Load implements Loader.
func (l *FSLoader) Load(ctx context.Context, path string) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotRegular
	}
	if err := l.checkSize(info.Size()); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}
	// The file may have grown between stat and read.
	if err := l.checkSize(int64(len(data))); err != nil {
		return nil, err
	}

	return New(path, data), nil
}

func (l *FSLoader) checkSize(size int64) error {
	if size > l.maxBytes {
		return fmt.Errorf("%w: current size %d, maximum %d", ErrMaxSizeExceeded, size, l.maxBytes)
	}
	return nil
}
