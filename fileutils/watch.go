package fileutils

import (
	"context"

	"github.com/spf13/afero"
)

// WatchFile hashes the file at path on every tick and emits on the returned
// channel when the content changed. Read errors go to onErr and the last known
// content is kept. The channel is closed when ctx is done.
func WatchFile(
	ctx context.Context,
	afs afero.Fs,
	path string,
	ticker <-chan struct{},
	onErr func(err error),
) (<-chan struct{}, error) {
	lastHash, err := ComputeFileHash(afs, path)
	if err != nil {
		return nil, err
	}

	ch := make(chan struct{})
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ticker:
				if !ok {
					return
				}
			}

			newHash, err := ComputeFileHash(afs, path)
			if err != nil {
				onErr(err)
				continue
			}
			if newHash == lastHash {
				continue
			}
			lastHash = newHash

			select {
			case ch <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
