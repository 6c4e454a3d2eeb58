package asset

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ScanDirectory yields the regular files below dirPath in lexical order.
func ScanDirectory(ctx context.Context, afs afero.Fs, dirPath string, logger zerolog.Logger) (iter.Seq[string], error) {
	return func(yield func(string) bool) {
		var scannedCount int

		scanLogger := logger.With().Str("dir", dirPath).Logger()
		scanLogger.Debug().Msg("start scanning for assets")
		defer func() {
			scanLogger.Debug().
				Int("scanned", scannedCount).
				Msg("done scanning assets")
		}()

		throttledLogger := scanLogger.Sample(&zerolog.BurstSampler{
			Burst:  1,
			Period: 1 * time.Second,
		})
		err := afero.Walk(afs, dirPath, func(path string, info fs.FileInfo, err error) error {
			if ctx.Err() != nil {
				return filepath.SkipAll
			}

			if err != nil {
				scanLogger.Warn().Err(err).Str("path", path).Msg("could not scan path")
				return nil
			}
			if info.IsDir() || !info.Mode().IsRegular() {
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}
			scannedCount++
			throttledLogger.Info().
				Int("scanned", scannedCount).
				Msg("scanning assets")

			return nil
		})
		// afero does not swallow SkipAll the way filepath.WalkDir does.
		if err != nil && !errors.Is(err, filepath.SkipAll) {
			scanLogger.Error().Err(err).Msg("could not scan path")
		}
	}, nil
}

// ExpandInputs turns a list of files and directories into the ordered list of
// files to pack. Directories are replaced by their files, everything else is
// kept as given so that the loader reports it if it cannot be read.
func ExpandInputs(ctx context.Context, afs afero.Fs, inputs []string, logger zerolog.Logger) ([]string, error) {
	paths := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		info, err := afs.Stat(input)
		if err != nil || !info.IsDir() {
			paths = append(paths, input)
			continue
		}

		seq, err := ScanDirectory(ctx, afs, input, logger)
		if err != nil {
			return nil, err
		}
		for path := range seq {
			paths = append(paths, path)
		}
	}
	return paths, nil
}
