package jpfarchiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/jpf/fileutils"
	"github.com/stupid-simple/jpf/jpf"
)

var errSkippedExisting = errors.New("skipped existing file")

// Unpack writes every payload of the archive at archivePath into destDir and
// returns how many files were written. Files are named after the asset when
// the name resolver knows the fingerprint, after the fingerprint otherwise.
// Existing files are never replaced.
func Unpack(ctx context.Context, archivePath string, destDir string, logger zerolog.Logger, opts ...UnpackOption) (int, error) {
	o := unpackOptions{}
	for _, applyOpts := range opts {
		applyOpts(&o)
	}

	var unpacked int
	defer func() {
		if ctx.Err() != nil {
			logger.Info().Int("unpacked", unpacked).Msg("cancelled unpack")
		} else if unpacked == 0 {
			logger.Info().Msg("no assets unpacked")
		} else {
			logger.Info().Int("unpacked", unpacked).Msg("done unpacking assets")
		}
	}()

	f, err := os.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if !o.dryRun {
		if err := os.MkdirAll(destDir, 0755); err != nil {
			return 0, err
		}
	}

	r := jpf.NewReader(f)
	for {
		if ctx.Err() != nil {
			return unpacked, nil
		}

		offset := r.Offset()
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return unpacked, nil
		}
		if err != nil {
			return unpacked, fmt.Errorf("could not read archive %s: %w", archivePath, err)
		}

		name := fallbackName(rec)
		if o.names != nil {
			if resolved, ok := o.names.ResolveName(ctx, rec.Fingerprint); ok {
				name = filepath.Base(resolved)
			}
		}
		target := filepath.Join(destDir, name)
		recLogger := logger.With().
			Int64("offset", offset).
			Str("fingerprint", fmt.Sprintf("%016x", rec.Fingerprint)).
			Str("path", target).
			Logger()

		err = unpackRecord(target, rec, o.dryRun)
		if errors.Is(err, errSkippedExisting) {
			recLogger.Info().Msg("file already present, skipping")
		} else if err != nil {
			recLogger.Warn().Err(err).Msg("could not unpack asset")
		} else {
			recLogger.Debug().Int("bytes", len(rec.Payload)).Msg("unpacked asset")
			unpacked++
		}
	}
}

func fallbackName(rec jpf.Record) string {
	return fmt.Sprintf("%016x%s", rec.Fingerprint, rec.Kind.Extension())
}

func unpackRecord(target string, rec jpf.Record, dryRun bool) error {
	if fileutils.Exists(target) {
		return errSkippedExisting
	}
	if dryRun {
		return nil
	}

	w, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return errSkippedExisting
		}
		return err
	}
	_, err = w.Write(rec.Payload)
	return errors.Join(err, w.Close())
}
