package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/jpf/jpfarchiver"
)

func unpackCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Unpack.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	destPath := args.Unpack.Dest
	logger = logger.With().Str("archive", args.Unpack.Archive).Str("dest", destPath).Logger()

	startTime := time.Now()
	logger.Info().Msg("starting unpack")
	defer func() {
		tookSeconds := time.Since(startTime).Seconds()
		if ctx.Err() != nil {
			logger.Info().Float64("seconds", tookSeconds).Msg("unpack cancelled")
		} else {
			logger.Info().Float64("seconds", tookSeconds).Msg("unpack done")
		}
	}()

	opts := []jpfarchiver.UnpackOption{jpfarchiver.WithUnpackDryRun(args.Unpack.DryRun)}
	if args.Unpack.Database != "" {
		db, err := openExistingDatabase(args.Unpack.Database, logger, args.Unpack.DryRun)
		if err != nil {
			return err
		}
		opts = append(opts, jpfarchiver.WithNameResolver(db))
	}

	_, err := jpfarchiver.Unpack(ctx, args.Unpack.Archive, destPath, logger, opts...)
	return err
}
