package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/stupid-simple/jpf/asset"
	"github.com/stupid-simple/jpf/config"
	"github.com/stupid-simple/jpf/database"
	"github.com/stupid-simple/jpf/fileutils"
	"github.com/stupid-simple/jpf/fingerprint"
	"github.com/stupid-simple/jpf/jpfarchiver"
	"github.com/stupid-simple/jpf/jpfarchiver/jpfwriter"
)

func packCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Pack.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	if err := validatePackArgs(args); err != nil {
		return err
	}

	var db *database.Database
	if args.Pack.Database != "" {
		var err error
		db, err = openDatabase(args.Pack.Database, logger, args.Pack.DryRun)
		if err != nil {
			return err
		}
	}

	if args.Pack.Config != "" {
		return packFromConfig(ctx, args, db, logger)
	}

	_, err := packTarget(ctx, packParams{
		inputs:        args.Pack.Inputs,
		output:        args.Pack.Output,
		fingerprint:   args.Pack.Fingerprint,
		concurrency:   args.Pack.Concurrency,
		maxAssetBytes: args.Pack.MaxSize.Size,
		overwrite:     args.Pack.Overwrite,
		dryRun:        args.Pack.DryRun,
		db:            db,
		logger:        logger,
	})
	return err
}

// validatePackArgs rejects inputs given both on the command line and through a
// config file.
func validatePackArgs(args Command) error {
	if args.Pack.Config != "" {
		if len(args.Pack.Inputs) > 0 || args.Pack.Output != "" {
			return errors.New("inputs and --output cannot be used with --config")
		}
		return nil
	}
	if args.Pack.Package != "" {
		return errors.New("--package requires --config")
	}
	if len(args.Pack.Inputs) == 0 {
		return errors.New("no input files given")
	}
	if args.Pack.Output == "" {
		return errors.New("no output path given")
	}
	return nil
}

func packFromConfig(ctx context.Context, args Command, db *database.Database, logger zerolog.Logger) error {
	cfg, err := config.LoadFromFile(args.Pack.Config)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	packages := cfg.Packages
	if args.Pack.Package != "" {
		pkg, ok := cfg.Find(args.Pack.Package)
		if !ok {
			return fmt.Errorf("no package named %q in %s", args.Pack.Package, args.Pack.Config)
		}
		packages = []config.Package{pkg}
	}

	var errs []error
	for _, pkg := range packages {
		if ctx.Err() != nil {
			break
		}
		p, err := packParamsFromConfig(pkg, db, args.Pack.DryRun, logger)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := packTarget(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("package %s: %w", pkg.Name, err))
		}
	}
	return errors.Join(errs...)
}

func packParamsFromConfig(pkg config.Package, db *database.Database, dryRun bool, logger zerolog.Logger) (packParams, error) {
	algorithm, err := pkg.FingerprintAlgorithm()
	if err != nil {
		return packParams{}, fmt.Errorf("package %s: %w", pkg.Name, err)
	}
	return packParams{
		inputs:        pkg.Inputs,
		output:        pkg.Output,
		fingerprint:   algorithm,
		concurrency:   pkg.Concurrency,
		maxAssetBytes: pkg.MaxAssetSize.Size,
		overwrite:     pkg.Overwrite,
		dryRun:        dryRun,
		db:            db,
		logger:        logger.With().Str("package", pkg.Name).Logger(),
	}, nil
}

type packParams struct {
	inputs        []string
	output        string
	fingerprint   fingerprint.Algorithm
	concurrency   int
	maxAssetBytes int64
	overwrite     bool
	// Don't write the archive when it equals the latest registered build.
	skipUnchanged bool
	dryRun        bool
	db            *database.Database
	fs            afero.Fs
	logger        zerolog.Logger
}

func packTarget(ctx context.Context, p packParams) (*jpfarchiver.Result, error) {
	output, err := filepath.Abs(p.output)
	if err != nil {
		return nil, fmt.Errorf("invalid output path %s: %w", p.output, err)
	}
	if p.fs == nil {
		p.fs = afero.NewOsFs()
	}
	logger := p.logger.With().Str("output", output).Logger()

	startTime := time.Now()
	logger.Info().Strs("inputs", p.inputs).Msg("starting pack")
	defer func() {
		tookSeconds := time.Since(startTime).Seconds()
		if ctx.Err() != nil {
			logger.Info().Float64("seconds", tookSeconds).Msg("pack cancelled")
		} else {
			logger.Info().Float64("seconds", tookSeconds).Msg("pack done")
		}
	}()

	if !p.dryRun {
		if err := fileutils.VerifyWritable(filepath.Dir(output)); err != nil {
			return nil, fmt.Errorf("output directory must be writable: %w", err)
		}
	}

	paths, err := asset.ExpandInputs(ctx, p.fs, p.inputs, logger)
	if err != nil {
		return nil, err
	}

	var loaderOpts []asset.LoaderOption
	if p.maxAssetBytes > 0 {
		loaderOpts = append(loaderOpts, asset.WithMaxBytes(p.maxAssetBytes))
	}
	opts := []jpfarchiver.BuildOption{
		jpfarchiver.WithFingerprint(p.fingerprint),
		jpfarchiver.WithConcurrency(p.concurrency),
		jpfarchiver.WithLoader(asset.NewFSLoader(p.fs, loaderOpts...)),
	}

	if p.db != nil {
		registry, err := p.db.GetPackage(ctx, output)
		if err != nil {
			return nil, err
		}
		opts = append(opts, jpfarchiver.WithRegisterBuild(registry))
		if p.skipUnchanged {
			opts = append(opts, jpfarchiver.WithSkipUnchanged(registry))
		}
	}

	var sink jpfwriter.Sink = jpfwriter.NewFileSink(output, p.overwrite)
	if p.dryRun {
		sink = jpfwriter.NewNullSink()
	}

	return jpfarchiver.Compile(ctx, paths, sink, logger, opts...)
}
