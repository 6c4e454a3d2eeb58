package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/stupid-simple/jpf/config"
	"github.com/stupid-simple/jpf/database"
	"github.com/stupid-simple/jpf/fileutils"
	"github.com/stupid-simple/jpf/scheduler"
)

const configPollInterval = 30 * time.Second

func daemonCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Daemon.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	cfg, err := config.LoadFromFile(args.Daemon.Config)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	db, err := openDatabase(args.Daemon.Database, logger, args.Daemon.DryRun)
	if err != nil {
		return err
	}

	scheduler := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger: logger,
	})

	addPackJobsFromConfig(ctx, scheduler, cfg, db, logger, args.Daemon.DryRun)

	ticker := time.NewTicker(configPollInterval)
	defer ticker.Stop()
	startConfigFileWatcher(ctx, args.Daemon.Config, logger, ticker, func(cfg *config.Config) {
		scheduler.RemoveJobs()
		addPackJobsFromConfig(ctx, scheduler, cfg, db, logger, args.Daemon.DryRun)
	})

	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()

	return nil
}

// addPackJobsFromConfig schedules every enabled package. Invalid packages and
// packages writing to an output already taken are skipped.
func addPackJobsFromConfig(
	ctx context.Context,
	scheduler *scheduler.Scheduler,
	cfg *config.Config,
	db *database.Database,
	logger zerolog.Logger,
	dryRun bool,
) int {
	outputs := make(map[string]struct{})
	var added int

	for _, pkg := range cfg.Packages {
		pkgLogger := logger.With().Str("package", pkg.Name).Logger()

		if err := pkg.Validate(); err != nil {
			pkgLogger.Warn().AnErr("cause", err).Msg("skipping package")
			continue
		}
		if !pkg.Enable {
			pkgLogger.Info().Msg("skipping disabled package")
			continue
		}
		if pkg.Schedule == "" {
			pkgLogger.Warn().Msg("skipping package without schedule")
			continue
		}
		if _, ok := outputs[pkg.Output]; ok {
			pkgLogger.Warn().Str("output", pkg.Output).Msg("skipping duplicate output")
			continue
		}
		outputs[pkg.Output] = struct{}{}

		params, err := packParamsFromConfig(pkg, db, dryRun, logger)
		if err != nil {
			pkgLogger.Warn().AnErr("cause", err).Msg("skipping package")
			continue
		}
		params.skipUnchanged = true
		// Scheduled rebuilds replace the previous archive.
		params.overwrite = true

		if err := scheduler.AddJob(pkg.Name, pkg.Schedule, &packJob{ctx: ctx, name: pkg.Name, params: params}); err != nil {
			pkgLogger.Error().Err(err).Msg("could not add pack job")
			continue
		}

		added++
		pkgLogger.Info().Object("config", pkg).Msg("added pack job")
	}
	return added
}

func startConfigFileWatcher(ctx context.Context, cfgPath string, logger zerolog.Logger, ticker *time.Ticker, onChanged func(cfg *config.Config)) {
	logger.Info().Str("path", cfgPath).Msg("watching config file for changes")
	watcher, err := fileutils.WatchFile(ctx, afero.NewOsFs(), cfgPath, when(ticker.C), func(err error) {
		logger.Error().Err(err).Msg("could not watch config file")
	})
	if err != nil {
		logger.Error().Err(err).Msg("could not watch config file")
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher:
				if !ok {
					return
				}
				logger.Info().Str("path", cfgPath).Msg("config file changed, reloading")

				cfg, err := config.LoadFromFile(cfgPath)
				if err != nil {
					logger.Error().Err(err).Msg("could not load config")
					break
				}

				onChanged(cfg)
			}
		}
	}()
}

func when[T any](ch <-chan T) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for range ch {
			out <- struct{}{}
		}
	}()
	return out
}

type packJob struct {
	ctx    context.Context
	name   string
	params packParams
}

func (j *packJob) Run() {
	if j.ctx.Err() != nil {
		return
	}
	result, err := packTarget(j.ctx, j.params)
	if err != nil {
		j.params.logger.Error().Err(err).Str("output", j.params.output).Msg("pack job failed")
		return
	}
	if len(result.Failures) > 0 {
		j.params.logger.Warn().
			Int("failed", len(result.Failures)).
			Msg("some assets could not be packed")
	}
}
