package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/stupid-simple/jpf/database"
	"github.com/stupid-simple/jpf/fileutils"
)

const slowQueryThreshold = 200 * time.Millisecond

var errNoDatabase = errors.New("database does not exist")

func newSQLite(path string, logger zerolog.Logger, migrate bool) (*gorm.DB, error) {
	cli, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: dbLogger(logger),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, err
	}

	if !migrate {
		return cli, nil
	}
	if err := cli.AutoMigrate(database.Models()...); err != nil {
		return nil, fmt.Errorf("could not migrate database %s: %w", path, err)
	}

	return cli, nil
}

// openDatabase opens the build registry at path, creating it when missing.
// In dry run the registry must already exist and is neither created nor
// migrated.
func openDatabase(path string, logger zerolog.Logger, dryRun bool) (*database.Database, error) {
	if dryRun {
		return openExistingDatabase(path, logger, true)
	}
	return connectDatabase(path, logger, false, true)
}

// openExistingDatabase opens the build registry at path and fails when there
// is none, so a mistyped path is not silently created.
func openExistingDatabase(path string, logger zerolog.Logger, dryRun bool) (*database.Database, error) {
	if !fileutils.Exists(path) {
		return nil, fmt.Errorf("%w: %s", errNoDatabase, path)
	}
	return connectDatabase(path, logger, dryRun, !dryRun)
}

func connectDatabase(path string, logger zerolog.Logger, dryRun bool, migrate bool) (*database.Database, error) {
	cli, err := newSQLite(path, logger, migrate)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	return &database.Database{
		Cli:    cli,
		Logger: logger,
		DryRun: dryRun,
	}, nil
}

type dblog struct {
	parent zerolog.Logger
}

// Error implements logger.Interface.
func (d *dblog) Error(_ context.Context, msg string, args ...any) {
	d.parent.Error().Msgf(msg, args...)
}

// Info implements logger.Interface.
func (d *dblog) Info(_ context.Context, msg string, args ...any) {
	d.parent.Info().Msgf(msg, args...)
}

// LogMode implements logger.Interface.
func (d *dblog) LogMode(lvl logger.LogLevel) logger.Interface {
	var zl zerolog.Level
	switch lvl {
	case logger.Info:
		zl = zerolog.InfoLevel
	case logger.Error:
		zl = zerolog.ErrorLevel
	case logger.Warn:
		zl = zerolog.WarnLevel
	default:
		zl = zerolog.Disabled
	}
	return &dblog{parent: d.parent.Level(zl)}
}

// Trace implements logger.Interface.
func (d *dblog) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)

	var e *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		e = d.parent.Debug().Err(err)
	case elapsed > slowQueryThreshold:
		e = d.parent.Warn().Bool("slow", true)
	default:
		e = d.parent.Trace()
	}
	e.Dur("elapsed", elapsed).Func(func(e *zerolog.Event) {
		sql, rows := fc()
		e.Str("sql", sql)
		e.Int64("rows_affected", rows)
	}).Msg("query")
}

// Warn implements logger.Interface.
func (d *dblog) Warn(_ context.Context, msg string, args ...any) {
	d.parent.Warn().Msgf(msg, args...)
}

func dbLogger(logger zerolog.Logger) logger.Interface {
	return &dblog{
		parent: logger.With().Str("component", "database").Logger(),
	}
}
