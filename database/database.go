package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Database struct {
	Lock   sync.Mutex
	Cli    *gorm.DB
	Logger zerolog.Logger
	DryRun bool
}

// FingerprintMatch is an asset name recorded for a fingerprint.
type FingerprintMatch struct {
	Name        string
	Path        string
	PackagePath string
	BuildID     string
	CreatedAt   time.Time
}

func (m FingerprintMatch) MarshalZerologObject(e *zerolog.Event) {
	e.Str("name", m.Name)
	e.Str("path", m.Path)
	e.Str("package", m.PackagePath)
	e.Str("build", m.BuildID)
	e.Time("created_at", m.CreatedAt)
}

// GetPackage returns the registry of an archive output path, creating the
// package on first use. In dry run nothing is created.
func (d *Database) GetPackage(ctx context.Context, path string) (*PackageRegistry, error) {
	d.Lock.Lock()
	defer d.Lock.Unlock()

	d.Logger.Debug().Str("path", path).Msg("get package")

	pkg := &Package{}
	var err error
	if d.DryRun {
		err = d.Cli.WithContext(ctx).Where(Package{Path: path}).Take(pkg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			d.Logger.Info().Str("path", path).Msg("would create package (dry run)")
			pkg, err = &Package{Path: path}, nil
		}
	} else {
		err = d.Cli.WithContext(ctx).Where(Package{Path: path}).FirstOrCreate(pkg).Error
	}
	if err != nil {
		return nil, fmt.Errorf("could not get package %s: %w", path, err)
	}

	return &PackageRegistry{db: d, record: pkg, logger: d.Logger.With().Str("package", path).Logger()}, nil
}

// LookupFingerprint returns every name recorded for the fingerprint, newest
// build first. Archives only store fingerprints, the registry is the only way
// back to a name.
func (d *Database) LookupFingerprint(ctx context.Context, fp uint64) ([]FingerprintMatch, error) {
	d.Lock.Lock()
	defer d.Lock.Unlock()

	var matches []FingerprintMatch
	err := d.Cli.WithContext(ctx).
		Table("build_entry").
		Select("build_entry.name, build_entry.path, build.package_path, build.id AS build_id, build.created_at").
		Joins("JOIN build ON build.id = build_entry.build_id").
		Where("build_entry.fingerprint = ?", int64(fp)).
		Order("build.created_at DESC").
		Order("build_entry.position").
		Scan(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("could not look up fingerprint %016x: %w", fp, err)
	}
	return matches, nil
}

// ResolveName returns the most recently recorded name of the fingerprint.
func (d *Database) ResolveName(ctx context.Context, fp uint64) (string, bool) {
	d.Lock.Lock()
	defer d.Lock.Unlock()

	entry := BuildEntry{}
	err := d.Cli.WithContext(ctx).
		Joins("JOIN build ON build.id = build_entry.build_id").
		Where("build_entry.fingerprint = ?", int64(fp)).
		Order("build.created_at DESC").
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false
	}
	if err != nil {
		d.Logger.Warn().Err(err).Str("fingerprint", fmt.Sprintf("%016x", fp)).Msg("could not resolve name")
		return "", false
	}
	return entry.Name, true
}
