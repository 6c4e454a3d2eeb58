package database

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/stupid-simple/jpf/jpfarchiver"
)

const iterateBatchSize = 50

// BuildSummary describes one registered build of a package.
type BuildSummary struct {
	ID          string
	PackagePath string
	CreatedAt   time.Time
	Size        int64
	Requested   int
	Included    int
	Fingerprint string
	ContentHash uint64
}

func (b BuildSummary) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", b.ID)
	e.Str("package", b.PackagePath)
	e.Time("created_at", b.CreatedAt)
	e.Int64("size", b.Size)
	e.Int("requested", b.Requested)
	e.Int("included", b.Included)
	e.Str("fingerprint", b.Fingerprint)
	e.Str("content_hash", fmt.Sprintf("%016x", b.ContentHash))
}

func summaryOf(b *Build) BuildSummary {
	return BuildSummary{
		ID:          b.ID,
		PackagePath: b.PackagePath,
		CreatedAt:   b.CreatedAt,
		Size:        b.Size,
		Requested:   b.Requested,
		Included:    b.Included,
		Fingerprint: b.Fingerprint,
		ContentHash: uint64(b.ContentHash),
	}
}

// PackageRegistry records the builds of one archive output path.
type PackageRegistry struct {
	db     *Database
	record *Package
	logger zerolog.Logger
}

func (pr *PackageRegistry) Path() string {
	return pr.record.Path
}

// Register records a written archive and all of its entries.
func (pr *PackageRegistry) Register(ctx context.Context, result *jpfarchiver.Result) error {
	build := Build{
		ID:          uuid.NewString(),
		PackagePath: pr.record.Path,
		Size:        int64(len(result.Data)),
		Requested:   result.Requested,
		Included:    result.Included,
		Fingerprint: result.Fingerprint.String(),
		ContentHash: int64(result.ContentHash()),
	}
	logger := pr.logger.With().Str("build", build.ID).Logger()

	pr.db.Lock.Lock()
	defer pr.db.Lock.Unlock()

	if pr.db.DryRun {
		logger.Info().Int("entries", len(result.Entries)).Msg("would register build (dry run)")
		return nil
	}

	err := pr.db.Cli.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Package").Create(&build).Error; err != nil {
			return fmt.Errorf("could not create build: %w", err)
		}

		entries := make([]BuildEntry, 0, len(result.Entries))
		for _, e := range result.Entries {
			entries = append(entries, BuildEntry{
				BuildID:     build.ID,
				Position:    e.Position,
				Name:        e.Name,
				Path:        e.Path,
				Fingerprint: int64(e.Fingerprint),
				Kind:        uint8(e.Kind),
				Size:        e.Size,
				ContentHash: int64(e.ContentHash),
			})
		}
		if len(entries) == 0 {
			return nil
		}
		if err := tx.Omit("Build").CreateInBatches(&entries, iterateBatchSize).Error; err != nil {
			return fmt.Errorf("could not create build entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info().Int("entries", len(result.Entries)).Msg("registered build")
	return nil
}

func (pr *PackageRegistry) newestFirst(ctx context.Context) *gorm.DB {
	return pr.db.Cli.WithContext(ctx).
		Where("package_path = ?", pr.record.Path).
		Order("created_at DESC").
		Order("rowid DESC")
}

// LatestBuild returns the newest build of the package, nil when there is none.
func (pr *PackageRegistry) LatestBuild(ctx context.Context) (*BuildSummary, error) {
	pr.db.Lock.Lock()
	defer pr.db.Lock.Unlock()

	build := Build{}
	err := pr.newestFirst(ctx).Take(&build).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	summary := summaryOf(&build)
	return &summary, nil
}

// LatestContentHash implements jpfarchiver.LatestBuild.
func (pr *PackageRegistry) LatestContentHash(ctx context.Context) (uint64, bool, error) {
	latest, err := pr.LatestBuild(ctx)
	if err != nil || latest == nil {
		return 0, false, err
	}
	return latest.ContentHash, true, nil
}

// Builds iterates the package history, newest first. A limit <= 0 returns
// every build.
func (pr *PackageRegistry) Builds(ctx context.Context, limit int) iter.Seq[BuildSummary] {
	return func(yield func(BuildSummary) bool) {
		offset := 0
		remaining := limit
		for {
			batchSize := iterateBatchSize
			if remaining > 0 {
				batchSize = min(remaining, iterateBatchSize)
			}

			var builds []Build
			pr.db.Lock.Lock()
			err := pr.newestFirst(ctx).Limit(batchSize).Offset(offset).Find(&builds).Error
			pr.db.Lock.Unlock()
			if err != nil {
				pr.logger.Error().Err(err).Msg("error fetching builds from database")
				return
			}

			for i := range builds {
				if ctx.Err() != nil {
					return
				}
				if !yield(summaryOf(&builds[i])) {
					return
				}
			}
			if len(builds) < batchSize {
				return
			}
			if remaining > 0 {
				remaining -= batchSize
				if remaining <= 0 {
					return
				}
			}
			offset += batchSize
		}
	}
}

// Entries returns the entries of a build in archive order.
func (pr *PackageRegistry) Entries(ctx context.Context, buildID string) ([]BuildEntry, error) {
	pr.db.Lock.Lock()
	defer pr.db.Lock.Unlock()

	var entries []BuildEntry
	err := pr.db.Cli.WithContext(ctx).
		Where("build_id = ?", buildID).
		Order("position").
		Find(&entries).Error
	return entries, err
}

// Prune deletes all but the newest keep builds and returns how many were
// deleted.
func (pr *PackageRegistry) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("invalid number of builds to keep: %d", keep)
	}

	pr.db.Lock.Lock()
	defer pr.db.Lock.Unlock()

	var ids []string
	err := pr.newestFirst(ctx).Model(&Build{}).Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) <= keep {
		pr.logger.Info().Int("builds", len(ids)).Msg("nothing to prune")
		return 0, nil
	}
	stale := ids[keep:]

	if pr.db.DryRun {
		pr.logger.Info().Strs("builds", stale).Msg("would prune builds (dry run)")
		return len(stale), nil
	}

	err = pr.db.Cli.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("build_id IN ?", stale).Delete(&BuildEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete build entries: %w", err)
		}
		if err := tx.Where("id IN ?", stale).Delete(&Build{}).Error; err != nil {
			return fmt.Errorf("failed to delete builds: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	pr.logger.Info().Int("count", len(stale)).Msg("pruned builds")
	return len(stale), nil
}
