package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"

	"github.com/stupid-simple/jpf/database"
)

func historyCommand(ctx context.Context, args Command, out io.Writer, logger zerolog.Logger) error {
	db, err := openExistingDatabase(args.History.Database, logger, false)
	if err != nil {
		return err
	}
	registry, err := packageRegistry(ctx, db, args.History.Output)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "BUILD\tCREATED\tASSETS\tSIZE\tFINGERPRINT\tCONTENT")
	for b := range registry.Builds(ctx, args.History.Limit) {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\t%016x\n",
			b.ID,
			b.CreatedAt.Local().Format(time.RFC3339),
			b.Included,
			b.Requested,
			units.HumanSize(float64(b.Size)),
			b.Fingerprint,
			b.ContentHash,
		)
	}
	return ctx.Err()
}

func lookupCommand(ctx context.Context, args Command, out io.Writer, logger zerolog.Logger) error {
	fp, err := parseFingerprint(args.Lookup.Fingerprint)
	if err != nil {
		return err
	}

	db, err := openExistingDatabase(args.Lookup.Database, logger, false)
	if err != nil {
		return err
	}

	matches, err := db.LookupFingerprint(ctx, fp)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("fingerprint %016x is not recorded in any build", fp)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "NAME\tPATH\tPACKAGE\tBUILD")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.Path, m.PackagePath, m.BuildID)
	}
	return nil
}

func pruneCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Prune.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	db, err := openExistingDatabase(args.Prune.Database, logger, args.Prune.DryRun)
	if err != nil {
		return err
	}
	registry, err := packageRegistry(ctx, db, args.Prune.Output)
	if err != nil {
		return err
	}

	_, err = registry.Prune(ctx, args.Prune.Keep)
	return err
}

// packageRegistry returns the registry of an output path, keyed the way pack
// records it.
func packageRegistry(ctx context.Context, db *database.Database, output string) (*database.PackageRegistry, error) {
	abs, err := filepath.Abs(output)
	if err != nil {
		return nil, fmt.Errorf("invalid output path %s: %w", output, err)
	}
	return db.GetPackage(ctx, abs)
}

// parseFingerprint reads a fingerprint as printed by list, with or without a
// 0x prefix.
func parseFingerprint(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	fp, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	return fp, nil
}
