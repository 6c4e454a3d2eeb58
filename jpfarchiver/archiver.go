package jpfarchiver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stupid-simple/jpf/asset"
	"github.com/stupid-simple/jpf/fingerprint"
	"github.com/stupid-simple/jpf/jpf"
	"github.com/stupid-simple/jpf/jpfarchiver/jpfwriter"
)

var errNoAsset = errors.New("loader returned no asset")

// Entry describes one record written to an archive.
type Entry struct {
	Position    int // Position of the record in the archive.
	Path        string
	Name        string
	Fingerprint uint64
	Kind        asset.Kind
	Size        int64
	ContentHash uint64 // xxHash64 of the payload.
}

func (e Entry) MarshalZerologObject(ev *zerolog.Event) {
	ev.Int("position", e.Position)
	ev.Str("path", e.Path)
	ev.Str("fingerprint", fmt.Sprintf("%016x", e.Fingerprint))
	ev.Stringer("kind", e.Kind)
	ev.Int64("size", e.Size)
}

// Failure is an input that could not be loaded and was left out.
type Failure struct {
	Path string
	Err  error
}

type Result struct {
	Data        []byte
	Requested   int
	Included    int
	Fingerprint fingerprint.Algorithm
	Entries     []Entry
	Failures    []Failure
	// Set by Compile when the archive matched the latest build and was not written.
	Unchanged bool
}

// ContentHash identifies the archive content.
func (r *Result) ContentHash() uint64 {
	return xxhash.Sum64(r.Data)
}

func newBuildOptions(opts []BuildOption) buildOptions {
	o := buildOptions{
		fingerprint: fingerprint.Default,
		concurrency: runtime.NumCPU(),
	}
	for _, applyOpts := range opts {
		applyOpts(&o)
	}
	if o.concurrency <= 0 {
		o.concurrency = runtime.NumCPU()
	}
	if o.loader == nil {
		o.loader = asset.NewOSLoader()
	}
	return o
}

// Build loads every path and packs the loaded assets, in the order of paths,
// behind the JPF magic. Paths that cannot be loaded are skipped and reported in
// Result.Failures. The only error is a cancelled context.
func Build(ctx context.Context, paths []string, logger zerolog.Logger, opts ...BuildOption) (*Result, error) {
	o := newBuildOptions(opts)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	logger.Debug().
		Int("requested", len(paths)).
		Int("concurrency", o.concurrency).
		Stringer("fingerprint", o.fingerprint).
		Msg("loading assets")

	loaded := loadAssets(ctx, paths, o.loader, o.concurrency)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := len(jpf.Magic)
	for _, l := range loaded {
		if l.err == nil {
			size += jpf.RecordHeaderSize + len(l.asset.Bytes())
		}
	}

	fp := o.fingerprint.Func()
	result := &Result{
		Requested:   len(paths),
		Fingerprint: o.fingerprint,
	}
	data := jpf.AppendMagic(make([]byte, 0, size))
	for i, l := range loaded {
		if l.err != nil {
			logger.Warn().Err(l.err).Str("path", paths[i]).Msg("could not load asset. Will be skipped")
			result.Failures = append(result.Failures, Failure{Path: paths[i], Err: l.err})
			continue
		}

		rec := jpf.RecordFor(l.asset, fp)
		data = jpf.AppendRecord(data, rec)

		entry := Entry{
			Position:    len(result.Entries),
			Path:        l.asset.Path(),
			Name:        l.asset.Name(),
			Fingerprint: rec.Fingerprint,
			Kind:        rec.Kind,
			Size:        l.asset.Size(),
			ContentHash: xxhash.Sum64(l.asset.Bytes()),
		}
		result.Entries = append(result.Entries, entry)
		logger.Debug().Object("entry", entry).Msg("packed asset")
	}
	result.Data = data
	result.Included = len(result.Entries)

	logger.Debug().
		Int("included", result.Included).
		Int("requested", result.Requested).
		Int("bytes", len(data)).
		Float64("seconds", time.Since(startTime).Seconds()).
		Msg("built archive")

	return result, nil
}

type loadResult struct {
	asset *asset.Asset
	err   error
}

// loadAssets loads all paths concurrently. results[i] always belongs to
// paths[i], whatever order the loads complete in.
func loadAssets(ctx context.Context, paths []string, loader asset.Loader, concurrency int) []loadResult {
	results := make([]loadResult, len(paths))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			a, err := loader.Load(ctx, path)
			if err == nil && a == nil {
				err = errNoAsset
			}
			results[i] = loadResult{asset: a, err: err}
			// Never fail the group, other loads must go on.
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Compile builds the archive and writes it to sink. A sink failure is
// returned, load failures are only reported in the result.
func Compile(
	ctx context.Context,
	paths []string,
	sink jpfwriter.Sink,
	logger zerolog.Logger,
	opts ...BuildOption,
) (*Result, error) {
	o := newBuildOptions(opts)

	logger = logger.With().Str("dest", sink.Path()).Logger()
	startTime := time.Now()
	logger.Info().Int("requested", len(paths)).Msg("compiling archive")

	result, err := Build(ctx, paths, logger, opts...)
	if err != nil {
		return nil, err
	}

	if o.skipUnchanged != nil {
		latest, ok, err := o.skipUnchanged.LatestContentHash(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("could not read latest build, writing archive anyway")
		} else if ok && latest == result.ContentHash() {
			if storedMatches(sink, latest) {
				result.Unchanged = true
				logger.Info().
					Int("included", result.Included).
					Msg("archive unchanged since last build, skipping write")
				return result, nil
			}
			logger.Info().Msg("archive missing or modified at destination, writing it again")
		}
	}

	if err := sink.Write(result.Data); err != nil {
		return nil, fmt.Errorf("could not write archive %s: %w", sink.Path(), err)
	}

	logger.Info().
		Int("included", result.Included).
		Int("requested", result.Requested).
		Int("bytes", len(result.Data)).
		Float64("seconds", time.Since(startTime).Seconds()).
		Msgf("compiled %d/%d assets into 1 JPF", result.Included, result.Requested)

	if o.registerBuild != nil {
		if err := o.registerBuild.Register(ctx, result); err != nil {
			logger.Error().Err(err).Msg("could not register build")
		}
	}

	return result, nil
}

// storedMatches reports whether the sink still holds the archive with the
// given content hash. A deleted or replaced archive must be written again.
func storedMatches(sink jpfwriter.Sink, hash uint64) bool {
	stored, ok := sink.StoredHash()
	return ok && stored == hash
}
