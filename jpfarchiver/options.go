package jpfarchiver

import (
	"context"

	"github.com/stupid-simple/jpf/asset"
	"github.com/stupid-simple/jpf/fingerprint"
)

type BuildOption func(o *buildOptions)

type buildOptions struct {
	fingerprint   fingerprint.Algorithm
	concurrency   int
	loader        asset.Loader
	registerBuild RegisterBuild
	skipUnchanged LatestBuild
}

func WithFingerprint(algorithm fingerprint.Algorithm) BuildOption {
	return func(o *buildOptions) {
		o.fingerprint = algorithm
	}
}

// Maximum number of files loaded at the same time.
func WithConcurrency(n int) BuildOption {
	return func(o *buildOptions) {
		o.concurrency = n
	}
}

func WithLoader(loader asset.Loader) BuildOption {
	return func(o *buildOptions) {
		o.loader = loader
	}
}

type RegisterBuild interface {
	Register(ctx context.Context, result *Result) error
}

// Record the compiled archive once it has been written.
func WithRegisterBuild(register RegisterBuild) BuildOption {
	return func(o *buildOptions) {
		o.registerBuild = register
	}
}

type LatestBuild interface {
	// LatestContentHash returns the content hash of the last registered build,
	// ok is false when nothing was built yet.
	LatestContentHash(ctx context.Context) (hash uint64, ok bool, err error)
}

// Don't write the archive when its content equals the latest registered build.
func WithSkipUnchanged(latest LatestBuild) BuildOption {
	return func(o *buildOptions) {
		o.skipUnchanged = latest
	}
}

type UnpackOption func(o *unpackOptions)

type unpackOptions struct {
	dryRun bool
	names  NameResolver
}

func WithUnpackDryRun(dryRun bool) UnpackOption {
	return func(o *unpackOptions) {
		o.dryRun = dryRun
	}
}

type NameResolver interface {
	// ResolveName returns the file name that produced the fingerprint.
	ResolveName(ctx context.Context, fingerprint uint64) (string, bool)
}

// Name unpacked files after the asset they came from when known.
func WithNameResolver(names NameResolver) UnpackOption {
	return func(o *unpackOptions) {
		o.names = names
	}
}
