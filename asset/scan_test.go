package asset_test

import (
	"context"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupid-simple/jpf/asset"
)

func newTestFS(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	for _, name := range []string{
		"/src/b.png",
		"/src/a.txt",
		"/src/sub/c.vert",
		"/other/z.fx",
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte("test content"), 0644))
	}
	return fs
}

func TestScanDirectory(t *testing.T) {
	fs := newTestFS(t)

	testCases := []struct {
		name     string
		dir      string
		setupCtx func() (context.Context, context.CancelFunc)
		expected []string
	}{
		{
			name: "lexical order",
			dir:  "/src",
			setupCtx: func() (context.Context, context.CancelFunc) {
				return context.Background(), func() {}
			},
			expected: []string{"/src/a.txt", "/src/b.png", "/src/sub/c.vert"},
		},
		{
			name: "cancelled context",
			dir:  "/src",
			setupCtx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			expected: nil,
		},
		{
			name: "non-existent directory",
			dir:  "/nonexistent",
			setupCtx: func() (context.Context, context.CancelFunc) {
				return context.Background(), func() {}
			},
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger := zerolog.New(zerolog.NewTestWriter(t))
			ctx, cancel := tc.setupCtx()
			defer cancel()

			seq, err := asset.ScanDirectory(ctx, fs, tc.dir, logger)
			require.NoError(t, err)

			assert.Equal(t, tc.expected, slices.Collect(seq))
		})
	}
}

func TestScanDirectory_StopEarly(t *testing.T) {
	fs := newTestFS(t)

	seq, err := asset.ScanDirectory(context.Background(), fs, "/src", zerolog.Nop())
	require.NoError(t, err)

	var got []string
	for path := range seq {
		got = append(got, path)
		break
	}
	assert.Equal(t, []string{"/src/a.txt"}, got)
}

func TestExpandInputs(t *testing.T) {
	fs := newTestFS(t)
	logger := zerolog.New(zerolog.NewTestWriter(t))

	paths, err := asset.ExpandInputs(context.Background(), fs, []string{
		"/other/z.fx",
		"/src",
		"/missing.obj",
	}, logger)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/other/z.fx",
		"/src/a.txt",
		"/src/b.png",
		"/src/sub/c.vert",
		"/missing.obj",
	}, paths)
}
