package jpfarchiver_test

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stupid-simple/jpf/asset"
	"github.com/stupid-simple/jpf/fingerprint"
	"github.com/stupid-simple/jpf/jpf"
	"github.com/stupid-simple/jpf/jpfarchiver"
	"github.com/stupid-simple/jpf/jpfarchiver/jpfwriter"
)

// Helper to create a memory file system holding the given files.
func newMemFS(t *testing.T, files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0644))
	}
	return fs
}

// delayedLoader waits a random time before loading, so loads complete out of
// order.
type delayedLoader struct {
	inner    asset.Loader
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (d *delayedLoader) Load(ctx context.Context, path string) (*asset.Asset, error) {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		seen := d.maxSeen.Load()
		if n <= seen || d.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(time.Duration(rand.IntN(20)) * time.Millisecond)
	return d.inner.Load(ctx, path)
}

// MockSink implements jpfwriter.Sink
type MockSink struct {
	mock.Mock
	stored    uint64
	hasStored bool
}

func (m *MockSink) Path() string {
	return "mock.jpf"
}

func (m *MockSink) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockSink) StoredHash() (uint64, bool) {
	return m.stored, m.hasStored
}

// MockRegistry implements jpfarchiver.RegisterBuild and jpfarchiver.LatestBuild
type MockRegistry struct {
	registered []*jpfarchiver.Result
	latest     uint64
	hasLatest  bool
	latestErr  error
}

func (m *MockRegistry) Register(ctx context.Context, result *jpfarchiver.Result) error {
	m.registered = append(m.registered, result)
	return nil
}

func (m *MockRegistry) LatestContentHash(ctx context.Context) (uint64, bool, error) {
	return m.latest, m.hasLatest, m.latestErr
}

func TestBuild_SingleTextAsset(t *testing.T) {
	fs := newMemFS(t, map[string]string{"/in/notes.txt": "hello"})
	logger := zerolog.New(zerolog.NewTestWriter(t))

	result, err := jpfarchiver.Build(context.Background(), []string{"/in/notes.txt"}, logger,
		jpfarchiver.WithLoader(asset.NewFSLoader(fs)))
	require.NoError(t, err)

	data := result.Data
	require.Len(t, data, 21)
	assert.Equal(t, "JPF", string(data[0:3]))
	assert.Equal(t, fingerprint.Default.Sum("notes.txt"), binary.LittleEndian.Uint64(data[3:11]))
	assert.Equal(t, []byte{0x10, 0x6f, 0x99, 0xc2, 0x43, 0x5e, 0x91, 0x97}, data[3:11])
	assert.Equal(t, byte(asset.KindTXT), data[11])
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(data[12:16]))
	assert.Equal(t, "hello", string(data[16:21]))

	assert.Equal(t, 1, result.Included)
	assert.Equal(t, 1, result.Requested)
	assert.Empty(t, result.Failures)
}

func TestBuild_EmptySelection(t *testing.T) {
	for _, paths := range [][]string{nil, {}} {
		result, err := jpfarchiver.Build(context.Background(), paths, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, []byte("JPF"), result.Data)
		assert.Zero(t, result.Included)
		assert.Zero(t, result.Requested)
	}
}

func TestBuild_MagicAlwaysFirst(t *testing.T) {
	fs := newMemFS(t, map[string]string{"/a.png": "png"})

	selections := [][]string{
		{"/a.png"},
		{"/missing.png"},
		{"/missing.png", "/a.png"},
	}
	for _, paths := range selections {
		result, err := jpfarchiver.Build(context.Background(), paths, zerolog.Nop(),
			jpfarchiver.WithLoader(asset.NewFSLoader(fs)))
		require.NoError(t, err)
		assert.Equal(t, "JPF", string(result.Data[:3]))
	}
}

func TestBuild_OrderPreserved(t *testing.T) {
	files := map[string]string{}
	paths := []string{}
	for _, name := range []string{"a.png", "b.obj", "c.txt", "d.vert", "e.frag", "f.fx", "g.hlsl", "h.bin"} {
		path := filepath.Join("/assets", name)
		files[path] = "content of " + name
		paths = append(paths, path)
	}
	fs := newMemFS(t, files)

	for range 5 {
		loader := &delayedLoader{inner: asset.NewFSLoader(fs)}
		result, err := jpfarchiver.Build(context.Background(), paths, zerolog.Nop(),
			jpfarchiver.WithLoader(loader),
			jpfarchiver.WithConcurrency(len(paths)))
		require.NoError(t, err)

		records, err := jpf.Decode(result.Data)
		require.NoError(t, err)
		require.Len(t, records, len(paths))
		for i, rec := range records {
			name := filepath.Base(paths[i])
			assert.Equal(t, fingerprint.Default.Sum(name), rec.Fingerprint, "record %d", i)
			assert.Equal(t, "content of "+name, string(rec.Payload))
			assert.Equal(t, i, result.Entries[i].Position)
			assert.Equal(t, paths[i], result.Entries[i].Path)
		}
		assert.Greater(t, loader.maxSeen.Load(), int32(1), "loads should overlap")
	}
}

func TestBuild_ConcurrencyLimit(t *testing.T) {
	files := map[string]string{}
	paths := []string{}
	for _, name := range []string{"1.txt", "2.txt", "3.txt", "4.txt", "5.txt", "6.txt"} {
		files["/"+name] = name
		paths = append(paths, "/"+name)
	}
	loader := &delayedLoader{inner: asset.NewFSLoader(newMemFS(t, files))}

	_, err := jpfarchiver.Build(context.Background(), paths, zerolog.Nop(),
		jpfarchiver.WithLoader(loader),
		jpfarchiver.WithConcurrency(2))
	require.NoError(t, err)

	assert.LessOrEqual(t, loader.maxSeen.Load(), int32(2))
}

func TestBuild_SkipOnFailure(t *testing.T) {
	fs := newMemFS(t, map[string]string{
		"/a.txt": "AAA",
		"/c.png": "CCCCC",
	})
	logger := zerolog.New(zerolog.NewTestWriter(t))

	result, err := jpfarchiver.Build(context.Background(), []string{"/a.txt", "/b.obj", "/c.png"}, logger,
		jpfarchiver.WithLoader(asset.NewFSLoader(fs)),
		jpfarchiver.WithFingerprint(fingerprint.XXH64))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Included)
	assert.Equal(t, 3, result.Requested)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "/b.obj", result.Failures[0].Path)
	assert.True(t, errors.Is(result.Failures[0].Err, os.ErrNotExist))

	records, err := jpf.Decode(result.Data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, fingerprint.XXH64.Sum("a.txt"), records[0].Fingerprint)
	assert.Equal(t, asset.KindTXT, records[0].Kind)
	assert.Equal(t, fingerprint.XXH64.Sum("c.png"), records[1].Fingerprint)
	assert.Equal(t, asset.KindPNG, records[1].Kind)
	assert.Equal(t, len(result.Data), 3+13+3+13+5)
}

func TestBuild_NilAssetIsFailure(t *testing.T) {
	result, err := jpfarchiver.Build(context.Background(), []string{"/x.txt"}, zerolog.Nop(),
		jpfarchiver.WithLoader(nilLoader{}))
	require.NoError(t, err)
	assert.Zero(t, result.Included)
	assert.Len(t, result.Failures, 1)
}

type nilLoader struct{}

func (nilLoader) Load(context.Context, string) (*asset.Asset, error) {
	return nil, nil
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := jpfarchiver.Build(ctx, []string{"/a.txt"}, zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestCompile_WritesToSink(t *testing.T) {
	fs := newMemFS(t, map[string]string{"/a.txt": "AAA", "/b.png": "BB"})
	registry := &MockRegistry{}

	sink := new(MockSink)
	sink.On("Write", mock.Anything).Return(nil)

	result, err := jpfarchiver.Compile(context.Background(), []string{"/a.txt", "/b.png"}, sink, zerolog.Nop(),
		jpfarchiver.WithLoader(asset.NewFSLoader(fs)),
		jpfarchiver.WithRegisterBuild(registry))
	require.NoError(t, err)

	sink.AssertCalled(t, "Write", result.Data)
	sink.AssertNumberOfCalls(t, "Write", 1)
	require.Len(t, registry.registered, 1)
	assert.Same(t, result, registry.registered[0])
	assert.False(t, result.Unchanged)
}

func TestCompile_SinkFailure(t *testing.T) {
	fs := newMemFS(t, map[string]string{"/a.txt": "AAA"})
	registry := &MockRegistry{}

	sink := new(MockSink)
	sink.On("Write", mock.Anything).Return(errors.New("disk full"))

	result, err := jpfarchiver.Compile(context.Background(), []string{"/a.txt"}, sink, zerolog.Nop(),
		jpfarchiver.WithLoader(asset.NewFSLoader(fs)),
		jpfarchiver.WithRegisterBuild(registry))
	assert.ErrorContains(t, err, "disk full")
	assert.Nil(t, result)
	assert.Empty(t, registry.registered, "failed builds must not be registered")
}

func TestCompile_SkipUnchanged(t *testing.T) {
	fs := newMemFS(t, map[string]string{"/a.txt": "AAA"})
	loader := asset.NewFSLoader(fs)

	first, err := jpfarchiver.Build(context.Background(), []string{"/a.txt"}, zerolog.Nop(),
		jpfarchiver.WithLoader(loader))
	require.NoError(t, err)

	registry := &MockRegistry{latest: first.ContentHash(), hasLatest: true}
	sink := &MockSink{stored: first.ContentHash(), hasStored: true}

	result, err := jpfarchiver.Compile(context.Background(), []string{"/a.txt"}, sink, zerolog.Nop(),
		jpfarchiver.WithLoader(loader),
		jpfarchiver.WithSkipUnchanged(registry),
		jpfarchiver.WithRegisterBuild(registry))
	require.NoError(t, err)
	assert.True(t, result.Unchanged)
	sink.AssertNotCalled(t, "Write", mock.Anything)
	assert.Empty(t, registry.registered)

	// Content changed, the archive is written again.
	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("AAAA"), 0644))
	sink.On("Write", mock.Anything).Return(nil)

	result, err = jpfarchiver.Compile(context.Background(), []string{"/a.txt"}, sink, zerolog.Nop(),
		jpfarchiver.WithLoader(loader),
		jpfarchiver.WithSkipUnchanged(registry),
		jpfarchiver.WithRegisterBuild(registry))
	require.NoError(t, err)
	assert.False(t, result.Unchanged)
	sink.AssertNumberOfCalls(t, "Write", 1)
	assert.Len(t, registry.registered, 1)
}

func TestCompile_SkipUnchangedRewritesMissingArchive(t *testing.T) {
	fs := newMemFS(t, map[string]string{"/a.txt": "AAA"})
	loader := asset.NewFSLoader(fs)

	first, err := jpfarchiver.Build(context.Background(), []string{"/a.txt"}, zerolog.Nop(),
		jpfarchiver.WithLoader(loader))
	require.NoError(t, err)

	tests := []struct {
		name      string
		stored    uint64
		hasStored bool
	}{
		{name: "deleted", hasStored: false},
		{name: "replaced", stored: first.ContentHash() + 1, hasStored: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			registry := &MockRegistry{latest: first.ContentHash(), hasLatest: true}
			sink := &MockSink{stored: tc.stored, hasStored: tc.hasStored}
			sink.On("Write", first.Data).Return(nil)

			result, err := jpfarchiver.Compile(context.Background(), []string{"/a.txt"}, sink, zerolog.Nop(),
				jpfarchiver.WithLoader(loader),
				jpfarchiver.WithSkipUnchanged(registry))
			require.NoError(t, err)
			assert.False(t, result.Unchanged)
			sink.AssertNumberOfCalls(t, "Write", 1)
		})
	}
}

func TestCompile_FileSink(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "tex.png"), []byte("png-bytes"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "mesh.obj"), []byte("v 0 0 0"), 0600))

	out := filepath.Join(destDir, "assets.jpf")
	result, err := jpfarchiver.Compile(context.Background(),
		[]string{filepath.Join(srcDir, "tex.png"), filepath.Join(srcDir, "mesh.obj")},
		jpfwriter.NewFileSink(out, false),
		zerolog.New(io.Discard))
	require.NoError(t, err)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, result.Data, written)

	records, err := jpf.Decode(written)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, asset.KindPNG, records[0].Kind)
	assert.Equal(t, asset.KindOBJ, records[1].Kind)
}
