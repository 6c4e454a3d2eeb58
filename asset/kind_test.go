package asset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stupid-simple/jpf/asset"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path     string
		expected asset.Kind
	}{
		{"image.png", asset.KindPNG},
		{"photo.JPG", asset.KindJPG},
		{"model.obj", asset.KindOBJ},
		{"notes.txt", asset.KindTXT},
		{"dir/shader.hlsl", asset.KindHLSL},
		{"basic.vert", asset.KindVERT},
		{"basic.frag", asset.KindFRAG},
		{"basic.vertc", asset.KindVERTC},
		{"basic.fragc", asset.KindFRAGC},
		{"effect.fx", asset.KindFX},
		{"effect.FXC", asset.KindFXC},
		{"photo.jpeg", asset.KindUnknown},
		{"archive.tar.gz", asset.KindUnknown},
		{"Makefile", asset.KindUnknown},
		{".png", asset.KindPNG},
		{"", asset.KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, asset.Classify(tc.path))
		})
	}
}

func TestClassifyExt_Total(t *testing.T) {
	exts := []string{"", ".", ".png", ".PnG", ".unknown", "png", ".ünï", "\x00", ".fx.fxc"}
	for _, ext := range exts {
		k := asset.ClassifyExt(ext)
		assert.True(t, k.Known() || k == asset.KindUnknown, "extension %q gave %d", ext, k)
	}
}

func TestKind_Ordinals(t *testing.T) {
	// Readers decode by number, these must never move.
	assert.Equal(t, byte(0), byte(asset.KindPNG))
	assert.Equal(t, byte(3), byte(asset.KindTXT))
	assert.Equal(t, byte(10), byte(asset.KindFXC))
	assert.Equal(t, byte(255), byte(asset.KindUnknown))
}

func TestKind_Extension(t *testing.T) {
	assert.Equal(t, ".vertc", asset.KindVERTC.Extension())
	assert.Equal(t, ".bin", asset.KindUnknown.Extension())
	assert.Equal(t, ".bin", asset.Kind(42).Extension())
	assert.Equal(t, "unknown", asset.Kind(42).String())
	assert.False(t, asset.KindUnknown.Known())
}
