package asset

import (
	"path/filepath"
	"strings"
)

// Kind is the one byte type tag stored in every record.
// Ordinals are part of the file format and must never be reassigned.
type Kind byte

const (
	KindPNG Kind = iota
	KindJPG
	KindOBJ
	KindTXT
	KindHLSL  // DirectX shader source
	KindVERT  // vertex shader source
	KindFRAG  // fragment shader source
	KindVERTC // compiled vertex shader
	KindFRAGC // compiled fragment shader
	KindFX    // effect source
	KindFXC   // compiled effect

	// New kinds go before KindUnknown, which stays at the top of the byte range.
	KindUnknown Kind = 255
)

var kindByExt = map[string]Kind{
	".png":   KindPNG,
	".jpg":   KindJPG,
	".obj":   KindOBJ,
	".txt":   KindTXT,
	".hlsl":  KindHLSL,
	".vert":  KindVERT,
	".frag":  KindFRAG,
	".vertc": KindVERTC,
	".fragc": KindFRAGC,
	".fx":    KindFX,
	".fxc":   KindFXC,
}

var kindNames = map[Kind]string{
	KindPNG:     "png",
	KindJPG:     "jpg",
	KindOBJ:     "obj",
	KindTXT:     "txt",
	KindHLSL:    "hlsl",
	KindVERT:    "vert",
	KindFRAG:    "frag",
	KindVERTC:   "vertc",
	KindFRAGC:   "fragc",
	KindFX:      "fx",
	KindFXC:     "fxc",
	KindUnknown: "unknown",
}

// Classify returns the kind for the extension of path. It never fails,
// unrecognized extensions are KindUnknown.
func Classify(path string) Kind {
	return ClassifyExt(filepath.Ext(path))
}

// ClassifyExt maps an extension, with its leading dot, to a kind.
func ClassifyExt(ext string) Kind {
	k, ok := kindByExt[strings.ToLower(ext)]
	if !ok {
		return KindUnknown
	}
	return k
}

// Known reports whether k is one of the defined kinds.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok && k != KindUnknown
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Extension returns the file extension used when writing a payload of this
// kind back to disk.
func (k Kind) Extension() string {
	if !k.Known() {
		return ".bin"
	}
	return "." + kindNames[k]
}
