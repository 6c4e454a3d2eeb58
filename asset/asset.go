package asset

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Asset is a fully loaded input file. Its bytes are never modified after
// creation.
type Asset struct {
	path  string
	bytes []byte
}

func New(path string, data []byte) *Asset {
	return &Asset{path: path, bytes: data}
}

// Path of the source file. Only used to derive the name and the extension.
func (a *Asset) Path() string {
	return a.path
}

// Name is the base name of the file, extension included.
func (a *Asset) Name() string {
	return filepath.Base(a.path)
}

// Ext is the lower-cased extension, leading dot included.
func (a *Asset) Ext() string {
	return strings.ToLower(filepath.Ext(a.path))
}

func (a *Asset) Kind() Kind {
	return ClassifyExt(a.Ext())
}

func (a *Asset) Bytes() []byte {
	return a.bytes
}

func (a *Asset) Size() int64 {
	return int64(len(a.bytes))
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (a *Asset) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", a.path)
	e.Str("name", a.Name())
	e.Stringer("kind", a.Kind())
	e.Int64("size", a.Size())
}
