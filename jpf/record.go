// Package jpf encodes and decodes JPF asset containers.
//
// A container is the 3 byte magic "JPF" followed by zero or more records:
//
//	[8 bytes name fingerprint LE][1 byte kind][4 bytes payload size LE][payload]
//
// There is no index, version, checksum or terminator. Records can only be found
// by scanning from the front.
package jpf

import (
	"encoding/binary"

	"github.com/stupid-simple/jpf/asset"
	"github.com/stupid-simple/jpf/fingerprint"
)

const (
	Magic = "JPF"

	fingerprintSize = 8
	kindSize        = 1
	sizeFieldSize   = 4

	// RecordHeaderSize is the fixed part of every record.
	RecordHeaderSize = fingerprintSize + kindSize + sizeFieldSize
)

type Record struct {
	Fingerprint uint64
	Kind        asset.Kind
	Payload     []byte
}

// Len is the encoded length of the record.
func (r Record) Len() int {
	return RecordHeaderSize + len(r.Payload)
}

// AppendMagic appends the container header to dst.
func AppendMagic(dst []byte) []byte {
	return append(dst, Magic...)
}

// AppendRecord appends the encoded record to dst. Payloads must be smaller than
// 4 GiB, the size field cannot describe more.
func AppendRecord(dst []byte, r Record) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, r.Fingerprint)
	dst = append(dst, byte(r.Kind))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Payload)))
	return append(dst, r.Payload...)
}

// RecordFor builds the record of a loaded asset.
func RecordFor(a *asset.Asset, fp fingerprint.Func) Record {
	return Record{
		Fingerprint: fp(a.Name()),
		Kind:        a.Kind(),
		Payload:     a.Bytes(),
	}
}

// EncodeRecord returns the encoded record of a loaded asset.
func EncodeRecord(a *asset.Asset, fp fingerprint.Func) []byte {
	r := RecordFor(a, fp)
	return AppendRecord(make([]byte, 0, r.Len()), r)
}
