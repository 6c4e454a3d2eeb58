package jpf

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/stupid-simple/jpf/asset"
)

var (
	ErrInvalidMagic = errors.New("invalid JPF magic")
	// ErrTruncated is returned when the input ends inside a record.
	ErrTruncated = errors.New("truncated JPF record")
)

// Reader decodes records sequentially.
type Reader struct {
	r         *bufio.Reader
	offset    int64
	magicRead bool
	err       error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Offset of the next record from the start of the container.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next returns the next record. It returns io.EOF when the input ends exactly
// after a record, ErrTruncated when it ends inside one.
func (r *Reader) Next() (Record, error) {
	if r.err != nil {
		return Record{}, r.err
	}
	rec, err := r.next()
	if err != nil {
		r.err = err
	}
	return rec, err
}

func (r *Reader) next() (Record, error) {
	if !r.magicRead {
		if err := r.readMagic(); err != nil {
			return Record{}, err
		}
	}

	var header [RecordHeaderSize]byte
	n, err := io.ReadFull(r.r, header[:])
	if errors.Is(err, io.EOF) {
		return Record{}, io.EOF
	}
	if err != nil {
		return Record{}, r.truncated(err, "header", int64(n), RecordHeaderSize)
	}

	rec := Record{
		Fingerprint: binary.LittleEndian.Uint64(header[0:8]),
		Kind:        asset.Kind(header[8]),
	}
	size := int64(binary.LittleEndian.Uint32(header[9:13]))

	// Grow with the data actually present, a corrupt size field must not
	// allocate 4 GiB up front.
	var payload bytes.Buffer
	copied, err := io.CopyN(&payload, r.r, size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, r.truncated(err, "payload", copied, size)
	}
	rec.Payload = payload.Bytes()

	r.offset += int64(rec.Len())
	return rec, nil
}

func (r *Reader) readMagic() error {
	var magic [len(Magic)]byte
	if _, err := io.ReadFull(r.r, magic[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrInvalidMagic
		}
		return err
	}
	if string(magic[:]) != Magic {
		return fmt.Errorf("%w: got %q", ErrInvalidMagic, magic[:])
	}
	r.magicRead = true
	r.offset = int64(len(Magic))
	return nil
}

func (r *Reader) truncated(err error, part string, got, want int64) error {
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	return fmt.Errorf("%w: record at offset %d: %s has %d of %d bytes: %w",
		ErrTruncated, r.offset, part, got, want, err)
}

// Decode decodes a whole container held in memory.
func Decode(data []byte) ([]Record, error) {
	r := NewReader(bytes.NewReader(data))
	var records []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
