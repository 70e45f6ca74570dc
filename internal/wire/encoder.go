package wire

import (
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/gzip"
)

// Encoder serializes primitive values into a compressed trace stream.
//
// Every write method is a silent no-op while no stream is attached, so
// callers never need to guard writes on session state. Write errors are
// sticky inside the gzip writer and surface on Flush, which runs at
// every frame boundary.
type Encoder struct {
	zw *gzip.Writer
}

// Attach points the encoder at a live compressed stream.
func (e *Encoder) Attach(zw *gzip.Writer) {
	e.zw = zw
}

// Detach disconnects the encoder; subsequent writes are dropped.
func (e *Encoder) Detach() {
	e.zw = nil
}

// Attached reports whether a stream is currently attached.
func (e *Encoder) Attached() bool {
	return e.zw != nil
}

// Flush forces buffered compressed bytes out to the underlying writer
// (a gzip sync flush), so a crash after Flush loses at most the frames
// written since.
func (e *Encoder) Flush() error {
	if e.zw == nil {
		return nil
	}
	return e.zw.Flush()
}

func (e *Encoder) write(p []byte) {
	if e.zw == nil {
		return
	}
	_, _ = e.zw.Write(p)
}

// Tag writes a single raw tag byte.
func (e *Encoder) Tag(t byte) {
	e.write([]byte{t})
}

// UVarint writes v as a base-128 varint: 7 data bits per byte, least
// significant group first, bit 7 set on every byte except the last.
// Zero encodes as the single byte 0x00.
func (e *Encoder) UVarint(v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	e.write(buf[:n])
}

// RawString writes a varint length prefix followed by the raw bytes of
// s, with no terminator and no type tag.
func (e *Encoder) RawString(s string) {
	e.UVarint(uint64(len(s)))
	e.write([]byte(s))
}

// WriteBool writes a boolean as its dedicated true/false tag.
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.Tag(TypeTrue)
	} else {
		e.Tag(TypeFalse)
	}
}

// WriteSInt writes a signed integer. The sign is carried by the tag
// choice rather than the encoding: negative values write TypeSInt
// followed by the varint of the magnitude, non-negative values write
// TypeUInt followed by the varint of the value.
func (e *Encoder) WriteSInt(v int64) {
	if v < 0 {
		e.Tag(TypeSInt)
		// Negating v+1 first keeps math.MinInt64 in range.
		e.UVarint(uint64(-(v + 1)) + 1)
	} else {
		e.Tag(TypeUInt)
		e.UVarint(uint64(v))
	}
}

// WriteUInt writes an unsigned integer value.
func (e *Encoder) WriteUInt(v uint64) {
	e.Tag(TypeUInt)
	e.UVarint(v)
}

// WriteFloat writes a 4-byte little-endian IEEE 754 float.
func (e *Encoder) WriteFloat(v float32) {
	e.Tag(TypeFloat)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	e.write(buf[:])
}

// WriteDouble writes an 8-byte little-endian IEEE 754 double.
func (e *Encoder) WriteDouble(v float64) {
	e.Tag(TypeDouble)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	e.write(buf[:])
}

// WriteString writes a length-prefixed string value.
func (e *Encoder) WriteString(s string) {
	e.Tag(TypeString)
	e.RawString(s)
}

// WriteStringBytes writes a string value from a byte slice, allowing
// embedded NULs and pre-sliced content. A nil slice encodes as NULL,
// never as an empty string.
func (e *Encoder) WriteStringBytes(b []byte) {
	if b == nil {
		e.WriteNull()
		return
	}
	e.Tag(TypeString)
	e.UVarint(uint64(len(b)))
	e.write(b)
}

// WriteWString writes a wide-character string value. The content is not
// captured; a fixed placeholder is written instead. A nil slice encodes
// as NULL.
func (e *Encoder) WriteWString(w []uint16) {
	if w == nil {
		e.WriteNull()
		return
	}
	e.WriteString(WideStringPlaceholder)
}

// WriteBlob writes a length-prefixed byte blob. A nil slice encodes as
// NULL; an empty non-nil slice writes the tag and a zero length.
func (e *Encoder) WriteBlob(b []byte) {
	if b == nil {
		e.WriteNull()
		return
	}
	e.Tag(TypeBlob)
	e.UVarint(uint64(len(b)))
	if len(b) > 0 {
		e.write(b)
	}
}

// WriteOpaque writes a pointer as a value: NULL for address zero, else
// the address itself as a varint. This is not a re-enterable reference
// to region content.
func (e *Encoder) WriteOpaque(addr uint64) {
	if addr == 0 {
		e.WriteNull()
		return
	}
	e.Tag(TypeOpaque)
	e.UVarint(addr)
}

// WriteNull writes the bare NULL tag.
func (e *Encoder) WriteNull() {
	e.Tag(TypeNull)
}
