// Package wire implements the low-level binary encoding of the trace
// stream: base-128 varints, one-byte event and value tags, and
// length-prefixed strings and blobs, all written through a gzip
// compressed writer.
//
// The format is append-only and self-describing at a higher layer; this
// package only knows how to put primitive values on the wire. Multi-byte
// scalars other than varints (float/double payloads) are fixed
// little-endian, which is a compatibility constraint of the trace format
// rather than a platform assumption.
package wire

// Version is the trace format version, written as a varint at the head
// of every stream.
const Version = 1

// Event tags open a frame.
const (
	EventEnter byte = 0
	EventLeave byte = 1
)

// Call detail tags structure the inside of a frame.
const (
	CallEnd byte = 0
	CallArg byte = 1
	CallRet byte = 2
)

// Value type tags prefix every encoded value.
const (
	TypeNull byte = iota
	TypeFalse
	TypeTrue
	TypeSInt
	TypeUInt
	TypeFloat
	TypeDouble
	TypeString
	TypeBlob
	TypeEnum
	TypeBitmask
	TypeArray
	TypeStruct
	TypeOpaque
)

// WideStringPlaceholder is emitted in place of wide-character string
// content, which the format deliberately does not capture. Existing
// trace consumers rely on this exact literal.
const WideStringPlaceholder = "<wide-string>"
