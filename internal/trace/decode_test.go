package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/tracecap/internal/wire"
)

// Test-only decoder for the trace stream, just enough to assert on the
// frames the writer produced. The real decoding side lives in a
// separate tool.

type tvalue struct {
	kind  byte
	num   uint64   // UInt, SInt magnitude, Opaque address, Bitmask value
	str   string   // String
	blob  []byte   // Blob, Float, Double raw payloads
	id    uint64   // Enum, Bitmask, Struct
	elems []tvalue // Array elements, Struct members
}

type tframe struct {
	event     byte // wire.EventEnter or wire.EventLeave
	fn        uint64
	described bool
	name      string
	argNames  []string
	callNo    uint64 // leave frames
	args      map[uint64]tvalue
	ret       *tvalue
}

type tdecoder struct {
	r       *bufio.Reader
	funcs   map[uint64]bool
	structs map[uint64]int
	enums   map[uint64]bool
	masks   map[uint64]bool
}

// decodeTrace parses the whole trace file at path and returns the
// format version and frames in stream order.
func decodeTrace(t *testing.T, path string) (uint64, []tframe) {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	zr, err := gzip.NewReader(f)
	require.NoError(t, err)

	d := &tdecoder{
		r:       bufio.NewReader(zr),
		funcs:   make(map[uint64]bool),
		structs: make(map[uint64]int),
		enums:   make(map[uint64]bool),
		masks:   make(map[uint64]bool),
	}

	version, err := binary.ReadUvarint(d.r)
	require.NoError(t, err, "version header")

	var frames []tframe
	for {
		ev, err := d.r.ReadByte()
		if err == io.EOF {
			return version, frames
		}
		require.NoError(t, err)

		fr, err := d.frame(ev)
		require.NoError(t, err)
		frames = append(frames, *fr)
	}
}

func (d *tdecoder) frame(ev byte) (*tframe, error) {
	fr := &tframe{event: ev, args: make(map[uint64]tvalue)}

	switch ev {
	case wire.EventEnter:
		id, err := binary.ReadUvarint(d.r)
		if err != nil {
			return nil, err
		}
		fr.fn = id
		if !d.funcs[id] {
			d.funcs[id] = true
			fr.described = true
			if fr.name, err = d.str(); err != nil {
				return nil, err
			}
			nargs, err := binary.ReadUvarint(d.r)
			if err != nil {
				return nil, err
			}
			for i := uint64(0); i < nargs; i++ {
				arg, err := d.str()
				if err != nil {
					return nil, err
				}
				fr.argNames = append(fr.argNames, arg)
			}
		}
	case wire.EventLeave:
		no, err := binary.ReadUvarint(d.r)
		if err != nil {
			return nil, err
		}
		fr.callNo = no
	default:
		return nil, fmt.Errorf("unknown event tag %#x", ev)
	}

	for {
		detail, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch detail {
		case wire.CallEnd:
			return fr, nil
		case wire.CallArg:
			idx, err := binary.ReadUvarint(d.r)
			if err != nil {
				return nil, err
			}
			v, err := d.value()
			if err != nil {
				return nil, err
			}
			fr.args[idx] = v
		case wire.CallRet:
			v, err := d.value()
			if err != nil {
				return nil, err
			}
			fr.ret = &v
		default:
			return nil, fmt.Errorf("unknown call detail %#x", detail)
		}
	}
}

func (d *tdecoder) value() (tvalue, error) {
	tag, err := d.r.ReadByte()
	if err != nil {
		return tvalue{}, err
	}
	v := tvalue{kind: tag}

	switch tag {
	case wire.TypeNull, wire.TypeFalse, wire.TypeTrue:
		return v, nil

	case wire.TypeSInt, wire.TypeUInt, wire.TypeOpaque:
		v.num, err = binary.ReadUvarint(d.r)
		return v, err

	case wire.TypeFloat:
		v.blob = make([]byte, 4)
		_, err = io.ReadFull(d.r, v.blob)
		return v, err

	case wire.TypeDouble:
		v.blob = make([]byte, 8)
		_, err = io.ReadFull(d.r, v.blob)
		return v, err

	case wire.TypeString:
		v.str, err = d.str()
		return v, err

	case wire.TypeBlob:
		n, err := binary.ReadUvarint(d.r)
		if err != nil {
			return v, err
		}
		v.blob = make([]byte, n)
		_, err = io.ReadFull(d.r, v.blob)
		return v, err

	case wire.TypeEnum:
		if v.id, err = binary.ReadUvarint(d.r); err != nil {
			return v, err
		}
		if !d.enums[v.id] {
			d.enums[v.id] = true
			if v.str, err = d.str(); err != nil {
				return v, err
			}
			val, err := d.value() // the enum's integer, itself tagged
			if err != nil {
				return v, err
			}
			v.elems = []tvalue{val}
		}
		return v, nil

	case wire.TypeBitmask:
		if v.id, err = binary.ReadUvarint(d.r); err != nil {
			return v, err
		}
		if !d.masks[v.id] {
			d.masks[v.id] = true
			nflags, err := binary.ReadUvarint(d.r)
			if err != nil {
				return v, err
			}
			for i := uint64(0); i < nflags; i++ {
				if _, err = d.str(); err != nil {
					return v, err
				}
				if _, err = binary.ReadUvarint(d.r); err != nil {
					return v, err
				}
			}
		}
		v.num, err = binary.ReadUvarint(d.r)
		return v, err

	case wire.TypeArray:
		n, err := binary.ReadUvarint(d.r)
		if err != nil {
			return v, err
		}
		for i := uint64(0); i < n; i++ {
			el, err := d.value()
			if err != nil {
				return v, err
			}
			v.elems = append(v.elems, el)
		}
		return v, nil

	case wire.TypeStruct:
		if v.id, err = binary.ReadUvarint(d.r); err != nil {
			return v, err
		}
		if _, seen := d.structs[v.id]; !seen {
			if v.str, err = d.str(); err != nil {
				return v, err
			}
			n, err := binary.ReadUvarint(d.r)
			if err != nil {
				return v, err
			}
			for i := uint64(0); i < n; i++ {
				if _, err = d.str(); err != nil {
					return v, err
				}
			}
			d.structs[v.id] = int(n)
		}
		for i := 0; i < d.structs[v.id]; i++ {
			el, err := d.value()
			if err != nil {
				return v, err
			}
			v.elems = append(v.elems, el)
		}
		return v, nil

	default:
		return v, fmt.Errorf("unknown value tag %#x", tag)
	}
}

func (d *tdecoder) str() (string, error) {
	n, err := binary.ReadUvarint(d.r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
