package trace

import (
	"github.com/coral-mesh/tracecap/internal/sig"
	"github.com/coral-mesh/tracecap/internal/wire"
)

// BeginEnter opens the enter frame of a call and returns its sequence
// number. It acquires the session lock, which EndEnter releases; the
// two bracket one critical section. If no session is open, one is
// auto-opened on a derived path. The function's full description is
// written only the first time its id appears on the stream.
func (w *Writer) BeginEnter(fn *sig.Function) uint {
	w.mu.Lock()
	return w.beginEnterLocked(fn)
}

func (w *Writer) beginEnterLocked(fn *sig.Function) uint {
	if !w.enc.Attached() {
		if err := w.openAutoLocked(); err != nil {
			// Writes below degrade to no-ops; the trace is lost but
			// the traced program keeps running.
			w.log.Warn().Err(err).Msg("failed to open trace stream")
		}
	}

	w.enc.Tag(wire.EventEnter)
	w.enc.UVarint(uint64(fn.ID))
	if w.functions.describe(fn.ID) {
		w.enc.RawString(fn.Name)
		w.enc.UVarint(uint64(len(fn.Args)))
		for _, arg := range fn.Args {
			w.enc.RawString(arg)
		}
	}

	call := w.callNo
	w.callNo++
	return call
}

// EndEnter terminates the enter frame, flushes the compressed stream,
// and releases the session lock.
func (w *Writer) EndEnter() {
	w.endFrameLocked()
	w.mu.Unlock()
}

// BeginLeave opens the leave frame for a previously entered call. It
// acquires the session lock independently of the enter frame, so other
// calls' frames may appear between a call's enter and leave.
func (w *Writer) BeginLeave(call uint) {
	w.mu.Lock()
	w.beginLeaveLocked(call)
}

func (w *Writer) beginLeaveLocked(call uint) {
	w.enc.Tag(wire.EventLeave)
	w.enc.UVarint(uint64(call))
}

// EndLeave terminates the leave frame, flushes, and releases the
// session lock.
func (w *Writer) EndLeave() {
	w.endFrameLocked()
	w.mu.Unlock()
}

func (w *Writer) endFrameLocked() {
	w.enc.Tag(wire.CallEnd)
	if err := w.enc.Flush(); err != nil {
		w.log.Warn().Err(err).Msg("failed to flush trace stream")
	}
}

// BeginArg introduces the value of the index-th argument.
func (w *Writer) BeginArg(index uint) {
	w.enc.Tag(wire.CallArg)
	w.enc.UVarint(uint64(index))
}

// BeginReturn introduces the call's return value.
func (w *Writer) BeginReturn() {
	w.enc.Tag(wire.CallRet)
}

// BeginArray introduces an array value of the given length; the caller
// writes each element value in sequence.
func (w *Writer) BeginArray(length uint) {
	w.enc.Tag(wire.TypeArray)
	w.enc.UVarint(uint64(length))
}

// BeginStruct introduces a struct value, writing its definition on
// first use; the caller then writes each member value explicitly.
func (w *Writer) BeginStruct(s *sig.Struct) {
	w.enc.Tag(wire.TypeStruct)
	w.enc.UVarint(uint64(s.ID))
	if w.structs.describe(s.ID) {
		w.enc.RawString(s.Name)
		w.enc.UVarint(uint64(len(s.Members)))
		for _, m := range s.Members {
			w.enc.RawString(m)
		}
	}
}

// WriteEnum writes an enum value, with its name and integer value on
// first use of the id.
func (w *Writer) WriteEnum(e *sig.Enum) {
	w.enc.Tag(wire.TypeEnum)
	w.enc.UVarint(uint64(e.ID))
	if w.enums.describe(e.ID) {
		w.enc.RawString(e.Name)
		w.enc.WriteSInt(e.Value)
	}
}

// WriteBitmask writes a bitmask value, with the flag table on first use
// of the id. A zero-valued flag anywhere but the first position is
// conventionally suspect and logged, not rejected.
func (w *Writer) WriteBitmask(b *sig.Bitmask, value uint64) {
	w.enc.Tag(wire.TypeBitmask)
	w.enc.UVarint(uint64(b.ID))
	if w.bitmasks.describe(b.ID) {
		w.enc.UVarint(uint64(len(b.Flags)))
		for i, f := range b.Flags {
			if i != 0 && f.Value == 0 {
				w.log.Warn().
					Str("bitmask", b.Name).
					Str("flag", f.Name).
					Msg("zero-valued flag is not the first flag")
			}
			w.enc.RawString(f.Name)
			w.enc.UVarint(f.Value)
		}
	}
	w.enc.UVarint(value)
}

// WriteBool writes a boolean argument or return value.
func (w *Writer) WriteBool(v bool) { w.enc.WriteBool(v) }

// WriteSInt writes a signed integer value.
func (w *Writer) WriteSInt(v int64) { w.enc.WriteSInt(v) }

// WriteUInt writes an unsigned integer value.
func (w *Writer) WriteUInt(v uint64) { w.enc.WriteUInt(v) }

// WriteFloat writes a 32-bit float value.
func (w *Writer) WriteFloat(v float32) { w.enc.WriteFloat(v) }

// WriteDouble writes a 64-bit float value.
func (w *Writer) WriteDouble(v float64) { w.enc.WriteDouble(v) }

// WriteString writes a string value.
func (w *Writer) WriteString(s string) { w.enc.WriteString(s) }

// WriteStringBytes writes a string value from bytes; nil encodes as NULL.
func (w *Writer) WriteStringBytes(b []byte) { w.enc.WriteStringBytes(b) }

// WriteWString writes a wide string value as the fixed placeholder;
// nil encodes as NULL.
func (w *Writer) WriteWString(v []uint16) { w.enc.WriteWString(v) }

// WriteBlob writes a byte blob value; nil encodes as NULL.
func (w *Writer) WriteBlob(b []byte) { w.enc.WriteBlob(b) }

// WriteOpaque writes an address as a value; zero encodes as NULL.
func (w *Writer) WriteOpaque(addr uint64) { w.enc.WriteOpaque(addr) }

// WriteNull writes the NULL value.
func (w *Writer) WriteNull() { w.enc.WriteNull() }
