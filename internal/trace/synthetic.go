package trace

import (
	"github.com/coral-mesh/tracecap/internal/sig"
)

// UpdateRegion brings the trace's record of the memory at
// [addr, addr+size) up to date, emitting synthetic copy calls for only
// the byte ranges that actually changed since last observed. The whole
// operation is one critical section: the region registry is session
// state and the synthetic frames it emits must not interleave with
// other calls' frames.
func (w *Writer) UpdateRegion(addr, size uint64) {
	if addr == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.regions.Update(addr, size)
}

// synthEmitter adapts the writer for the region engine. Its methods run
// with the session lock already held, so they use the locked frame
// variants directly.
type synthEmitter struct {
	w *Writer
}

func (e synthEmitter) Malloc(size, base uint64) {
	w := e.w
	call := w.beginEnterLocked(sig.Malloc)
	w.BeginArg(0)
	w.WriteUInt(size)
	w.endFrameLocked()
	w.beginLeaveLocked(call)
	w.BeginReturn()
	w.WriteOpaque(base)
	w.endFrameLocked()
}

func (e synthEmitter) Memcpy(dest uint64, data []byte) {
	w := e.w
	call := w.beginEnterLocked(sig.Memcpy)
	w.BeginArg(0)
	w.WriteOpaque(dest)
	w.BeginArg(1)
	w.WriteBlob(data)
	w.BeginArg(2)
	w.WriteUInt(uint64(len(data)))
	w.endFrameLocked()
	w.beginLeaveLocked(call)
	w.endFrameLocked()
}
