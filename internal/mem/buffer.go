package mem

import (
	"fmt"
	"sync"
)

// bufferAlign spaces synthetic base addresses so distinct registrations
// never produce adjacent or overlapping extents.
const bufferAlign = 0x10000

// Buffer is an Inspector over caller-registered byte slices, each
// exposed behind a synthetic base address. Registered slices are held
// by reference, so callers can mutate them between updates exactly as a
// traced program would mutate its own buffers.
type Buffer struct {
	mu      sync.Mutex
	next    uint64
	regions []bufRegion
}

type bufRegion struct {
	base   uint64
	extent uint64 // declared extent length, <= len(data)
	data   []byte
}

// NewBuffer returns an empty synthetic-address inspector.
func NewBuffer() *Buffer {
	return &Buffer{next: bufferAlign}
}

// Register exposes data behind a fresh synthetic base address and
// returns that address. The declared extent covers the whole slice.
func (b *Buffer) Register(data []byte) uint64 {
	return b.RegisterWithExtent(data, len(data))
}

// RegisterWithExtent exposes data with a declared extent of extent
// bytes, which may be shorter than the slice itself. Bytes past the
// extent remain readable, matching an allocation whose reported bounds
// undershoot what a caller later touches.
func (b *Buffer) RegisterWithExtent(data []byte, extent int) uint64 {
	if extent > len(data) {
		extent = len(data)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	base := b.next
	b.next += (uint64(len(data))/bufferAlign + 2) * bufferAlign
	b.regions = append(b.regions, bufRegion{base: base, extent: uint64(extent), data: data})
	return base
}

// Resize swaps the backing slice and declared extent of the region at
// base, simulating an allocation that moved or grew in place.
func (b *Buffer) Resize(base uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.regions {
		if b.regions[i].base == base {
			b.regions[i].data = data
			b.regions[i].extent = uint64(len(data))
			return nil
		}
	}
	return fmt.Errorf("no buffer registered at %#x", base)
}

// Extent implements Inspector.
func (b *Buffer) Extent(addr uint64) (Extent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.regions {
		ext := Extent{Start: r.base, Stop: r.base + r.extent}
		if ext.Contains(addr) {
			return ext, nil
		}
	}
	return Extent{}, fmt.Errorf("no buffer contains address %#x", addr)
}

// ReadBytes implements Inspector. Reads may extend past the declared
// extent as long as the backing slice covers them.
func (b *Buffer) ReadBytes(addr uint64, n int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.regions {
		if addr < r.base || addr+uint64(n) > r.base+uint64(len(r.data)) {
			continue
		}
		off := addr - r.base
		out := make([]byte, n)
		copy(out, r.data[off:off+uint64(n)])
		return out, nil
	}
	return nil, fmt.Errorf("read of %d bytes at %#x outside any buffer", n, addr)
}
