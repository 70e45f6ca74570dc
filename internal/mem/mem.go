// Package mem abstracts memory inspection for the region diff engine:
// resolving the allocation extent that backs an address, and reading
// the live bytes at an address range.
//
// Two implementations are provided. ProcMaps inspects the current
// process through the /proc filesystem. Buffer serves tests and the
// selftest command with caller-registered byte slices behind synthetic
// addresses, so no live pointers are ever dereferenced.
package mem

import "fmt"

// Extent is the half-open address range [Start, Stop) of one backing
// allocation or mapping.
type Extent struct {
	Start uint64
	Stop  uint64
}

// Size returns the extent length in bytes.
func (e Extent) Size() uint64 {
	return e.Stop - e.Start
}

// Contains reports whether addr falls inside the extent.
func (e Extent) Contains(addr uint64) bool {
	return addr >= e.Start && addr < e.Stop
}

func (e Extent) String() string {
	return fmt.Sprintf("%#x-%#x", e.Start, e.Stop)
}

// Inspector resolves addresses to extents and reads live memory.
type Inspector interface {
	// Extent returns the allocation extent that currently backs addr,
	// or an error if no extent can be resolved.
	Extent(addr uint64) (Extent, error)

	// ReadBytes returns a copy of the n live bytes starting at addr.
	ReadBytes(addr uint64, n int) ([]byte, error)
}
