// Package region tracks memory regions the trace has snapshotted and
// computes the minimal set of changed byte ranges on each update, so
// unchanged buffer content is never re-emitted.
//
// A region is one allocation extent. Inside it, sub-range records carry
// a 32-bit CRC of the bytes last written to the trace; on update, every
// record intersecting the requested range is re-checksummed against
// live memory and only invalidated or uncovered spans are copied out.
// The CRC is a probabilistic change detector: a collision silently
// skips a real change, an accepted risk for this format.
package region

// Range is a half-open interval [Start, Stop) of byte offsets relative
// to a region's base address.
type Range struct {
	Start uint64
	Stop  uint64
}

// Len returns the number of bytes covered.
func (r Range) Len() uint64 {
	return r.Stop - r.Start
}

// Intersects reports whether r and o share at least one offset.
func (r Range) Intersects(o Range) bool {
	return r.Start < o.Stop && o.Start < r.Stop
}

// Set is an ordered collection of disjoint ranges supporting
// subtraction. It starts as one interval and only ever shrinks.
type Set struct {
	ranges []Range
}

// NewSet returns a set covering exactly r.
func NewSet(r Range) *Set {
	if r.Start >= r.Stop {
		return &Set{}
	}
	return &Set{ranges: []Range{r}}
}

// Sub removes r from the set, splitting members it punches through.
func (s *Set) Sub(r Range) {
	if r.Start >= r.Stop {
		return
	}
	// A member can split in two, so build into a fresh slice.
	out := make([]Range, 0, len(s.ranges)+1)
	for _, cur := range s.ranges {
		if !cur.Intersects(r) {
			out = append(out, cur)
			continue
		}
		if cur.Start < r.Start {
			out = append(out, Range{Start: cur.Start, Stop: r.Start})
		}
		if cur.Stop > r.Stop {
			out = append(out, Range{Start: r.Stop, Stop: cur.Stop})
		}
	}
	s.ranges = out
}

// Ranges returns the remaining disjoint ranges in ascending order.
func (s *Set) Ranges() []Range {
	return s.ranges
}
