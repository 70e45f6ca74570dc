package region

import (
	"hash/crc32"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/tracecap/internal/mem"
)

// Emitter receives the synthetic calls the engine needs written to the
// trace. Implementations run with the session lock already held and
// must not reacquire it.
type Emitter interface {
	// Malloc records the discovery of a region as a malloc-shaped call
	// pair: size as the argument, base as the return value.
	Malloc(size, base uint64)

	// Memcpy records a copy of data to dest as a memcpy-shaped call
	// pair carrying the bytes as a blob argument.
	Memcpy(dest uint64, data []byte)
}

// span is one sub-range record: offsets relative to the region base and
// the CRC of the bytes last emitted for that span.
type span struct {
	start uint64
	stop  uint64
	sum   uint32
}

func (s span) rng() Range {
	return Range{Start: s.start, Stop: s.stop}
}

// Region is a tracked allocation extent with its sub-range records.
// Records are kept newest-first and never overlap.
type Region struct {
	Start uint64
	Size  uint64
	spans []span
}

func (r *Region) extent() mem.Extent {
	return mem.Extent{Start: r.Start, Stop: r.Start + r.Size}
}

// Engine owns the process-wide region registry. It has no lock of its
// own: the trace writer's session mutex guards every call, keeping the
// registry and the output stream consistent with each other.
type Engine struct {
	insp    mem.Inspector
	emit    Emitter
	log     zerolog.Logger
	regions []*Region
}

// NewEngine returns an engine reading live memory through insp and
// writing synthetic calls through emit.
func NewEngine(insp mem.Inspector, emit Emitter, log zerolog.Logger) *Engine {
	return &Engine{insp: insp, emit: emit, log: log}
}

// Update brings the trace's record of [addr, addr+size) up to date,
// emitting one memcpy-shaped call per byte range that is new or whose
// checksum no longer matches live memory. A zero addr is ignored; a
// zero size still resolves (and may introduce) the region but copies
// nothing.
func (e *Engine) Update(addr, size uint64) {
	if addr == 0 {
		return
	}

	reg := e.lookup(addr)
	if reg == nil || size == 0 {
		return
	}

	start := addr - reg.Start
	stop := start + size
	if stop > reg.Size {
		e.log.Warn().
			Str("range", mem.Extent{Start: addr, Stop: addr + size}.String()).
			Str("region", reg.extent().String()).
			Msg("update range exceeds region; copying out-of-bounds bytes")
	}

	update := Range{Start: start, Stop: stop}

	// Everything in the update range is copied unless a record proves
	// it unchanged.
	pending := NewSet(update)

	kept := reg.spans[:0]
	for _, sp := range reg.spans {
		if !sp.rng().Intersects(update) {
			kept = append(kept, sp)
			continue
		}
		live, err := e.insp.ReadBytes(reg.Start+sp.start, int(sp.stop-sp.start))
		if err != nil {
			// Cannot prove the span unchanged; drop it and recopy.
			e.log.Warn().Err(err).Msg("failed to re-read tracked sub-range")
			continue
		}
		if crc32.ChecksumIEEE(live) == sp.sum {
			pending.Sub(sp.rng())
			kept = append(kept, sp)
		}
		// A changed span is simply dropped: its bytes fall through to
		// the copy pass below.
	}
	reg.spans = kept

	var fresh []span
	for _, r := range pending.Ranges() {
		data, err := e.insp.ReadBytes(reg.Start+r.Start, int(r.Len()))
		if err != nil {
			e.log.Warn().Err(err).Msg("failed to read changed bytes; skipping copy")
			continue
		}
		e.emit.Memcpy(reg.Start+r.Start, data)
		fresh = append(fresh, span{start: r.Start, stop: r.Stop, sum: crc32.ChecksumIEEE(data)})
	}
	reg.spans = append(fresh, reg.spans...)
}

// lookup resolves addr to a tracked region, introducing or rebuilding
// one as needed. Returns nil when the inspector cannot resolve any
// extent for addr.
func (e *Engine) lookup(addr uint64) *Region {
	ext, err := e.insp.Extent(addr)
	if err != nil {
		e.log.Warn().Err(err).Uint64("addr", addr).Msg("failed to query address extent")
		return nil
	}

	var found *Region
	kept := e.regions[:0]
	for _, reg := range e.regions {
		stored := reg.extent()
		switch {
		case !(ext.Start < stored.Stop && ext.Stop > stored.Start):
			kept = append(kept, reg)
		case ext == stored:
			found = reg
			kept = append(kept, reg)
		default:
			// The backing allocation moved or resized; the stored
			// tracking no longer describes real memory.
			e.log.Warn().
				Str("old", stored.String()).
				Str("new", ext.String()).
				Msg("region extent changed; re-snapshotting")
		}
	}
	e.regions = kept

	if found != nil {
		return found
	}

	reg := &Region{Start: ext.Start, Size: ext.Size()}
	e.emit.Malloc(reg.Size, reg.Start)
	e.regions = append(e.regions, reg)
	return reg
}
