package mem

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProcMaps inspects the current process through /proc/self/maps and
// /proc/self/mem. Extents are whole mappings, which mirrors what the
// kernel reports for an address.
type ProcMaps struct {
	mapsPath string
	memPath  string
}

// NewProcMaps returns an inspector for the current process.
func NewProcMaps() *ProcMaps {
	return &ProcMaps{
		mapsPath: "/proc/self/maps",
		memPath:  "/proc/self/mem",
	}
}

// Extent scans the maps file for the mapping containing addr.
func (p *ProcMaps) Extent(addr uint64) (Extent, error) {
	f, err := os.Open(p.mapsPath)
	if err != nil {
		return Extent{}, err
	}
	defer f.Close() // nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ext, err := parseMapsLine(scanner.Text())
		if err != nil {
			continue
		}
		if ext.Contains(addr) {
			return ext, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Extent{}, err
	}

	return Extent{}, fmt.Errorf("no mapping contains address %#x", addr)
}

// ReadBytes reads live memory through /proc/self/mem.
func (p *ProcMaps) ReadBytes(addr uint64, n int) ([]byte, error) {
	f, err := os.Open(p.memPath)
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint:errcheck

	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, int64(addr)); err != nil {
		return nil, fmt.Errorf("read %d bytes at %#x: %w", n, addr, err)
	}
	return buf, nil
}

// parseMapsLine extracts the address range from one maps line, which
// starts with "start-stop" in hex.
func parseMapsLine(line string) (Extent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Extent{}, fmt.Errorf("empty maps line")
	}

	dash := strings.IndexByte(fields[0], '-')
	if dash < 0 {
		return Extent{}, fmt.Errorf("malformed maps range %q", fields[0])
	}

	start, err := strconv.ParseUint(fields[0][:dash], 16, 64)
	if err != nil {
		return Extent{}, err
	}
	stop, err := strconv.ParseUint(fields[0][dash+1:], 16, 64)
	if err != nil {
		return Extent{}, err
	}

	return Extent{Start: start, Stop: stop}, nil
}
