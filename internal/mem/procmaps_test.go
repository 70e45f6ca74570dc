package mem

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMapsLine(t *testing.T) {
	ext, err := parseMapsLine("7f2a4c000000-7f2a4c021000 rw-p 00000000 00:00 0")
	require.NoError(t, err)
	assert.Equal(t, Extent{Start: 0x7f2a4c000000, Stop: 0x7f2a4c021000}, ext)

	_, err = parseMapsLine("")
	assert.Error(t, err)

	_, err = parseMapsLine("not-a-range rw-p")
	assert.Error(t, err)
}

func TestProcMapsSelf(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires /proc")
	}

	// A heap allocation of our own process must fall inside some mapping.
	buf := make([]byte, 4096)
	for i := range buf {
		buf[i] = byte(i)
	}
	addr := sliceAddr(buf)

	p := NewProcMaps()
	ext, err := p.Extent(addr)
	require.NoError(t, err)
	assert.True(t, ext.Contains(addr))
	assert.Greater(t, ext.Size(), uint64(0))

	got, err := p.ReadBytes(addr, 16)
	require.NoError(t, err)
	assert.Equal(t, buf[:16], got)

	// Keep the slice alive past the /proc reads.
	runtime.KeepAlive(buf)
}

func TestProcMapsUnmappedAddress(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires /proc")
	}
	if _, err := os.Stat("/proc/self/maps"); err != nil {
		t.Skip("maps not readable")
	}

	p := NewProcMaps()
	// The zero page is never mapped.
	_, err := p.Extent(0x1)
	assert.Error(t, err)
}
