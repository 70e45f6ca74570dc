package mem

import "unsafe"

// sliceAddr returns the integer address of the first element of b.
// Test-only: the production engine never derives addresses itself, the
// interception layer supplies them.
func sliceAddr(b []byte) uint64 {
	return uint64(uintptr(unsafe.Pointer(&b[0])))
}
