package trace

// defCache remembers which descriptor ids have had their full
// definition written to the current stream, one bitset per descriptor
// kind. It grows to cover any id it is asked about and is only ever
// cleared by opening a new session.
type defCache struct {
	bits []uint64
}

// describe reports whether id still needs its full definition emitted,
// marking it as emitted either way. The first call for an id returns
// true, every later call returns false.
func (c *defCache) describe(id uint32) bool {
	word, bit := int(id/64), id%64
	if word >= len(c.bits) {
		grown := make([]uint64, word+1)
		copy(grown, c.bits)
		c.bits = grown
	}
	if c.bits[word]&(1<<bit) != 0 {
		return false
	}
	c.bits[word] |= 1 << bit
	return true
}

// reset forgets every emitted definition.
func (c *defCache) reset() {
	c.bits = nil
}
