package engine

// rngTableSize is the length of the random table; the index wraps at it.
const rngTableSize = 256

// buildRNGTable derives the world's random table from its seed.
//
// The table is a pure function of the seed: same seed → same table. The
// world then draws from it by index, so the only random state a snapshot
// has to carry is that index.
func buildRNGTable(seed int64) [rngTableSize]uint8 {
	var table [rngTableSize]uint8

	// xorshift has a fixed point at zero
	state := uint64(seed) ^ 0x9E3779B97F4A7C15
	if state == 0 {
		state = 1
	}

	for i := range table {
		state = xorshift64(state)
		table[i] = uint8(state >> 56)
	}
	return table
}

// xorshift64 implements a 64-bit xorshift PRNG.
// This is a pure function: same input → same output.
func xorshift64(state uint64) uint64 {
	state ^= state << 13
	state ^= state >> 7
	state ^= state << 17
	return state
}
