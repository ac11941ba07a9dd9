package registry

// Fuzz is a small deterministic pseudo-random tag generator. Batteries use
// it to label sub-tests with reproducible but varied names; the same seed
// always yields the same sequence, so filtered re-runs line up.
type Fuzz struct {
	state uint64
}

const fuzzAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewFuzz seeds a generator. A zero seed is replaced with a fixed non-zero
// constant because the xorshift state must never be zero.
func NewFuzz(seed uint64) *Fuzz {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return &Fuzz{state: seed}
}

func (f *Fuzz) next() uint64 {
	// xorshift64
	x := f.state
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	f.state = x
	return x
}

// Tag returns a pseudo-random lowercase alphanumeric tag of length n.
func (f *Fuzz) Tag(n int) string {
	if f == nil || n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = fuzzAlphabet[f.next()%uint64(len(fuzzAlphabet))]
	}
	return string(b)
}
