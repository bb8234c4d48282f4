package community

import "math/rand/v2"

// RandomSource is the injected source of randomness the engine consumes.
// The core never seeds or owns a generator; callers are responsible for
// reproducibility. This mirrors the boundary the original core draws
// around its own Rng type parameter.
type RandomSource interface {
	// Float64 returns a pseudo-random number in [0, 1).
	Float64() float64
	// IntN returns a pseudo-random number in [0, n).
	IntN(n int) int
}

// pcgSource is a small adapter over math/rand/v2's PCG generator. It is
// the only stdlib-only piece of the engine: nothing in the retrieval
// pack grounds a third-party PRNG choice (every sibling service only
// ever calls google/uuid for identifiers, never a statistical PRNG), and
// math/rand/v2 is the idiomatic modern stdlib choice for this narrow,
// deliberately-out-of-scope concern.
type pcgSource struct {
	r *rand.Rand
}

// NewSeededSource returns a RandomSource seeded deterministically, for
// tests and for callers who need reproducible clustering runs.
func NewSeededSource(seed uint64) RandomSource {
	return &pcgSource{r: rand.New(rand.NewPCG(seed, seed))}
}

func (p *pcgSource) Float64() float64 {
	return p.r.Float64()
}

func (p *pcgSource) IntN(n int) int {
	return p.r.IntN(n)
}
