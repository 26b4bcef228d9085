// services/random.go
package services

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies the factors used by GDP estimation and smoothing.
type RandomSource interface {
	// IntRange returns an integer in [min, max].
	IntRange(min, max int) int
	// FloatRange returns a float in [min, max).
	FloatRange(min, max float64) float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomSource returns a goroutine-safe source. Seed 0 picks a random seed;
// any other seed reproduces the same sequence.
func NewRandomSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return min + l.r.IntN(max-min+1)
}

func (l *lockedRand) FloatRange(min, max float64) float64 {
	if max <= min {
		return min
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return min + l.r.Float64()*(max-min)
}
