package engine

import (
	"fmt"
	"math/rand"
	"sync"
)

// Source is the randomness contract the engine consumes. internal/rng.Service
// satisfies it with a certified entropy source; SeededSource satisfies it
// deterministically for replay and simulation.
type Source interface {
	// GenerateInt returns a uniform value in [0, max).
	GenerateInt(max int64) (int64, error)
	// GenerateIntRange returns a uniform value in [min, max] inclusive.
	GenerateIntRange(min, max int64) (int64, error)
	// Shuffle performs an in-place Fisher-Yates shuffle.
	Shuffle(slice []int) error
}

// SeededSource is a deterministic Source backed by math/rand. It exists for
// outcome replay and RTP simulation only and must never be wired into a
// player-facing path.
type SeededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded returns a deterministic Source for the given seed.
func NewSeeded(seed int64) *SeededSource {
	return &SeededSource{r: rand.New(rand.NewSource(seed))}
}

func (s *SeededSource) GenerateInt(max int64) (int64, error) {
	if max <= 0 {
		return 0, fmt.Errorf("max must be positive, got %d", max)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Int63n(max), nil
}

func (s *SeededSource) GenerateIntRange(min, max int64) (int64, error) {
	if min > max {
		return 0, fmt.Errorf("min %d greater than max %d", min, max)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.r.Int63n(max-min+1), nil
}

func (s *SeededSource) Shuffle(slice []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Shuffle(len(slice), func(i, j int) {
		slice[i], slice[j] = slice[j], slice[i]
	})
	return nil
}
