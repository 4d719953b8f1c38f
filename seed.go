package cnn_go

import (
	"hash/fnv"
	"math/rand"
)

// Seeder Holds every source of randomness of an experiment.
//
// Construction fixes the process-global math/rand source too, so third-party code which still reads it is reproducible.
// Components should prefer explicit handles: Rand() or Stream(name).
//
type Seeder struct {
	seed int64
	rng  *rand.Rand
}

// NewSeeder Seeds global math/rand and prepares explicit generator for provided seed
func NewSeeder(seed int64) *Seeder {
	rand.Seed(seed)
	return &Seeder{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Seed Returns initial seed value
func (s *Seeder) Seed() int64 {
	return s.seed
}

// Rand Returns main generator
func (s *Seeder) Rand() *rand.Rand {
	return s.rng
}

// Stream Returns independent generator derived from seed and stream name.
// Same (seed, name) pair always gives same sequence no matter how many values have been drawn from other streams.
func (s *Seeder) Stream(name string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	return rand.New(rand.NewSource(s.seed ^ int64(h.Sum64())))
}
