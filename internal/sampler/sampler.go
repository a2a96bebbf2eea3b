// Package sampler draws the per-session subset of images a rater sees.
package sampler

import (
	"fmt"
	"math/rand/v2"

	"authenticity-survey/internal/models"
)

// SampleSet is a fixed, duplicate-free list of items in presentation order
type SampleSet []models.ItemID

// Contains reports whether id was drawn
func (s SampleSet) Contains(id models.ItemID) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Sampler draws unique item IDs using rejection sampling
type Sampler struct {
	rng *rand.Rand
}

// New creates a sampler backed by src. A nil src uses a randomly seeded PCG source.
func New(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{rng: rand.New(src)}
}

// Draw picks count distinct IDs from [1, universe].
//
// Draws are repeated until the working set holds count members, so the loop
// has no fixed upper bound when count approaches universe. The expected number
// of draws stays small (coupon-collector bound) and this is accepted.
func (s *Sampler) Draw(universe, count int) (SampleSet, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: sample size must be positive, got %d", models.ErrInvalidConfiguration, count)
	}
	if count > universe {
		return nil, fmt.Errorf("%w: sample size %d exceeds universe of %d items",
			models.ErrInvalidConfiguration, count, universe)
	}

	seen := make(map[models.ItemID]struct{}, count)
	sample := make(SampleSet, 0, count)
	for len(sample) < count {
		id := models.ItemID(s.rng.IntN(universe) + 1)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sample = append(sample, id)
	}

	return sample, nil
}
