package sampler

import (
	"math/rand/v2"
	"testing"

	"authenticity-survey/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource records how many random values were consumed.
type countingSource struct {
	src   rand.Source
	calls int
}

func (c *countingSource) Uint64() uint64 {
	c.calls++
	return c.src.Uint64()
}

func TestDraw_UniqueAndInRange(t *testing.T) {
	tests := []struct {
		name     string
		universe int
		count    int
	}{
		{"reference survey", 200, 10},
		{"single item", 1, 1},
		{"half", 50, 25},
		{"one short of full", 30, 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := uint64(0); seed < 20; seed++ {
				s := New(rand.NewPCG(seed, seed*7+1))
				sample, err := s.Draw(tt.universe, tt.count)
				require.NoError(t, err)
				require.Len(t, sample, tt.count)

				seen := make(map[models.ItemID]bool)
				for _, id := range sample {
					assert.GreaterOrEqual(t, int(id), 1)
					assert.LessOrEqual(t, int(id), tt.universe)
					assert.False(t, seen[id], "duplicate id %d", id)
					seen[id] = true
				}
			}
		})
	}
}

func TestDraw_FullUniverse(t *testing.T) {
	s := New(rand.NewPCG(42, 1024))
	sample, err := s.Draw(15, 15)
	require.NoError(t, err)

	expected := make([]models.ItemID, 0, 15)
	for i := 1; i <= 15; i++ {
		expected = append(expected, models.ItemID(i))
	}
	assert.ElementsMatch(t, expected, []models.ItemID(sample))
}

func TestDraw_InvalidConfigurationBeforeAnyDraw(t *testing.T) {
	tests := []struct {
		name     string
		universe int
		count    int
	}{
		{"count exceeds universe", 10, 11},
		{"zero count", 10, 0},
		{"negative count", 10, -3},
		{"empty universe", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &countingSource{src: rand.NewPCG(1, 2)}
			s := New(src)

			sample, err := s.Draw(tt.universe, tt.count)
			require.ErrorIs(t, err, models.ErrInvalidConfiguration)
			assert.Nil(t, sample)
			assert.Zero(t, src.calls, "no random values may be consumed")
		})
	}
}

func TestDraw_StableOrder(t *testing.T) {
	a, err := New(rand.NewPCG(9, 9)).Draw(200, 10)
	require.NoError(t, err)
	b, err := New(rand.NewPCG(9, 9)).Draw(200, 10)
	require.NoError(t, err)

	assert.Equal(t, a, b, "same seed must give the same presentation order")
	assert.True(t, a.Contains(a[3]))
	assert.False(t, a.Contains(0))
}

func TestNew_NilSource(t *testing.T) {
	sample, err := New(nil).Draw(200, 10)
	require.NoError(t, err)
	assert.Len(t, sample, 10)
}
