package domain

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceBlock(t *testing.T) {
	t.Run("ignores NaN for min and max", func(t *testing.T) {
		s := ReduceBlock([]float64{3, math.NaN(), -1, 7})
		assert.Equal(t, -1.0, s.Min)
		assert.Equal(t, 7.0, s.Max)
		assert.Equal(t, 1, s.NaNCount)
		assert.False(t, s.AllMissing())
	})

	t.Run("all NaN yields sentinel", func(t *testing.T) {
		s := ReduceBlock([]float64{math.NaN(), math.NaN()})
		assert.True(t, math.IsNaN(s.Min))
		assert.True(t, math.IsNaN(s.Max))
		assert.Equal(t, 2, s.NaNCount)
		assert.True(t, s.AllMissing())
	})

	t.Run("empty block", func(t *testing.T) {
		s := ReduceBlock(nil)
		assert.True(t, s.AllMissing())
		assert.Zero(t, s.NaNCount)
	})
}

func TestStatsMerge_MatchesSinglePass(t *testing.T) {
	data := []float64{5, math.NaN(), 2, 9, math.NaN(), -4, 0}
	whole := ReduceBlock(data)

	merged := EmptyStats()
	for _, part := range [][]float64{data[:2], data[2:3], data[3:]} {
		merged = merged.Merge(ReduceBlock(part))
	}

	assert.Equal(t, whole, merged)
	assert.Equal(t, -4.0, merged.Min)
	assert.Equal(t, 9.0, merged.Max)
	assert.Equal(t, 2, merged.NaNCount)
}

func TestStatsMerge_AllMissingPartIsIdentity(t *testing.T) {
	a := ReduceBlock([]float64{math.NaN()})
	b := ReduceBlock([]float64{1, 2})

	m := a.Merge(b)
	assert.Equal(t, 1.0, m.Min)
	assert.Equal(t, 2.0, m.Max)
	assert.Equal(t, 1, m.NaNCount)
}

func TestEagerEngine(t *testing.T) {
	s, err := EagerEngine{}.Stats(context.Background(), SliceOf("q", []float64{0.1, 0.5, math.NaN()}))
	require.NoError(t, err)
	assert.Equal(t, Stats{Min: 0.1, Max: 0.5, NaNCount: 1}, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = EagerEngine{}.Stats(ctx, SliceOf("q", []float64{1}))
	require.ErrorIs(t, err, context.Canceled)
}
