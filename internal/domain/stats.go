package domain

import (
	"context"
	"math"
)

// Stats is the combined min/max/NaN reduction of a slice. Min and Max ignore
// NaN and are themselves NaN when every element is NaN.
type Stats struct {
	Min      float64
	Max      float64
	NaNCount int
}

// AllMissing reports whether the reduction saw no non-NaN value.
func (s Stats) AllMissing() bool {
	return math.IsNaN(s.Min) || math.IsNaN(s.Max)
}

// Merge combines two partial reductions.
func (s Stats) Merge(o Stats) Stats {
	return Stats{
		Min:      nanMin(s.Min, o.Min),
		Max:      nanMax(s.Max, o.Max),
		NaNCount: s.NaNCount + o.NaNCount,
	}
}

// EmptyStats is the identity element of Merge.
func EmptyStats() Stats {
	return Stats{Min: math.NaN(), Max: math.NaN()}
}

// ReduceBlock computes Stats over one block in a single pass.
func ReduceBlock(block []float64) Stats {
	s := EmptyStats()
	for _, x := range block {
		if math.IsNaN(x) {
			s.NaNCount++
			continue
		}
		if math.IsNaN(s.Min) || x < s.Min {
			s.Min = x
		}
		if math.IsNaN(s.Max) || x > s.Max {
			s.Max = x
		}
	}
	return s
}

// StatsEngine materializes the min, max and NaN count of a slice in one
// pass. Implementations may spread the work over a worker pool; the call
// blocks until the reduction completes.
type StatsEngine interface {
	Stats(ctx context.Context, s Slice) (Stats, error)
}

// EagerEngine reduces on the calling goroutine. Suitable for small grids and
// tests.
type EagerEngine struct{}

func (EagerEngine) Stats(ctx context.Context, s Slice) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	out := EmptyStats()
	for _, b := range s.Blocks(0) {
		out = out.Merge(ReduceBlock(b))
	}
	return out, nil
}

func nanMin(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	}
	return math.Min(a, b)
}

func nanMax(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	}
	return math.Max(a, b)
}
