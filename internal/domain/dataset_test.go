package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqVariable(t *testing.T) *Variable {
	t.Helper()
	data := make([]float64, 2*3*2*2)
	for i := range data {
		data[i] = float64(i)
	}
	v, err := NewVariable("t", []string{CoordTime, CoordLevel, CoordLatitude, CoordLongitude}, []int{2, 3, 2, 2}, data)
	require.NoError(t, err)
	return v
}

func TestVariableIsel(t *testing.T) {
	v := seqVariable(t)

	tests := []struct {
		name     string
		sel      map[string]int
		expected []float64
		shape    []int
	}{
		{"first time step", map[string]int{CoordTime: 0}, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, []int{3, 2, 2}},
		{"time and level", map[string]int{CoordTime: 1, CoordLevel: 2}, []float64{20, 21, 22, 23}, []int{2, 2}},
		{"level only", map[string]int{CoordLevel: 1}, []float64{4, 5, 6, 7, 16, 17, 18, 19}, []int{2, 2, 2}},
		{"inner dim", map[string]int{CoordLongitude: 1}, []float64{1, 3, 5, 7, 9, 11, 13, 15, 17, 19, 21, 23}, []int{2, 3, 2}},
		{"no selection", map[string]int{}, v.Data, []int{2, 3, 2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := v.Isel(tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s.Values())
			assert.Equal(t, tt.shape, s.Shape)
			assert.Equal(t, len(tt.expected), s.Len())
		})
	}
}

func TestVariableIsel_Errors(t *testing.T) {
	v := seqVariable(t)

	_, err := v.Isel(map[string]int{"step": 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no dimension "step"`)

	_, err = v.Isel(map[string]int{CoordLevel: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestSliceBlocks(t *testing.T) {
	s := SliceOf("x", []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	blocks := s.Blocks(4)
	require.Len(t, blocks, 3)
	assert.Equal(t, []float64{0, 1, 2, 3}, blocks[0])
	assert.Equal(t, []float64{8, 9}, blocks[2])

	assert.Len(t, s.Blocks(0), 1)
}

func TestSliceBlocks_SplitPerSegment(t *testing.T) {
	v := seqVariable(t)
	s, err := v.Isel(map[string]int{CoordLevel: 0})
	require.NoError(t, err)

	// Two runs of four values; blocks never span runs.
	blocks := s.Blocks(3)
	require.Len(t, blocks, 4)
	assert.Equal(t, []float64{0, 1, 2}, blocks[0])
	assert.Equal(t, []float64{3}, blocks[1])
	assert.Equal(t, []float64{12, 13, 14}, blocks[2])
}

func TestVariableClip(t *testing.T) {
	v, err := NewVariable("q", []string{"x"}, []int{5}, []float64{-0.001, 0.5, 0.1, math.NaN(), 0.3})
	require.NoError(t, err)

	n := v.Clip(0, 0.3)

	assert.Equal(t, 2, n)
	assert.Equal(t, 0.0, v.Data[0])
	assert.Equal(t, 0.3, v.Data[1])
	assert.Equal(t, 0.1, v.Data[2])
	assert.True(t, math.IsNaN(v.Data[3]))
	assert.Equal(t, 0.3, v.Data[4])
}

func TestNewVariable_ShapeMismatch(t *testing.T) {
	_, err := NewVariable("t", []string{"a", "b"}, []int{2, 2}, []float64{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs 4 values, got 3")

	_, err = NewVariable("t", []string{"a"}, []int{2, 2}, []float64{1, 2, 3, 4})
	require.Error(t, err)
}

func TestDatasetAddVar_CoordinateLengthMismatch(t *testing.T) {
	ds := NewDataset()
	ds.AddCoord(CoordLatitude, []float64{0, 1, 2})

	v, err := NewVariable("lnsp", []string{CoordLatitude}, []int{2}, []float64{11, 11})
	require.NoError(t, err)

	err = ds.AddVar(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `dim "latitude" has length 2, coordinate has 3`)
}

func TestDatasetClone_IsDeep(t *testing.T) {
	ds := NewDataset()
	ds.AddCoord(CoordLevel, []float64{1, 2})
	v, err := NewVariable("t", []string{CoordLevel}, []int{2}, []float64{250, 260})
	require.NoError(t, err)
	require.NoError(t, ds.AddVar(v))

	c := ds.Clone()
	c.Vars["t"].Data[0] = 0
	c.Coords[CoordLevel].Values[0] = 99

	assert.Equal(t, 250.0, ds.Vars["t"].Data[0])
	assert.Equal(t, 1.0, ds.Coords[CoordLevel].Values[0])
}

func TestVariableLongName(t *testing.T) {
	v, err := NewVariable("q", []string{"x"}, []int{1}, []float64{0})
	require.NoError(t, err)
	assert.Equal(t, "q", v.LongName())

	v.Attrs["long_name"] = "Specific humidity"
	assert.Equal(t, "Specific humidity", v.LongName())
}
