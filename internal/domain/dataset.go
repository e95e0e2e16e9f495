package domain

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// Coordinate is a named, ordered axis of the grid.
type Coordinate struct {
	Name   string
	Values []float64
}

// Len returns the number of points on the axis.
func (c *Coordinate) Len() int {
	return len(c.Values)
}

// Bounds returns the smallest and largest axis value, ignoring NaN.
// Both are NaN when the axis is empty or entirely NaN.
func (c *Coordinate) Bounds() (float64, float64) {
	s := ReduceBlock(c.Values)
	return s.Min, s.Max
}

// Variable is an n-dimensional field stored row-major in Data.
type Variable struct {
	Name  string
	Dims  []string
	Shape []int
	Data  []float64
	Attrs map[string]string
}

// NewVariable checks that data holds exactly prod(shape) values.
func NewVariable(name string, dims []string, shape []int, data []float64) (*Variable, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("variable %q: %d dims but %d shape entries", name, len(dims), len(shape))
	}
	n := 1
	for i, s := range shape {
		if s < 0 {
			return nil, fmt.Errorf("variable %q: negative length for dim %q", name, dims[i])
		}
		n *= s
	}
	if n != len(data) {
		return nil, fmt.Errorf("variable %q: shape %v needs %d values, got %d", name, shape, n, len(data))
	}
	return &Variable{
		Name:  name,
		Dims:  dims,
		Shape: shape,
		Data:  data,
		Attrs: map[string]string{},
	}, nil
}

// LongName returns the descriptive long_name attribute, falling back to the
// technical name.
func (v *Variable) LongName() string {
	if ln := v.Attrs["long_name"]; ln != "" {
		return ln
	}
	return v.Name
}

// Isel selects a single index along each named dimension. Dimensions not in
// sel keep their full range. The returned Slice shares v.Data.
func (v *Variable) Isel(sel map[string]int) (Slice, error) {
	for dim := range sel {
		if !slices.Contains(v.Dims, dim) {
			return Slice{}, fmt.Errorf("variable %q has no dimension %q", v.Name, dim)
		}
	}

	strides := make([]int, len(v.Shape))
	stride := 1
	for i := len(v.Shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= v.Shape[i]
	}

	s := Slice{Variable: v.Name}
	base := 0
	// outer holds the kept dims that sit before the innermost fixed dim; the
	// kept dims after it form one contiguous run.
	var outer []int
	runLen := 1
	lastFixed := -1
	for i, dim := range v.Dims {
		if _, ok := sel[dim]; ok {
			lastFixed = i
		}
	}
	for i, dim := range v.Dims {
		idx, fixed := sel[dim]
		if fixed {
			if idx < 0 || idx >= v.Shape[i] {
				return Slice{}, fmt.Errorf("variable %q: index %d out of range for %q (len %d)", v.Name, idx, dim, v.Shape[i])
			}
			base += idx * strides[i]
			continue
		}
		s.Dims = append(s.Dims, dim)
		s.Shape = append(s.Shape, v.Shape[i])
		if i < lastFixed {
			outer = append(outer, i)
		} else {
			runLen *= v.Shape[i]
		}
	}

	s.segments = []segment{{off: base, n: runLen}}
	for _, i := range outer {
		expanded := make([]segment, 0, len(s.segments)*v.Shape[i])
		for _, seg := range s.segments {
			for k := 0; k < v.Shape[i]; k++ {
				expanded = append(expanded, segment{off: seg.off + k*strides[i], n: seg.n})
			}
		}
		s.segments = expanded
	}
	if runLen == 0 {
		s.segments = nil
	}
	s.data = v.Data
	return s, nil
}

// Clip replaces values below lower with lower and values above upper with
// upper, in place. NaN is left untouched. It returns the number of values
// replaced.
func (v *Variable) Clip(lower, upper float64) int {
	n := 0
	for i, x := range v.Data {
		switch {
		case x < lower:
			v.Data[i] = lower
			n++
		case x > upper:
			v.Data[i] = upper
			n++
		}
	}
	return n
}

// Clone returns a deep copy of v.
func (v *Variable) Clone() *Variable {
	attrs := make(map[string]string, len(v.Attrs))
	for k, a := range v.Attrs {
		attrs[k] = a
	}
	return &Variable{
		Name:  v.Name,
		Dims:  slices.Clone(v.Dims),
		Shape: slices.Clone(v.Shape),
		Data:  slices.Clone(v.Data),
		Attrs: attrs,
	}
}

type segment struct {
	off int
	n   int
}

// Slice is a read-only view of part of a Variable, made of contiguous runs of
// the backing array.
type Slice struct {
	Variable string
	Dims     []string
	Shape    []int

	data     []float64
	segments []segment
}

// SliceOf wraps a flat array as a one-run Slice.
func SliceOf(name string, data []float64) Slice {
	return Slice{
		Variable: name,
		Dims:     []string{"x"},
		Shape:    []int{len(data)},
		data:     data,
		segments: []segment{{off: 0, n: len(data)}},
	}
}

// Len returns the number of elements in the slice.
func (s Slice) Len() int {
	n := 0
	for _, seg := range s.segments {
		n += seg.n
	}
	return n
}

// Blocks partitions the slice into contiguous blocks of at most size
// elements. Blocks alias the variable's data and must not be modified.
func (s Slice) Blocks(size int) [][]float64 {
	if size <= 0 {
		size = math.MaxInt
	}
	var blocks [][]float64
	for _, seg := range s.segments {
		for start := 0; start < seg.n; start += size {
			end := min(start+size, seg.n)
			blocks = append(blocks, s.data[seg.off+start:seg.off+end])
		}
	}
	return blocks
}

// Values copies the slice into a new flat array.
func (s Slice) Values() []float64 {
	out := make([]float64, 0, s.Len())
	for _, seg := range s.segments {
		out = append(out, s.data[seg.off:seg.off+seg.n]...)
	}
	return out
}

// Dataset is a set of coordinate axes and the variables defined over them.
type Dataset struct {
	Coords map[string]*Coordinate
	Vars   map[string]*Variable
	Attrs  map[string]string
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Coords: map[string]*Coordinate{},
		Vars:   map[string]*Variable{},
		Attrs:  map[string]string{},
	}
}

// AddCoord adds or replaces a coordinate axis.
func (d *Dataset) AddCoord(name string, values []float64) {
	d.Coords[name] = &Coordinate{Name: name, Values: values}
}

// AddVar adds or replaces a variable. Dimensions that have a coordinate axis
// must match its length.
func (d *Dataset) AddVar(v *Variable) error {
	for i, dim := range v.Dims {
		c, ok := d.Coords[dim]
		if ok && c.Len() != v.Shape[i] {
			return fmt.Errorf("variable %q: dim %q has length %d, coordinate has %d", v.Name, dim, v.Shape[i], c.Len())
		}
	}
	d.Vars[v.Name] = v
	return nil
}

// CoordNames returns the coordinate names in sorted order.
func (d *Dataset) CoordNames() []string {
	return sortedKeys(d.Coords)
}

// VarNames returns the variable names in sorted order.
func (d *Dataset) VarNames() []string {
	return sortedKeys(d.Vars)
}

// Clone returns a deep copy of d.
func (d *Dataset) Clone() *Dataset {
	out := NewDataset()
	for k, a := range d.Attrs {
		out.Attrs[k] = a
	}
	for name, c := range d.Coords {
		out.Coords[name] = &Coordinate{Name: c.Name, Values: slices.Clone(c.Values)}
	}
	for name, v := range d.Vars {
		out.Vars[name] = v.Clone()
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
