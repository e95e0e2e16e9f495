// Package netcdf reads model-level grids from NetCDF files into
// domain.Dataset and writes sanitized grids back out.
package netcdf

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"slices"

	nc "github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/opera-adt/tropo-validator/internal/domain"
)

// Packing and missing-value attributes applied while decoding.
const (
	attrScaleFactor  = "scale_factor"
	attrAddOffset    = "add_offset"
	attrFillValue    = "_FillValue"
	attrMissingValue = "missing_value"
)

// Loader opens NetCDF files (classic CDF or NetCDF-4/HDF5) as datasets.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads every variable of the file at path. One-dimensional variables
// named after their own dimension become coordinates; everything else is a
// data variable. Packed values are unpacked and fill values become NaN.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Dataset, error) {
	group, err := nc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer group.Close()

	ds := domain.NewDataset()
	copyStringAttrs(ds.Attrs, group.Attributes())

	names := group.ListVariables()
	dims := make(map[string]bool)
	for _, d := range group.ListDimensions() {
		dims[d] = true
	}

	var dataVars []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := group.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("read variable %q: %w", name, err)
		}
		if !isCoordinate(name, v, dims) {
			dataVars = append(dataVars, name)
			continue
		}
		values, _, err := flatten(v.Values)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", name, err)
		}
		ds.AddCoord(name, decode(values, v.Attributes))
	}

	for _, name := range dataVars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := group.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("read variable %q: %w", name, err)
		}
		values, shape, err := flatten(v.Values)
		if err != nil {
			// Text and compound variables carry no grid data.
			l.logger.Debug("skipping non-numeric variable", "variable", name, "error", err)
			continue
		}
		if len(shape) != len(v.Dimensions) {
			return nil, fmt.Errorf("variable %q: %d dimensions but %d-d values", name, len(v.Dimensions), len(shape))
		}
		dv, err := domain.NewVariable(name, slices.Clone(v.Dimensions), shape, decode(values, v.Attributes))
		if err != nil {
			return nil, err
		}
		copyStringAttrs(dv.Attrs, v.Attributes)
		if err := ds.AddVar(dv); err != nil {
			return nil, err
		}
	}

	l.logger.Debug("loaded dataset",
		"path", path,
		"coords", ds.CoordNames(),
		"vars", ds.VarNames(),
	)
	return ds, nil
}

func isCoordinate(name string, v *api.Variable, dims map[string]bool) bool {
	return dims[name] && len(v.Dimensions) == 1 && v.Dimensions[0] == name
}

// decode applies CF packing: fill and missing values map to NaN, then
// x*scale_factor + add_offset.
func decode(values []float64, attrs api.AttributeMap) []float64 {
	scale, hasScale := numberAttr(attrs, attrScaleFactor)
	offset, hasOffset := numberAttr(attrs, attrAddOffset)
	fill, hasFill := numberAttr(attrs, attrFillValue)
	missing, hasMissing := numberAttr(attrs, attrMissingValue)
	if !hasScale {
		scale = 1
	}
	if !hasScale && !hasOffset && !hasFill && !hasMissing {
		return values
	}
	for i, x := range values {
		if (hasFill && x == fill) || (hasMissing && x == missing) {
			values[i] = math.NaN()
			continue
		}
		values[i] = x*scale + offset
	}
	return values
}

func numberAttr(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	raw, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice {
		if rv.Len() == 0 {
			return 0, false
		}
		rv = rv.Index(0)
	}
	x, ok := toFloat(rv)
	return x, ok
}

func copyStringAttrs(dst map[string]string, attrs api.AttributeMap) {
	if attrs == nil {
		return
	}
	for _, key := range attrs.Keys() {
		raw, _ := attrs.Get(key)
		if s, ok := raw.(string); ok {
			dst[key] = s
		}
	}
}

// flatten walks nested slices in row-major order and returns the values as
// float64 with the shape of the nesting.
func flatten(values any) ([]float64, []int, error) {
	rv := reflect.ValueOf(values)
	if !rv.IsValid() {
		return nil, nil, fmt.Errorf("no values")
	}
	if x, ok := toFloat(rv); ok {
		return []float64{x}, nil, nil
	}

	var shape []int
	for t := rv; t.Kind() == reflect.Slice; {
		shape = append(shape, t.Len())
		if t.Len() == 0 {
			break
		}
		t = t.Index(0)
	}
	if len(shape) == 0 {
		return nil, nil, fmt.Errorf("unsupported value type %T", values)
	}

	n := 1
	for _, s := range shape {
		n *= s
	}
	out := make([]float64, 0, n)
	var walk func(v reflect.Value, depth int) error
	walk = func(v reflect.Value, depth int) error {
		if depth == len(shape) {
			x, ok := toFloat(v)
			if !ok {
				return fmt.Errorf("unsupported element type %s", v.Type())
			}
			out = append(out, x)
			return nil
		}
		if v.Kind() != reflect.Slice || v.Len() != shape[depth] {
			return fmt.Errorf("ragged values at depth %d", depth)
		}
		for i := range v.Len() {
			if err := walk(v.Index(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(rv, 0); err != nil {
		return nil, nil, err
	}
	return out, shape, nil
}

func toFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return float64(v.Int()), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return float64(v.Uint()), true
	default:
		return 0, false
	}
}
