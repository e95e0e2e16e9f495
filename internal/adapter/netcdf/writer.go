package netcdf

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/opera-adt/tropo-validator/internal/domain"
)

// Write stores ds as a classic NetCDF file at path. Coordinates are written
// as one-dimensional variables named after their dimension, then the data
// variables as float64 with their string attributes.
func Write(path string, ds *domain.Dataset) (err error) {
	w, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if len(ds.Attrs) > 0 {
		attrs, err := stringAttrs(ds.Attrs)
		if err != nil {
			return err
		}
		if err := w.AddGlobalAttrs(attrs); err != nil {
			return fmt.Errorf("write global attributes: %w", err)
		}
	}

	for _, name := range ds.CoordNames() {
		c := ds.Coords[name]
		if err := w.AddVar(name, api.Variable{
			Values:     append([]float64(nil), c.Values...),
			Dimensions: []string{name},
			Attributes: emptyAttrs(),
		}); err != nil {
			return fmt.Errorf("write coordinate %q: %w", name, err)
		}
	}

	for _, name := range ds.VarNames() {
		v := ds.Vars[name]
		attrs, err := stringAttrs(v.Attrs)
		if err != nil {
			return err
		}
		if err := w.AddVar(name, api.Variable{
			Values:     nest(v.Data, v.Shape),
			Dimensions: v.Dims,
			Attributes: attrs,
		}); err != nil {
			return fmt.Errorf("write variable %q: %w", name, err)
		}
	}
	return nil
}

func stringAttrs(m map[string]string) (*util.OrderedMap, error) {
	keys := make([]string, 0, len(m))
	vals := make(map[string]any, len(m))
	for k, v := range m {
		keys = append(keys, k)
		vals[k] = v
	}
	slices.Sort(keys)
	om, err := util.NewOrderedMap(keys, vals)
	if err != nil {
		return nil, fmt.Errorf("build attributes: %w", err)
	}
	return om, nil
}

func emptyAttrs() *util.OrderedMap {
	om, _ := util.NewOrderedMap(nil, nil)
	return om
}

// nest reshapes row-major data into nested slices ([][]...float64) of the
// given shape, the layout the writer expects for multi-dimensional values.
func nest(data []float64, shape []int) any {
	if len(shape) <= 1 {
		return append([]float64(nil), data...)
	}
	t := reflect.TypeOf([]float64(nil))
	for range shape[1:] {
		t = reflect.SliceOf(t)
	}
	return build(reflect.ValueOf(data), t, shape).Interface()
}

func build(data reflect.Value, t reflect.Type, shape []int) reflect.Value {
	if len(shape) == 1 {
		out := reflect.MakeSlice(t, shape[0], shape[0])
		reflect.Copy(out, data)
		return out
	}
	stride := data.Len() / max(shape[0], 1)
	out := reflect.MakeSlice(t, shape[0], shape[0])
	for i := range shape[0] {
		out.Index(i).Set(build(data.Slice(i*stride, (i+1)*stride), t.Elem(), shape[1:]))
	}
	return out
}
