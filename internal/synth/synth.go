// Package synth builds small, physically plausible HRES-like grids for tests
// and fixtures.
package synth

import (
	"math"

	"github.com/opera-adt/tropo-validator/internal/domain"
)

// Options sizes the synthetic grid.
type Options struct {
	Times  int
	Levels int
	Lats   int
	Lons   int
}

// DefaultOptions is a grid small enough for unit tests.
func DefaultOptions() Options {
	return Options{Times: 2, Levels: 4, Lats: 5, Lons: 8}
}

// Dims is the storage order of every synthetic variable.
var Dims = []string{domain.CoordTime, domain.CoordLevel, domain.CoordLatitude, domain.CoordLongitude}

// Dataset returns a grid whose fields all lie inside domain.DefaultRanges.
func Dataset(o Options) *domain.Dataset {
	ds := domain.NewDataset()
	ds.Attrs["source"] = "synthetic HRES model-level analysis"

	lons := linspace(0, 360, o.Lons, false)
	lats := linspace(90, -90, o.Lats, true)
	levels := make([]float64, o.Levels)
	for i := range levels {
		levels[i] = float64(i + 1)
	}
	times := make([]float64, o.Times)
	for i := range times {
		times[i] = float64(6 * i)
	}
	ds.AddCoord(domain.CoordLongitude, lons)
	ds.AddCoord(domain.CoordLatitude, lats)
	ds.AddCoord(domain.CoordLevel, levels)
	ds.AddCoord(domain.CoordTime, times)

	shape := []int{o.Times, o.Levels, o.Lats, o.Lons}
	fields := []struct {
		name, longName, units string
		fn                    func(ti, li int, lat, lon float64) float64
	}{
		{domain.VarTemperature, "Temperature", "K", func(ti, li int, lat, lon float64) float64 {
			frac := float64(li+1) / float64(o.Levels)
			return 210 + 70*math.Cos(rad(lat))*frac + 0.5*float64(ti) + lon/3600
		}},
		{domain.VarSpecificHumidity, "Specific humidity", "kg kg**-1", func(ti, li int, lat, _ float64) float64 {
			frac := float64(li+1) / float64(o.Levels)
			c := math.Cos(rad(lat))
			return 0.0005 + 0.015*c*c*frac + 1e-5*float64(ti)
		}},
		{domain.VarGeopotential, "Geopotential", "m**2 s**-2", func(_, _ int, lat, lon float64) float64 {
			return 1000 + 500*math.Sin(rad(lon)) + 2*lat
		}},
		{domain.VarLogSurfPressure, "Logarithm of surface pressure", "~", func(ti, _ int, lat, _ float64) float64 {
			return 11.5 + 0.02*math.Cos(rad(lat)) + 1e-4*float64(ti)
		}},
	}

	for _, f := range fields {
		data := make([]float64, 0, o.Times*o.Levels*o.Lats*o.Lons)
		for ti := 0; ti < o.Times; ti++ {
			for li := 0; li < o.Levels; li++ {
				for _, lat := range lats {
					for _, lon := range lons {
						data = append(data, f.fn(ti, li, lat, lon))
					}
				}
			}
		}
		v, err := domain.NewVariable(f.name, append([]string(nil), Dims...), append([]int(nil), shape...), data)
		if err != nil {
			panic(err)
		}
		v.Attrs["long_name"] = f.longName
		v.Attrs["units"] = f.units
		if err := ds.AddVar(v); err != nil {
			panic(err)
		}
	}
	return ds
}

// Offset returns the flat index of (time, level, lat, lon) in a synthetic
// variable built with options o.
func Offset(o Options, ti, li, yi, xi int) int {
	return ((ti*o.Levels+li)*o.Lats+yi)*o.Lons + xi
}

func linspace(start, stop float64, n int, inclusive bool) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	div := float64(n)
	if inclusive && n > 1 {
		div = float64(n - 1)
	}
	step := (stop - start) / div
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
