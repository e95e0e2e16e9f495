// Command genmock writes a synthetic HRES-like model-level NetCDF fixture for
// the validator's tests and local runs. Faults can be injected to exercise
// each failure mode.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/D_20240426_T12.nc \
//	  [-levels 137 -lats 181 -lons 360] \
//	  [-nan-var t] [-excess-var q] [-bad-lat]
package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	ncadapter "github.com/opera-adt/tropo-validator/internal/adapter/netcdf"
	"github.com/opera-adt/tropo-validator/internal/domain"
	"github.com/opera-adt/tropo-validator/internal/synth"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the NetCDF fixture")
	times := flag.Int("times", 2, "number of time steps")
	levels := flag.Int("levels", 8, "number of model levels")
	lats := flag.Int("lats", 19, "number of latitudes")
	lons := flag.Int("lons", 36, "number of longitudes")
	nanVar := flag.String("nan-var", "", "variable to receive a NaN in its audited slice")
	excessVar := flag.String("excess-var", "", "variable to push above its valid range")
	badLat := flag.Bool("bad-lat", false, "move the first latitude outside [-90, 90]")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	opts := synth.Options{Times: *times, Levels: *levels, Lats: *lats, Lons: *lons}
	ds := synth.Dataset(opts)
	// Faults land on time 0, level 0 so every variable's audited slice sees them.
	target := synth.Offset(opts, 0, 0, opts.Lats/2, opts.Lons/2)

	if *nanVar != "" {
		v, ok := ds.Vars[*nanVar]
		if !ok {
			return fmt.Errorf("unknown variable %q", *nanVar)
		}
		v.Data[target] = math.NaN()
		log.Printf("injected NaN into %s at offset %d", *nanVar, target)
	}

	if *excessVar != "" {
		v, ok := ds.Vars[*excessVar]
		if !ok {
			return fmt.Errorf("unknown variable %q", *excessVar)
		}
		b, err := domain.DefaultRanges.Lookup(*excessVar)
		if err != nil {
			return err
		}
		v.Data[target] = b.Upper + 0.1*(b.Upper-b.Lower)
		log.Printf("pushed %s to %g, above %s", *excessVar, v.Data[target], b)
	}

	if *badLat {
		ds.Coords[domain.CoordLatitude].Values[0] = 95
		log.Printf("moved first latitude to 95")
	}

	if err := ncadapter.Write(*out, ds); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s (%d x %d x %d x %d)", *out, opts.Times, opts.Levels, opts.Lats, opts.Lons)
	return nil
}
