package domain

import (
	"errors"
	"fmt"
	"math"
)

// Coordinate and variable names of the HRES model-level grid.
const (
	CoordLongitude = "longitude"
	CoordLatitude  = "latitude"
	CoordLevel     = "level"
	CoordTime      = "time"

	VarGeopotential     = "z"
	VarTemperature      = "t"
	VarSpecificHumidity = "q"
	VarLogSurfPressure  = "lnsp"
)

// Bounds is an inclusive [Lower, Upper] interval.
type Bounds struct {
	Lower float64
	Upper float64
}

// Contains reports whether x lies within the bounds.
func (b Bounds) Contains(x float64) bool {
	return x >= b.Lower && x <= b.Upper
}

// Valid reports whether neither bound is NaN and Lower <= Upper.
func (b Bounds) Valid() bool {
	return !math.IsNaN(b.Lower) && !math.IsNaN(b.Upper) && b.Lower <= b.Upper
}

func (b Bounds) String() string {
	return fmt.Sprintf("(%g, %g)", b.Lower, b.Upper)
}

// GridSchema lists the required axes and variables and the legal domain of
// the bounded axes.
type GridSchema struct {
	Coords       []string
	Vars         []string
	CoordDomains map[string]Bounds
}

// DefaultSchema is the HRES model-level schema.
var DefaultSchema = GridSchema{
	Coords: []string{CoordLongitude, CoordLatitude, CoordLevel, CoordTime},
	Vars:   []string{VarGeopotential, VarTemperature, VarSpecificHumidity, VarLogSurfPressure},
	CoordDomains: map[string]Bounds{
		CoordLatitude:  {Lower: -90, Upper: 90},
		CoordLongitude: {Lower: 0, Upper: 360},
		CoordLevel:     {Lower: 0, Upper: 137},
	},
}

// ErrMissingRange is returned by RangePolicy.Lookup for a variable without a
// usable range entry.
var ErrMissingRange = errors.New("invalid or missing valid range")

// RangePolicy maps a variable name to its accepted physical range.
type RangePolicy map[string]Bounds

// DefaultRanges are deliberately looser than the physical climatology.
var DefaultRanges = RangePolicy{
	VarTemperature:      {Lower: 140.0, Upper: 360.0},
	VarSpecificHumidity: {Lower: 0.0, Upper: 0.3},
	VarGeopotential:     {Lower: -5000.0, Upper: 70000.0},
	VarLogSurfPressure:  {Lower: 10.2, Upper: 11.75},
}

// Lookup returns the range for name. A missing or malformed entry is a
// configuration defect and yields ErrMissingRange.
func (p RangePolicy) Lookup(name string) (Bounds, error) {
	b, ok := p[name]
	if !ok || !b.Valid() {
		return Bounds{}, fmt.Errorf("%w for variable '%s'", ErrMissingRange, name)
	}
	return b, nil
}

// levelInvariant variables are audited on a single level.
func levelInvariant(name string) bool {
	return name == VarGeopotential || name == VarLogSurfPressure
}

// auditSelection is the representative slice read for a variable.
func auditSelection(name string) map[string]int {
	if levelInvariant(name) {
		return map[string]int{CoordTime: 0, CoordLevel: 0}
	}
	return map[string]int{CoordTime: 0}
}
