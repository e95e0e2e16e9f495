// Package domain models the gridded numerical weather prediction (NWP) input
// consumed by the tropospheric delay workflow and the checks that gate it.
//
// # Data Source
//
// Inputs are ECMWF HRES model-level analyses, one file per model run
// (00, 06, 12 and 18 UTC). An upstream collector downloads each file and
// announces it on the job topic; file transfer is not handled here.
//
// # Grid Conventions
//
// Every field is defined on the same four axes, stored row-major in the order
// the file declares them (normally time, level, latitude, longitude):
//
//	longitude  degrees east, [0, 360]
//	latitude   degrees north, [-90, 90]
//	level      model level index, [0, 137] (L137 vertical grid)
//	time       hours since the file epoch, unconstrained
//
// Required fields and their accepted physical ranges:
//
//	t     temperature                  [140, 360] K
//	q     specific humidity            [0, 0.3] kg/kg
//	z     geopotential                 [-5000, 70000] m²/s²
//	lnsp  logarithm of surface pressure [10.2, 11.75]
//
// The ranges are wider than the physical climatology (t is roughly 165–330 K
// and q rarely exceeds 0.08 kg/kg) so only numerical artifacts trip them.
//
// # Validation Stages
//
//	1. Schema: coordinate names, variable names and coordinate domains.
//	   Every violation is collected and reported in one [SchemaError].
//	2. Audit: min, max and NaN count for a representative slice of each
//	   variable. z and lnsp do not vary with level so only time 0, level 0
//	   is read; t and q read every level at time 0. NaNs are fatal and are
//	   aggregated across variables into one [ValidationError].
//	3. Sanitize: variables whose slice fell outside the range are clipped
//	   to the nearest bound, in place.
//
// Slightly negative humidity from ECMWF interpolation is the usual reason a
// variable is clipped rather than rejected.
package domain
