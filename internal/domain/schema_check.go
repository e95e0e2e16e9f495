package domain

import (
	"fmt"
	"slices"
	"strings"
)

// CheckSchema verifies the coordinate set, variable set and coordinate
// domains of ds against the default schema.
func CheckSchema(ds *Dataset) error {
	return DefaultSchema.Check(ds)
}

// Check collects every schema violation in ds and returns them together as a
// *SchemaError, or nil when the dataset conforms. It never modifies ds.
func (g GridSchema) Check(ds *Dataset) error {
	var issues []string

	if missing, extra := setDiff(g.Coords, ds.CoordNames()); len(missing)+len(extra) > 0 {
		issues = append(issues, fmt.Sprintf("Unexpected coordinates. Missing: %s, Extra: %s",
			formatSet(missing), formatSet(extra)))
	}

	for _, name := range []string{CoordLatitude, CoordLongitude, CoordLevel} {
		domain, ok := g.CoordDomains[name]
		if !ok {
			continue
		}
		c, ok := ds.Coords[name]
		if !ok {
			continue
		}
		lo, hi := c.Bounds()
		if lo < domain.Lower || hi > domain.Upper {
			issues = append(issues, fmt.Sprintf("%s values must be within %s",
				capitalize(name), domain))
		}
	}

	if missing, extra := setDiff(g.Vars, ds.VarNames()); len(missing)+len(extra) > 0 {
		issues = append(issues, fmt.Sprintf("Unexpected data variables. Missing: %s, Extra: %s",
			formatSet(missing), formatSet(extra)))
	}

	if len(issues) > 0 {
		return &SchemaError{Issues: issues}
	}
	return nil
}

// setDiff returns the sorted names in want but not in got, and in got but
// not in want.
func setDiff(want, got []string) ([]string, []string) {
	var missing, extra []string
	for _, w := range want {
		if !slices.Contains(got, w) {
			missing = append(missing, w)
		}
	}
	for _, g := range got {
		if !slices.Contains(want, g) {
			extra = append(extra, g)
		}
	}
	slices.Sort(missing)
	slices.Sort(extra)
	return missing, extra
}

func formatSet(names []string) string {
	return "{" + strings.Join(names, ", ") + "}"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
