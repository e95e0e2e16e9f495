package domain

import (
	"math"
	"time"
)

// Validation outcomes, as reported and counted.
const (
	OutcomeValid   = "valid"
	OutcomeClipped = "clipped"
	OutcomeInvalid = "invalid"
)

// VariableReport is the JSON form of a Finding. Min and Max are null when the
// audited slice was entirely NaN.
type VariableReport struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	NaNCount int      `json:"nan_count"`
	Lower    float64  `json:"valid_min"`
	Upper    float64  `json:"valid_max"`
	Verdict  Verdict  `json:"verdict"`
	Clipped  int      `json:"clipped,omitempty"`
}

// Report summarizes one validation run over an input file.
type Report struct {
	JobID          string                    `json:"job_id,omitempty"`
	RunID          string                    `json:"run_id"`
	Source         string                    `json:"source"`
	Output         string                    `json:"output,omitempty"`
	Valid          bool                      `json:"valid"`
	Variables      map[string]VariableReport `json:"variables,omitempty"`
	Issues         []string                  `json:"issues,omitempty"`
	CheckedAt      time.Time                 `json:"checked_at"`
	ElapsedSeconds float64                   `json:"elapsed_seconds"`
}

// Outcome classifies the report as valid, clipped or invalid.
func (r Report) Outcome() string {
	if !r.Valid {
		return OutcomeInvalid
	}
	for _, v := range r.Variables {
		if v.Verdict == VerdictOutOfRange {
			return OutcomeClipped
		}
	}
	return OutcomeValid
}

// ClippedVariables returns the names of variables that were clipped.
func (r Report) ClippedVariables() []string {
	var names []string
	for _, name := range sortedKeys(r.Variables) {
		if r.Variables[name].Clipped > 0 {
			names = append(names, name)
		}
	}
	return names
}

func newVariableReport(f Finding) VariableReport {
	return VariableReport{
		Min:      floatPtr(f.Stats.Min),
		Max:      floatPtr(f.Stats.Max),
		NaNCount: f.Stats.NaNCount,
		Lower:    f.Bounds.Lower,
		Upper:    f.Bounds.Upper,
		Verdict:  f.Verdict,
	}
}

func floatPtr(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}
