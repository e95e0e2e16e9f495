package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Verdict classifies the outcome of auditing one variable.
type Verdict string

const (
	VerdictOK         Verdict = "ok"
	VerdictOutOfRange Verdict = "out_of_range"
	VerdictMissing    Verdict = "nan"
	VerdictAllMissing Verdict = "all_missing"
	VerdictError      Verdict = "error"
)

// Finding is the audit record of one variable.
type Finding struct {
	Variable string
	Stats    Stats
	Bounds   Bounds
	Verdict  Verdict
}

// VariableAudit is the result of auditing one variable: a Finding, plus an
// Issue when the variable must fail the audit.
type VariableAudit struct {
	Finding Finding
	Issue   string
}

// Failed reports whether the variable contributes to a ValidationError.
func (a VariableAudit) Failed() bool {
	return a.Issue != ""
}

// Auditor checks each required variable for NaNs and range excursions.
type Auditor struct {
	engine StatsEngine
	policy RangePolicy
	vars   []string
	logger *slog.Logger
}

// NewAuditor creates an Auditor over the default variables. A nil policy
// uses DefaultRanges.
func NewAuditor(engine StatsEngine, policy RangePolicy, logger *slog.Logger) *Auditor {
	if policy == nil {
		policy = DefaultRanges
	}
	return &Auditor{
		engine: engine,
		policy: policy,
		vars:   DefaultSchema.Vars,
		logger: logger,
	}
}

// Audit returns the findings of variables that are out of range but
// otherwise clean. NaNs, all-NaN slices and per-variable processing errors
// are collected over every variable and returned together as a
// *ValidationError.
func (a *Auditor) Audit(ctx context.Context, ds *Dataset) (map[string]Finding, error) {
	results, err := a.Inspect(ctx, ds)
	if err != nil {
		return nil, err
	}
	return Aggregate(results)
}

// Inspect audits every variable and returns one result per variable. A
// failing variable never stops the others; only context cancellation aborts
// the pass.
func (a *Auditor) Inspect(ctx context.Context, ds *Dataset) ([]VariableAudit, error) {
	results := make([]VariableAudit, 0, len(a.vars))
	for _, name := range a.vars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := a.auditVariable(ctx, ds, name)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Aggregate folds per-variable results into the out-of-range map, or a
// *ValidationError listing every issue.
func Aggregate(results []VariableAudit) (map[string]Finding, error) {
	var issues []string
	outOfRange := make(map[string]Finding)
	for _, r := range results {
		if r.Failed() {
			issues = append(issues, r.Issue)
			continue
		}
		if r.Finding.Verdict == VerdictOutOfRange {
			outOfRange[r.Finding.Variable] = r.Finding
		}
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return outOfRange, nil
}

// auditVariable returns an error only for context cancellation; everything
// else becomes an Issue on the result.
func (a *Auditor) auditVariable(ctx context.Context, ds *Dataset, name string) (VariableAudit, error) {
	res := VariableAudit{Finding: Finding{Variable: name, Stats: EmptyStats(), Verdict: VerdictError}}

	v, ok := ds.Vars[name]
	if !ok {
		res.Issue = fmt.Sprintf("Error processing variable %q: variable not found", name)
		return res, nil
	}
	longName := v.LongName()

	slice, err := v.Isel(auditSelection(name))
	if err != nil {
		res.Issue = fmt.Sprintf("Error processing variable %q: %v", name, err)
		return res, nil
	}

	stats, err := a.engine.Stats(ctx, slice)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Issue = fmt.Sprintf("Unexpected error processing variable %q: %v", name, err)
		return res, nil
	}
	res.Finding.Stats = stats

	if stats.AllMissing() {
		res.Finding.Verdict = VerdictAllMissing
		res.Issue = fmt.Sprintf("Variable %q (%s) contains only NaN values.", name, longName)
		return res, nil
	}

	bounds, err := a.policy.Lookup(name)
	if err != nil {
		res.Issue = fmt.Sprintf("Error processing variable %q: %v", name, err)
		return res, nil
	}
	res.Finding.Bounds = bounds

	if stats.Min < bounds.Lower || stats.Max > bounds.Upper {
		a.logger.Warn("variable out of valid range",
			"variable", name,
			"valid_range", bounds.String(),
			"min", stats.Min,
			"max", stats.Max,
		)
		res.Finding.Verdict = VerdictOutOfRange
	} else {
		a.logger.Info("variable stats",
			"variable", name,
			"min", stats.Min,
			"max", stats.Max,
			"nans", stats.NaNCount,
		)
		res.Finding.Verdict = VerdictOK
	}

	if stats.NaNCount > 0 {
		res.Finding.Verdict = VerdictMissing
		res.Issue = fmt.Sprintf("Data Variable %q (%s) contains %d NaNs.", name, longName, stats.NaNCount)
	}
	return res, nil
}

// IsValidationFailure reports whether err is a schema or audit failure of the
// input rather than an operational error.
func IsValidationFailure(err error) bool {
	var se *SchemaError
	var ve *ValidationError
	return errors.As(err, &se) || errors.As(err, &ve)
}
