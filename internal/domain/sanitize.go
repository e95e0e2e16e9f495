package domain

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"
)

// Sanitizer runs the schema check and the audit, then clips variables that
// are out of range but otherwise clean.
type Sanitizer struct {
	schema  GridSchema
	auditor *Auditor
	logger  *slog.Logger
}

// NewSanitizer creates a Sanitizer using the default schema and ranges.
func NewSanitizer(engine StatsEngine, logger *slog.Logger) *Sanitizer {
	return &Sanitizer{
		schema:  DefaultSchema,
		auditor: NewAuditor(engine, DefaultRanges, logger),
		logger:  logger,
	}
}

// ValidateInput validates ds and clips out-of-range variables in place. It
// returns ds itself on success. On failure nothing has been clipped and the
// error is a *SchemaError or *ValidationError, or a context error.
func (s *Sanitizer) ValidateInput(ctx context.Context, ds *Dataset) (*Dataset, error) {
	if _, err := s.Sanitize(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// Sanitize is ValidateInput returning the run's Report. The report is filled
// as far as the run got, including on error.
func (s *Sanitizer) Sanitize(ctx context.Context, ds *Dataset) (report Report, err error) {
	start := clock.Now()
	report.RunID = uuid.NewString()
	report.CheckedAt = start.UTC()
	defer func() {
		elapsed := clock.Since(start)
		report.ElapsedSeconds = elapsed.Seconds()
		s.logger.Debug("validate input finished",
			"elapsed_minutes", elapsed.Minutes(),
			"elapsed_seconds", elapsed.Seconds(),
		)
	}()

	s.logger.Info("performing checkup of input file", "run_id", report.RunID)

	s.logger.Info("checking coordinate ranges and data variables")
	if err := s.schema.Check(ds); err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			report.Issues = se.Issues
		}
		return report, err
	}

	s.logger.Info("checking nans and data valid range")
	results, err := s.auditor.Inspect(ctx, ds)
	if err != nil {
		return report, err
	}
	report.Variables = make(map[string]VariableReport, len(results))
	for _, r := range results {
		report.Variables[r.Finding.Variable] = newVariableReport(r.Finding)
	}

	outOfRange, err := Aggregate(results)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			report.Issues = ve.Issues
		}
		return report, err
	}

	names := make([]string, 0, len(outOfRange))
	for name := range outOfRange {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := outOfRange[name].Bounds
		n := ds.Vars[name].Clip(b.Lower, b.Upper)
		s.logger.Info("clipped variable to valid range",
			"variable", name,
			"valid_range", b.String(),
			"values_clipped", n,
		)
		vr := report.Variables[name]
		vr.Clipped = n
		report.Variables[name] = vr
	}

	report.Valid = true
	return report, nil
}
