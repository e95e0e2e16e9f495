package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opera-adt/tropo-validator/internal/domain"
	"github.com/opera-adt/tropo-validator/internal/observability"
)

// DatasetLoader reads an input file into a dataset.
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*domain.Dataset, error)
}

// DatasetWriteFunc stores a sanitized dataset.
type DatasetWriteFunc func(path string, ds *domain.Dataset) error

// Validator implements Transformer: it loads the job's input file, sanitizes
// it and returns the validation report. An input that fails validation still
// yields a report; only jobs that cannot be evaluated return an error.
type Validator struct {
	loader    DatasetLoader
	sanitizer *domain.Sanitizer
	cache     *ReportCache
	logger    *slog.Logger
	metrics   *observability.Metrics

	write  DatasetWriteFunc
	suffix string
}

// NewValidator creates a Validator. Pass a nil cache to validate every job.
func NewValidator(loader DatasetLoader, sanitizer *domain.Sanitizer, cache *ReportCache, logger *slog.Logger, metrics *observability.Metrics) *Validator {
	return &Validator{
		loader:    loader,
		sanitizer: sanitizer,
		cache:     cache,
		logger:    logger,
		metrics:   metrics,
	}
}

// WithSanitizedOutput writes each successfully sanitized dataset next to its
// input, with suffix inserted before the extension.
func (v *Validator) WithSanitizedOutput(suffix string, write DatasetWriteFunc) *Validator {
	v.suffix = suffix
	v.write = write
	return v
}

func (v *Validator) Transform(ctx context.Context, raw domain.RawJob) (domain.Report, error) {
	job, err := domain.ParseJob(raw)
	if err != nil {
		return domain.Report{}, err
	}

	info, err := os.Stat(job.InputFile)
	if err != nil {
		return domain.Report{}, fmt.Errorf("stat input %s: %w", job.InputFile, err)
	}
	key := cacheKey(job.InputFile, info)
	if v.cache != nil {
		if report, ok := v.cache.Get(key); ok {
			v.metrics.ReportCache.WithLabelValues("hit").Inc()
			v.logger.Info("report served from cache", "job_id", job.ID, "input_file", job.InputFile)
			report.JobID = job.ID
			return report, nil
		}
		v.metrics.ReportCache.WithLabelValues("miss").Inc()
	}

	ds, err := v.loader.Load(ctx, job.InputFile)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load input %s: %w", job.InputFile, err)
	}

	report, err := v.sanitizer.Sanitize(ctx, ds)
	report.JobID = job.ID
	report.Source = job.InputFile
	if err != nil {
		if !domain.IsValidationFailure(err) {
			return domain.Report{}, fmt.Errorf("validate %s: %w", job.InputFile, err)
		}
		v.logger.Warn("input failed validation",
			"job_id", job.ID,
			"input_file", job.InputFile,
			"issues", len(report.Issues),
		)
	}

	if report.Valid && v.write != nil && v.suffix != "" {
		out := sanitizedPath(job.InputFile, v.suffix)
		if err := v.write(out, ds); err != nil {
			return domain.Report{}, fmt.Errorf("write sanitized dataset: %w", err)
		}
		report.Output = out
		v.logger.Info("wrote sanitized dataset", "job_id", job.ID, "output_file", out)
	}

	if v.cache != nil {
		v.cache.Put(key, report)
	}
	return report, nil
}

// sanitizedPath inserts suffix before the file extension.
func sanitizedPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}
