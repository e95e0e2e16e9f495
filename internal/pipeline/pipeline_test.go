package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opera-adt/tropo-validator/internal/domain"
	"github.com/opera-adt/tropo-validator/internal/observability"
	"github.com/opera-adt/tropo-validator/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawJob
	errs    []error
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawJob, error) {
	i := int(m.index.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	reports map[string]domain.Report
	err     error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawJob) (domain.Report, error) {
	if m.err != nil {
		return domain.Report{}, m.err
	}
	if r, ok := m.reports[string(raw.Key)]; ok {
		return r, nil
	}
	return domain.Report{JobID: string(raw.Key), Valid: true}, nil
}

type mockLoader struct {
	loaded []domain.Report
	err    error
	calls  int
}

func (m *mockLoader) LoadBatch(_ context.Context, reports []domain.Report) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, reports...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

func job(key string) domain.RawJob {
	return domain.RawJob{Key: []byte(key), Value: []byte(`{"input_file":"/data/` + key + `.nc"}`)}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawJob{{job("a"), job("b")}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	require.Error(t, p.CheckReadiness(context.Background()))
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "a", ldr.loaded[0].JobID)
	assert.NoError(t, p.CheckReadiness(context.Background()))
	last, ok := p.LastReport()
	require.True(t, ok)
	assert.Equal(t, "b", last.JobID)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.JobsConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ReportsProduced))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Validations.WithLabelValues(domain.OutcomeValid)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	_, ok := p.LastReport()
	assert.False(t, ok)
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var commits atomic.Int32
	raw := job("bad")
	raw.Commit = func(context.Context) error {
		commits.Add(1)
		return nil
	}
	ext := &mockExtractor{batches: [][]domain.RawJob{{raw}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, &mockTransformer{err: errors.New("stat input: no such file")}, ldr, discardLogger(), metrics, 10)

	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.Zero(t, ldr.calls)
	assert.Equal(t, int32(1), commits.Load(), "poison message is committed")
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Validations.WithLabelValues("error")))
}

func TestPipeline_Run_InvalidReportIsPublished(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawJob{{job("nan"), job("clip")}}}
	tfm := &mockTransformer{reports: map[string]domain.Report{
		"nan": {
			JobID:  "nan",
			Issues: []string{`Data Variable "t" (Temperature) contains 1 NaNs.`},
		},
		"clip": {
			JobID: "clip",
			Valid: true,
			Variables: map[string]domain.VariableReport{
				"q": {Verdict: domain.VerdictOutOfRange, Clipped: 4},
			},
		},
	}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, tfm, ldr, discardLogger(), metrics, 10)

	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 2)
	assert.False(t, ldr.loaded[0].Valid)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Validations.WithLabelValues(domain.OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Validations.WithLabelValues(domain.OutcomeClipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.VariablesClipped.WithLabelValues("q")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuditIssues))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var committed atomic.Bool
	raw := job("a")
	raw.Commit = func(context.Context) error {
		committed.Store(true)
		return nil
	}
	ext := &mockExtractor{batches: [][]domain.RawJob{{raw}}}
	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, 300*time.Millisecond)

	assert.True(t, committed.Load())
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var committed atomic.Bool
	raw := job("a")
	raw.Commit = func(context.Context) error {
		committed.Store(true)
		return nil
	}
	ext := &mockExtractor{batches: [][]domain.RawJob{{raw}}}
	ldr := &mockLoader{err: errors.New("broker unavailable")}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, 1, ldr.calls)
	assert.False(t, committed.Load())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{
		errs:    []error{errors.New("coordinator not available")},
		batches: [][]domain.RawJob{nil, {job("late")}},
	}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, time.Second)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "late", ldr.loaded[0].JobID)
}
