// Package compute evaluates block reductions on a bounded pool of goroutines.
package compute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opera-adt/tropo-validator/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// bytesPerValue is the in-memory size of one grid value.
const bytesPerValue = 8

// ErrBlockTooLarge is returned when a single block would not fit in the
// per-thread share of the worker memory limit.
var ErrBlockTooLarge = errors.New("block exceeds worker memory limit")

// Settings sizes the pool. They mirror the run configuration's worker
// settings.
type Settings struct {
	Workers          int
	ThreadsPerWorker int
	// MemoryLimit is the per-worker memory cap in bytes. Zero disables the check.
	MemoryLimit int64
	// BlockShape is the (rows, cols) block size; a block is a contiguous run of
	// at most rows*cols values.
	BlockShape [2]int
}

// DefaultSettings matches the workflow defaults: 4 workers with 2 threads,
// 8GB each, 128x128 blocks.
func DefaultSettings() Settings {
	return Settings{
		Workers:          4,
		ThreadsPerWorker: 2,
		MemoryLimit:      8 << 30,
		BlockShape:       [2]int{128, 128},
	}
}

// Pool implements domain.StatsEngine by reducing blocks concurrently and
// merging the partial results once all blocks are done.
type Pool struct {
	concurrency int
	blockSize   int
	duration    prometheus.Observer
}

// New validates the settings and creates a Pool.
func New(s Settings) (*Pool, error) {
	if s.Workers <= 0 || s.ThreadsPerWorker <= 0 {
		return nil, fmt.Errorf("workers and threads per worker must be positive, got %d and %d", s.Workers, s.ThreadsPerWorker)
	}
	if s.BlockShape[0] <= 0 || s.BlockShape[1] <= 0 {
		return nil, fmt.Errorf("block shape must be positive, got %v", s.BlockShape)
	}
	blockSize := s.BlockShape[0] * s.BlockShape[1]
	if s.MemoryLimit > 0 {
		perThread := s.MemoryLimit / int64(s.ThreadsPerWorker)
		if int64(blockSize)*bytesPerValue > perThread {
			return nil, fmt.Errorf("%w: %d bytes per block, %d bytes per thread", ErrBlockTooLarge, blockSize*bytesPerValue, perThread)
		}
	}
	return &Pool{
		concurrency: s.Workers * s.ThreadsPerWorker,
		blockSize:   blockSize,
	}, nil
}

// WithDurationObserver records the wall time of each reduction.
func (p *Pool) WithDurationObserver(o prometheus.Observer) *Pool {
	p.duration = o
	return p
}

// Concurrency returns the maximum number of blocks reduced at once.
func (p *Pool) Concurrency() int {
	return p.concurrency
}

// Stats reduces the slice block by block. It blocks until every block is
// done, the first failure, or context cancellation.
func (p *Pool) Stats(ctx context.Context, s domain.Slice) (domain.Stats, error) {
	start := time.Now()
	defer func() {
		if p.duration != nil {
			p.duration.Observe(time.Since(start).Seconds())
		}
	}()

	blocks := s.Blocks(p.blockSize)
	partials := make([]domain.Stats, len(blocks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, b := range blocks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[i] = domain.ReduceBlock(b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Stats{}, fmt.Errorf("reduce %s: %w", s.Variable, err)
	}

	out := domain.EmptyStats()
	for _, part := range partials {
		out = out.Merge(part)
	}
	return out, nil
}
