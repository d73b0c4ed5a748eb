// Package parallel provides the chunked fan-out used for corpus scans and
// batch encoding.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64, // Documents per worker below which fan-out costs more than it saves.
	}
}

// Sequential returns a config that never spawns goroutines.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// Range is a half-open interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Chunks splits [0, n) into contiguous, ascending ranges, one per worker.
// A disabled config, or n below MinChunkSize, yields a single range.
func Chunks(n int, cfg Config) []Range {
	if n <= 0 {
		return nil
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		return []Range{{0, n}}
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
	out := make([]Range, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		out = append(out, Range{start, min(start+chunkSize, n)})
	}
	return out
}

// ForContext executes f(i) for i in [0, n), one goroutine per chunk.
// Cancellation is checked before every item; the first error stops the
// remaining items of every chunk and is returned.
func ForContext(ctx context.Context, n int, f func(ctx context.Context, i int) error, cfg Config) error {
	return ForChunks(ctx, n, func(ctx context.Context, _ int, r Range) error {
		for i := r.Start; i < r.End; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}, cfg)
}

// ForChunks runs f once per chunk of [0, n). chunk is the chunk's index in
// Chunks(n, cfg), so callers can reduce per-chunk results in order.
func ForChunks(ctx context.Context, n int, f func(ctx context.Context, chunk int, r Range) error, cfg Config) error {
	chunks := Chunks(n, cfg)
	if len(chunks) == 1 {
		return f(ctx, 0, chunks[0])
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range chunks {
		g.Go(func() error {
			return f(gctx, i, r)
		})
	}
	return g.Wait()
}
