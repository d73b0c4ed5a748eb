package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		name string
		n    int
		cfg  Config
		want []Range
	}{
		{
			name: "empty",
			n:    0,
			cfg:  Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1},
			want: nil,
		},
		{
			name: "disabled",
			n:    10,
			cfg:  Config{Enabled: false, NumWorkers: 4, MinChunkSize: 1},
			want: []Range{{0, 10}},
		},
		{
			name: "even split",
			n:    8,
			cfg:  Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1},
			want: []Range{{0, 2}, {2, 4}, {4, 6}, {6, 8}},
		},
		{
			name: "min chunk wins",
			n:    10,
			cfg:  Config{Enabled: true, NumWorkers: 8, MinChunkSize: 4},
			want: []Range{{0, 4}, {4, 8}, {8, 10}},
		},
		{
			name: "below min chunk",
			n:    3,
			cfg:  Config{Enabled: true, NumWorkers: 8, MinChunkSize: 4},
			want: []Range{{0, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunks(tt.n, tt.cfg))
		})
	}
}

func TestForContext_Error(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}
	boom := errors.New("boom")

	err := ForContext(context.Background(), 100, func(_ context.Context, i int) error {
		if i == 42 {
			return boom
		}
		return nil
	}, cfg)

	require.ErrorIs(t, err, boom)
}

func TestForContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var counter int64
	err := ForContext(ctx, 100, func(_ context.Context, _ int) error {
		atomic.AddInt64(&counter, 1)
		return nil
	}, Sequential())

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, counter)
}

func TestForChunks_OrderedReduction(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}
	n := 10
	chunks := Chunks(n, cfg)
	partial := make([][]int, len(chunks))

	err := ForChunks(context.Background(), n, func(_ context.Context, c int, r Range) error {
		for i := r.Start; i < r.End; i++ {
			partial[c] = append(partial[c], i)
		}
		return nil
	}, cfg)
	require.NoError(t, err)

	var all []int
	for _, p := range partial {
		all = append(all, p...)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)
}
