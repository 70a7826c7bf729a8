package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_Sequence(t *testing.T) {
	tests := []struct {
		name    string
		clock   *Clock
		wantNow int64
		want    []int64
	}{
		{"fresh", NewClock(), 0, []int64{1, 2, 3}},
		{"resumed_after_journal", NewClockAt(41), 41, []int64{42, 43}},
		{"resumed_empty_journal", NewClockAt(0), 0, []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantNow, tt.clock.Current())
			for _, want := range tt.want {
				assert.Equal(t, want, tt.clock.Next())
			}
			assert.Equal(t, tt.want[len(tt.want)-1], tt.clock.Current())
		})
	}
}

func TestClock_ConcurrentNextIsGapFree(t *testing.T) {
	c := NewClockAt(10)
	const workers, perWorker = 8, 250

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
	for seq := int64(11); seq <= 10+workers*perWorker; seq++ {
		_, ok := seen[seq]
		require.True(t, ok, "seq %d missing", seq)
	}
	assert.Equal(t, int64(10+workers*perWorker), c.Current())
}
