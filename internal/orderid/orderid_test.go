package orderid

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_UniqueUnderConcurrency(t *testing.T) {
	const workers = 20
	const perWorker = 500 // 10k ids total

	results := make([][]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			ids := make([]string, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				ids = append(ids, Next())
			}
			results[slot] = ids
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers*perWorker)
	for _, ids := range results {
		for _, id := range ids {
			_, dup := seen[id]
			require.False(t, dup, "duplicate order id %s", id)
			seen[id] = struct{}{}
		}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestNext_TimestampsNonDecreasing(t *testing.T) {
	prev := time.Time{}
	for i := 0; i < 1000; i++ {
		id := Next()
		ts, err := Timestamp(id)
		require.NoError(t, err)
		assert.False(t, ts.Before(prev), "timestamp went backwards at sample %d", i)
		prev = ts
	}
}

func TestNext_TimestampCloseToNow(t *testing.T) {
	before := time.Now().Add(-time.Second)
	ts, err := Timestamp(Next())
	require.NoError(t, err)
	assert.True(t, ts.After(before))
	assert.True(t, ts.Before(time.Now().Add(time.Second)))
}

func TestTimestamp_Malformed(t *testing.T) {
	_, err := Timestamp("not-a-number")
	assert.Error(t, err)
}
