package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIDIsUniqueAndIncreasing(t *testing.T) {
	s, err := NewSnowflake(3)
	require.NoError(t, err)

	var prev int64
	for i := 0; i < 10000; i++ {
		id, err := s.NextID()
		require.NoError(t, err)
		require.Greater(t, id, prev)
		prev = id
	}

	_, machineID, _ := s.ParseID(prev)
	assert.Equal(t, int64(3), machineID)
}

func TestNextIDConcurrent(t *testing.T) {
	s, err := NewSnowflake(1)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
		wg   sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				id, err := s.NextID()
				assert.NoError(t, err)
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 4000)
}

func TestClockRollback(t *testing.T) {
	s, err := NewSnowflake(0)
	require.NoError(t, err)

	clock := int64(defaultEpoch + 1000)
	s.now = func() int64 { return clock }
	_, err = s.NextID()
	require.NoError(t, err)

	clock -= 100
	_, err = s.NextID()
	assert.ErrorContains(t, err, "clock moved backwards")
}

func TestInvalidMachineID(t *testing.T) {
	_, err := NewSnowflake(-1)
	assert.Error(t, err)
	_, err = NewSnowflake(maxMachineID + 1)
	assert.Error(t, err)
}
