package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := New(10, 1<<20, time.Minute)
	c.Put("k1", Value{Response: "hello"}, 0)

	v, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "hello", v.Response)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := New(10, 1<<20, time.Millisecond)
	c.Put("k1", Value{Response: "hello"}, time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k1")
	assert.False(t, ok)
}

func TestCache_LRUEvictsOldestWhenOverCapacity(t *testing.T) {
	c := New(2, 1<<20, time.Minute)
	c.Put("a", Value{Response: "1"}, 0)
	c.Put("b", Value{Response: "2"}, 0)
	c.Put("c", Value{Response: "3"}, 0)

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_GetOrCompute_SingleFlight(t *testing.T) {
	c := New(10, 1<<20, time.Minute)

	var calls atomic.Int32
	var wg sync.WaitGroup
	results := make([]Value, 5)

	start := make(chan struct{})
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			v, err := c.GetOrCompute("shared-key", time.Minute, func() (Value, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return Value{Response: "computed"}, nil
			})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "computed", r.Response)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New(10, 1<<20, time.Minute)
	c.Put("k1", Value{Response: "hello"}, 0)
	c.Invalidate("k1")

	_, ok := c.Get("k1")
	assert.False(t, ok)
}
