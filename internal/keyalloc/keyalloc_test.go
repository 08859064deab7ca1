package keyalloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidecore/side/internal/sideerr"
)

func TestRequestIsMonotonicAndAboveReserved(t *testing.T) {
	a := New()

	var prev uint64

	for i := 0; i < 100; i++ {
		key, err := a.Request()
		require.Equal(t, sideerr.OK, err)
		assert.GreaterOrEqual(t, key, firstDynamic)

		if i > 0 {
			assert.Greater(t, key, prev)
		}

		prev = key
	}
}

func TestRequestExhausted(t *testing.T) {
	a := &Allocator{next: 0}

	_, err := a.Request()
	assert.Equal(t, sideerr.NoMem, err)
}

func TestRequestConcurrentUnique(t *testing.T) {
	a := New()

	const n = 500

	seen := make(chan uint64, n)

	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			key, err := a.Request()
			require.Equal(t, sideerr.OK, err)
			seen <- key
		}()
	}

	wg.Wait()
	close(seen)

	unique := make(map[uint64]struct{}, n)
	for key := range seen {
		_, dup := unique[key]
		require.False(t, dup, "duplicate key %d", key)
		unique[key] = struct{}{}
	}

	assert.Len(t, unique, n)
}
