package rcu

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynchronizeWaitsForActiveReaders(t *testing.T) {
	d := NewDomain()

	g := d.ReadLock()

	done := make(chan struct{})

	go func() {
		d.Synchronize()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Synchronize returned while a reader was still active")
	case <-time.After(20 * time.Millisecond):
	}

	d.ReadUnlock(g)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Synchronize did not return after the reader exited")
	}
}

func TestSynchronizeWithNoReadersReturnsImmediately(t *testing.T) {
	d := NewDomain()
	d.Synchronize()
}

func TestConcurrentReadersAndSynchronize(t *testing.T) {
	d := NewDomain()

	var wg sync.WaitGroup

	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-stop:
					return
				default:
				}

				g := d.ReadLock()
				d.ReadUnlock(g)
			}
		}()
	}

	for i := 0; i < 50; i++ {
		d.Synchronize()
	}

	close(stop)
	wg.Wait()
}

func TestReadLockRetriesAcrossConcurrentSynchronize(t *testing.T) {
	d := NewDomain()

	var ready sync.WaitGroup

	ready.Add(1)

	go func() {
		ready.Wait()
		d.Synchronize()
	}()

	ready.Done()

	g := d.ReadLock()
	require.NotNil(t, g)

	d.ReadUnlock(g)
	assert.True(t, true)
}
