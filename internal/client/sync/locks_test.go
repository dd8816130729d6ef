package sync

import (
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	var (
		wg      gosync.WaitGroup
		mu      gosync.Mutex
		counter int
		max     int
		active  int
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("doc-1")
			defer unlock()

			mu.Lock()
			active++
			if active > max {
				max = active
			}
			counter++
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
	require.Equal(t, 1, max)
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestKeyedMutex_EntriesAreReleased(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("a")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	require.Empty(t, km.locks)
}
