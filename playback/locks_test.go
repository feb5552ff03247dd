package playback

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocks_SerializesSameGuild(t *testing.T) {
	locks := NewLocks()
	var inside, maxInside atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("guild-1")
			defer unlock()

			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Zero(t, locks.len())
}

func TestLocks_GuildsDoNotBlockEachOther(t *testing.T) {
	locks := NewLocks()
	unlock := locks.Lock("guild-1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		other := locks.Lock("guild-2")
		other()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("guild-2 blocked behind guild-1")
	}
}

func TestLocks_UnlockTwice(t *testing.T) {
	locks := NewLocks()
	unlock := locks.Lock("guild-1")

	unlock()
	assert.NotPanics(t, unlock)
	assert.Zero(t, locks.len())

	again := locks.Lock("guild-1")
	again()
}
