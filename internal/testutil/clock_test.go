package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDeterministicClock_AdvancesByStep(t *testing.T) {
	clock := NewDeterministicClock(epoch, time.Second)

	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, epoch.Add(time.Second), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Second), clock.Current())
}

func TestDeterministicClock_ZeroStepIsFrozen(t *testing.T) {
	clock := NewDeterministicClock(epoch, 0)

	assert.Equal(t, clock.Now(), clock.Now())
}

func TestDeterministicClock_SetMovesBackwards(t *testing.T) {
	clock := NewDeterministicClock(epoch, time.Second)
	clock.Now()

	clock.Set(epoch.Add(-time.Hour))
	assert.Equal(t, epoch.Add(-time.Hour), clock.Now())
}

func TestDeterministicClock_ConcurrentAccess(t *testing.T) {
	clock := NewDeterministicClock(epoch, time.Millisecond)

	var wg sync.WaitGroup
	seen := make(chan time.Time, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Now()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[time.Time]bool{}
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, 100)
	assert.Equal(t, epoch.Add(100*time.Millisecond), clock.Current())
}
