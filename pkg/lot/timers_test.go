package lot

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerRegistry_ResetArmsPair(t *testing.T) {
	r := NewTimerRegistry(20*time.Millisecond, 40*time.Millisecond)

	var notifies, flushes atomic.Int32
	r.Reset("conv",
		func(string) { notifies.Add(1) },
		func(string) { flushes.Add(1) },
	)

	assert.True(t, r.Pending("conv"))
	assert.Equal(t, 1, r.Size())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), notifies.Load())
	assert.Equal(t, int32(1), flushes.Load())
}

func TestTimerRegistry_ResetCancelsPrevious(t *testing.T) {
	r := NewTimerRegistry(40*time.Millisecond, 80*time.Millisecond)

	var notifies, flushes atomic.Int32
	onNotify := func(string) { notifies.Add(1) }
	onFlush := func(string) { flushes.Add(1) }

	// Re-arm repeatedly before anything can fire.
	for i := 0; i < 5; i++ {
		r.Reset("conv", onNotify, onFlush)
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, 1, r.Size())

	time.Sleep(150 * time.Millisecond)
	// Only the pair from the last reset fired.
	assert.Equal(t, int32(1), notifies.Load())
	assert.Equal(t, int32(1), flushes.Load())
}

func TestTimerRegistry_Clear(t *testing.T) {
	r := NewTimerRegistry(30*time.Millisecond, 60*time.Millisecond)

	var fired atomic.Int32
	r.Reset("conv",
		func(string) { fired.Add(1) },
		func(string) { fired.Add(1) },
	)

	r.Clear("conv")
	assert.False(t, r.Pending("conv"))
	assert.Equal(t, 0, r.Size())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestTimerRegistry_ClearAbsentIsNoop(t *testing.T) {
	r := NewTimerRegistry(time.Second, 2*time.Second)

	r.Clear("never-armed")
	assert.Equal(t, 0, r.Size())
}

func TestTimerRegistry_PerConversationPairs(t *testing.T) {
	r := NewTimerRegistry(time.Second, 2*time.Second)

	noop := func(string) {}
	r.Reset("a", noop, noop)
	r.Reset("b", noop, noop)

	assert.Equal(t, 2, r.Size())

	r.Clear("a")
	assert.False(t, r.Pending("a"))
	assert.True(t, r.Pending("b"))
}

func TestNewTimerRegistry_DefaultsOnInvalidDelays(t *testing.T) {
	r := NewTimerRegistry(0, 0)

	assert.Equal(t, DefaultNotifyAfter, r.notifyAfter)
	assert.True(t, r.flushAfter > r.notifyAfter)
}
