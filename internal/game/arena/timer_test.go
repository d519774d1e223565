package arena_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/arena"
)

func TestTimerFires(t *testing.T) {
	r := arena.NewTimerRegistry(zap.NewNop())
	defer r.Stop()

	fired := make(chan struct{})
	r.Arm("ev1", "lifecycle", time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	assert.Empty(t, r.PendingFor("ev1"))
}

func TestTimerCancel(t *testing.T) {
	r := arena.NewTimerRegistry(zap.NewNop())
	defer r.Stop()

	fired := make(chan struct{})
	r.Arm("ev1", "lifecycle", 50*time.Millisecond, func() { close(fired) })
	assert.True(t, r.Cancel("ev1", "lifecycle"))

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(150 * time.Millisecond):
	}
	assert.False(t, r.Cancel("ev1", "lifecycle"), "second cancel finds nothing")
}

func TestTimerArmReplacesPending(t *testing.T) {
	r := arena.NewTimerRegistry(zap.NewNop())
	defer r.Stop()

	var mu sync.Mutex
	var calls []string
	done := make(chan struct{})

	r.Arm("ev1", "lifecycle", 50*time.Millisecond, func() {
		mu.Lock()
		calls = append(calls, "first")
		mu.Unlock()
	})
	r.Arm("ev1", "lifecycle", time.Millisecond, func() {
		mu.Lock()
		calls = append(calls, "second")
		mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement timer did not fire")
	}
	// Give the replaced timer a chance to misfire.
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"second"}, calls)
}

func TestTimerKeysAreIndependent(t *testing.T) {
	r := arena.NewTimerRegistry(zap.NewNop())
	defer r.Stop()

	r.Arm("ev1", "lifecycle", time.Hour, func() {})
	r.Arm("ev1", "recurring", time.Hour, func() {})
	r.Arm("ev2", "lifecycle", time.Hour, func() {})

	assert.Equal(t, []string{"lifecycle", "recurring"}, r.PendingFor("ev1"))
	assert.Equal(t, []string{"lifecycle"}, r.PendingFor("ev2"))

	assert.Equal(t, 2, r.CancelAllFor("ev1"))
	assert.Empty(t, r.PendingFor("ev1"))
	assert.Equal(t, []string{"lifecycle"}, r.PendingFor("ev2"))
}

func TestTimerCallbackPanicIsContained(t *testing.T) {
	r := arena.NewTimerRegistry(zap.NewNop())
	defer r.Stop()

	survived := make(chan struct{})
	r.Arm("ev1", "lifecycle", time.Millisecond, func() { panic("boom") })
	r.Arm("ev2", "lifecycle", 20*time.Millisecond, func() { close(survived) })

	select {
	case <-survived:
	case <-time.After(2 * time.Second):
		t.Fatal("panicking callback stopped other timers")
	}
}

func TestTimerStop(t *testing.T) {
	r := arena.NewTimerRegistry(zap.NewNop())

	fired := make(chan struct{}, 2)
	r.Arm("ev1", "lifecycle", 50*time.Millisecond, func() { fired <- struct{}{} })
	r.Arm("ev2", "lifecycle", 50*time.Millisecond, func() { fired <- struct{}{} })
	r.Stop()

	select {
	case <-fired:
		t.Fatal("timer fired after Stop")
	case <-time.After(150 * time.Millisecond):
	}
}
