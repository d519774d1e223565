package arena

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// timerKey names a one-shot timer: the subject entity plus a schedule-type tag.
type timerKey struct {
	subject string
	tag     string
}

// TimerRegistry owns all named, one-shot, cancellable timers for the arena
// subsystem. Timers are keyed by (subject entity, schedule-type tag); arming
// a key that already has a pending timer replaces it.
//
// Callbacks are serialized through a single dispatch mutex so two timer
// callbacks never run concurrently; every public operation observed from a
// callback runs to completion before the next callback starts.
type TimerRegistry struct {
	mu     sync.Mutex
	timers map[timerKey]*time.Timer

	dispatchMu sync.Mutex
	logger     *zap.Logger
}

// NewTimerRegistry creates an empty TimerRegistry.
//
// Precondition: logger must be non-nil.
func NewTimerRegistry(logger *zap.Logger) *TimerRegistry {
	return &TimerRegistry{
		timers: make(map[timerKey]*time.Timer),
		logger: logger,
	}
}

// Arm registers a one-shot timer firing fn after d, replacing any pending
// timer with the same key. A non-positive d fires as soon as the dispatch
// mutex is free.
//
// Precondition: subject and tag must be non-empty; fn must not be nil.
// Postcondition: fn will be called once unless the key is cancelled first.
func (r *TimerRegistry) Arm(subject, tag string, d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	key := timerKey{subject: subject, tag: tag}

	r.mu.Lock()
	if old, ok := r.timers[key]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		r.mu.Lock()
		current, ok := r.timers[key]
		if ok && current == t {
			delete(r.timers, key)
		}
		r.mu.Unlock()
		if !ok || current != t {
			// Cancelled or replaced after firing was already committed.
			return
		}
		r.dispatch(key, fn)
	})
	r.timers[key] = t
	r.mu.Unlock()
}

// dispatch runs fn under the dispatch mutex, recovering panics so one
// subject's callback can never stop the timer loop for other subjects.
func (r *TimerRegistry) dispatch(key timerKey, fn func()) {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("timer callback panicked",
				zap.String("subject", key.subject),
				zap.String("tag", key.tag),
				zap.Any("panic", rec),
			)
		}
	}()
	fn()
}

// Cancel removes the pending timer for (subject, tag).
//
// Postcondition: Returns true iff a pending timer was removed.
func (r *TimerRegistry) Cancel(subject, tag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := timerKey{subject: subject, tag: tag}
	t, ok := r.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(r.timers, key)
	return true
}

// CancelAllFor removes every pending timer tagged for the given subject.
//
// Postcondition: Returns the number of timers removed; PendingFor(subject)
// is empty afterwards.
func (r *TimerRegistry) CancelAllFor(subject string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, t := range r.timers {
		if key.subject == subject {
			t.Stop()
			delete(r.timers, key)
			removed++
		}
	}
	return removed
}

// PendingFor returns the tags of all pending timers for the subject, sorted.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (r *TimerRegistry) PendingFor(subject string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	tags := []string{}
	for key := range r.timers {
		if key.subject == subject {
			tags = append(tags, key.tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// Stop cancels every pending timer. Used at shutdown.
func (r *TimerRegistry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, t := range r.timers {
		t.Stop()
		delete(r.timers, key)
	}
}
