// Package scheduler provides the minimal timer capability the coordinator
// needs: schedule a callback after a delay, and cancel it before it fires.
// TimerEngine and the post-conclusion delete timer are its only users.
package scheduler

import "time"

// Handle identifies a scheduled callback so it can be cancelled.
type Handle interface {
	// Cancel prevents the callback from firing. It is safe to call more
	// than once and safe to call after the callback has already fired.
	Cancel()
}

// Scheduler schedules delayed callbacks. Implementations must tolerate a
// Cancel race with an in-flight fire: the production implementation relies
// on time.Timer.Stop's documented behavior, and callers additionally guard
// with precondition rechecks per spec §5.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Handle
	// Now returns the scheduler's notion of the current time, so callers
	// that need "now" for deadline arithmetic stay swappable with a
	// virtual clock in tests.
	Now() time.Time
}

// Real is a Scheduler backed by time.AfterFunc and wall-clock time.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Schedule(delay time.Duration, fn func()) Handle {
	t := time.AfterFunc(delay, fn)
	return realHandle{t}
}

type realHandle struct{ t *time.Timer }

func (h realHandle) Cancel() { h.t.Stop() }
