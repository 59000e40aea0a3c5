package display

import "time"

// Timer is a pending delayed callback.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks. The callback runs on an arbitrary
// goroutine, like time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Dispatcher runs functions on the controller's single logical thread.
type Dispatcher interface {
	Post(f func())
}

// DispatchFunc adapts a function such as glib.IdleAdd wrapper to a Dispatcher.
type DispatchFunc func(f func())

// Post implements Dispatcher.
func (d DispatchFunc) Post(f func()) { d(f) }

// timerSlot holds at most one pending timer. It must only be used from the
// dispatcher thread. Expiry is delivered through the dispatcher; a timer
// that fired but was cancelled or replaced before its callback ran is
// recognised by its generation and ignored.
type timerSlot struct {
	clock Clock
	post  Dispatcher
	timer Timer
	gen   uint64
}

func newTimerSlot(clock Clock, post Dispatcher) timerSlot {
	return timerSlot{clock: clock, post: post}
}

// Schedule cancels any pending timer and arms a new one.
func (s *timerSlot) Schedule(d time.Duration, fn func()) {
	s.Cancel()
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() {
		s.post.Post(func() {
			if s.gen != gen || s.timer == nil {
				return
			}
			s.timer = nil
			fn()
		})
	})
}

// Cancel stops the pending timer, if any, and reports whether one was pending.
func (s *timerSlot) Cancel() bool {
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	s.gen++
	return true
}

// Pending reports whether a timer is armed.
func (s *timerSlot) Pending() bool {
	return s.timer != nil
}
