package game

import "time"

// CancelFunc stops a pending scheduled callback.
type CancelFunc func()

// Scheduler schedules a callback after a delay. The session never sleeps:
// every wait is a scheduled continuation, so tests can substitute a manual
// scheduler and drive phases without real time passing.
type Scheduler interface {
	After(d time.Duration, fn func()) CancelFunc
}

type timerScheduler struct{}

// NewTimerScheduler returns the production scheduler backed by time.AfterFunc.
func NewTimerScheduler() Scheduler { return timerScheduler{} }

func (timerScheduler) After(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
