package ports

import "time"

// Clock abstracts wall-clock time so timers can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback registered with a Clock.
type Timer interface {
	// Stop prevents the callback from running. It reports false when the
	// callback already ran or was stopped.
	Stop() bool
}
