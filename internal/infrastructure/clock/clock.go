// Package clock provides ports.Clock implementations: the wall clock used in
// production and a manually advanced clock for tests.
package clock

import (
	"time"

	"github.com/strapi/strapi-sub004/internal/ports"
)

// Wall reads the system clock and schedules callbacks with time.AfterFunc.
type Wall struct{}

// New returns the wall clock.
func New() Wall {
	return Wall{}
}

// Now returns the current UTC time.
func (Wall) Now() time.Time {
	return time.Now().UTC()
}

// AfterFunc runs f on its own goroutine once d has elapsed.
func (Wall) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}

var _ ports.Clock = Wall{}
