// Package system provides the wall clock used by the rate limiter outside of tests.
package system

import "time"

// Clock implements ratelimit.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
