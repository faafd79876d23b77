package testutil

import "time"

// FixedClock implements ports.Clock and always returns Time.
type FixedClock struct {
	Time time.Time
}

// Now implements ports.Clock.
func (c FixedClock) Now() time.Time {
	return c.Time
}
