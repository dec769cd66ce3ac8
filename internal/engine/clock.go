package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// The engine uses it to decide which occurrences are still in the future and
// which Hebrew year is the current one.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant. It backs the CLI's
// reproducible --now style computations and the tests.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.At
}
